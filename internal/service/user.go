package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
)

const avatarImageFolder = "avatars"

// UserService handles account reads and self-service updates
type UserService struct {
	db            *gorm.DB
	images        ImageStore
	maxImageBytes int
}

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB, images ImageStore, maxImageBytes int) *UserService {
	return &UserService{db: db, images: images, maxImageBytes: maxImageBytes}
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List returns one page of users ordered by username and the total count
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	page := s.db.WithContext(ctx).Order("username")
	if limit > 0 {
		page = page.Limit(limit).Offset(offset)
	}
	if err := page.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// Views projects users with the viewer's subscription flag
func (s *UserService) Views(ctx context.Context, viewer *uuid.UUID, users []models.User) ([]UserView, error) {
	ids := make([]uuid.UUID, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	flags, err := LoadViewerFlags(ctx, s.db, viewer, nil, ids)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, len(users))
	for i := range users {
		views[i] = ToUserView(&users[i], flags.Following[users[i].ID])
	}
	return views, nil
}

// View projects one user for viewer, who may be nil.
func (s *UserService) View(ctx context.Context, viewer *uuid.UUID, user *models.User) (UserView, error) {
	views, err := s.Views(ctx, viewer, []models.User{*user})
	if err != nil {
		return UserView{}, err
	}
	return views[0], nil
}

// SetPassword replaces the password after checking the current one
func (s *UserService) SetPassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ValidationError("current_password", "current password is incorrect")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hashed)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetAvatar stores a new avatar image and returns its URL. The previous
// avatar, if any, is removed from storage.
func (s *UserService) SetAvatar(ctx context.Context, userID uuid.UUID, raw string) (string, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	img, err := DecodeImage("avatar", raw, s.maxImageBytes)
	if err != nil {
		return "", err
	}
	url, err := s.images.Save(ctx, avatarImageFolder, img)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", url).Error; err != nil {
		s.discard(ctx, url)
		return "", fmt.Errorf("failed to update avatar: %w", err)
	}
	if user.Avatar != nil {
		s.discard(ctx, *user.Avatar)
	}
	return url, nil
}

// DeleteAvatar clears the avatar. A user without one gets NotFound.
func (s *UserService) DeleteAvatar(ctx context.Context, userID uuid.UUID) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == nil {
		return NotFoundError("avatar not set")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", nil).Error; err != nil {
		return fmt.Errorf("failed to clear avatar: %w", err)
	}
	s.discard(ctx, *user.Avatar)
	return nil
}

func (s *UserService) discard(ctx context.Context, url string) {
	if err := s.images.Delete(ctx, url); err != nil {
		logging.Warn().Err(err).Str("image", url).Msg("failed to delete image")
	}
}
