package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

// AllRecipes asks followed-user views for every recipe of the author.
const AllRecipes = -1

// RelationService adds and removes favorites, shopping cart entries and
// follows. Adding an existing relation is a conflict and removing a missing
// one is not found; neither is idempotent.
type RelationService struct {
	db *gorm.DB
}

// NewRelationService creates a new RelationService instance
func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

// AddFavorite marks a recipe as a favorite of the user.
func (s *RelationService) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) (view *ShortRecipeView, err error) {
	defer observe("favorite", "add", &err)
	return s.addRecipeRelation(ctx, userID, recipeID, &models.Favorite{UserID: userID, RecipeID: recipeID}, "recipe is already in favorites")
}

// RemoveFavorite drops a recipe from the user's favorites.
func (s *RelationService) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) (err error) {
	defer observe("favorite", "remove", &err)
	return s.remove(ctx, &models.Favorite{}, "recipe is not in favorites",
		"user_id = ? AND recipe_id = ?", userID, recipeID)
}

// AddToCart puts a recipe into the user's shopping cart.
func (s *RelationService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) (view *ShortRecipeView, err error) {
	defer observe("shopping_cart", "add", &err)
	return s.addRecipeRelation(ctx, userID, recipeID, &models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}, "recipe is already in the shopping cart")
}

// RemoveFromCart takes a recipe out of the user's shopping cart.
func (s *RelationService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) (err error) {
	defer observe("shopping_cart", "remove", &err)
	return s.remove(ctx, &models.ShoppingCartItem{}, "recipe is not in the shopping cart",
		"user_id = ? AND recipe_id = ?", userID, recipeID)
}

// Follow subscribes follower to author and returns the author with up to
// recipesLimit of their latest recipes. AllRecipes lifts the cap and zero
// returns none.
func (s *RelationService) Follow(ctx context.Context, followerID, authorID uuid.UUID, recipesLimit int) (view *FollowedUserView, err error) {
	defer observe("follow", "add", &err)
	if followerID == authorID {
		return nil, ValidationError("author", "you cannot subscribe to yourself")
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	row := &models.Follow{FollowerID: followerID, AuthorID: authorID}
	if err := s.insert(ctx, row, "already subscribed to "+author.Username,
		"follower_id = ? AND author_id = ?", followerID, authorID); err != nil {
		return nil, err
	}

	views, err := s.followedViews(ctx, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unfollow removes the follower's subscription to author.
func (s *RelationService) Unfollow(ctx context.Context, followerID, authorID uuid.UUID) (err error) {
	defer observe("follow", "remove", &err)
	if followerID == authorID {
		return ValidationError("author", "you cannot unsubscribe from yourself")
	}
	return s.remove(ctx, &models.Follow{}, "subscription not found",
		"follower_id = ? AND author_id = ?", followerID, authorID)
}

// Subscriptions lists one page of the authors follower subscribes to, with
// the total count.
func (s *RelationService) Subscriptions(ctx context.Context, followerID uuid.UUID, limit, offset, recipesLimit int) ([]FollowedUserView, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.follower_id = ?", followerID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	page := q.Order("users.username")
	if limit > 0 {
		page = page.Limit(limit).Offset(offset)
	}
	if err := page.Find(&authors).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	views, err := s.followedViews(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *RelationService) followedViews(ctx context.Context, authors []models.User, recipesLimit int) ([]FollowedUserView, error) {
	db := s.db.WithContext(ctx)
	views := make([]FollowedUserView, len(authors))
	for i := range authors {
		a := &authors[i]
		v := FollowedUserView{UserView: ToUserView(a, true), Recipes: []ShortRecipeView{}}

		if err := db.Model(&models.Recipe{}).Where("author_id = ?", a.ID).Count(&v.RecipesCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count recipes: %w", err)
		}
		if recipesLimit == 0 {
			views[i] = v
			continue
		}
		q := db.Where("author_id = ?", a.ID).Order("created_at DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if err := q.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}
		for j := range recipes {
			v.Recipes = append(v.Recipes, ToShortRecipeView(&recipes[j]))
		}
		views[i] = v
	}
	return views, nil
}

func (s *RelationService) addRecipeRelation(ctx context.Context, userID, recipeID uuid.UUID, row interface{}, conflictMsg string) (*ShortRecipeView, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("recipe not found")
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if err := s.insert(ctx, row, conflictMsg, "user_id = ? AND recipe_id = ?", userID, recipeID); err != nil {
		return nil, err
	}
	view := ToShortRecipeView(&recipe)
	return &view, nil
}

// insert creates a relation row. The pre-check only saves a failed insert;
// the unique index decides concurrent adds.
func (s *RelationService) insert(ctx context.Context, row interface{}, conflictMsg, where string, args ...interface{}) error {
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(row).Where(where, args...).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check relation: %w", err)
	}
	if n > 0 {
		return ConflictError(conflictMsg)
	}
	if err := db.Omit(clause.Associations).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ConflictError(conflictMsg)
		}
		return fmt.Errorf("failed to create relation: %w", err)
	}
	return nil
}

func (s *RelationService) remove(ctx context.Context, model interface{}, notFoundMsg, where string, args ...interface{}) error {
	res := s.db.WithContext(ctx).Where(where, args...).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("failed to delete relation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFoundError(notFoundMsg)
	}
	return nil
}

func observe(relation, action string, err *error) {
	metrics.RelationToggles.WithLabelValues(relation, action, metrics.Outcome(*err, KindOf)).Inc()
}
