package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

// TestPassword is the plain password of every fixture user.
const TestPassword = "s3cret-pass"

// PNGDataURI is a 1x1 transparent PNG as a data URI.
const PNGDataURI = "data:image/png;base64," +
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		LastName:     "Tester",
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: strings.ToLower(name)}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

// CreateRecipe writes a recipe with the given composition directly, bypassing
// validation.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, lines map[*models.Ingredient]int) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        "Cook " + name,
		Image:       "http://localhost/media/recipes/" + name + ".png",
		CookingTime: 10,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(recipe).Error)
	for ing, amount := range lines {
		require.NoError(t, db.Omit(clause.Associations).Create(&models.RecipeIngredient{
			RecipeID: recipe.ID, IngredientID: ing.ID, Amount: amount,
		}).Error)
	}
	for _, tag := range tags {
		require.NoError(t, db.Omit(clause.Associations).Create(&models.RecipeTag{
			RecipeID: recipe.ID, TagID: tag.ID,
		}).Error)
	}
	return recipe
}

// MemoryImageStore keeps images in memory.
type MemoryImageStore struct {
	mu      sync.Mutex
	Objects map[string]*service.Image
	// SaveErr, when set, fails every Save.
	SaveErr error
}

var _ service.ImageStore = (*MemoryImageStore)(nil)

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{Objects: map[string]*service.Image{}}
}

func (s *MemoryImageStore) Save(_ context.Context, folder string, img *service.Image) (string, error) {
	if s.SaveErr != nil {
		return "", s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	url := fmt.Sprintf("mem://%s/%s%s", folder, uuid.NewString(), img.Extension)
	s.Objects[url] = img
	return url, nil
}

func (s *MemoryImageStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, url)
	return nil
}

func (s *MemoryImageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}
