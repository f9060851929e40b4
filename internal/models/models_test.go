package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(All()...))
	return db
}

func TestUserBeforeCreateAssignsID(t *testing.T) {
	db := setupTestDB(t)
	user := &User{Email: "cook@example.com", Username: "cook", FirstName: "A", LastName: "B", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	assert.NotEqual(t, uuid.Nil, user.ID)
}

func TestUserEmailUnique(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&User{Email: "a@example.com", Username: "a", PasswordHash: "x"}).Error)
	err := db.Create(&User{Email: "a@example.com", Username: "b", PasswordHash: "x"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestIngredientNameUnitUnique(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&Ingredient{Name: "salt", MeasurementUnit: "g"}).Error)
	require.NoError(t, db.Create(&Ingredient{Name: "salt", MeasurementUnit: "pinch"}).Error)
	err := db.Create(&Ingredient{Name: "salt", MeasurementUnit: "g"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestRelationPairsUnique(t *testing.T) {
	db := setupTestDB(t)
	user := &User{Email: "u@example.com", Username: "u", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	recipe := &Recipe{AuthorID: user.ID, Name: "soup", Text: "boil", Image: "img", CookingTime: 5}
	require.NoError(t, db.Omit(clause.Associations).Create(recipe).Error)

	require.NoError(t, db.Omit(clause.Associations).Create(&Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error)
	err := db.Omit(clause.Associations).Create(&Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, db.Omit(clause.Associations).Create(&ShoppingCartItem{UserID: user.ID, RecipeID: recipe.ID}).Error)
	err = db.Omit(clause.Associations).Create(&ShoppingCartItem{UserID: user.ID, RecipeID: recipe.ID}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
