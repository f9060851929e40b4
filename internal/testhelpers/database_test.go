package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
)

func TestSetupTestDatabaseIsolated(t *testing.T) {
	a := SetupTestDatabase(t)
	b := SetupTestDatabase(t)

	CreateUser(t, a, "alice")

	var n int64
	require.NoError(t, b.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateRecipeFixture(t *testing.T) {
	db := SetupTestDatabase(t)
	author := CreateUser(t, db, "chef")
	tag := CreateTag(t, db, "Breakfast")
	egg := CreateIngredient(t, db, "Egg", "pcs")

	recipe := CreateRecipe(t, db, author, "omelette", []*models.Tag{tag}, map[*models.Ingredient]int{egg: 3})

	var lines []models.RecipeIngredient
	require.NoError(t, db.Where("recipe_id = ?", recipe.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Amount)
}
