package service_test

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type testEnv struct {
	db        *gorm.DB
	images    *testhelpers.MemoryImageStore
	catalog   *service.CatalogService
	recipes   *service.RecipeService
	relations *service.RelationService
	shopping  *service.ShoppingListService
	users     *service.UserService
	auth      *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDatabase(t)
	images := testhelpers.NewMemoryImageStore()
	catalog := service.NewCatalogService(db)
	return &testEnv{
		db:        db,
		images:    images,
		catalog:   catalog,
		recipes:   service.NewRecipeService(db, service.NewCompositionValidator(catalog), images, 1<<20),
		relations: service.NewRelationService(db),
		shopping:  service.NewShoppingListService(db),
		users:     service.NewUserService(db, images, 1<<20),
		auth:      service.NewAuthService(db, "test-secret", "foodgram-test", time.Hour, service.NewMemoryDenylist()),
	}
}

// kitchen is a small catalog shared by recipe tests.
type kitchen struct {
	flour, egg, milk *models.Ingredient
	breakfast, lunch *models.Tag
}

func stockKitchen(t *testing.T, db *gorm.DB) kitchen {
	t.Helper()
	return kitchen{
		flour:     testhelpers.CreateIngredient(t, db, "Flour", "g"),
		egg:       testhelpers.CreateIngredient(t, db, "Egg", "pcs"),
		milk:      testhelpers.CreateIngredient(t, db, "Milk", "ml"),
		breakfast: testhelpers.CreateTag(t, db, "Breakfast"),
		lunch:     testhelpers.CreateTag(t, db, "Lunch"),
	}
}

func recipeInput(name string, tags []uint, lines ...service.IngredientAmount) *service.RecipeInput {
	return &service.RecipeInput{
		Name:        name,
		Text:        "Mix and cook.",
		Image:       testhelpers.PNGDataURI,
		CookingTime: 15,
		Ingredients: lines,
		Tags:        tags,
	}
}

func line(ing *models.Ingredient, amount int) service.IngredientAmount {
	return service.IngredientAmount{ID: ing.ID, Amount: amount}
}
