// Package integration runs the services against a real PostgreSQL started
// with testcontainers. Tests skip when Docker is unavailable.
package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

const workers = 8

func TestConcurrentFavoriteAddsOneWins(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t)
	relations := service.NewRelationService(db)

	alice := testhelpers.CreateUser(t, db, "alice")
	egg := testhelpers.CreateIngredient(t, db, "Egg", "pcs")
	tag := testhelpers.CreateTag(t, db, "Breakfast")
	recipe := testhelpers.CreateRecipe(t, db, alice, "Omelette", []*models.Tag{tag}, map[*models.Ingredient]int{egg: 3})

	errs := runConcurrently(workers, func() error {
		_, err := relations.AddFavorite(context.Background(), alice.ID, recipe.ID)
		return err
	})

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)

	var n int64
	require.NoError(t, db.Model(&models.Favorite{}).Where("user_id = ? AND recipe_id = ?", alice.ID, recipe.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestConcurrentUpdatesNeverMixCompositions(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t)
	images := testhelpers.NewMemoryImageStore()
	catalog := service.NewCatalogService(db)
	recipes := service.NewRecipeService(db, service.NewCompositionValidator(catalog), images, 1<<20)

	alice := testhelpers.CreateUser(t, db, "alice")
	tag := testhelpers.CreateTag(t, db, "Dinner")
	ings := make([]*models.Ingredient, workers)
	for i := range ings {
		ings[i] = testhelpers.CreateIngredient(t, db, "Ingredient "+string(rune('A'+i)), "g")
	}
	recipe := testhelpers.CreateRecipe(t, db, alice, "Stew", []*models.Tag{tag}, map[*models.Ingredient]int{ings[0]: 1})

	var next int
	var mu sync.Mutex
	errs := runConcurrently(workers, func() error {
		mu.Lock()
		i := next
		next++
		mu.Unlock()
		// Each writer replaces the composition with a distinct pair.
		in := &service.RecipeInput{
			Name:        "Stew",
			Text:        "Simmer.",
			CookingTime: 30,
			Ingredients: []service.IngredientAmount{
				{ID: ings[i].ID, Amount: 10},
				{ID: ings[(i+1)%workers].ID, Amount: 20},
			},
			Tags: []uint{tag.ID},
		}
		_, err := recipes.Update(context.Background(), alice.ID, recipe.ID, in)
		return err
	})
	for _, err := range errs {
		require.NoError(t, err)
	}

	var lines []models.RecipeIngredient
	require.NoError(t, db.Where("recipe_id = ?", recipe.ID).Order("amount").Find(&lines).Error)
	require.Len(t, lines, 2)
	assert.Equal(t, 10, lines[0].Amount)
	assert.Equal(t, 20, lines[1].Amount)

	var tags int64
	require.NoError(t, db.Model(&models.RecipeTag{}).Where("recipe_id = ?", recipe.ID).Count(&tags).Error)
	assert.EqualValues(t, 1, tags)
}

func TestShoppingListOnPostgres(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t)
	relations := service.NewRelationService(db)
	shopping := service.NewShoppingListService(db)

	alice := testhelpers.CreateUser(t, db, "alice")
	flour := testhelpers.CreateIngredient(t, db, "Flour", "g")
	egg := testhelpers.CreateIngredient(t, db, "Egg", "pcs")
	tag := testhelpers.CreateTag(t, db, "Baking")
	a := testhelpers.CreateRecipe(t, db, alice, "Bread", []*models.Tag{tag}, map[*models.Ingredient]int{flour: 500})
	b := testhelpers.CreateRecipe(t, db, alice, "Cake", []*models.Tag{tag}, map[*models.Ingredient]int{flour: 250, egg: 3})

	ctx := context.Background()
	for _, r := range []*models.Recipe{a, b} {
		_, err := relations.AddToCart(ctx, alice.ID, r.ID)
		require.NoError(t, err)
	}

	list, err := shopping.Aggregate(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []service.ShoppingListRow{
		{Name: "Egg", MeasurementUnit: "pcs", TotalAmount: 3},
		{Name: "Flour", MeasurementUnit: "g", TotalAmount: 750},
	}, list.Rows)

	out, err := service.RenderShoppingList(list, alice, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, string(out), "Flour (g) — 750")
}

func TestDeleteUserCascadesOnPostgres(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t)
	alice := testhelpers.CreateUser(t, db, "alice")
	bob := testhelpers.CreateUser(t, db, "bob")
	egg := testhelpers.CreateIngredient(t, db, "Egg", "pcs")
	tag := testhelpers.CreateTag(t, db, "Breakfast")
	recipe := testhelpers.CreateRecipe(t, db, alice, "Omelette", []*models.Tag{tag}, map[*models.Ingredient]int{egg: 2})
	require.NoError(t, db.Omit(clause.Associations).Create(&models.Favorite{UserID: bob.ID, RecipeID: recipe.ID}).Error)

	require.NoError(t, db.Delete(&models.User{}, "id = ?", alice.ID).Error)

	err := db.First(&models.Recipe{}, "id = ?", recipe.ID).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	var favs int64
	require.NoError(t, db.Model(&models.Favorite{}).Where("user_id = ?", bob.ID).Count(&favs).Error)
	assert.Zero(t, favs)
}

// runConcurrently starts n calls of fn together and collects their errors.
func runConcurrently(n int, fn func() error) []error {
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}


func TestIngredientPrefixSearchIsCaseInsensitiveForCyrillic(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t)
	catalog := service.NewCatalogService(db)
	testhelpers.CreateIngredient(t, db, "Мука пшеничная", "г")
	testhelpers.CreateIngredient(t, db, "молоко", "мл")
	testhelpers.CreateIngredient(t, db, "Яйцо", "шт")

	ctx := context.Background()
	for _, prefix := range []string{"МУ", "му", "Му"} {
		found, err := catalog.ListIngredients(ctx, prefix)
		require.NoError(t, err)
		require.Len(t, found, 1, prefix)
		assert.Equal(t, "Мука пшеничная", found[0].Name)
	}

	found, err := catalog.ListIngredients(ctx, "МОЛ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "мл", found[0].MeasurementUnit)
}
