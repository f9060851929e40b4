package service

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sort"
	"text/template"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

// ShoppingListRow is one aggregated line: the total amount of an ingredient
// name in a unit across every recipe in the cart.
type ShoppingListRow struct {
	Name            string
	MeasurementUnit string
	TotalAmount     int
}

// ShoppingList is the aggregated cart with the recipes it came from.
type ShoppingList struct {
	Rows    []ShoppingListRow
	Recipes []ShortRecipeView
}

// cartLine is a raw recipe-ingredient row from the cart before grouping.
type cartLine struct {
	IngredientID    uint
	Name            string
	MeasurementUnit string
	Amount          int
}

// ShoppingListService aggregates a user's shopping cart.
type ShoppingListService struct {
	db *gorm.DB
}

// NewShoppingListService creates a new ShoppingListService instance
func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Aggregate sums ingredient amounts across every recipe in the user's cart,
// grouped by ingredient name and unit and sorted by name. An empty cart
// yields an empty list.
func (s *ShoppingListService) Aggregate(ctx context.Context, userID uuid.UUID) (*ShoppingList, error) {
	db := s.db.WithContext(ctx)
	inCart := db.Model(&models.ShoppingCartItem{}).Select("recipe_id").Where("user_id = ?", userID)

	var lines []cartLine
	err := db.Table("recipe_ingredients").
		Select("ingredients.id AS ingredient_id, ingredients.name, ingredients.measurement_unit, recipe_ingredients.amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("recipe_ingredients.recipe_id IN (?)", inCart).
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load shopping cart ingredients: %w", err)
	}

	var recipes []models.Recipe
	if err := db.Where("id IN (?)", inCart).Order("name").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to load shopping cart recipes: %w", err)
	}

	list := &ShoppingList{Rows: groupLines(lines), Recipes: make([]ShortRecipeView, len(recipes))}
	for i := range recipes {
		list.Recipes[i] = ToShortRecipeView(&recipes[i])
	}
	metrics.ShoppingListRows.Observe(float64(len(list.Rows)))
	return list, nil
}

// groupLines merges lines sharing a (name, unit) pair, even when they come
// from distinct catalog rows, and orders the result by name then unit using
// byte-wise comparison.
func groupLines(lines []cartLine) []ShoppingListRow {
	type key struct{ name, unit string }
	totals := make(map[key]int, len(lines))
	for _, l := range lines {
		totals[key{l.Name, l.MeasurementUnit}] += l.Amount
	}
	rows := make([]ShoppingListRow, 0, len(totals))
	for k, total := range totals {
		rows = append(rows, ShoppingListRow{Name: k.name, MeasurementUnit: k.unit, TotalAmount: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].MeasurementUnit < rows[j].MeasurementUnit
	})
	return rows
}

//go:embed shopping_list.tmpl
var shoppingListTemplate string

var shoppingListTmpl = template.Must(template.New("shopping_list").Parse(shoppingListTemplate))

// RenderShoppingList renders the downloadable text file for user.
func RenderShoppingList(list *ShoppingList, user *models.User, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := shoppingListTmpl.Execute(&buf, struct {
		User *models.User
		Date string
		List *ShoppingList
	}{user, now.Format("2006-01-02"), list})
	if err != nil {
		return nil, fmt.Errorf("failed to render shopping list: %w", err)
	}
	return buf.Bytes(), nil
}
