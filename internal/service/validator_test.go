package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
)

func TestCompositionValidator(t *testing.T) {
	env := newTestEnv(t)
	k := stockKitchen(t, env.db)
	v := service.NewCompositionValidator(env.catalog)
	ctx := context.Background()
	tags := []uint{k.breakfast.ID}

	tests := []struct {
		name    string
		input   *service.RecipeInput
		kind    error
		field   string
		message string
	}{
		{
			name:  "valid",
			input: recipeInput("Pancakes", tags, line(k.flour, 200), line(k.egg, 2)),
		},
		{
			name:    "empty ingredients",
			input:   recipeInput("Pancakes", tags),
			kind:    service.ErrValidation,
			field:   "ingredients",
			message: "at least one ingredient is required",
		},
		{
			name:    "unknown ingredient",
			input:   recipeInput("Pancakes", tags, service.IngredientAmount{ID: 999, Amount: 1}),
			kind:    service.ErrReference,
			field:   "ingredients",
			message: "ingredient with id 999 does not exist",
		},
		{
			name:    "zero amount",
			input:   recipeInput("Pancakes", tags, line(k.flour, 0)),
			kind:    service.ErrRange,
			field:   "ingredients",
			message: "amount of Flour must be at least 1",
		},
		{
			name:    "amount above the cap",
			input:   recipeInput("Pancakes", tags, line(k.flour, service.MaxIngredientAmount+1)),
			kind:    service.ErrRange,
			field:   "ingredients",
			message: "amount of Flour must be at most 32767",
		},
		{
			name:  "amount at the cap",
			input: recipeInput("Pancakes", tags, line(k.flour, service.MaxIngredientAmount)),
		},
		{
			name:    "duplicate ingredients",
			input:   recipeInput("Pancakes", tags, line(k.milk, 1), line(k.flour, 1), line(k.milk, 2), line(k.flour, 3)),
			kind:    service.ErrDuplicate,
			field:   "ingredients",
			message: "duplicate ingredients: Flour, Milk",
		},
		{
			name:    "empty tags",
			input:   recipeInput("Pancakes", []uint{}, line(k.flour, 1)),
			kind:    service.ErrValidation,
			field:   "tags",
			message: "at least one tag is required",
		},
		{
			name:    "duplicate tags",
			input:   recipeInput("Pancakes", []uint{k.lunch.ID, k.breakfast.ID, k.lunch.ID}, line(k.flour, 1)),
			kind:    service.ErrDuplicate,
			field:   "tags",
			message: "duplicate tags: Lunch",
		},
		{
			name:    "unknown tag",
			input:   recipeInput("Pancakes", []uint{k.lunch.ID, 404}, line(k.flour, 1)),
			kind:    service.ErrReference,
			field:   "tags",
			message: "tag with id 404 does not exist",
		},
		{
			name: "cooking time below one minute",
			input: func() *service.RecipeInput {
				in := recipeInput("Pancakes", tags, line(k.flour, 1))
				in.CookingTime = 0
				return in
			}(),
			kind:    service.ErrRange,
			field:   "cooking_time",
			message: "cooking time cannot be less than 1 minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.input, true)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.kind)
			var se *service.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.message, se.Fields[tt.field])
		})
	}
}

func TestCompositionValidatorChecksIngredientsBeforeTags(t *testing.T) {
	env := newTestEnv(t)
	k := stockKitchen(t, env.db)
	v := service.NewCompositionValidator(env.catalog)

	in := recipeInput("Pancakes", []uint{}, line(k.egg, 1), line(k.egg, 1))
	in.CookingTime = 0

	err := v.Validate(context.Background(), in, true)
	assert.ErrorIs(t, err, service.ErrDuplicate)
}

func TestCompositionValidatorScalarFields(t *testing.T) {
	env := newTestEnv(t)
	k := stockKitchen(t, env.db)
	v := service.NewCompositionValidator(env.catalog)

	in := recipeInput("", []uint{k.lunch.ID}, line(k.egg, 1))
	in.Text = ""
	in.Image = ""

	err := v.Validate(context.Background(), in, true)
	require.ErrorIs(t, err, service.ErrValidation)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, map[string]string{
		"name":  "This field is required.",
		"text":  "This field is required.",
		"image": "This field is required.",
	}, se.Fields)

	in.Name, in.Text = "Eggs", "Boil."
	assert.NoError(t, v.Validate(context.Background(), in, false))
}
