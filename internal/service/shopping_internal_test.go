package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupLinesMergesByNameAndUnit(t *testing.T) {
	lines := []cartLine{
		{IngredientID: 2, Name: "Salt", MeasurementUnit: "g", Amount: 5},
		{IngredientID: 1, Name: "Salt", MeasurementUnit: "g", Amount: 3},
		{IngredientID: 3, Name: "Salt", MeasurementUnit: "pinch", Amount: 1},
		{IngredientID: 4, Name: "Apple", MeasurementUnit: "pcs", Amount: 2},
		{IngredientID: 5, Name: "apple", MeasurementUnit: "pcs", Amount: 1},
	}

	assert.Equal(t, []ShoppingListRow{
		{Name: "Apple", MeasurementUnit: "pcs", TotalAmount: 2},
		{Name: "Salt", MeasurementUnit: "g", TotalAmount: 8},
		{Name: "Salt", MeasurementUnit: "pinch", TotalAmount: 1},
		{Name: "apple", MeasurementUnit: "pcs", TotalAmount: 1},
	}, groupLines(lines))
}

func TestGroupLinesEmpty(t *testing.T) {
	rows := groupLines(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
