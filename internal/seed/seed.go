// Package seed parses the catalog fixture files loaded by cmd/load_catalog.
//
// Ingredients come as CSV rows of "name,measurement_unit" or as a JSON array
// of {"name", "measurement_unit"} objects. Tags come as a JSON array of
// {"name", "slug"} objects.
package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/pageza/foodgram/backend/internal/models"
)

type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagRecord struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ParseIngredientsCSV reads headerless "name,unit" rows. Rows with fewer than
// two columns are skipped; extra columns are ignored.
func ParseIngredientsCSV(r io.Reader) ([]models.Ingredient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []models.Ingredient
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ingredients csv: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		out = append(out, models.Ingredient{
			Name:            strings.TrimSpace(row[0]),
			MeasurementUnit: strings.TrimSpace(row[1]),
		})
	}
}

func ParseIngredientsJSON(r io.Reader) ([]models.Ingredient, error) {
	var records []ingredientRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode ingredients json: %w", err)
	}
	out := make([]models.Ingredient, 0, len(records))
	for _, rec := range records {
		out = append(out, models.Ingredient{Name: rec.Name, MeasurementUnit: rec.MeasurementUnit})
	}
	return out, nil
}

func ParseTagsJSON(r io.Reader) ([]models.Tag, error) {
	var records []tagRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode tags json: %w", err)
	}
	out := make([]models.Tag, 0, len(records))
	for _, rec := range records {
		out = append(out, models.Tag{Name: rec.Name, Slug: rec.Slug})
	}
	return out, nil
}

// LoadIngredients parses path as CSV or JSON depending on its extension.
func LoadIngredients(path string) ([]models.Ingredient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseIngredientsCSV(f)
	case ".json":
		return ParseIngredientsJSON(f)
	default:
		return nil, fmt.Errorf("unsupported ingredients file %s: want .csv or .json", path)
	}
}

func LoadTags(path string) ([]models.Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTagsJSON(f)
}
