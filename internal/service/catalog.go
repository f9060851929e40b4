package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
)

const importBatchSize = 500

// CatalogService serves the read-only ingredient and tag reference data and
// loads it in bulk.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListTags returns every tag ordered by id.
func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// GetTag returns one tag or NotFoundError.
func (s *CatalogService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("tag not found")
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// ListIngredients returns ingredients whose name starts with prefix,
// case-insensitively. An empty prefix lists everything. SQLite folds case
// for ASCII letters only.
func (s *CatalogService) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	q := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}
	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

// GetIngredient returns one ingredient or NotFoundError.
func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("ingredient not found")
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ingredient, nil
}

// IngredientsByID loads the ingredients among ids that exist.
func (s *CatalogService) IngredientsByID(ctx context.Context, ids []uint) (map[uint]models.Ingredient, error) {
	out := make(map[uint]models.Ingredient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Ingredient
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to look up ingredients: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// TagsByID loads the tags among ids that exist.
func (s *CatalogService) TagsByID(ctx context.Context, ids []uint) (map[uint]models.Tag, error) {
	out := make(map[uint]models.Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to look up tags: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// ImportIngredients inserts ingredients, skipping any (name, unit) pair that
// already exists. Names are trimmed and NFC-normalised. It returns the number
// of rows actually inserted.
func (s *CatalogService) ImportIngredients(ctx context.Context, items []models.Ingredient) (int64, error) {
	seen := make(map[[2]string]bool, len(items))
	rows := make([]models.Ingredient, 0, len(items))
	for _, it := range items {
		name, unit := normalize(it.Name), normalize(it.MeasurementUnit)
		key := [2]string{name, unit}
		if name == "" || unit == "" || seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, importBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to import ingredients: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ImportTags inserts tags, skipping names or slugs that already exist.
func (s *CatalogService) ImportTags(ctx context.Context, items []models.Tag) (int64, error) {
	rows := make([]models.Tag, 0, len(items))
	for _, it := range items {
		name, slug := normalize(it.Name), strings.ToLower(normalize(it.Slug))
		if name == "" || slug == "" {
			continue
		}
		rows = append(rows, models.Tag{Name: name, Slug: slug})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, importBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to import tags: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
