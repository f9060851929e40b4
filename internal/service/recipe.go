package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

const recipeImageFolder = "recipes"

// RecipeFilter narrows a recipe listing. Favorited and InCart only apply
// when the viewer is known.
type RecipeFilter struct {
	AuthorID  *uuid.UUID
	TagSlugs  []string
	Favorited bool
	InCart    bool
	Limit     int
	Offset    int
}

// RecipeService validates and persists recipe compositions and serves the
// read side.
type RecipeService struct {
	db            *gorm.DB
	validator     *CompositionValidator
	images        ImageStore
	maxImageBytes int
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, validator *CompositionValidator, images ImageStore, maxImageBytes int) *RecipeService {
	return &RecipeService{db: db, validator: validator, images: images, maxImageBytes: maxImageBytes}
}

// Create validates in and writes the recipe with its full ingredient and tag
// sets in one transaction.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, in *RecipeInput) (recipe *models.Recipe, err error) {
	defer func() { metrics.RecipeWrites.WithLabelValues("create", metrics.Outcome(err, KindOf)).Inc() }()

	if err := s.validator.Validate(ctx, in, true); err != nil {
		return nil, err
	}
	img, err := DecodeImage("image", in.Image, s.maxImageBytes)
	if err != nil {
		return nil, err
	}
	imageURL, err := s.images.Save(ctx, recipeImageFolder, img)
	if err != nil {
		return nil, err
	}

	r := &models.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Text:        in.Text,
		Image:       imageURL,
		CookingTime: in.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return writeComposition(tx, r.ID, in)
	})
	if err != nil {
		s.discardImage(ctx, imageURL)
		return nil, err
	}

	logging.Info().Str("recipe_id", r.ID.String()).Str("author_id", authorID.String()).Msg("recipe created")
	return s.Get(ctx, r.ID)
}

// Update replaces the recipe's ingredient and tag sets and its scalar fields.
// Both ingredients and tags must be supplied. Image is optional and keeps the
// current one when empty.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID uuid.UUID, in *RecipeInput) (recipe *models.Recipe, err error) {
	defer func() { metrics.RecipeWrites.WithLabelValues("update", metrics.Outcome(err, KindOf)).Inc() }()

	var missing []string
	if in.Ingredients == nil {
		missing = append(missing, "ingredients")
	}
	if in.Tags == nil {
		missing = append(missing, "tags")
	}
	if len(missing) > 0 {
		return nil, MissingFieldError(missing...)
	}

	current, err := s.authorize(ctx, actorID, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(ctx, in, false); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         in.Name,
		"text":         in.Text,
		"cooking_time": in.CookingTime,
	}
	var newImage string
	if in.Image != "" {
		img, err := DecodeImage("image", in.Image, s.maxImageBytes)
		if err != nil {
			return nil, err
		}
		if newImage, err = s.images.Save(ctx, recipeImageFolder, img); err != nil {
			return nil, err
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, recipeID); err != nil {
			return err
		}
		if err := deleteComposition(tx, recipeID); err != nil {
			return err
		}
		if err := writeComposition(tx, recipeID, in); err != nil {
			return err
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		if newImage != "" {
			s.discardImage(ctx, newImage)
		}
		return nil, err
	}
	if newImage != "" {
		s.discardImage(ctx, current.Image)
	}

	logging.Info().Str("recipe_id", recipeID.String()).Msg("recipe updated")
	return s.Get(ctx, recipeID)
}

// Delete removes the recipe and everything that references it. The cascade
// is spelled out so it holds on stores without foreign-key enforcement.
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID uuid.UUID) (err error) {
	defer func() { metrics.RecipeWrites.WithLabelValues("delete", metrics.Outcome(err, KindOf)).Inc() }()

	current, err := s.authorize(ctx, actorID, recipeID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, recipeID); err != nil {
			return err
		}
		if err := deleteComposition(tx, recipeID); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("failed to delete favorites: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.ShoppingCartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete shopping cart entries: %w", err)
		}
		if err := tx.Delete(&models.Recipe{}, "id = ?", recipeID).Error; err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.discardImage(ctx, current.Image)
	logging.Info().Str("recipe_id", recipeID.String()).Msg("recipe deleted")
	return nil
}

// Get loads a recipe with its author and composition.
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var r models.Recipe
	err := s.preload(s.db.WithContext(ctx)).First(&r, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("recipe not found")
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &r, nil
}

// List returns one page of recipes, newest first, and the total match count.
func (s *RecipeService) List(ctx context.Context, viewer *uuid.UUID, f RecipeFilter) ([]models.Recipe, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})
	if f.AuthorID != nil {
		q = q.Where("recipes.author_id = ?", *f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		q = q.Where("recipes.id IN (?)", s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs))
	}
	if viewer != nil && f.Favorited {
		q = q.Where("recipes.id IN (?)", s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *viewer))
	}
	if viewer != nil && f.InCart {
		q = q.Where("recipes.id IN (?)", s.db.Model(&models.ShoppingCartItem{}).Select("recipe_id").Where("user_id = ?", *viewer))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	q = s.preload(q).Order("recipes.created_at DESC").Order("recipes.id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// Views projects recipes for viewer, loading the viewer flags in batch.
func (s *RecipeService) Views(ctx context.Context, viewer *uuid.UUID, recipes []models.Recipe) ([]RecipeView, error) {
	recipeIDs := make([]uuid.UUID, len(recipes))
	authorIDs := make([]uuid.UUID, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}
	flags, err := LoadViewerFlags(ctx, s.db, viewer, recipeIDs, authorIDs)
	if err != nil {
		return nil, err
	}
	views := make([]RecipeView, len(recipes))
	for i := range recipes {
		views[i] = ToRecipeView(&recipes[i], flags)
	}
	return views, nil
}

// View projects a single recipe for viewer.
func (s *RecipeService) View(ctx context.Context, viewer *uuid.UUID, r *models.Recipe) (RecipeView, error) {
	views, err := s.Views(ctx, viewer, []models.Recipe{*r})
	if err != nil {
		return RecipeView{}, err
	}
	return views[0], nil
}

func (s *RecipeService) preload(q *gorm.DB) *gorm.DB {
	return q.Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_tags.id") }).
		Preload("Tags.Tag")
}

// authorize loads the recipe and checks that actor is its author.
func (s *RecipeService) authorize(ctx context.Context, actorID, recipeID uuid.UUID) (*models.Recipe, error) {
	var r models.Recipe
	if err := s.db.WithContext(ctx).First(&r, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("recipe not found")
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if r.AuthorID != actorID {
		return nil, AuthorizationError("only the author can modify this recipe")
	}
	return &r, nil
}

func (s *RecipeService) discardImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		logging.Warn().Err(err).Str("image", url).Msg("failed to delete image")
	}
}

// lockRecipe takes the row lock that serialises concurrent writers of one
// recipe, so a replacement never interleaves with another. SQLite has no row
// locks and already allows a single writer.
func lockRecipe(tx *gorm.DB, recipeID uuid.UUID) error {
	var r models.Recipe
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&r, "id = ?", recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError("recipe not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock recipe: %w", err)
	}
	return nil
}

func writeComposition(tx *gorm.DB, recipeID uuid.UUID, in *RecipeInput) error {
	lines := make([]models.RecipeIngredient, len(in.Ingredients))
	for i, it := range in.Ingredients {
		lines[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: it.ID, Amount: it.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
		return fmt.Errorf("failed to create recipe ingredients: %w", err)
	}

	tags := make([]models.RecipeTag, len(in.Tags))
	for i, id := range in.Tags {
		tags[i] = models.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	if err := tx.Omit(clause.Associations).Create(&tags).Error; err != nil {
		return fmt.Errorf("failed to create recipe tags: %w", err)
	}
	return nil
}

func deleteComposition(tx *gorm.DB, recipeID uuid.UUID) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return fmt.Errorf("failed to delete recipe ingredients: %w", err)
	}
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
		return fmt.Errorf("failed to delete recipe tags: %w", err)
	}
	return nil
}
