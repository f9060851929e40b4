package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TagView is the public shape of a tag.
type TagView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// IngredientView is the public shape of a catalog ingredient.
type IngredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// RecipeIngredientView is an ingredient with its amount in one recipe.
type RecipeIngredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// UserView is a user as seen by the current viewer.
type UserView struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
	Avatar       *string   `json:"avatar"`
}

// RecipeView is a full recipe with viewer-specific flags.
type RecipeView struct {
	ID               uuid.UUID              `json:"id"`
	Tags             []TagView              `json:"tags"`
	Author           UserView               `json:"author"`
	Ingredients      []RecipeIngredientView `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

// ShortRecipeView is the compact recipe used in relations and subscriptions.
type ShortRecipeView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

// FollowedUserView is an author as seen from the subscriptions list.
type FollowedUserView struct {
	UserView
	Recipes      []ShortRecipeView `json:"recipes"`
	RecipesCount int64             `json:"recipes_count"`
}

// ToTagView projects a tag.
func ToTagView(t models.Tag) TagView {
	return TagView{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

// ToIngredientView projects a catalog ingredient.
func ToIngredientView(i models.Ingredient) IngredientView {
	return IngredientView{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// ToUserView projects u with the given subscription flag.
func ToUserView(u *models.User, subscribed bool) UserView {
	return UserView{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
		Avatar:       u.Avatar,
	}
}

// ToShortRecipeView projects r without author or composition.
func ToShortRecipeView(r *models.Recipe) ShortRecipeView {
	return ShortRecipeView{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

// ToRecipeView projects a recipe loaded with its author and composition.
func ToRecipeView(r *models.Recipe, flags ViewerFlags) RecipeView {
	v := RecipeView{
		ID:               r.ID,
		Tags:             make([]TagView, len(r.Tags)),
		Author:           ToUserView(&r.Author, flags.Following[r.AuthorID]),
		Ingredients:      make([]RecipeIngredientView, len(r.Ingredients)),
		IsFavorited:      flags.Favorited[r.ID],
		IsInShoppingCart: flags.InCart[r.ID],
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
	for i, t := range r.Tags {
		v.Tags[i] = ToTagView(t.Tag)
	}
	for i, ri := range r.Ingredients {
		v.Ingredients[i] = RecipeIngredientView{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		}
	}
	return v
}

// ViewerFlags holds the per-viewer booleans shown alongside recipes and
// users. The zero value is what an anonymous viewer sees.
type ViewerFlags struct {
	Favorited map[uuid.UUID]bool
	InCart    map[uuid.UUID]bool
	Following map[uuid.UUID]bool
}

// LoadViewerFlags fetches, in three queries, which of recipeIDs the viewer
// favorited or carted and which of authorIDs the viewer follows.
func LoadViewerFlags(ctx context.Context, db *gorm.DB, viewer *uuid.UUID, recipeIDs, authorIDs []uuid.UUID) (ViewerFlags, error) {
	flags := ViewerFlags{
		Favorited: map[uuid.UUID]bool{},
		InCart:    map[uuid.UUID]bool{},
		Following: map[uuid.UUID]bool{},
	}
	if viewer == nil {
		return flags, nil
	}
	db = db.WithContext(ctx)

	if len(recipeIDs) > 0 {
		var fav []uuid.UUID
		if err := db.Model(&models.Favorite{}).Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
			Pluck("recipe_id", &fav).Error; err != nil {
			return flags, fmt.Errorf("failed to load favorites: %w", err)
		}
		for _, id := range fav {
			flags.Favorited[id] = true
		}

		var cart []uuid.UUID
		if err := db.Model(&models.ShoppingCartItem{}).Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
			Pluck("recipe_id", &cart).Error; err != nil {
			return flags, fmt.Errorf("failed to load shopping cart: %w", err)
		}
		for _, id := range cart {
			flags.InCart[id] = true
		}
	}

	if len(authorIDs) > 0 {
		var following []uuid.UUID
		if err := db.Model(&models.Follow{}).Where("follower_id = ? AND author_id IN ?", *viewer, authorIDs).
			Pluck("author_id", &following).Error; err != nil {
			return flags, fmt.Errorf("failed to load subscriptions: %w", err)
		}
		for _, id := range following {
			flags.Following[id] = true
		}
	}
	return flags, nil
}
