package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Recipe struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primarykey"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	AuthorID    uuid.UUID `gorm:"type:varchar(36);not null;index"`
	Author      User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Name        string    `gorm:"size:256;not null"`
	Text        string    `gorm:"type:text;not null"`
	Image       string    `gorm:"size:512;not null"`
	CookingTime int       `gorm:"not null"`

	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Tags        []RecipeTag        `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (r *Recipe) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecipeIngredient is one line of a recipe's composition. Rows are replaced
// wholesale on update, never edited in place.
type RecipeIngredient struct {
	ID           uint       `gorm:"primarykey"`
	RecipeID     uuid.UUID  `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredient_amount,amount >= 1 AND amount <= 32767"`
}

type RecipeTag struct {
	ID       uint      `gorm:"primarykey"`
	RecipeID uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_tag"`
	TagID    uint      `gorm:"not null;uniqueIndex:idx_recipe_tag;index"`
	Tag      Tag       `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}
