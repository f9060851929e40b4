package models

import (
	"time"

	"github.com/google/uuid"
)

type Favorite struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_favorite_pair"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_favorite_pair;index"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

type ShoppingCartItem struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_pair"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_pair;index"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// All lists every model in dependency order for auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&RecipeTag{},
		&Favorite{},
		&ShoppingCartItem{},
	}
}
