package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:varchar(36);primarykey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Email        string  `gorm:"size:254;uniqueIndex;not null"`
	Username     string  `gorm:"size:150;uniqueIndex;not null"`
	FirstName    string  `gorm:"size:150;not null"`
	LastName     string  `gorm:"size:150;not null"`
	PasswordHash string  `gorm:"not null"`
	Avatar       *string `gorm:"size:512"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Follow records that Follower subscribes to Author's recipes.
type Follow struct {
	ID         uint      `gorm:"primarykey"`
	CreatedAt  time.Time
	FollowerID uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair"`
	AuthorID   uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair;index"`
	Follower   User      `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}
