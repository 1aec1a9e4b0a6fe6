package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a coach taking part in the market, identified by the external chat id.
type User struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ExternalID int64     `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	Name       string    `gorm:"column:name;type:varchar(80);not null;uniqueIndex" json:"name"`
	Deleted    bool      `gorm:"column:deleted;not null;default:false" json:"deleted"`
	CreatedAt  time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Active reports whether the user has not been soft deleted.
func (u *User) Active() bool {
	return !u.Deleted
}

// Mention renders the chat mention for notifications.
func (u *User) Mention() string {
	return fmt.Sprintf("<@%d>", u.ExternalID)
}
