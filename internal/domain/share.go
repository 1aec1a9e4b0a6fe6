package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Share is the units of one stock owned by one user. A row never exists with
// zero units.
type Share struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	StockID   uuid.UUID `gorm:"column:stock_id;type:uuid;not null;uniqueIndex:idx_share_stock_user" json:"stock_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_share_stock_user" json:"user_id"`
	Units     int       `gorm:"column:units;not null" json:"units"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Share) TableName() string {
	return "Shares"
}

func (s *Share) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
