package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointCard collects the season points of one user.
type PointCard struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_pointcard_user_season" json:"user_id"`
	Season    string    `gorm:"column:season;type:varchar(40);not null;uniqueIndex:idx_pointcard_user_season" json:"season"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (PointCard) TableName() string {
	return "PointCards"
}

func (p *PointCard) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PointRecord is one award of points.
type PointRecord struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	PointCardID uuid.UUID `gorm:"column:point_card_id;type:uuid;not null;index" json:"point_card_id"`
	Week        int       `gorm:"column:week;not null" json:"week"`
	Amount      int       `gorm:"column:amount;not null" json:"amount"`
	Reason      string    `gorm:"column:reason;type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (PointRecord) TableName() string {
	return "PointRecords"
}
