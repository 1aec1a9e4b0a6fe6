package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock is a tradable unit backed by a fantasy team. Prices come from the
// external feed only.
type Stock struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"column:name;type:varchar(80);not null;uniqueIndex" json:"name"`
	Code            string          `gorm:"column:code;type:varchar(30);not null;uniqueIndex" json:"code"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(20,7);not null;default:0" json:"unit_price"`
	UnitPriceChange decimal.Decimal `gorm:"column:unit_price_change;type:numeric(20,7);not null;default:0" json:"unit_price_change"`
	Race            string          `gorm:"column:race;type:varchar(80)" json:"race"`
	Coach           string          `gorm:"column:coach;type:varchar(80)" json:"coach"`
	Division        string          `gorm:"column:division;type:varchar(80)" json:"division"`
	CreatedAt       time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Stock) TableName() string {
	return "Stocks"
}

func (s *Stock) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// StockHistory records a price level and the units outstanding while it held.
// Rows are only appended; settlement adjusts Units of the latest row.
type StockHistory struct {
	ID        uint            `gorm:"column:id;primaryKey" json:"id"`
	StockID   uuid.UUID       `gorm:"column:stock_id;type:uuid;not null;index" json:"stock_id"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(20,7);not null" json:"unit_price"`
	Units     int             `gorm:"column:units;not null;default:0" json:"units"`
	CreatedAt time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (StockHistory) TableName() string {
	return "StockHistories"
}
