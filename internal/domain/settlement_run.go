package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SettlementRun is the audit row of one batch settlement.
type SettlementRun struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Week       int            `gorm:"column:week;not null" json:"week"`
	Status     string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Report     datatypes.JSON `gorm:"column:report;type:json" json:"report"`
	StartedAt  time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at"`
}

func (SettlementRun) TableName() string {
	return "SettlementRuns"
}

func (r *SettlementRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Models lists every persisted model, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{}, &Account{}, &AccountSnapshot{}, &BalanceHistory{}, &Transaction{},
		&Stock{}, &StockHistory{}, &Share{}, &Order{},
		&PointCard{}, &PointRecord{}, &Setting{}, &SettlementRun{},
	}
}
