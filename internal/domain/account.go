package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account holds a user's cash for one season. Amount is only changed through
// confirmed transactions.
type Account struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_account_user_season" json:"user_id"`
	Season    string          `gorm:"column:season;type:varchar(40);not null;uniqueIndex:idx_account_user_season" json:"season"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(20,7);not null;default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Account) TableName() string {
	return "Accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AccountSnapshot is the recorded balance of an account at the end of a week.
type AccountSnapshot struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID       `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_snapshot_account_week" json:"account_id"`
	Week      int             `gorm:"column:week;not null;uniqueIndex:idx_snapshot_account_week" json:"week"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(20,7);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (AccountSnapshot) TableName() string {
	return "AccountSnapshots"
}

func (s *AccountSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BalanceHistory is appended once per settlement run and feeds balance graphs.
type BalanceHistory struct {
	ID        uint            `gorm:"column:id;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(20,7);not null" json:"balance"`
	Shares    int             `gorm:"column:shares;not null" json:"shares"`
	CreatedAt time.Time       `gorm:"column:createdAt" json:"createdAt"`
}

func (BalanceHistory) TableName() string {
	return "BalanceHistories"
}
