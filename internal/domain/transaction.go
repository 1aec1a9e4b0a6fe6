package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a signed cash movement on an account. A positive price is a
// debit, a negative price a credit. Once confirmed it never changes.
type Transaction struct {
	ID            uint            `gorm:"column:id;primaryKey" json:"id"`
	AccountID     uuid.UUID       `gorm:"column:account_id;type:uuid;not null;index" json:"account_id"`
	OrderID       *uint           `gorm:"column:order_id;index" json:"order_id"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(20,7);not null" json:"price"`
	Description   string          `gorm:"column:description;type:varchar(255);not null" json:"description"`
	Confirmed     bool            `gorm:"column:confirmed;not null;default:false" json:"confirmed"`
	DateConfirmed *time.Time      `gorm:"column:date_confirmed" json:"date_confirmed"`
	CreatedAt     time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

// Confirm marks the transaction as applied. Confirmation is one way.
func (t *Transaction) Confirm(at time.Time) error {
	if t.Confirmed {
		return ErrDoubleConfirmation
	}
	t.Confirmed = true
	t.DateConfirmed = &at
	return nil
}
