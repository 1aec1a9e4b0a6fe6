package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation is the side of an order.
type Operation string

const (
	OperationBuy  Operation = "buy"
	OperationSell Operation = "sell"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	return op == OperationBuy || op == OperationSell
}

// Order is a queued buy or sell intent. It is mutable until Processed is set,
// after which it is terminal. ID is sequential so users can refer to it in chat.
type Order struct {
	ID          uint             `gorm:"column:id;primaryKey" json:"id"`
	Operation   Operation        `gorm:"column:operation;type:varchar(10);not null;index:idx_order_pending" json:"operation"`
	BuyFunds    *decimal.Decimal `gorm:"column:buy_funds;type:numeric(20,7)" json:"buy_funds"`
	BuyShares   *int             `gorm:"column:buy_shares" json:"buy_shares"`
	SellShares  *int             `gorm:"column:sell_shares" json:"sell_shares"`
	FinalShares *int             `gorm:"column:final_shares" json:"final_shares"`
	FinalPrice  *decimal.Decimal `gorm:"column:final_price;type:numeric(20,7)" json:"final_price"`
	SharePrice  *decimal.Decimal `gorm:"column:share_price;type:numeric(20,7)" json:"share_price"`
	StockID     uuid.UUID        `gorm:"column:stock_id;type:uuid;not null;index" json:"stock_id"`
	UserID      uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Description string           `gorm:"column:description;type:varchar(255);not null" json:"description"`
	Success     bool             `gorm:"column:success;not null;default:false" json:"success"`
	Result      string           `gorm:"column:result;type:varchar(255)" json:"result"`
	Processed   bool             `gorm:"column:processed;not null;default:false;index:idx_order_pending" json:"processed"`
	CreatedAt   time.Time        `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Order) TableName() string {
	return "Orders"
}

// BuyBound rebuilds the buy bound stored on the order.
func (o *Order) BuyBound() BuyBound {
	switch {
	case o.BuyFunds != nil:
		return BuyFunds(*o.BuyFunds)
	case o.BuyShares != nil:
		return BuyShares(*o.BuyShares)
	default:
		return BuyUnbounded()
	}
}

// SellBound rebuilds the sell bound stored on the order.
func (o *Order) SellBound() SellBound {
	if o.SellShares != nil {
		return SellShares(*o.SellShares)
	}
	return SellAll()
}

// SetBounds stores the bounds on the order columns.
func (o *Order) SetBounds(buy BuyBound, sell SellBound) {
	o.BuyFunds, o.BuyShares, o.SellShares = nil, nil, nil
	if o.Operation == OperationBuy {
		if funds, ok := buy.Funds(); ok {
			o.BuyFunds = &funds
		}
		if shares, ok := buy.Shares(); ok {
			o.BuyShares = &shares
		}
		return
	}
	if shares, ok := sell.Shares(); ok {
		o.SellShares = &shares
	}
}
