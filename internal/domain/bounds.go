package domain

import "github.com/shopspring/decimal"

type boundKind int

const (
	boundNone boundKind = iota
	boundFunds
	boundShares
)

// BuyBound limits a buy order either by credits spent or by shares bought.
// The zero value is unbounded.
type BuyBound struct {
	kind   boundKind
	funds  decimal.Decimal
	shares int
}

func BuyUnbounded() BuyBound {
	return BuyBound{}
}

func BuyFunds(funds decimal.Decimal) BuyBound {
	return BuyBound{kind: boundFunds, funds: funds}
}

func BuyShares(shares int) BuyBound {
	return BuyBound{kind: boundShares, shares: shares}
}

func (b BuyBound) Funds() (decimal.Decimal, bool) {
	return b.funds, b.kind == boundFunds
}

func (b BuyBound) Shares() (int, bool) {
	return b.shares, b.kind == boundShares
}

func (b BuyBound) Unbounded() bool {
	return b.kind == boundNone
}

// Valid rejects non-positive bounds.
func (b BuyBound) Valid() bool {
	switch b.kind {
	case boundFunds:
		return b.funds.IsPositive()
	case boundShares:
		return b.shares > 0
	}
	return true
}

// SellBound limits a sell order to a number of units. The zero value sells all.
type SellBound struct {
	set    bool
	shares int
}

func SellAll() SellBound {
	return SellBound{}
}

func SellShares(shares int) SellBound {
	return SellBound{set: true, shares: shares}
}

func (b SellBound) Shares() (int, bool) {
	return b.shares, b.set
}

func (b SellBound) Valid() bool {
	return !b.set || b.shares > 0
}
