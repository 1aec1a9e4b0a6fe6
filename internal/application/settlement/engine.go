// Package settlement converts queued orders into share and cash movements.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/ledger"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine settles one order at a time at the live stock price. It must not be
// run concurrently for the same user and stock; the driver serializes batches.
type Engine struct {
	DB            *gorm.DB
	Season        string
	MaxShareUnits int
}

// Process settles order in one database transaction and returns the stored
// result. The order always ends processed; ledger rejections become a failed
// result instead of an error. An order that is already processed is refused
// with ErrOrderProcessed.
func (e *Engine) Process(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	var out domain.Order
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, order.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if out.Processed {
			return domain.ErrOrderProcessed
		}

		var stock domain.Stock
		if err := tx.First(&stock, "id = ?", out.StockID).Error; err != nil {
			return fmt.Errorf("load stock of order %d: %w", out.ID, err)
		}
		price := stock.UnitPrice
		out.SharePrice = &price

		account, err := ledger.AccountFor(tx, out.UserID, e.Season)
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			out.Success = false
			out.Result = err.Error()
		case err != nil:
			return err
		case out.Operation == domain.OperationBuy:
			err = e.buy(tx, &out, &stock, account)
		case out.Operation == domain.OperationSell:
			err = e.sell(tx, &out, &stock, account)
		default:
			err = fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidOrder, out.Operation)
		}
		if err != nil {
			return err
		}

		out.Processed = true
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, err
	}

	result := "failed"
	if out.Success {
		result = "success"
	}
	metrics.OrdersSettled.WithLabelValues(string(out.Operation), result).Inc()
	log.Info().
		Uint("order_id", out.ID).
		Str("user_id", out.UserID.String()).
		Str("operation", string(out.Operation)).
		Bool("success", out.Success).
		Msg(out.Result)
	return &out, nil
}

func (e *Engine) buy(tx *gorm.DB, order *domain.Order, stock *domain.Stock, account *domain.Account) error {
	bound := order.BuyBound()
	funds := account.Amount
	if limit, ok := bound.Funds(); ok && limit.LessThan(funds) {
		funds = limit
	}
	if stock.UnitPrice.IsZero() {
		order.Success = false
		order.Result = "Cannot buy stock with 0 price"
		return nil
	}

	whole, _ := funds.QuoRem(stock.UnitPrice, 0)
	shares := int(whole.IntPart())
	if limit, ok := bound.Shares(); ok && limit < shares {
		shares = limit
	}
	share, err := findShare(tx, order.UserID, stock.ID)
	if err != nil {
		return err
	}
	held := 0
	if share != nil {
		held = share.Units
	}
	if room := e.MaxShareUnits - held; room < shares {
		shares = room
	}
	if shares < 0 {
		shares = 0
	}

	cost := stock.UnitPrice.Mul(decimal.NewFromInt(int64(shares)))
	order.FinalShares = &shares
	order.FinalPrice = &cost
	if shares == 0 {
		order.Success = false
		order.Result = fmt.Sprintf("Not enough funds to buy any shares or %d share limit reached", e.MaxShareUnits)
		return nil
	}

	result := fmt.Sprintf("Bought %d %s share(s) for %s credits", shares, stock.Code, cost.StringFixed(2))
	err = tx.Transaction(func(step *gorm.DB) error {
		if share == nil {
			if err := step.Create(&domain.Share{UserID: order.UserID, StockID: stock.ID, Units: shares}).Error; err != nil {
				return err
			}
		} else if err := step.Model(share).Update("units", gorm.Expr("units + ?", shares)).Error; err != nil {
			return err
		}
		if _, err := ledger.Apply(step, account, &domain.Transaction{OrderID: &order.ID, Price: cost, Description: result}); err != nil {
			return err
		}
		return stocks.AdjustLatestHistory(step, stock, shares)
	})
	return settle(order, result, err)
}

func (e *Engine) sell(tx *gorm.DB, order *domain.Order, stock *domain.Stock, account *domain.Account) error {
	share, err := findShare(tx, order.UserID, stock.ID)
	if err != nil {
		return err
	}
	if share == nil {
		order.Success = false
		order.Result = "No shares left to sell"
		return nil
	}

	units := share.Units
	if limit, ok := order.SellBound().Shares(); ok && limit < units {
		units = limit
	}
	proceeds := stock.UnitPrice.Mul(decimal.NewFromInt(int64(units)))
	order.FinalShares = &units
	order.FinalPrice = &proceeds

	result := fmt.Sprintf("Sold %d %s share(s) for %s credits", units, stock.Code, proceeds.StringFixed(2))
	err = tx.Transaction(func(step *gorm.DB) error {
		if units < share.Units {
			if err := step.Model(share).Update("units", share.Units-units).Error; err != nil {
				return err
			}
		} else if err := step.Delete(share).Error; err != nil {
			return err
		}
		if _, err := ledger.Apply(step, account, &domain.Transaction{OrderID: &order.ID, Price: proceeds.Neg(), Description: result}); err != nil {
			return err
		}
		return stocks.AdjustLatestHistory(step, stock, -units)
	})
	return settle(order, result, err)
}

// settle records the outcome of the share and ledger step. Ledger rejections
// have already been rolled back to the savepoint and only fail the order; a
// failed order carries no final shares or price.
func settle(order *domain.Order, result string, err error) error {
	switch {
	case err == nil:
		order.Success = true
		order.Result = result
		return nil
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrDoubleConfirmation):
		order.Success = false
		order.Result = err.Error()
		order.FinalShares = nil
		order.FinalPrice = nil
		return nil
	default:
		return err
	}
}

func findShare(tx *gorm.DB, userID, stockID interface{}) (*domain.Share, error) {
	var share domain.Share
	err := tx.Where("user_id = ? AND stock_id = ?", userID, stockID).First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// MarkFailed closes an order that could not be settled, outside of any
// settlement transaction. Orders already processed are left untouched.
func (e *Engine) MarkFailed(ctx context.Context, orderID uint, reason string) error {
	var order domain.Order
	if err := e.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return err
	}
	if order.Processed {
		return nil
	}
	err := e.DB.WithContext(ctx).Model(&order).
		Where("processed = ?", false).
		Updates(map[string]interface{}{"processed": true, "success": false, "result": reason}).Error
	if err != nil {
		return err
	}
	metrics.OrdersSettled.WithLabelValues(string(order.Operation), "error").Inc()
	log.Warn().Uint("order_id", orderID).Str("reason", reason).Msg("Order marked failed")
	return nil
}
