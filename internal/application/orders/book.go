// Package orders queues buy and sell intents for the next settlement.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/metrics"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Book creates, cancels and lists orders. Creation and cancellation read the
// market gate inside the same transaction as the write.
type Book struct {
	DB            *gorm.DB
	MaxShareUnits int
}

// Create queues an order for user. Buy orders are refused when the user
// already holds MaxShareUnits of the stock; approaching the cap is allowed and
// clipped at settlement.
func (b *Book) Create(ctx context.Context, user *domain.User, stock *domain.Stock, op domain.Operation, buy domain.BuyBound, sell domain.SellBound) (*domain.Order, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidOrder, op)
	}
	if (op == domain.OperationBuy && !buy.Valid()) || (op == domain.OperationSell && !sell.Valid()) {
		return nil, fmt.Errorf("%w: bound must be positive", domain.ErrInvalidOrder)
	}
	if !user.Active() {
		return nil, domain.ErrUserInactive
	}

	order := &domain.Order{
		Operation:   op,
		StockID:     stock.ID,
		UserID:      user.ID,
		Description: b.describe(stock, op, buy, sell),
	}
	order.SetBounds(buy, sell)

	err := b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := market.RequireOpen(tx); err != nil {
			return err
		}
		if op == domain.OperationBuy {
			var share domain.Share
			err := tx.Where("user_id = ? AND stock_id = ?", user.ID, stock.ID).First(&share).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if share.Units >= b.MaxShareUnits {
				return &domain.ShareCapExceededError{Code: stock.Code, Max: b.MaxShareUnits}
			}
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.OrdersCreated.WithLabelValues(string(op)).Inc()
	log.Ctx(ctx).Info().
		Uint("order_id", order.ID).
		Str("user", user.Name).
		Str("stock", stock.Code).
		Str("operation", string(op)).
		Msg(order.Description)
	return order, nil
}

func (b *Book) describe(stock *domain.Stock, op domain.Operation, buy domain.BuyBound, sell domain.SellBound) string {
	if op == domain.OperationSell {
		if n, ok := sell.Shares(); ok {
			return fmt.Sprintf("Sell up to %d units of %s (%s)", n, stock.Code, stock.Name)
		}
		return fmt.Sprintf("Sell all units of %s (%s)", stock.Code, stock.Name)
	}
	if funds, ok := buy.Funds(); ok {
		return fmt.Sprintf("Buy %s (%s) for up to %s credits or up to %d owned shares limit", stock.Code, stock.Name, funds.StringFixed(2), b.MaxShareUnits)
	}
	if n, ok := buy.Shares(); ok {
		return fmt.Sprintf("Buy up to %d shares of %s (%s) or up to %d owned shares limit", n, stock.Code, stock.Name, b.MaxShareUnits)
	}
	return fmt.Sprintf("Buy %s (%s) for all available credits or up to %d owned shares limit", stock.Code, stock.Name, b.MaxShareUnits)
}

// Cancel deletes an unprocessed order owned by user. It reports false when no
// such order exists, which includes orders that were already settled.
func (b *Book) Cancel(ctx context.Context, orderID uint, user *domain.User) (bool, error) {
	deleted := false
	err := b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := market.RequireOpen(tx); err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ? AND processed = ?", orderID, user.ID, false).Delete(&domain.Order{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		metrics.OrdersCancelled.Inc()
		log.Ctx(ctx).Info().Uint("order_id", orderID).Str("user", user.Name).Msg("Order cancelled")
	}
	return deleted, nil
}

// Pending returns the unprocessed orders of one operation in settlement order:
// oldest first, ties broken by id.
func (b *Book) Pending(ctx context.Context, op domain.Operation) ([]domain.Order, error) {
	var out []domain.Order
	err := b.DB.WithContext(ctx).
		Where("processed = ? AND operation = ?", false, op).
		Order(`"createdAt" ASC, id ASC`).
		Find(&out).Error
	return out, err
}

// ForUser lists a user's orders, newest first. Settled orders are included
// only when asked for.
func (b *Book) ForUser(ctx context.Context, user *domain.User, includeProcessed bool) ([]domain.Order, error) {
	q := b.DB.WithContext(ctx).Where("user_id = ?", user.ID)
	if !includeProcessed {
		q = q.Where("processed = ?", false)
	}
	var out []domain.Order
	err := q.Order("id DESC").Find(&out).Error
	return out, err
}

// ByID returns one order.
func (b *Book) ByID(ctx context.Context, orderID uint) (*domain.Order, error) {
	var order domain.Order
	err := b.DB.WithContext(ctx).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
