// Package ledger applies cash transactions to accounts and values holdings.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Apply confirms t against account and persists both through tx, so the write
// joins whatever transaction the caller is in. A debit larger than the
// account amount is rejected and nothing is written.
func Apply(tx *gorm.DB, account *domain.Account, t *domain.Transaction) (*domain.Transaction, error) {
	if account.Amount.LessThan(t.Price) {
		return nil, domain.ErrInsufficientFunds
	}
	if err := t.Confirm(time.Now().UTC()); err != nil {
		return nil, err
	}
	amount := account.Amount.Sub(t.Price)
	if err := tx.Model(account).Update("amount", amount).Error; err != nil {
		return nil, err
	}
	account.Amount = amount
	t.AccountID = account.ID
	if err := tx.Create(t).Error; err != nil {
		return nil, err
	}
	log.Info().
		Str("account_id", account.ID.String()).
		Str("price", t.Price.StringFixed(2)).
		Str("amount", amount.StringFixed(2)).
		Msg(t.Description)
	return t, nil
}

// AccountFor returns the season account of a user, locked for update where the
// database supports it.
func AccountFor(tx *gorm.DB, userID uuid.UUID, season string) (*domain.Account, error) {
	var account domain.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND season = ?", userID, season).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Holdings is the market value and unit count of a user's shares.
type Holdings struct {
	Value decimal.Decimal
	Units int
}

// HoldingsOf values every share of the given users at current stock prices.
func HoldingsOf(tx *gorm.DB, userIDs []uuid.UUID) (map[uuid.UUID]Holdings, error) {
	out := make(map[uuid.UUID]Holdings, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var shares []domain.Share
	if err := tx.Where("user_id IN ?", userIDs).Find(&shares).Error; err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return out, nil
	}
	stockIDs := make([]uuid.UUID, 0, len(shares))
	for _, s := range shares {
		stockIDs = append(stockIDs, s.StockID)
	}
	var stocks []domain.Stock
	if err := tx.Where("id IN ?", stockIDs).Find(&stocks).Error; err != nil {
		return nil, err
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(stocks))
	for _, s := range stocks {
		prices[s.ID] = s.UnitPrice
	}
	for _, s := range shares {
		h := out[s.UserID]
		h.Units += s.Units
		h.Value = h.Value.Add(prices[s.StockID].Mul(decimal.NewFromInt(int64(s.Units))))
		out[s.UserID] = h
	}
	return out, nil
}

// Service holds the season-scoped ledger queries and snapshots.
type Service struct {
	DB     *gorm.DB
	Season string
}

// Balance is cash plus the market value of all shares.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	db := s.DB.WithContext(ctx)
	var account domain.Account
	if err := db.Where("user_id = ? AND season = ?", userID, s.Season).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	holdings, err := HoldingsOf(db, []uuid.UUID{userID})
	if err != nil {
		return decimal.Zero, err
	}
	return account.Amount.Add(holdings[userID].Value), nil
}

// Transactions lists the confirmed transactions of an account, newest first.
func (s *Service) Transactions(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	q := s.DB.WithContext(ctx).Where("account_id = ?", accountID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// Snapshot records the balance of every active user's season account for week,
// replacing an earlier snapshot of the same week, and appends a balance
// history row per user. It returns the number of accounts snapshotted.
func (s *Service) Snapshot(ctx context.Context, week int) (int, error) {
	count := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []domain.User
		if err := tx.Where("deleted = ?", false).Find(&users).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		var accounts []domain.Account
		if err := tx.Where("user_id IN ? AND season = ?", ids, s.Season).Find(&accounts).Error; err != nil {
			return err
		}
		holdings, err := HoldingsOf(tx, ids)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			h := holdings[a.UserID]
			balance := a.Amount.Add(h.Value)
			snap := domain.AccountSnapshot{AccountID: a.ID, Week: week, Amount: balance}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account_id"}, {Name: "week"}},
				DoUpdates: clause.AssignmentColumns([]string{"amount", "updatedAt"}),
			}).Create(&snap).Error; err != nil {
				return fmt.Errorf("snapshot account %s: %w", a.ID, err)
			}
			if err := tx.Create(&domain.BalanceHistory{UserID: a.UserID, Balance: balance, Shares: h.Units}).Error; err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int("week", week).Int("accounts", count).Msg("Balances snapshotted")
	return count, nil
}

// SnapshotAmount returns the snapshot of a user's season account for week.
// The second result is false when no snapshot exists.
func (s *Service) SnapshotAmount(ctx context.Context, userID uuid.UUID, week int) (decimal.Decimal, bool, error) {
	db := s.DB.WithContext(ctx)
	var account domain.Account
	err := db.Where("user_id = ? AND season = ?", userID, s.Season).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	var snap domain.AccountSnapshot
	err = db.Where("account_id = ? AND week = ?", account.ID, week).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return snap.Amount, true, nil
}

// History returns the balance history of a user, oldest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]domain.BalanceHistory, error) {
	var rows []domain.BalanceHistory
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
