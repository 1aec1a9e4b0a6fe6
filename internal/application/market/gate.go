// Package market holds the durable market gate and round counter.
package market

import (
	"context"
	"errors"
	"strconv"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/metrics"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	keyMarketOpen  = "market_open"
	keyCurrentWeek = "current_week"
)

// Gate is the OPEN/CLOSED switch controlling order creation and cancellation.
// State lives in the Settings table so the API process and the batch process
// see the same value; a missing row means OPEN.
type Gate struct {
	DB *gorm.DB
}

func (g *Gate) Open(ctx context.Context) error {
	return g.set(ctx, true)
}

func (g *Gate) Close(ctx context.Context) error {
	return g.set(ctx, false)
}

func (g *Gate) IsOpen(ctx context.Context) (bool, error) {
	return IsOpen(g.DB.WithContext(ctx))
}

func (g *Gate) set(ctx context.Context, open bool) error {
	if err := put(g.DB.WithContext(ctx), keyMarketOpen, strconv.FormatBool(open)); err != nil {
		return err
	}
	metrics.SetMarketOpen(open)
	state := "closed"
	if open {
		state = "open"
	}
	log.Info().Str("state", state).Msg("Market gate switched")
	return nil
}

// IsOpen reads the gate through tx, letting callers check it inside their own
// transaction.
func IsOpen(tx *gorm.DB) (bool, error) {
	v, ok, err := get(tx, keyMarketOpen)
	if err != nil || !ok {
		return true, err
	}
	open, err := strconv.ParseBool(v)
	if err != nil {
		return true, nil
	}
	return open, nil
}

// RequireOpen returns ErrMarketClosed when the gate is closed.
func RequireOpen(tx *gorm.DB) error {
	open, err := IsOpen(tx)
	if err != nil {
		return err
	}
	if !open {
		return domain.ErrMarketClosed
	}
	return nil
}

// Week returns the current round number, 0 before the first round.
func (g *Gate) Week(ctx context.Context) (int, error) {
	v, ok, err := get(g.DB.WithContext(ctx), keyCurrentWeek)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (g *Gate) SetWeek(ctx context.Context, week int) error {
	if err := put(g.DB.WithContext(ctx), keyCurrentWeek, strconv.Itoa(week)); err != nil {
		return err
	}
	log.Info().Int("week", week).Msg("Current week set")
	return nil
}

func get(tx *gorm.DB, key string) (string, bool, error) {
	var s domain.Setting
	err := tx.Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Value, true, nil
}

func put(tx *gorm.DB, key, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updatedAt"}),
	}).Create(&domain.Setting{Key: key, Value: value}).Error
}
