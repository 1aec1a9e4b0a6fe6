// Package stocks keeps stock prices in line with the external price feed.
package stocks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeedRow is one team line of the price feed.
type FeedRow struct {
	Name     string          `json:"name"`
	Code     string          `json:"code"`
	Price    decimal.Decimal `json:"price"`
	Race     string          `json:"race"`
	Coach    string          `json:"coach"`
	Division string          `json:"division"`
}

// UpdateResult counts what an import did.
type UpdateResult struct {
	Created   int `json:"created"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
}

// Registry owns Stock and StockHistory rows.
type Registry struct {
	DB *gorm.DB
	// RoundPlaces is the precision at which a feed price counts as changed.
	RoundPlaces int32
}

// Update creates or refreshes one stock per feed row. A price that is equal
// after rounding keeps the stored price and its previous change, so re-running
// the same feed writes no history.
func (r *Registry) Update(ctx context.Context, rows []FeedRow) (UpdateResult, error) {
	var res UpdateResult
	appended := 0
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			row.Name = strings.TrimSpace(row.Name)
			row.Code = strings.TrimSpace(row.Code)
			if row.Name == "" || row.Code == "" || row.Price.IsNegative() {
				return fmt.Errorf("%w: row %q", domain.ErrInvalidFeed, row.Name)
			}

			var stock domain.Stock
			err := tx.Where("name = ?", row.Name).First(&stock).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				stock = domain.Stock{
					Name:            row.Name,
					Code:            row.Code,
					UnitPrice:       row.Price,
					UnitPriceChange: decimal.Zero,
					Race:            row.Race,
					Coach:           row.Coach,
					Division:        row.Division,
				}
				if err := tx.Create(&stock).Error; err != nil {
					return fmt.Errorf("create stock %s: %w", row.Code, err)
				}
				if err := tx.Create(&domain.StockHistory{StockID: stock.ID, UnitPrice: stock.UnitPrice}).Error; err != nil {
					return err
				}
				appended++
				res.Created++
				continue
			}
			if err != nil {
				return err
			}

			changed := !stock.UnitPrice.Round(r.RoundPlaces).Equal(row.Price.Round(r.RoundPlaces))
			if changed {
				stock.UnitPriceChange = row.Price.Sub(stock.UnitPrice)
				stock.UnitPrice = row.Price
			}
			stock.Code = row.Code
			stock.Race = row.Race
			stock.Coach = row.Coach
			stock.Division = row.Division
			if err := tx.Save(&stock).Error; err != nil {
				return fmt.Errorf("update stock %s: %w", row.Code, err)
			}
			if !changed {
				res.Unchanged++
				continue
			}
			units, err := OutstandingUnits(tx, stock.ID)
			if err != nil {
				return err
			}
			if err := tx.Create(&domain.StockHistory{StockID: stock.ID, UnitPrice: stock.UnitPrice, Units: units}).Error; err != nil {
				return err
			}
			appended++
			res.Changed++
		}
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}
	metrics.StockHistoryAppended.Add(float64(appended))
	log.Info().Int("created", res.Created).Int("changed", res.Changed).Int("unchanged", res.Unchanged).Msg("Stocks updated")
	return res, nil
}

// OutstandingUnits sums the units all users hold of a stock.
func OutstandingUnits(tx *gorm.DB, stockID uuid.UUID) (int, error) {
	var n int64
	err := tx.Model(&domain.Share{}).Where("stock_id = ?", stockID).Select("COALESCE(SUM(units), 0)").Scan(&n).Error
	return int(n), err
}

// AdjustLatestHistory moves the unit count of the newest history row of a
// stock by delta, creating a first row at the current price if none exists.
func AdjustLatestHistory(tx *gorm.DB, stock *domain.Stock, delta int) error {
	var h domain.StockHistory
	err := tx.Where("stock_id = ?", stock.ID).Order("id DESC").First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		units, err := OutstandingUnits(tx, stock.ID)
		if err != nil {
			return err
		}
		return tx.Create(&domain.StockHistory{StockID: stock.ID, UnitPrice: stock.UnitPrice, Units: units}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&h).Update("units", h.Units+delta).Error
}

// List returns every stock ordered by code.
func (r *Registry) List(ctx context.Context) ([]domain.Stock, error) {
	var out []domain.Stock
	err := r.DB.WithContext(ctx).Order("code").Find(&out).Error
	return out, err
}

// ByCode finds a stock by its exact code, case-insensitively.
func (r *Registry) ByCode(ctx context.Context, code string) (*domain.Stock, error) {
	var stock domain.Stock
	err := r.DB.WithContext(ctx).Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrStockNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// Search matches stocks by code or name fragment.
func (r *Registry) Search(ctx context.Context, term string) ([]domain.Stock, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	var out []domain.Stock
	err := r.DB.WithContext(ctx).
		Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like).
		Order("code").
		Find(&out).Error
	return out, err
}

// History returns the price history of a stock, oldest first.
func (r *Registry) History(ctx context.Context, stockID uuid.UUID) ([]domain.StockHistory, error) {
	var out []domain.StockHistory
	err := r.DB.WithContext(ctx).Where("stock_id = ?", stockID).Order("id ASC").Find(&out).Error
	return out, err
}
