// Package testutil builds the throwaway stores used by package tests.
package testutil

import (
	"testing"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB returns a migrated in-memory SQLite database. The pool is pinned to one
// connection because every new connection to ":memory:" is a fresh database.
func DB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// Redis returns a client backed by miniredis.
func Redis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

// D parses a decimal literal.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedUser creates an active user with a season account holding cash.
func SeedUser(t testing.TB, db *gorm.DB, externalID int64, name, season, cash string) (*domain.User, *domain.Account) {
	t.Helper()
	user := &domain.User{ExternalID: externalID, Name: name}
	require.NoError(t, db.Create(user).Error)
	account := &domain.Account{UserID: user.ID, Season: season, Amount: D(cash)}
	require.NoError(t, db.Create(account).Error)
	require.NoError(t, db.Create(&domain.PointCard{UserID: user.ID, Season: season}).Error)
	return user, account
}

// SeedStock creates a stock with one history row at its price.
func SeedStock(t testing.TB, db *gorm.DB, code, price string) *domain.Stock {
	t.Helper()
	stock := &domain.Stock{Name: code + " team " + uuid.NewString()[:8], Code: code, UnitPrice: D(price)}
	require.NoError(t, db.Create(stock).Error)
	require.NoError(t, db.Create(&domain.StockHistory{StockID: stock.ID, UnitPrice: stock.UnitPrice}).Error)
	return stock
}

// SeedShare gives a user units of a stock.
func SeedShare(t testing.TB, db *gorm.DB, user *domain.User, stock *domain.Stock, units int) *domain.Share {
	t.Helper()
	share := &domain.Share{UserID: user.ID, StockID: stock.ID, Units: units}
	require.NoError(t, db.Create(share).Error)
	return share
}

// Reload fetches the current row of model by primary key.
func Reload[T any](t testing.TB, db *gorm.DB, id interface{}) *T {
	t.Helper()
	var out T
	require.NoError(t, db.First(&out, "id = ?", id).Error)
	return &out
}
