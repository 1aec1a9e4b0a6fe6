// Package app wires configuration, stores and services into one container
// shared by the HTTP server and the batch CLI.
package app

import (
	"context"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/leaderboard"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/ledger"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/notifications"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/orders"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/settlement"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/users"
	"github.com/ttrnecka/rebbl-stock-market/internal/config"
	"github.com/ttrnecka/rebbl-stock-market/internal/infrastructure/database"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// App holds every service of the market. RDB is nil when no Redis is
// configured; the settlement lock and leaderboard cache are then disabled.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	RDB    *redis.Client

	Users       *users.Service
	Ledger      *ledger.Service
	Stocks      *stocks.Registry
	Gate        *market.Gate
	Book        *orders.Book
	Engine      *settlement.Engine
	Driver      *settlement.Driver
	Leaderboard *leaderboard.Service
	Admin       notifications.Notifier
	OrderFeed   notifications.Notifier
}

// New opens the database (and Redis when configured), migrates the schema and
// builds the services.
func New(cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)
	}
	return Build(cfg, db, rdb), nil
}

// Build wires services over already opened stores.
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	a := &App{Config: cfg, DB: db, RDB: rdb}
	initialCash := decimal.NewFromInt(cfg.InitialCash)

	a.Users = &users.Service{DB: db, Season: cfg.Season, InitialCash: initialCash}
	a.Ledger = &ledger.Service{DB: db, Season: cfg.Season}
	a.Stocks = &stocks.Registry{DB: db, RoundPlaces: cfg.PriceRoundPlaces}
	a.Gate = &market.Gate{DB: db}
	a.Book = &orders.Book{DB: db, MaxShareUnits: cfg.MaxShareUnits}
	a.Engine = &settlement.Engine{DB: db, Season: cfg.Season, MaxShareUnits: cfg.MaxShareUnits}
	a.Leaderboard = &leaderboard.Service{
		DB:          db,
		RDB:         rdb,
		Gate:        a.Gate,
		Season:      cfg.Season,
		Baseline:    initialCash,
		PointsTable: cfg.PointsTable,
		TTL:         cfg.LeaderboardTTL,
	}
	a.Admin = notifications.NewWebhookClient(cfg.AdminWebhookURL, "Stock Market")
	a.OrderFeed = notifications.NewWebhookClient(cfg.OrderWebhookURL, "Stock Market")
	a.Driver = &settlement.Driver{
		DB:       db,
		Engine:   a.Engine,
		Book:     a.Book,
		Gate:     a.Gate,
		Registry: a.Stocks,
		Ledger:   a.Ledger,
		Lock:     &settlement.Lock{RDB: rdb, TTL: 30 * time.Minute},
		Cache:    a.Leaderboard,
		Admin:    a.Admin,
		Orders:   a.OrderFeed,
	}
	return a
}

// Ping checks the database and, when configured, Redis.
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	if a.RDB != nil {
		return a.RDB.Ping(ctx).Err()
	}
	return nil
}

// Close releases the store connections.
func (a *App) Close() {
	if a.RDB != nil {
		if err := a.RDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing redis")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing database")
		}
	}
}
