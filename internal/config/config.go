package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env              string
	Port             string
	LogLevel         string
	DatabaseURL      string // Postgres DSN; empty falls back to the SQLite file at DatabasePath
	DatabasePath     string
	RedisURL         string
	Season           string
	MaxShareUnits    int
	InitialCash      int64
	PriceRoundPlaces int32
	PointsTable      []int // points per weekly gain rank, rank 1 first
	AdminWebhookURL  string
	OrderWebhookURL  string
	AdminKeyHash     string // bcrypt hash of the admin API key
	StockFeed        string // CSV path or http(s) URL
	LeaderboardTTL   time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_PATH", "stock-market.db")
	viper.SetDefault("SEASON", "season-1")
	viper.SetDefault("MAX_SHARE_UNITS", 10)
	viper.SetDefault("INITIAL_CASH", 30000)
	viper.SetDefault("PRICE_ROUND_PLACES", 2)
	viper.SetDefault("POINTS_TABLE", "10,8,6,5,4,3,2,1")
	viper.SetDefault("LEADERBOARD_TTL", 60)

	points, err := parsePointsTable(viper.GetString("POINTS_TABLE"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:              viper.GetString("APP_ENV"),
		Port:             viper.GetString("PORT"),
		LogLevel:         viper.GetString("LOG_LEVEL"),
		DatabaseURL:      viper.GetString("DATABASE_URL"),
		DatabasePath:     viper.GetString("DATABASE_PATH"),
		RedisURL:         viper.GetString("REDIS_URL"),
		Season:           strings.TrimSpace(viper.GetString("SEASON")),
		MaxShareUnits:    viper.GetInt("MAX_SHARE_UNITS"),
		InitialCash:      viper.GetInt64("INITIAL_CASH"),
		PriceRoundPlaces: viper.GetInt32("PRICE_ROUND_PLACES"),
		PointsTable:      points,
		AdminWebhookURL:  viper.GetString("ADMIN_WEBHOOK_URL"),
		OrderWebhookURL:  viper.GetString("ORDER_WEBHOOK_URL"),
		AdminKeyHash:     viper.GetString("ADMIN_KEY_HASH"),
		StockFeed:        viper.GetString("STOCK_FEED"),
		LeaderboardTTL:   time.Duration(viper.GetInt("LEADERBOARD_TTL")) * time.Second,
	}, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func parsePointsTable(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
