package bootstrap

import (
	"github.com/ttrnecka/rebbl-stock-market/internal/app"
	"github.com/ttrnecka/rebbl-stock-market/internal/config"
	"github.com/ttrnecka/rebbl-stock-market/internal/interfaces/router"
	"github.com/ttrnecka/rebbl-stock-market/internal/logging"

	"github.com/gofiber/fiber/v2"
)

// New loads configuration, sets up logging and the stores, and returns the
// Fiber app with the service container behind it.
func New() (*fiber.App, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.IsProduction())
	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return router.CreateApp(a), a, nil
}
