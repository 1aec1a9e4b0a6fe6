package router

import (
	"net/http"

	"github.com/ttrnecka/rebbl-stock-market/internal/app"
	adminhandler "github.com/ttrnecka/rebbl-stock-market/internal/interfaces/handlers/admin"
	healthhandler "github.com/ttrnecka/rebbl-stock-market/internal/interfaces/handlers/health"
	lbhandler "github.com/ttrnecka/rebbl-stock-market/internal/interfaces/handlers/leaderboard"
	mkthandler "github.com/ttrnecka/rebbl-stock-market/internal/interfaces/handlers/market"
	orderhandler "github.com/ttrnecka/rebbl-stock-market/internal/interfaces/handlers/orders"
	stockhandler "github.com/ttrnecka/rebbl-stock-market/internal/interfaces/handlers/stocks"
	userhandler "github.com/ttrnecka/rebbl-stock-market/internal/interfaces/handlers/users"
	"github.com/ttrnecka/rebbl-stock-market/internal/metrics"
	"github.com/ttrnecka/rebbl-stock-market/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp mounts every route of the market on a new Fiber app.
func CreateApp(a *app.App) *fiber.App {
	cfg := a.Config
	f := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.NewErrorHandler(a.RDB),
		EnableTrustedProxyCheck: true,
	})

	f.Use(middleware.HealthMarker(a.RDB))
	f.Use(middleware.Tracing())
	f.Use(middleware.Identify(a.Users))
	f.Use(middleware.RouteLogger())

	requireAdmin := middleware.RequireAdmin(cfg.AdminKeyHash)

	hh := &healthhandler.Handlers{Rdb: a.RDB, DB: &gormDBPinger{db: a.DB}, Market: a.Gate}
	f.Get("/health/json", hh.JSON)
	f.Get("/health/errors", requireAdmin, hh.Errors)
	f.Post("/health/reset", requireAdmin, hh.Reset)
	f.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := f.Group("/api/v1")
	requireUser := middleware.RequireUser()

	uh := &userhandler.Handlers{Users: a.Users, Stocks: a.Stocks, Book: a.Book, Leaderboard: a.Leaderboard}
	api.Post("/users/register", uh.Register)
	api.Get("/me", requireUser, uh.Me)

	sh := &stockhandler.Handlers{Registry: a.Stocks}
	api.Get("/stocks", sh.List)
	api.Get("/stocks/:code", sh.Get)

	oh := &orderhandler.Handlers{Book: a.Book, Stocks: a.Stocks, MaxShareUnits: cfg.MaxShareUnits}
	og := api.Group("/orders", requireUser)
	og.Post("/", oh.Create)
	og.Get("/", oh.List)
	og.Delete("/:id", oh.Cancel)

	lh := &lbhandler.Handlers{Service: a.Leaderboard}
	api.Get("/leaderboard", lh.Top)

	mh := &mkthandler.Handlers{Gate: a.Gate}
	api.Get("/market", mh.Status)

	ah := &adminhandler.Handlers{
		Registry:    a.Stocks,
		Driver:      a.Driver,
		Ledger:      a.Ledger,
		Leaderboard: a.Leaderboard,
		Gate:        a.Gate,
		Users:       a.Users,
		StockFeed:   cfg.StockFeed,
	}
	admin := api.Group("/admin", requireAdmin)
	admin.Post("/market/open", mh.Open)
	admin.Post("/market/close", mh.Close)
	admin.Put("/market/week", mh.SetWeek)
	admin.Post("/stocks/update", ah.UpdateStocks)
	admin.Post("/settlement/run", ah.RunSettlement)
	admin.Get("/settlement/runs", ah.Runs)
	admin.Post("/snapshot", ah.Snapshot)
	admin.Post("/points/award", ah.AwardPoints)
	admin.Delete("/users/:externalId", ah.DeactivateUser)

	return f
}

// Handler exposes the app as a net/http handler.
func Handler(f *fiber.App) http.Handler {
	return adaptor.FiberApp(f)
}
