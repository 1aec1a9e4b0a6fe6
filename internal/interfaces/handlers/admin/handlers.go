package admin

import (
	"bytes"
	"strconv"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/leaderboard"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/ledger"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/settlement"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/users"
	"github.com/ttrnecka/rebbl-stock-market/internal/middleware"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the operator endpoints mounted behind the admin key.
type Handlers struct {
	Registry    *stocks.Registry
	Driver      *settlement.Driver
	Ledger      *ledger.Service
	Leaderboard *leaderboard.Service
	Gate        *market.Gate
	Users       *users.Service
	// StockFeed is the configured feed used when a request names none.
	StockFeed string
}

// UpdateStocks imports the stock feed. A text/csv body is parsed directly;
// otherwise ?source= or the configured feed is loaded.
func (h *Handlers) UpdateStocks(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var (
		rows []stocks.FeedRow
		err  error
	)
	if c.Is("csv") {
		rows, err = stocks.ParseFeed(bytes.NewReader(c.Body()))
	} else {
		source := c.Query("source", h.StockFeed)
		rows, err = stocks.LoadFeed(ctx, source)
	}
	if err != nil {
		return err
	}
	result, err := h.Registry.Update(ctx, rows)
	if err != nil {
		return err
	}
	if err := h.Leaderboard.Invalidate(ctx); err != nil {
		return err
	}
	return response.Success(c, "Stocks updated", result, nil)
}

type runRequest struct {
	FeedSource   string `json:"feed_source"`
	SkipSnapshot bool   `json:"skip_snapshot"`
}

// RunSettlement runs a full settlement batch synchronously.
func (h *Handlers) RunSettlement(c *fiber.Ctx) error {
	var req runRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	report, err := h.Driver.Run(c.UserContext(), settlement.RunOptions{
		FeedSource:   req.FeedSource,
		SkipSnapshot: req.SkipSnapshot,
	})
	if err != nil {
		if report != nil {
			return response.Error(c, "Settlement failed: "+err.Error(), middleware.StatusFor(err), report)
		}
		return err
	}
	return response.Success(c, "Settlement completed", report, nil)
}

// Runs lists the latest settlement runs.
func (h *Handlers) Runs(c *fiber.Ctx) error {
	out, err := h.Driver.Runs(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return response.List(c, "Settlement runs", out, len(out))
}

type weekRequest struct {
	Week *int `json:"week"`
}

// week returns the body's week or the current one.
func (h *Handlers) week(c *fiber.Ctx) (int, error) {
	var req weekRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if req.Week != nil {
		if *req.Week < 0 {
			return 0, fiber.NewError(fiber.StatusBadRequest, "week must not be negative")
		}
		return *req.Week, nil
	}
	return h.Gate.Week(c.UserContext())
}

// Snapshot records every active account's balance for a week.
func (h *Handlers) Snapshot(c *fiber.Ctx) error {
	week, err := h.week(c)
	if err != nil {
		return err
	}
	n, err := h.Ledger.Snapshot(c.UserContext(), week)
	if err != nil {
		return err
	}
	if err := h.Leaderboard.Invalidate(c.UserContext()); err != nil {
		return err
	}
	return response.Success(c, "Snapshot taken", fiber.Map{"week": week, "accounts": n}, nil)
}

// AwardPoints grants season points for the gains of a week.
func (h *Handlers) AwardPoints(c *fiber.Ctx) error {
	week, err := h.week(c)
	if err != nil {
		return err
	}
	n, err := h.Leaderboard.AwardWeek(c.UserContext(), week)
	if err != nil {
		return err
	}
	return response.Success(c, "Points awarded", fiber.Map{"week": week, "awarded": n}, nil)
}

// DeactivateUser soft deletes a coach by external id.
func (h *Handlers) DeactivateUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("externalId"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "Invalid external id")
	}
	if err := h.Users.Deactivate(c.UserContext(), id); err != nil {
		return err
	}
	return response.Success(c, "Coach deactivated", fiber.Map{"external_id": id}, nil)
}
