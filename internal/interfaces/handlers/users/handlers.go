package users

import (
	"strconv"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/leaderboard"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/orders"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	usersvc "github.com/ttrnecka/rebbl-stock-market/internal/application/users"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/middleware"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Users       *usersvc.Service
	Stocks      *stocks.Registry
	Book        *orders.Book
	Leaderboard *leaderboard.Service
}

type registerRequest struct {
	ExternalID int64  `json:"external_id"`
	Name       string `json:"name"`
}

// Register signs a coach up, or reactivates a known one. The external id may
// come from the body or the coach header.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.ExternalID == 0 {
		if raw := c.Get(middleware.CoachIDHeader); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return response.BadRequest(c, "Invalid "+middleware.CoachIDHeader+" header")
			}
			req.ExternalID = id
		}
	}
	if req.ExternalID == 0 {
		return response.BadRequest(c, "external_id is required")
	}
	if !validation.IsValidName(req.Name) {
		return response.BadRequest(c, "name is required and must be at most 80 printable characters")
	}
	user, err := h.Users.Register(c.UserContext(), req.ExternalID, req.Name)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Coach registered", user, nil)
}

// ShareView is one holding with its current value.
type ShareView struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Units     int             `json:"units"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Change    decimal.Decimal `json:"unit_price_change"`
	Value     decimal.Decimal `json:"value"`
}

// Me returns the portfolio of the calling coach.
func (h *Handlers) Me(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := middleware.CurrentUser(c)

	account, err := h.Users.Account(ctx, user)
	if err != nil {
		return err
	}
	standing, err := h.Leaderboard.Of(ctx, user.ID)
	if err != nil {
		return err
	}
	shares, err := h.Users.Shares(ctx, user)
	if err != nil {
		return err
	}
	all, err := h.Stocks.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]domain.Stock, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}
	views := make([]ShareView, 0, len(shares))
	for _, sh := range shares {
		stock := byID[sh.StockID]
		views = append(views, ShareView{
			Code:      stock.Code,
			Name:      stock.Name,
			Units:     sh.Units,
			UnitPrice: stock.UnitPrice,
			Change:    stock.UnitPriceChange,
			Value:     stock.UnitPrice.Mul(decimal.NewFromInt(int64(sh.Units))),
		})
	}
	pending, err := h.Book.ForUser(ctx, user, false)
	if err != nil {
		return err
	}

	return response.Success(c, "Portfolio", fiber.Map{
		"user":         user,
		"cash":         account.Amount,
		"balance":      standing.Balance,
		"current_gain": standing.CurrentGain,
		"points":       standing.Points,
		"shares":       views,
		"orders":       pending,
	}, nil)
}
