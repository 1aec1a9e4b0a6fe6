package market

import (
	marketsvc "github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Gate *marketsvc.Gate
}

func (h *Handlers) status(c *fiber.Ctx, message string) error {
	open, err := h.Gate.IsOpen(c.UserContext())
	if err != nil {
		return err
	}
	week, err := h.Gate.Week(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, message, fiber.Map{"open": open, "week": week}, nil)
}

// Status reports whether orders are accepted and the current week.
func (h *Handlers) Status(c *fiber.Ctx) error {
	return h.status(c, "Market status")
}

func (h *Handlers) Open(c *fiber.Ctx) error {
	if err := h.Gate.Open(c.UserContext()); err != nil {
		return err
	}
	return h.status(c, "Market opened")
}

func (h *Handlers) Close(c *fiber.Ctx) error {
	if err := h.Gate.Close(c.UserContext()); err != nil {
		return err
	}
	return h.status(c, "Market closed")
}

type weekRequest struct {
	Week int `json:"week"`
}

// SetWeek moves the round counter used by snapshots.
func (h *Handlers) SetWeek(c *fiber.Ctx) error {
	var req weekRequest
	if err := c.BodyParser(&req); err != nil || req.Week < 0 {
		return response.BadRequest(c, "week must be a non-negative number")
	}
	if err := h.Gate.SetWeek(c.UserContext(), req.Week); err != nil {
		return err
	}
	return h.status(c, "Week updated")
}
