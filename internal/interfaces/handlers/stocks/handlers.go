package stocks

import (
	stocksvc "github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Registry *stocksvc.Registry
}

// List returns every stock, or those matching ?q= by code or name.
func (h *Handlers) List(c *fiber.Ctx) error {
	var (
		out []domain.Stock
		err error
	)
	if q := c.Query("q"); q != "" {
		out, err = h.Registry.Search(c.UserContext(), q)
	} else {
		out, err = h.Registry.List(c.UserContext())
	}
	if err != nil {
		return err
	}
	return response.List(c, "Stocks", out, len(out))
}

// Get returns one stock with its price history.
func (h *Handlers) Get(c *fiber.Ctx) error {
	stock, err := h.Registry.ByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	history, err := h.Registry.History(c.UserContext(), stock.ID)
	if err != nil {
		return err
	}
	return response.Success(c, "Stock", fiber.Map{"stock": stock, "history": history}, nil)
}
