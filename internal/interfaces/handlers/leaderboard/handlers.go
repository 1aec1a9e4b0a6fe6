package leaderboard

import (
	lbsvc "github.com/ttrnecka/rebbl-stock-market/internal/application/leaderboard"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const defaultTop = 10

type Handlers struct {
	Service *lbsvc.Service
}

// Top ranks coaches by ?metric=balance|gain|points, first ?n= entries.
func (h *Handlers) Top(c *fiber.Ctx) error {
	metric, err := lbsvc.ParseMetric(c.Query("metric"))
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	n := c.QueryInt("n", defaultTop)
	if n < 0 {
		return response.BadRequest(c, "n must not be negative")
	}
	out, err := h.Service.Top(c.UserContext(), metric, n)
	if err != nil {
		return err
	}
	return response.List(c, "Leaderboard by "+string(metric), out, len(out))
}
