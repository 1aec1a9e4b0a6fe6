package orders

import (
	"fmt"
	"strconv"
	"strings"

	ordersvc "github.com/ttrnecka/rebbl-stock-market/internal/application/orders"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/middleware"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Book          *ordersvc.Book
	Stocks        *stocks.Registry
	MaxShareUnits int
}

// CreateRequest is the body of POST /orders. Amount is the chat-style bound:
// for a buy it is a share count when it is a whole number up to the share
// cap, otherwise a credit limit. Funds and Shares set the bound explicitly.
type CreateRequest struct {
	Stock     string           `json:"stock"`
	Operation string           `json:"operation"`
	Amount    *decimal.Decimal `json:"amount"`
	Funds     *decimal.Decimal `json:"funds"`
	Shares    *int             `json:"shares"`
}

// maxSellAmountFactor caps a sell amount at this multiple of the share cap so
// it always fits an int.
const maxSellAmountFactor = 1000

// Bounds turns the request into order bounds.
func (r CreateRequest) Bounds(maxShareUnits int) (domain.BuyBound, domain.SellBound, error) {
	switch domain.Operation(r.Operation) {
	case domain.OperationBuy:
		switch {
		case r.Funds != nil:
			return domain.BuyFunds(*r.Funds), domain.SellAll(), nil
		case r.Shares != nil:
			return domain.BuyShares(*r.Shares), domain.SellAll(), nil
		case r.Amount != nil:
			if r.Amount.IsInteger() && r.Amount.LessThanOrEqual(decimal.NewFromInt(int64(maxShareUnits))) {
				return domain.BuyShares(int(r.Amount.IntPart())), domain.SellAll(), nil
			}
			return domain.BuyFunds(*r.Amount), domain.SellAll(), nil
		}
		return domain.BuyUnbounded(), domain.SellAll(), nil
	case domain.OperationSell:
		switch {
		case r.Shares != nil:
			return domain.BuyUnbounded(), domain.SellShares(*r.Shares), nil
		case r.Amount != nil:
			if !r.Amount.IsInteger() {
				return domain.BuyBound{}, domain.SellBound{}, fmt.Errorf("%w: sell amount must be a whole number of shares", domain.ErrInvalidOrder)
			}
			if r.Amount.GreaterThan(decimal.NewFromInt(int64(maxShareUnits) * maxSellAmountFactor)) {
				return domain.BuyBound{}, domain.SellBound{}, fmt.Errorf("%w: sell amount %s is out of range", domain.ErrInvalidOrder, r.Amount.String())
			}
			return domain.BuyUnbounded(), domain.SellShares(int(r.Amount.IntPart())), nil
		}
		return domain.BuyUnbounded(), domain.SellAll(), nil
	}
	return domain.BuyBound{}, domain.SellBound{}, fmt.Errorf("%w: operation must be buy or sell", domain.ErrInvalidOrder)
}

// Create queues an order for the next settlement.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Operation = strings.ToLower(strings.TrimSpace(req.Operation))
	if !validation.IsValidCode(req.Stock) {
		return response.BadRequest(c, "stock code is required")
	}
	buy, sell, err := req.Bounds(h.MaxShareUnits)
	if err != nil {
		return err
	}
	stock, err := h.Stocks.ByCode(c.UserContext(), req.Stock)
	if err != nil {
		return err
	}
	order, err := h.Book.Create(c.UserContext(), middleware.CurrentUser(c), stock, domain.Operation(req.Operation), buy, sell)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Order placed: "+order.Description, order, nil)
}

// List returns the caller's orders; ?all=true includes processed ones.
func (h *Handlers) List(c *fiber.Ctx) error {
	out, err := h.Book.ForUser(c.UserContext(), middleware.CurrentUser(c), c.QueryBool("all"))
	if err != nil {
		return err
	}
	return response.List(c, "Orders", out, len(out))
}

// Cancel removes a pending order of the caller.
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return response.BadRequest(c, "Invalid order id")
	}
	ok, err := h.Book.Cancel(c.UserContext(), uint(id), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	if !ok {
		return response.Error(c, "Order not found or already processed", fiber.StatusNotFound, nil)
	}
	return response.Success(c, fmt.Sprintf("Order %d cancelled", id), fiber.Map{"id": id}, nil)
}
