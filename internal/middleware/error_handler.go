package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 50

var statusMap = []struct {
	err  error
	code int
}{
	{domain.ErrMarketClosed, fiber.StatusLocked},
	{domain.ErrInvalidOrder, fiber.StatusBadRequest},
	{domain.ErrInvalidFeed, fiber.StatusBadRequest},
	{domain.ErrUserInactive, fiber.StatusForbidden},
	{domain.ErrUserNotFound, fiber.StatusNotFound},
	{domain.ErrStockNotFound, fiber.StatusNotFound},
	{domain.ErrOrderNotFound, fiber.StatusNotFound},
	{domain.ErrAccountNotFound, fiber.StatusNotFound},
	{domain.ErrOrderProcessed, fiber.StatusConflict},
	{domain.ErrSettlementRunning, fiber.StatusConflict},
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if domain.IsShareCapExceeded(err) {
		return fiber.StatusConflict
	}
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return fiber.StatusInternalServerError
}

// NewErrorHandler returns the global error handler. It answers in the standard
// error format; server errors are logged and, with Redis, kept in the health
// error log.
func NewErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)
		message := err.Error()
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("Request failed")
			recordError(rdb, c, err)
			message = "Internal Server Error"
		}
		return response.Error(c, message, code, nil)
	}
}

func recordError(rdb *redis.Client, c *fiber.Ctx, err error) {
	if rdb == nil {
		return
	}
	entry, _ := json.Marshal(map[string]interface{}{
		"time":     time.Now().UTC(),
		"path":     c.OriginalURL(),
		"method":   c.Method(),
		"message":  err.Error(),
		"trace_id": GetTraceID(c),
	})
	ctx := context.Background()
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, KeyErrorLog, entry)
	pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
	_, _ = pipe.Exec(ctx)
}
