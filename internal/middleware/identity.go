package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CoachIDHeader carries the chat id of the coach the bot acts for.
const CoachIDHeader = "X-Coach-ID"

const userLocal = "user"

// UserLookup resolves a chat id to a user.
type UserLookup interface {
	ByExternalID(ctx context.Context, externalID int64) (*domain.User, error)
}

// Identify loads the user named by the coach header into Locals. Requests
// without the header pass through anonymously.
func Identify(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(CoachIDHeader)
		if raw == "" {
			return c.Next()
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return response.Error(c, "Invalid "+CoachIDHeader+" header", fiber.StatusBadRequest, nil)
		}
		user, err := users.ByExternalID(c.UserContext(), id)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		if user != nil {
			c.Locals(userLocal, user)
		}
		return c.Next()
	}
}

// RequireUser ensures an active registered coach is making the request.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return response.Unauthorized(c, "You are not registered")
		}
		if !user.Active() {
			return response.Error(c, domain.ErrUserInactive.Error(), fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// CurrentUser returns the identified user (nil if none).
func CurrentUser(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals(userLocal).(*domain.User)
	return user
}
