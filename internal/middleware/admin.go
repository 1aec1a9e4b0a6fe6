package middleware

import (
	"github.com/ttrnecka/rebbl-stock-market/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the plain admin key.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdmin checks the admin key header against a bcrypt hash. With no hash
// configured every admin route is refused.
func RequireAdmin(keyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(AdminKeyHeader)
		if keyHash == "" || key == "" {
			return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
