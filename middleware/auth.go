package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/biosecret/task-api/models"
)

const identityKey = "identity"

// TokenResolver xác thực access token và trả về identity
type TokenResolver interface {
	Resolve(token string) (models.Identity, error)
}

// Guard xác thực access token, request không hợp lệ bị chặn với 401
func Guard(resolver TokenResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Lấy token từ header Authorization
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Not authorized, no token")
		}

		// Tách từ "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return unauthorized(c, "Not authorized, invalid token format")
		}

		identity, err := resolver.Resolve(tokenString)
		if err != nil {
			return unauthorized(c, "Not authorized, invalid or expired token")
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// IdentityFrom trả về identity mà Guard đã lưu trong context
func IdentityFrom(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityKey).(models.Identity)
	return identity, ok
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": msg})
}
