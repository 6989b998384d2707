package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// CORS chỉ cho phép các origin trong allow-list
func CORS(allowedOrigins []string) fiber.Handler {
	origins := strings.Join(allowedOrigins, ",")
	return cors.New(cors.Config{
		AllowOrigins: origins,
		// fiber không cho phép credentials với origin "*"
		AllowCredentials: origins != "*" && origins != "",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type, Authorization",
	})
}

// SecurityHeaders gắn các header bảo mật mặc định
func SecurityHeaders() fiber.Handler {
	return helmet.New()
}

// RateLimit giới hạn số request mỗi IP trong một cửa sổ thời gian.
// storage nil thì dùng bộ nhớ trong tiến trình.
func RateLimit(max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, please try again later",
			})
		},
	})
}
