package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleHealthCheck godoc
// @Summary  Kiểm tra trạng thái dịch vụ
// @Tags     health
// @Produce  json
// @Success  200 {object} map[string]interface{}
// @Router   /health [get]
func HandleHealthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
