package config

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	_ "github.com/biosecret/task-api/docs"
)

// AddSwaggerRoutes phục vụ tài liệu API, tắt ở production
func AddSwaggerRoutes(app *fiber.App, cfg Config) {
	if cfg.IsProduction() {
		return
	}
	app.Get("/swagger/*", swagger.HandlerDefault)
}
