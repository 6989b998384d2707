package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/biosecret/task-api/events"
	"github.com/biosecret/task-api/handlers"
	"github.com/biosecret/task-api/middleware"
	"github.com/biosecret/task-api/services"
)

// Deps là các thành phần mà route cần
type Deps struct {
	Auth  *services.AuthService
	Tasks *services.TaskService
	Hub   *events.Hub

	RateLimitMax    int
	RateLimitWindow time.Duration
	// nil thì limiter dùng bộ nhớ trong tiến trình
	RateLimitStorage fiber.Storage
}

func SetupRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", handlers.HandleHealthCheck)

	api := app.Group("/api")
	if deps.RateLimitMax > 0 {
		api.Use(middleware.RateLimit(deps.RateLimitMax, deps.RateLimitWindow, deps.RateLimitStorage))
	}
	v1 := api.Group("/v1")

	guard := middleware.Guard(deps.Auth)
	authHandler := &handlers.AuthHandler{Auth: deps.Auth}
	taskHandler := &handlers.TaskHandler{Tasks: deps.Tasks}
	eventHandler := &handlers.EventHandler{Hub: deps.Hub}

	auth := v1.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Get("/me", guard, authHandler.Me)

	tasks := v1.Group("/tasks", guard)
	tasks.Get("/", taskHandler.HandleAllTasks)
	tasks.Post("/", taskHandler.HandleCreateTask)
	// phải đăng ký trước /:id
	tasks.Get("/events", eventHandler.HandleTaskEvents)
	tasks.Get("/:id", taskHandler.HandleGetOneTask)
	tasks.Put("/:id", taskHandler.HandleUpdateTask)
	tasks.Delete("/:id", taskHandler.HandleDeleteTask)
}
