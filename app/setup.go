package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/biosecret/task-api/cache"
	"github.com/biosecret/task-api/config"
	"github.com/biosecret/task-api/database"
	"github.com/biosecret/task-api/events"
	"github.com/biosecret/task-api/handlers"
	"github.com/biosecret/task-api/middleware"
	"github.com/biosecret/task-api/router"
	"github.com/biosecret/task-api/services"
)

const startupTimeout = 10 * time.Second

// Stores gom các store mà service cần
type Stores struct {
	Users services.UserStore
	Tasks services.TaskStore
}

// New tạo ứng dụng Fiber với toàn bộ middleware và route
func New(cfg config.Config, stores Stores, publishers ...events.Publisher) (*fiber.App, error) {
	return newApp(cfg, stores, nil, publishers...)
}

func newApp(cfg config.Config, stores Stores, limiterStorage fiber.Storage, publishers ...events.Publisher) (*fiber.App, error) {
	auth, err := services.NewAuthService(stores.Users, services.AuthConfig{
		Secret:          []byte(cfg.JWTSecret),
		AccessTTL:       cfg.AccessTokenTTL,
		RefreshTTL:      cfg.RefreshTokenTTL,
		AdminInviteCode: cfg.AdminInviteCode,
	})
	if err != nil {
		return nil, err
	}

	hub := events.NewHub()
	tasks := services.NewTaskService(stores.Tasks, stores.Users, append(events.Multi{hub}, publishers...))

	app := fiber.New(fiber.Config{
		AppName:      "task-api",
		ErrorHandler: handlers.ErrorHandler,
	})

	// Đính kèm middleware để xử lý lỗi và ghi log
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${ip}]:${port} ${status} - ${method} ${path} ${latency}\n",
	}))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.CORS(cfg.AllowedOrigins))

	router.SetupRoutes(app, router.Deps{
		Auth:             auth,
		Tasks:            tasks,
		Hub:              hub,
		RateLimitMax:     cfg.RateLimitMax,
		RateLimitWindow:  cfg.RateLimitWindow,
		RateLimitStorage: limiterStorage,
	})

	config.AddSwaggerRoutes(app, cfg)

	return app, nil
}

// SetupAndRunApp khởi động ứng dụng Fiber
func SetupAndRunApp() error {
	// Load biến môi trường từ file .env
	if err := config.LoadENV(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	stores := Stores{}
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Println("Using in-memory store, data is lost on restart")
		mem := database.NewMemoryStore()
		stores.Users, stores.Tasks = mem, mem
	default:
		db, err := database.OpenPostgreSQL(ctx, cfg.PostgresURI)
		if err != nil {
			return err
		}
		// Đảm bảo kết nối với cơ sở dữ liệu được đóng sau khi ứng dụng kết thúc
		defer database.ClosePostgreSQL(db)
		stores.Users = database.NewUserRepository(db)
		stores.Tasks = database.NewTaskRepository(db)
	}

	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		redisStorage, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisStorage.Close()
		limiterStorage = redisStorage
	}

	var publishers []events.Publisher
	if cfg.MQTTURL != "" {
		mqttPublisher, err := events.NewMQTTPublisher(cfg.MQTTURL)
		if err != nil {
			return err
		}
		defer mqttPublisher.Close()
		publishers = append(publishers, mqttPublisher)
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}

	app, err := newApp(cfg, stores, limiterStorage, publishers...)
	if err != nil {
		return err
	}

	// Lắng nghe trên cổng chỉ định
	return app.Listen(fmt.Sprintf(":%s", cfg.Port))
}
