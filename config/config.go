package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// Config chứa toàn bộ cấu hình runtime, đọc một lần lúc khởi động
type Config struct {
	Port        string
	Env         string
	StoreDriver string
	PostgresURI string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminInviteCode string

	AllowedOrigins  []string
	RateLimitMax    int
	RateLimitWindow time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MQTTURL      string
	KafkaBrokers []string
	KafkaTopic   string
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load đọc cấu hình từ biến môi trường với giá trị mặc định
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Port:            getEnv("PORT", "3000"),
		Env:             getEnv("APP_ENV", "development"),
		StoreDriver:     getEnv("STORE_DRIVER", StoreDriverPostgres),
		PostgresURI:     getEnv("POSTGRESQL_URI", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AdminInviteCode: getEnv("ADMIN_INVITE_CODE", ""),
		AllowedOrigins:  getList("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		MQTTURL:         getEnv("MQTT_URL", ""),
		KafkaBrokers:    getList("KAFKA_BROKERS", nil),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "task.events"),
	}

	cfg.AccessTokenTTL = getDuration("JWT_ACCESS_TTL", 15*time.Minute, &errs)
	cfg.RefreshTokenTTL = getDuration("JWT_REFRESH_TTL", 7*24*time.Hour, &errs)
	cfg.RateLimitWindow = getDuration("RATE_LIMIT_WINDOW", 15*time.Minute, &errs)
	cfg.RateLimitMax = getInt("RATE_LIMIT_MAX", 100, &errs)
	cfg.RedisDB = getInt("REDIS_DB", 0, &errs)

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.PostgresURI == "" {
			errs = append(errs, errors.New("you must set your 'POSTGRESQL_URI' environmental variable"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory))
	}

	return cfg, errors.Join(errs...)
}

func getEnv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getList(k string, d []string) []string {
	raw := getEnv(k, "")
	if raw == "" {
		return d
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getDuration(k string, d time.Duration, errs *[]error) time.Duration {
	raw := getEnv(k, "")
	if raw == "" {
		return d
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration, got %q", k, raw))
		return d
	}
	return v
}

func getInt(k string, d int, errs *[]error) int {
	raw := getEnv(k, "")
	if raw == "" {
		return d
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a non-negative integer, got %q", k, raw))
		return d
	}
	return v
}
