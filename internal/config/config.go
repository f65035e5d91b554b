package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

// BackendConfig points at the mining-operations REST API.
type BackendConfig struct {
	BaseURL   string
	Timeout   time.Duration
	AITimeout time.Duration
	PageLimit int

	// ServiceToken authenticates background polls that run without a user request.
	ServiceToken string
}

type AIConfig struct {
	PollInterval time.Duration
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// Enabled reports whether sessions should be kept in redis rather than in process.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

func (c ServiceBusConfig) Enabled() bool {
	return strings.TrimSpace(c.ConnectionString) != ""
}

type DispatchConfig struct {
	DefaultTargetWeight float64
	DefaultDistance     float64
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Backend     BackendConfig
	AI          AIConfig
	Redis       RedisConfig
	ServiceBus  ServiceBusConfig
	Dispatch    DispatchConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7095)
	v.SetDefault("BACKEND_TIMEOUT", "30s")
	v.SetDefault("AI_SERVICE_TIMEOUT", "120s")
	v.SetDefault("BACKEND_PAGE_LIMIT", 1000)
	v.SetDefault("AI_POLL_INTERVAL", "30s")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SERVICEBUS_QUEUE", "production-batches")
	v.SetDefault("DISPATCH_DEFAULT_TARGET_WEIGHT", 30)
	v.SetDefault("DISPATCH_DEFAULT_DISTANCE", 3)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Backend: BackendConfig{
			BaseURL:   strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
			Timeout:   v.GetDuration("BACKEND_TIMEOUT"),
			AITimeout: v.GetDuration("AI_SERVICE_TIMEOUT"),
			PageLimit: v.GetInt("BACKEND_PAGE_LIMIT"),

			ServiceToken: v.GetString("BACKEND_SERVICE_TOKEN"),
		},
		AI: AIConfig{
			PollInterval: v.GetDuration("AI_POLL_INTERVAL"),
		},
		Redis: RedisConfig{
			Addr:       v.GetString("REDIS_ADDR"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			SessionTTL: v.GetDuration("SESSION_TTL"),
		},
		ServiceBus: ServiceBusConfig{
			ConnectionString: v.GetString("SERVICEBUS_CONNECTION_STRING"),
			QueueName:        v.GetString("SERVICEBUS_QUEUE"),
		},
		Dispatch: DispatchConfig{
			DefaultTargetWeight: v.GetFloat64("DISPATCH_DEFAULT_TARGET_WEIGHT"),
			DefaultDistance:     v.GetFloat64("DISPATCH_DEFAULT_DISTANCE"),
		},
	}

	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if cfg.Backend.PageLimit <= 0 {
		return fmt.Errorf("BACKEND_PAGE_LIMIT must be positive")
	}
	if cfg.AI.PollInterval <= 0 {
		return fmt.Errorf("AI_POLL_INTERVAL must be positive")
	}
	if cfg.Dispatch.DefaultTargetWeight <= 0 {
		return fmt.Errorf("DISPATCH_DEFAULT_TARGET_WEIGHT must be positive")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
