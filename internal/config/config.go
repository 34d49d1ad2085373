package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Cache backend
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	// Pathao
	PathaoBaseURL      string `envconfig:"PATHAO_BASE_URL" default:"https://api-hermes.pathao.com"`
	PathaoClientID     string `envconfig:"PATHAO_CLIENT_ID"`
	PathaoClientSecret string `envconfig:"PATHAO_CLIENT_SECRET"`
	PathaoUsername     string `envconfig:"PATHAO_USERNAME"`
	PathaoPassword     string `envconfig:"PATHAO_PASSWORD"`
	PathaoStoreID      string `envconfig:"PATHAO_STORE_ID"`
	PathaoEnabled      bool   `envconfig:"PATHAO_ENABLED" default:"true"`
	PathaoUseMock      bool   `envconfig:"PATHAO_USE_MOCK" default:"false"`

	// Steadfast
	SteadfastBaseURL   string `envconfig:"STEADFAST_BASE_URL" default:"https://portal.packzy.com/api/v1"`
	SteadfastAPIKey    string `envconfig:"STEADFAST_API_KEY"`
	SteadfastSecretKey string `envconfig:"STEADFAST_SECRET_KEY"`
	SteadfastEnabled   bool   `envconfig:"STEADFAST_ENABLED" default:"true"`
	SteadfastUseMock   bool   `envconfig:"STEADFAST_USE_MOCK" default:"false"`

	// Rate limiting (per adapter instance, process-local)
	RateLimitMaxRequests int `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"30"`
	RateLimitWindowSecs  int `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"courier-aggregator"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

