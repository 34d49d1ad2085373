package main

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/internal/cache/rediscache"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/internal/config"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/internal/registry"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/internal/telemetry"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/pathao"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/ratelimit"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/steadfast"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

func initCache(cfg *config.Config, logger *otelzap.Logger) courier.Cache {
	return rediscache.New(cfg.RedisAddr, logger)
}

// initManager wires the provider registry and the adapter factory map.
// Adding a carrier means adding one adapter package and one factory entry
// here; nothing else changes.
func initManager(cfg *config.Config, cache courier.Cache, logger *otelzap.Logger, tracer trace.Tracer) *courier.Manager {
	rateLimit := ratelimit.Policy{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      time.Duration(cfg.RateLimitWindowSecs) * time.Second,
	}

	reg := registry.NewStatic(
		&courier.ProviderConfig{
			Name:     "pathao",
			BaseURL:  cfg.PathaoBaseURL,
			AuthType: "token",
			Credentials: map[string]string{
				"client_id":     cfg.PathaoClientID,
				"client_secret": cfg.PathaoClientSecret,
				"username":      cfg.PathaoUsername,
				"password":      cfg.PathaoPassword,
				"store_id":      cfg.PathaoStoreID,
			},
			IsActive: cfg.PathaoEnabled,
		},
		&courier.ProviderConfig{
			Name:     "steadfast",
			BaseURL:  cfg.SteadfastBaseURL,
			AuthType: "static",
			Credentials: map[string]string{
				"api_key":    cfg.SteadfastAPIKey,
				"secret_key": cfg.SteadfastSecretKey,
			},
			IsActive: cfg.SteadfastEnabled,
		},
	)

	factories := map[string]courier.AdapterFactory{
		"pathao": func(pc *courier.ProviderConfig) (courier.Courier, error) {
			return pathao.New(pathao.Config{
				BaseURL:      pc.BaseURL,
				ClientID:     pc.Credentials["client_id"],
				ClientSecret: pc.Credentials["client_secret"],
				Username:     pc.Credentials["username"],
				Password:     pc.Credentials["password"],
				StoreID:      pc.Credentials["store_id"],
				RateLimit:    rateLimit,
				UseMock:      cfg.PathaoUseMock,
			}, cache, logger, tracer), nil
		},
		"steadfast": func(pc *courier.ProviderConfig) (courier.Courier, error) {
			return steadfast.New(steadfast.Config{
				BaseURL:   pc.BaseURL,
				APIKey:    pc.Credentials["api_key"],
				SecretKey: pc.Credentials["secret_key"],
				RateLimit: rateLimit,
				UseMock:   cfg.SteadfastUseMock,
			}, cache, logger, tracer), nil
		},
	}

	return courier.NewManager(courier.ManagerConfig{
		Registry:  reg,
		Cache:     cache,
		Logger:    logger,
		Factories: factories,
	})
}
