package steadfast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/ratelimit"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// HTTPAPIClient is the production implementation of APIClient, built on
// the resilient executor and the per-adapter rate limiter.
type HTTPAPIClient struct {
	executor *transport.Executor
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Policy    transport.Policy
	RateLimit ratelimit.Policy
	Logger    *otelzap.Logger

	// HTTPClient overrides the transport for tests.
	HTTPClient *http.Client
	// SleepFunc overrides backoff sleeps for tests.
	SleepFunc func(ctx context.Context, d time.Duration) error
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	executor := transport.New(transport.Config{
		Provider: carrierName,
		BaseURL:  cfg.BaseURL,
		Policy:   cfg.Policy,
		Limiter:  ratelimit.New(cfg.RateLimit),
		Auth: &staticAuth{
			apiKey:    cfg.APIKey,
			secretKey: cfg.SecretKey,
		},
		Logger:     cfg.Logger,
		HTTPClient: cfg.HTTPClient,
		SleepFunc:  cfg.SleepFunc,
	})
	return &HTTPAPIClient{executor: executor}
}

// CreateOrder books a consignment.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*Consignment, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/create_order",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status      int          `json:"status"`
		Message     string       `json:"message"`
		Consignment *Consignment `json:"consignment"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode create_order response: %w", err)
	}
	if err := embeddedStatusError(payload.Status, payload.Message); err != nil {
		return nil, err
	}
	if payload.Consignment == nil {
		return nil, courier.NewError(carrierName, courier.CodeUpstreamClient, "create_order returned no consignment")
	}
	return payload.Consignment, nil
}

// GetStatusByTrackingCode returns the current delivery status.
func (c *HTTPAPIClient) GetStatusByTrackingCode(ctx context.Context, trackingCode string) (*StatusResponse, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/status_by_trackingcode/" + trackingCode,
	})
	if err != nil {
		return nil, err
	}

	var status StatusResponse
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	if err := embeddedStatusError(status.Status, status.Message); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetBalance returns the merchant's current balance.
func (c *HTTPAPIClient) GetBalance(ctx context.Context) (*BalanceResponse, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/get_balance",
	})
	if err != nil {
		return nil, err
	}

	var balance BalanceResponse
	if err := json.Unmarshal(resp.Body, &balance); err != nil {
		return nil, fmt.Errorf("decode balance response: %w", err)
	}
	if err := embeddedStatusError(balance.Status, balance.Message); err != nil {
		return nil, err
	}
	return &balance, nil
}

// embeddedStatusError surfaces Steadfast's embedded status field, which
// the API sets independently of the HTTP status code.
func embeddedStatusError(status int, message string) error {
	if status == 0 || status == http.StatusOK {
		return nil
	}
	if message == "" {
		message = fmt.Sprintf("upstream reported status %d", status)
	}
	return courier.NewError(carrierName, courier.CodeUpstreamClient, message).
		WithStatusCode(status)
}

// staticAuth implements transport.Authenticator for Steadfast's
// preconfigured token pair. Steadfast does not use the Authorization
// scheme; credentials travel in carrier-specific header names.
type staticAuth struct {
	apiKey    string
	secretKey string
}

func (a *staticAuth) Attach(ctx context.Context, req *http.Request) error {
	if a.apiKey == "" || a.secretKey == "" {
		return courier.NewError(carrierName, courier.CodeAuthentication, "api key and secret key not configured").
			WithCause(courier.ErrMissingCredentials)
	}
	req.Header.Set("Api-Key", a.apiKey)
	req.Header.Set("Secret-Key", a.secretKey)
	return nil
}

// Invalidate is a no-op: there is no token to refresh.
func (a *staticAuth) Invalidate(ctx context.Context) {}

// Ensure HTTPAPIClient implements APIClient.
var _ APIClient = (*HTTPAPIClient)(nil)
