package pathao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/ratelimit"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const apiBase = "/aladdin/api/v1"

// HTTPAPIClient is the production implementation of APIClient, built on
// the resilient executor and the per-adapter rate limiter.
type HTTPAPIClient struct {
	executor *transport.Executor
	tokens   *tokenSource
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Policy       transport.Policy
	RateLimit    ratelimit.Policy
	Cache        courier.Cache
	Logger       *otelzap.Logger

	// HTTPClient overrides the transport for tests.
	HTTPClient *http.Client
	// SleepFunc overrides backoff sleeps for tests.
	SleepFunc func(ctx context.Context, d time.Duration) error
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	tokens := &tokenSource{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		password:     cfg.Password,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		httpc:        cfg.HTTPClient,
	}
	if tokens.httpc == nil {
		tokens.httpc = &http.Client{Timeout: 30 * time.Second}
	}

	executor := transport.New(transport.Config{
		Provider:   carrierName,
		BaseURL:    cfg.BaseURL,
		Policy:     cfg.Policy,
		Limiter:    ratelimit.New(cfg.RateLimit),
		Auth:       tokens,
		Logger:     cfg.Logger,
		HTTPClient: cfg.HTTPClient,
		SleepFunc:  cfg.SleepFunc,
	})

	return &HTTPAPIClient{executor: executor, tokens: tokens}
}

// IssueToken forces a credential exchange and caches the result.
func (c *HTTPAPIClient) IssueToken(ctx context.Context) (*TokenResponse, error) {
	return c.tokens.issue(ctx)
}

// GetCities lists the delivery cities.
func (c *HTTPAPIClient) GetCities(ctx context.Context) ([]City, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   apiBase + "/city-list",
	})
	if err != nil {
		return nil, err
	}
	var payload listPayload[City]
	if err := decodeEnvelope(resp.Body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// GetZones lists the zones of a city.
func (c *HTTPAPIClient) GetZones(ctx context.Context, cityID int) ([]Zone, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("%s/cities/%d/zone-list", apiBase, cityID),
	})
	if err != nil {
		return nil, err
	}
	var payload listPayload[Zone]
	if err := decodeEnvelope(resp.Body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// GetAreas lists the areas of a zone.
func (c *HTTPAPIClient) GetAreas(ctx context.Context, zoneID int) ([]Area, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("%s/zones/%d/area-list", apiBase, zoneID),
	})
	if err != nil {
		return nil, err
	}
	var payload listPayload[Area]
	if err := decodeEnvelope(resp.Body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// GetPricePlan returns the delivery price for a parcel.
func (c *HTTPAPIClient) GetPricePlan(ctx context.Context, req *PricePlanRequest) (*PricePlan, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   apiBase + "/merchant/price-plan",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	var plan PricePlan
	if err := decodeEnvelope(resp.Body, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// CreateOrder books a consignment.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   apiBase + "/orders",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	var order OrderResponse
	if err := decodeEnvelope(resp.Body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderInfo returns the current state of a consignment.
func (c *HTTPAPIClient) GetOrderInfo(ctx context.Context, consignmentID string) (*OrderInfo, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("%s/orders/%s/info", apiBase, consignmentID),
	})
	if err != nil {
		return nil, err
	}
	var info OrderInfo
	if err := decodeEnvelope(resp.Body, &info); err != nil {
		return nil, err
	}
	if info.ConsignmentID == "" {
		info.ConsignmentID = consignmentID
	}
	return &info, nil
}

// GetStores lists the merchant's pickup stores.
func (c *HTTPAPIClient) GetStores(ctx context.Context) ([]Store, error) {
	resp, err := c.executor.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   apiBase + "/stores",
	})
	if err != nil {
		return nil, err
	}
	var payload listPayload[Store]
	if err := decodeEnvelope(resp.Body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// listPayload is Pathao's nested list shape: data wraps another data array.
type listPayload[T any] struct {
	Data []T `json:"data"`
}

// decodeEnvelope unwraps a Pathao response and surfaces embedded errors.
// Pathao signals failures with type "error" inside an HTTP 200, so the
// envelope is checked before the payload is decoded.
func decodeEnvelope(body []byte, out any) error {
	var raw struct {
		envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if raw.Type == "error" || raw.Code >= 400 {
		msg := raw.Message
		if msg == "" {
			msg = "upstream reported an error"
		}
		return courier.NewError(carrierName, courier.CodeUpstreamClient, msg).
			WithStatusCode(raw.Code)
	}
	if out == nil || len(raw.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// ============================================================================
// Token source
// ============================================================================

// tokenSource implements transport.Authenticator for Pathao's password
// grant. The issued token lives in memory and in the shared cache (~1h),
// so repeated adapter construction inside the window skips the exchange.
type tokenSource struct {
	baseURL      string
	clientID     string
	clientSecret string
	username     string
	password     string
	cache        courier.Cache
	logger       *otelzap.Logger
	httpc        *http.Client

	mu    sync.Mutex
	token string
}

func (t *tokenSource) cacheKey() string {
	return courier.CacheKey(carrierName, "token", map[string]string{"client_id": t.clientID})
}

// Attach sets the bearer header, issuing a token first when none is cached.
func (t *tokenSource) Attach(ctx context.Context, req *http.Request) error {
	token, err := t.get(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Invalidate drops the cached token so the next Attach re-authenticates.
func (t *tokenSource) Invalidate(ctx context.Context) {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
	if t.cache != nil {
		t.cache.Del(ctx, t.cacheKey())
	}
}

func (t *tokenSource) get(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.token != "" {
		token := t.token
		t.mu.Unlock()
		return token, nil
	}
	t.mu.Unlock()

	if t.cache != nil {
		if raw, ok := t.cache.Get(ctx, t.cacheKey()); ok {
			var token string
			if err := json.Unmarshal(raw, &token); err == nil && token != "" {
				t.mu.Lock()
				t.token = token
				t.mu.Unlock()
				return token, nil
			}
		}
	}

	resp, err := t.issue(ctx)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// issue performs the credential exchange directly, outside the executor:
// the token endpoint must stay reachable while the executor is mid-retry
// on a 401.
func (t *tokenSource) issue(ctx context.Context) (*TokenResponse, error) {
	if t.clientID == "" || t.clientSecret == "" {
		return nil, courier.NewError(carrierName, courier.CodeAuthentication, "client credentials not configured").
			WithCause(courier.ErrMissingCredentials)
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     t.clientID,
		"client_secret": t.clientSecret,
		"username":      t.username,
		"password":      t.password,
		"grant_type":    "password",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+apiBase+"/issue-token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := t.httpc.Do(req)
	if err != nil {
		return nil, courier.NewError(carrierName, courier.CodeAuthentication, "token exchange failed").
			WithCause(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, courier.NewError(carrierName, courier.CodeAuthentication,
			fmt.Sprintf("token exchange returned status %d", httpResp.StatusCode)).
			WithStatusCode(httpResp.StatusCode).
			WithCause(courier.ErrAuthenticationFailed)
	}

	var token TokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, courier.NewError(carrierName, courier.CodeAuthentication, "token exchange returned empty token").
			WithCause(courier.ErrAuthenticationFailed)
	}

	t.mu.Lock()
	t.token = token.AccessToken
	t.mu.Unlock()
	if t.cache != nil {
		if raw, err := json.Marshal(token.AccessToken); err == nil {
			t.cache.Set(ctx, t.cacheKey(), raw, courier.TTLToken)
		}
	}
	if t.logger != nil {
		t.logger.Info("Issued Pathao access token", zap.Int("expires_in", token.ExpiresIn))
	}
	return &token, nil
}

// Ensure HTTPAPIClient implements APIClient.
var _ APIClient = (*HTTPAPIClient)(nil)
