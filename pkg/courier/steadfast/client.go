// Package steadfast provides the Steadfast courier adapter. Steadfast
// uses a preconfigured key pair sent in custom headers instead of a token
// exchange, and publishes a flat tariff instead of a price endpoint.
package steadfast

import (
	"context"
	"math"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/ratelimit"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "steadfast"

// Published flat tariff (BDT). Steadfast has no rate endpoint; charges are
// computed locally from the merchant rate card.
const (
	dhakaCityID       = 1
	baseChargeDhaka   = 60
	baseChargeOutside = 120
	perKGSurcharge    = 15 // per kg above the first
	codFeePercent     = 0.01
)

// Config holds Steadfast configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	RateLimit ratelimit.Policy
	Policy    transport.Policy
	UseMock   bool // when true, uses the mock API client
}

// Client is the Steadfast courier adapter. It implements courier.Courier
// and delegates API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	cache     courier.Cache
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Steadfast client. If cfg.UseMock is true, it uses a
// mock API client; otherwise the resilient HTTP client.
func New(cfg Config, cache courier.Cache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			SecretKey: cfg.SecretKey,
			Policy:    cfg.Policy,
			RateLimit: cfg.RateLimit,
			Logger:    logger,
		})
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		cache:     cache,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Steadfast client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, cache courier.Cache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		cache:     cache,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Authenticate validates that the preconfigured key pair is present.
// There is no token exchange; credentials travel with every request.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.config.APIKey == "" || c.config.SecretKey == "" {
		return courier.NewError(carrierName, courier.CodeAuthentication, "api key and secret key not configured").
			WithCause(courier.ErrMissingCredentials)
	}
	return nil
}

// GetCities returns an empty list: Steadfast has no location API and
// accepts free-text addresses.
func (c *Client) GetCities(ctx context.Context) ([]courier.LocationNode, error) {
	return []courier.LocationNode{}, nil
}

// GetZones returns an empty list; see GetCities.
func (c *Client) GetZones(ctx context.Context, filter courier.LocationFilter) ([]courier.LocationNode, error) {
	return []courier.LocationNode{}, nil
}

// GetAreas returns an empty list; see GetCities.
func (c *Client) GetAreas(ctx context.Context, filter courier.LocationFilter) ([]courier.LocationNode, error) {
	return []courier.LocationNode{}, nil
}

// CalculateCharge computes the quote from the published flat tariff.
// No upstream call is made, so nothing is cached.
func (c *Client) CalculateCharge(ctx context.Context, pkg *courier.PackageDescriptor) (*courier.PriceQuote, error) {
	if pkg == nil {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "package is required")
	}
	if pkg.WeightKG <= 0 {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "item_weight must be positive").
			WithCause(courier.ErrInvalidPackage)
	}
	if pkg.CODAmount < 0 {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "cod_amount must not be negative").
			WithCause(courier.ErrInvalidPackage)
	}

	delivery := float64(baseChargeOutside)
	if pkg.RecipientCity == dhakaCityID {
		delivery = baseChargeDhaka
	}
	if extra := math.Ceil(pkg.WeightKG) - 1; extra > 0 {
		delivery += extra * perKGSurcharge
	}
	cod := round2(pkg.CODAmount * codFeePercent)

	return &courier.PriceQuote{
		DeliveryCharge: delivery,
		CODCharge:      cod,
		FinalPrice:     delivery + cod,
		Currency:       "BDT",
	}, nil
}

// CreateOrder books a consignment. Never cached; on success the tracking
// and balance cache entries for this provider are invalidated.
func (c *Client) CreateOrder(ctx context.Context, order *courier.OrderDescriptor) (*courier.CreateOrderResult, error) {
	if err := courier.ValidateOrder(order); err != nil {
		return nil, err
	}
	phone, err := courier.NormalizePhone(order.RecipientPhone)
	if err != nil {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "recipient phone is not a valid mobile number").
			WithCause(err)
	}

	consignment, err := c.apiClient.CreateOrder(ctx, &OrderRequest{
		Invoice:          order.InvoiceID,
		RecipientName:    order.RecipientName,
		RecipientPhone:   phone,
		RecipientAddress: order.RecipientAddress,
		CODAmount:        order.CODAmount,
		Note:             order.Instructions,
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.ClearPattern(ctx, courier.ProviderPattern(carrierName, "trackOrder"))
		c.cache.ClearPattern(ctx, courier.ProviderPattern(carrierName, "getBalance"))
	}

	c.logger.Info("Created Steadfast order",
		zap.String("tracking_code", consignment.TrackingCode),
		zap.String("invoice", consignment.Invoice),
	)
	return &courier.CreateOrderResult{
		TrackingID:    consignment.TrackingCode,
		ConsignmentID: consignment.ConsignmentID.String(),
		Status:        consignment.Status,
	}, nil
}

// TrackOrder returns the current delivery status, cached briefly (2min).
// Steadfast exposes only the latest status, so the snapshot carries a
// single update.
func (c *Client) TrackOrder(ctx context.Context, trackingID string) (*courier.TrackingResult, error) {
	if trackingID == "" {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "tracking id is required")
	}
	key := courier.CacheKey(carrierName, "trackOrder", map[string]string{"tracking_id": trackingID})
	return courier.GetOrSet(ctx, c.cache, key, courier.TTLTracking, func(ctx context.Context) (*courier.TrackingResult, error) {
		status, err := c.apiClient.GetStatusByTrackingCode(ctx, trackingID)
		if err != nil {
			return nil, err
		}
		return &courier.TrackingResult{
			TrackingID:  trackingID,
			Status:      status.DeliveryStatus,
			StatusClass: courier.ClassifyStatus(status.DeliveryStatus),
			Updates: []courier.TrackingUpdate{
				{Message: status.DeliveryStatus, Status: status.DeliveryStatus},
			},
		}, nil
	})
}

// GetBalance returns the merchant balance, cached for 10min. Failures
// degrade to a zero placeholder rather than an error; the caller cannot
// distinguish an unsupported endpoint from a transient outage here, which
// mirrors the upstream contract.
func (c *Client) GetBalance(ctx context.Context) (*courier.BalanceInfo, error) {
	key := courier.CacheKey(carrierName, "getBalance", nil)
	balance, err := courier.GetOrSet(ctx, c.cache, key, courier.TTLBalance, func(ctx context.Context) (*courier.BalanceInfo, error) {
		resp, err := c.apiClient.GetBalance(ctx)
		if err != nil {
			return nil, err
		}
		return &courier.BalanceInfo{CurrentBalance: resp.CurrentBalance, Currency: "BDT"}, nil
	})
	if err != nil {
		c.logger.Warn("Steadfast balance lookup failed, returning zero balance", zap.Error(err))
		return &courier.BalanceInfo{CurrentBalance: 0, Currency: "BDT"}, nil
	}
	return balance, nil
}

// GetStores returns an empty list: Steadfast has no pickup store concept.
func (c *Client) GetStores(ctx context.Context) ([]courier.StoreDescriptor, error) {
	return []courier.StoreDescriptor{}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ courier.Courier = (*Client)(nil)
