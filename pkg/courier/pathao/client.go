// Package pathao provides the Pathao courier adapter. Pathao issues
// bearer tokens through a password-grant exchange and keys its location
// hierarchy as city -> zone -> area.
package pathao

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/ratelimit"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "pathao"

const (
	defaultItemType     = "parcel"
	defaultDeliveryType = "48" // normal delivery
)

// Config holds Pathao configuration.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	StoreID      string // default pickup store for orders
	RateLimit    ratelimit.Policy
	Policy       transport.Policy
	UseMock      bool // when true, uses the mock API client
}

// Client is the Pathao courier adapter. It implements courier.Courier and
// delegates API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	cache     courier.Cache
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Pathao client. If cfg.UseMock is true, it uses a mock
// API client; otherwise the resilient HTTP client.
func New(cfg Config, cache courier.Cache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:      cfg.BaseURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Username:     cfg.Username,
			Password:     cfg.Password,
			Policy:       cfg.Policy,
			RateLimit:    cfg.RateLimit,
			Cache:        cache,
			Logger:       logger,
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

// NewWithAPIClient creates a new Pathao client with a custom API client.
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

// Authenticate exchanges the configured credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context) error {
	if _, err := c.apiClient.IssueToken(ctx); err != nil {
		return err
	}
	c.logger.Info("Authenticated with Pathao")
	return nil
}

// GetCities returns the delivery cities, cached for 24h.
func (c *Client) GetCities(ctx context.Context) ([]courier.LocationNode, error) {
	key := courier.CacheKey(carrierName, "getCities", nil)
	return courier.GetOrSet(ctx, c.cache, key, courier.TTLCities, func(ctx context.Context) ([]courier.LocationNode, error) {
		cities, err := c.apiClient.GetCities(ctx)
		if err != nil {
			return nil, err
		}
		nodes := make([]courier.LocationNode, len(cities))
		for i, city := range cities {
			nodes[i] = courier.LocationNode{ID: city.CityID, Name: city.CityName}
		}
		return nodes, nil
	})
}

// GetZones returns the zones of a city, cached for 2h. Pathao keys zones
// by city, so the city id is required and checked before any network call.
func (c *Client) GetZones(ctx context.Context, filter courier.LocationFilter) ([]courier.LocationNode, error) {
	if filter.CityID <= 0 {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "city_id is required for zone lookup").
			WithCause(courier.ErrMissingFilter)
	}
	key := courier.CacheKey(carrierName, "getZones", map[string]int{"city_id": filter.CityID})
	return courier.GetOrSet(ctx, c.cache, key, courier.TTLZones, func(ctx context.Context) ([]courier.LocationNode, error) {
		zones, err := c.apiClient.GetZones(ctx, filter.CityID)
		if err != nil {
			return nil, err
		}
		nodes := make([]courier.LocationNode, len(zones))
		for i, zone := range zones {
			nodes[i] = courier.LocationNode{ID: zone.ZoneID, Name: zone.ZoneName, ParentID: filter.CityID}
		}
		return nodes, nil
	})
}

// GetAreas returns the areas of a zone, cached for 2h. The zone id is
// required and checked before any network call.
func (c *Client) GetAreas(ctx context.Context, filter courier.LocationFilter) ([]courier.LocationNode, error) {
	if filter.ZoneID <= 0 {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "zone_id is required for area lookup").
			WithCause(courier.ErrMissingFilter)
	}
	key := courier.CacheKey(carrierName, "getAreas", map[string]int{"zone_id": filter.ZoneID})
	return courier.GetOrSet(ctx, c.cache, key, courier.TTLAreas, func(ctx context.Context) ([]courier.LocationNode, error) {
		areas, err := c.apiClient.GetAreas(ctx, filter.ZoneID)
		if err != nil {
			return nil, err
		}
		nodes := make([]courier.LocationNode, len(areas))
		for i, area := range areas {
			nodes[i] = courier.LocationNode{
				ID:                    area.AreaID,
				Name:                  area.AreaName,
				ParentID:              filter.ZoneID,
				HomeDeliveryAvailable: area.HomeDeliveryAvailable,
				PickupAvailable:       area.PickupAvailable,
			}
		}
		return nodes, nil
	})
}

// CalculateCharge quotes the delivery price, cached for 30min. Pathao
// requires the recipient city and zone; weight is sent in kilograms.
func (c *Client) CalculateCharge(ctx context.Context, pkg *courier.PackageDescriptor) (*courier.PriceQuote, error) {
	if pkg == nil {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "package is required")
	}
	if pkg.RecipientCity <= 0 || pkg.RecipientZone <= 0 {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "recipient_city and recipient_zone are required").
			WithCause(courier.ErrInvalidPackage)
	}
	if pkg.WeightKG <= 0 {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "item_weight must be positive").
			WithCause(courier.ErrInvalidPackage)
	}

	req := &PricePlanRequest{
		StoreID:       firstNonEmpty(pkg.StoreID, c.config.StoreID),
		ItemType:      firstNonEmpty(pkg.ItemType, defaultItemType),
		DeliveryType:  firstNonEmpty(pkg.DeliveryType, defaultDeliveryType),
		ItemWeight:    pkg.WeightKG,
		RecipientCity: pkg.RecipientCity,
		RecipientZone: pkg.RecipientZone,
	}

	key := courier.CacheKey(carrierName, "calculateCharge", req)
	return courier.GetOrSet(ctx, c.cache, key, courier.TTLCharge, func(ctx context.Context) (*courier.PriceQuote, error) {
		plan, err := c.apiClient.GetPricePlan(ctx, req)
		if err != nil {
			return nil, err
		}
		return planToQuote(plan, pkg.CODAmount), nil
	})
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
	if order.RecipientCity <= 0 || order.RecipientZone <= 0 {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "recipient_city and recipient_zone are required").
			WithCause(courier.ErrInvalidPackage)
	}

	quantity := order.ItemQuantity
	if quantity <= 0 {
		quantity = 1
	}

	resp, err := c.apiClient.CreateOrder(ctx, &OrderRequest{
		StoreID:            firstNonEmpty(order.StoreID, c.config.StoreID),
		MerchantOrderID:    order.InvoiceID,
		RecipientName:      order.RecipientName,
		RecipientPhone:     phone,
		RecipientAddress:   order.RecipientAddress,
		RecipientCity:      order.RecipientCity,
		RecipientZone:      order.RecipientZone,
		RecipientArea:      order.RecipientArea,
		DeliveryType:       defaultDeliveryType,
		ItemType:           defaultItemType,
		SpecialInstruction: order.Instructions,
		ItemQuantity:       quantity,
		ItemWeight:         order.WeightKG,
		AmountToCollect:    order.CODAmount,
		ItemDescription:    order.ItemDescription,
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.ClearPattern(ctx, courier.ProviderPattern(carrierName, "trackOrder"))
		c.cache.ClearPattern(ctx, courier.ProviderPattern(carrierName, "getBalance"))
	}

	c.logger.Info("Created Pathao order",
		zap.String("consignment_id", resp.ConsignmentID),
		zap.String("merchant_order_id", resp.MerchantOrderID),
	)
	return &courier.CreateOrderResult{
		TrackingID:    resp.ConsignmentID,
		ConsignmentID: resp.ConsignmentID,
		Status:        resp.OrderStatus,
	}, nil
}

// TrackOrder returns the consignment's tracking snapshot, cached briefly
// (2min) because it changes frequently.
func (c *Client) TrackOrder(ctx context.Context, trackingID string) (*courier.TrackingResult, error) {
	if trackingID == "" {
		return nil, courier.NewError(carrierName, courier.CodeValidation, "tracking id is required")
	}
	key := courier.CacheKey(carrierName, "trackOrder", map[string]string{"tracking_id": trackingID})
	return courier.GetOrSet(ctx, c.cache, key, courier.TTLTracking, func(ctx context.Context) (*courier.TrackingResult, error) {
		info, err := c.apiClient.GetOrderInfo(ctx, trackingID)
		if err != nil {
			return nil, err
		}
		return orderInfoToTracking(trackingID, info), nil
	})
}

// GetBalance returns a zero-value placeholder: Pathao has no merchant
// balance endpoint, and a missing capability is not an error.
func (c *Client) GetBalance(ctx context.Context) (*courier.BalanceInfo, error) {
	return &courier.BalanceInfo{CurrentBalance: 0, Currency: "BDT"}, nil
}

// GetStores returns the merchant's pickup stores, cached for 1h. Failures
// degrade to an empty list so the aggregate store view stays usable.
func (c *Client) GetStores(ctx context.Context) ([]courier.StoreDescriptor, error) {
	key := courier.CacheKey(carrierName, "getStores", nil)
	stores, err := courier.GetOrSet(ctx, c.cache, key, courier.TTLStores, func(ctx context.Context) ([]courier.StoreDescriptor, error) {
		upstream, err := c.apiClient.GetStores(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]courier.StoreDescriptor, len(upstream))
		for i, s := range upstream {
			out[i] = courier.StoreDescriptor{
				ID:      strconv.Itoa(s.StoreID),
				Name:    s.StoreName,
				Address: s.StoreAddress,
				AreaID:  s.AreaID,
			}
		}
		return out, nil
	})
	if err != nil {
		c.logger.Warn("Pathao store lookup failed, returning empty list", zap.Error(err))
		return []courier.StoreDescriptor{}, nil
	}
	return stores, nil
}

// ============================================================================
// Conversion helpers: API models -> courier models
// ============================================================================

// planToQuote derives the uniform quote. The COD fee is the plan's
// percentage applied to the COD amount, or to the delivery charge itself
// when no COD amount is known. A provider-supplied final price wins over
// the derived sum.
func planToQuote(plan *PricePlan, codAmount float64) *courier.PriceQuote {
	delivery := plan.Price
	codBase := codAmount
	if codBase <= 0 {
		codBase = delivery
	}
	cod := round2(codBase * plan.CODPercentage)

	final := plan.FinalPrice
	if final <= 0 {
		final = delivery + cod
	}
	return &courier.PriceQuote{
		DeliveryCharge: delivery,
		CODCharge:      cod,
		FinalPrice:     final,
		Currency:       "BDT",
	}
}

func orderInfoToTracking(trackingID string, info *OrderInfo) *courier.TrackingResult {
	updates := make([]courier.TrackingUpdate, 0, len(info.Events))
	for _, ev := range info.Events {
		ts := time.Time{}
		if ev.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339, ev.CreatedAt); err == nil {
				ts = t
			}
		}
		updates = append(updates, courier.TrackingUpdate{
			Message:   ev.Message,
			Status:    ev.Status,
			Timestamp: ts,
		})
	}

	status := info.OrderStatus
	if status == "" && len(updates) > 0 {
		status = updates[len(updates)-1].Status
	}
	return &courier.TrackingResult{
		TrackingID:  trackingID,
		Status:      status,
		StatusClass: courier.ClassifyStatus(firstNonEmpty(info.OrderStatusSlug, status)),
		Updates:     updates,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ courier.Courier = (*Client)(nil)
