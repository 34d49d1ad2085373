package pathao

import (
	"context"
)

// APIClient defines the Pathao merchant API operations. The abstraction
// allows mock implementations in tests and the resilient HTTP
// implementation in production.
type APIClient interface {
	// IssueToken exchanges client credentials for a bearer token.
	IssueToken(ctx context.Context) (*TokenResponse, error)

	// GetCities lists the delivery cities.
	GetCities(ctx context.Context) ([]City, error)

	// GetZones lists the zones of a city.
	GetZones(ctx context.Context, cityID int) ([]Zone, error)

	// GetAreas lists the areas of a zone.
	GetAreas(ctx context.Context, zoneID int) ([]Area, error)

	// GetPricePlan returns the delivery price for a parcel.
	GetPricePlan(ctx context.Context, req *PricePlanRequest) (*PricePlan, error)

	// CreateOrder books a consignment.
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)

	// GetOrderInfo returns the current state of a consignment.
	GetOrderInfo(ctx context.Context, consignmentID string) (*OrderInfo, error)

	// GetStores lists the merchant's pickup stores.
	GetStores(ctx context.Context) ([]Store, error)
}

// ============================================================================
// API Request/Response Types (match the Pathao merchant API shapes)
// ============================================================================

// envelope is the wrapper Pathao puts around every payload. Type carries
// "success" or "error" even when the HTTP status is 200, so it must be
// checked on every response.
type envelope struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// TokenResponse is the issue-token response.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// City is one entry of the city-list payload.
type City struct {
	CityID   int    `json:"city_id"`
	CityName string `json:"city_name"`
}

// Zone is one entry of a city's zone-list payload.
type Zone struct {
	ZoneID   int    `json:"zone_id"`
	ZoneName string `json:"zone_name"`
}

// Area is one entry of a zone's area-list payload.
type Area struct {
	AreaID                int    `json:"area_id"`
	AreaName              string `json:"area_name"`
	HomeDeliveryAvailable bool   `json:"home_delivery_available"`
	PickupAvailable       bool   `json:"pickup_available"`
}

// PricePlanRequest is the merchant/price-plan request body.
type PricePlanRequest struct {
	StoreID       string  `json:"store_id,omitempty"`
	ItemType      string  `json:"item_type"`
	DeliveryType  string  `json:"delivery_type"`
	ItemWeight    float64 `json:"item_weight"`
	RecipientCity int     `json:"recipient_city"`
	RecipientZone int     `json:"recipient_zone"`
}

// PricePlan is the merchant/price-plan response payload.
type PricePlan struct {
	Price            float64 `json:"price"`
	Discount         float64 `json:"discount"`
	PromoDiscount    float64 `json:"promo_discount"`
	PlanID           int     `json:"plan_id"`
	CODEnabled       int     `json:"cod_enabled"`
	CODPercentage    float64 `json:"cod_percentage"`
	AdditionalCharge float64 `json:"additional_charge"`
	FinalPrice       float64 `json:"final_price"`
}

// OrderRequest is the order creation body.
type OrderRequest struct {
	StoreID            string  `json:"store_id,omitempty"`
	MerchantOrderID    string  `json:"merchant_order_id"`
	RecipientName      string  `json:"recipient_name"`
	RecipientPhone     string  `json:"recipient_phone"`
	RecipientAddress   string  `json:"recipient_address"`
	RecipientCity      int     `json:"recipient_city"`
	RecipientZone      int     `json:"recipient_zone"`
	RecipientArea      int     `json:"recipient_area,omitempty"`
	DeliveryType       string  `json:"delivery_type"`
	ItemType           string  `json:"item_type"`
	SpecialInstruction string  `json:"special_instruction,omitempty"`
	ItemQuantity       int     `json:"item_quantity"`
	ItemWeight         float64 `json:"item_weight"`
	AmountToCollect    float64 `json:"amount_to_collect"`
	ItemDescription    string  `json:"item_description,omitempty"`
}

// OrderResponse is the order creation payload.
type OrderResponse struct {
	ConsignmentID   string  `json:"consignment_id"`
	MerchantOrderID string  `json:"merchant_order_id"`
	OrderStatus     string  `json:"order_status"`
	DeliveryFee     float64 `json:"delivery_fee"`
}

// OrderEvent is one status update in an order's history.
type OrderEvent struct {
	Message   string `json:"message"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at"`
}

// OrderInfo is the order info payload.
type OrderInfo struct {
	ConsignmentID   string       `json:"consignment_id"`
	OrderStatus     string       `json:"order_status"`
	OrderStatusSlug string       `json:"order_status_slug,omitempty"`
	UpdatedAt       string       `json:"updated_at,omitempty"`
	Events          []OrderEvent `json:"events,omitempty"`
}

// Store is one entry of the stores payload.
type Store struct {
	StoreID      int    `json:"store_id"`
	StoreName    string `json:"store_name"`
	StoreAddress string `json:"store_address"`
	IsActive     int    `json:"is_active"`
	CityID       int    `json:"city_id"`
	ZoneID       int    `json:"zone_id"`
	AreaID       int    `json:"area_id"`
	HubID        int    `json:"hub_id"`
}
