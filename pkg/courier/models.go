package courier

import (
	"time"
)

// StatusClass is the normalized classification of a provider-native
// tracking status string. Providers use inconsistent vocabularies, so the
// raw string is always preserved alongside the class.
type StatusClass string

const (
	StatusPending   StatusClass = "pending"
	StatusInTransit StatusClass = "in_transit"
	StatusDelivered StatusClass = "delivered"
	StatusCancelled StatusClass = "cancelled"
	StatusReturned  StatusClass = "returned"
	StatusUnknown   StatusClass = "unknown"
)

// ProviderConfig is the provider registry record for one carrier.
type ProviderConfig struct {
	Name     string
	BaseURL  string
	AuthType string
	// Credentials is an opaque per-carrier blob; each adapter reads only
	// the keys it needs.
	Credentials map[string]string
	IsActive    bool
}

// PackageDescriptor describes a package for cost calculation. Fields are a
// superset across providers; each adapter validates the subset it requires
// before calling upstream.
type PackageDescriptor struct {
	RecipientCity int     `json:"recipient_city,omitempty"`
	RecipientZone int     `json:"recipient_zone,omitempty"`
	RecipientArea int     `json:"recipient_area,omitempty"`
	// WeightKG is the parcel weight in kilograms. Adapters convert to the
	// unit their upstream expects.
	WeightKG     float64 `json:"item_weight"`
	CODAmount    float64 `json:"cod_amount,omitempty"`
	ItemType     string  `json:"item_type,omitempty"`
	DeliveryType string  `json:"delivery_type,omitempty"`
	StoreID      string  `json:"store_id,omitempty"`
}

// OrderDescriptor describes a shipment to be booked.
type OrderDescriptor struct {
	InvoiceID        string  `json:"invoice_id" validate:"required"`
	RecipientName    string  `json:"recipient_name" validate:"required"`
	RecipientPhone   string  `json:"recipient_phone" validate:"required,bd_phone"`
	RecipientAddress string  `json:"recipient_address" validate:"required"`
	RecipientCity    int     `json:"recipient_city,omitempty"`
	RecipientZone    int     `json:"recipient_zone,omitempty"`
	RecipientArea    int     `json:"recipient_area,omitempty"`
	CODAmount        float64 `json:"cod_amount" validate:"gte=0"`
	WeightKG         float64 `json:"item_weight" validate:"gt=0"`
	ItemQuantity     int     `json:"item_quantity,omitempty"`
	ItemDescription  string  `json:"item_description,omitempty"`
	Instructions     string  `json:"instructions,omitempty"`
	StoreID          string  `json:"store_id,omitempty"`
}

// CreateOrderResult is the booking confirmation from a carrier.
type CreateOrderResult struct {
	TrackingID    string `json:"tracking_id"`
	ConsignmentID string `json:"consignment_id,omitempty"`
	Status        string `json:"status,omitempty"`
}

// TrackingUpdate is one timestamped status message in a tracking history.
type TrackingUpdate struct {
	Message   string    `json:"message"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingResult is an immutable tracking snapshot. Updates are ordered
// oldest first; Status reflects the most recent update.
type TrackingResult struct {
	TrackingID string           `json:"tracking_id"`
	// Status is the provider-native status string, not an enum.
	Status      string           `json:"status"`
	StatusClass StatusClass      `json:"status_class"`
	Updates     []TrackingUpdate `json:"updates"`
}

// PriceQuote is a delivery cost quote.
type PriceQuote struct {
	DeliveryCharge float64 `json:"delivery_charge"`
	CODCharge      float64 `json:"cod_charge"`
	// FinalPrice is the provider-supplied total when available, otherwise
	// DeliveryCharge + CODCharge.
	FinalPrice float64 `json:"final_price"`
	Currency   string  `json:"currency,omitempty"`
}

// LocationNode is one node in a carrier's city/zone/area hierarchy.
// Provider-native identifiers are preserved so subsequent calls can use them.
type LocationNode struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID int    `json:"parent_id,omitempty"`
	// Set on area nodes only.
	HomeDeliveryAvailable bool `json:"home_delivery_available,omitempty"`
	PickupAvailable       bool `json:"pickup_available,omitempty"`
}

// LocationFilter narrows zone/area lookups.
type LocationFilter struct {
	CityID int `json:"city_id,omitempty"`
	ZoneID int `json:"zone_id,omitempty"`
}

// BalanceInfo is a merchant account balance. Zero-valued when the carrier
// has no balance endpoint.
type BalanceInfo struct {
	CurrentBalance float64 `json:"current_balance"`
	Currency       string  `json:"currency,omitempty"`
}

// StoreDescriptor is a merchant pickup store registered with a carrier.
type StoreDescriptor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	AreaID  int    `json:"area_id,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// BatchTrackResult is one per-id record from a batch tracking call.
type BatchTrackResult struct {
	TrackingID string          `json:"tracking_id"`
	Status     string          `json:"status"` // "success" or "error"
	Data       *TrackingResult `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// PriceComparison is one provider's entry in a cross-provider comparison.
// Failed providers carry a zero quote and a non-empty Error.
type PriceComparison struct {
	Provider string     `json:"provider"`
	Price    PriceQuote `json:"price"`
	Error    string     `json:"error,omitempty"`
}
