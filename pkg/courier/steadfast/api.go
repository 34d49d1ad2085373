package steadfast

import (
	"context"
	"encoding/json"
)

// APIClient defines the Steadfast merchant API operations.
type APIClient interface {
	// CreateOrder books a consignment.
	CreateOrder(ctx context.Context, req *OrderRequest) (*Consignment, error)

	// GetStatusByTrackingCode returns the current delivery status.
	GetStatusByTrackingCode(ctx context.Context, trackingCode string) (*StatusResponse, error)

	// GetBalance returns the merchant's current balance.
	GetBalance(ctx context.Context) (*BalanceResponse, error)
}

// ============================================================================
// API Request/Response Types (match the Steadfast REST API shapes)
// ============================================================================

// OrderRequest is the create_order body.
type OrderRequest struct {
	Invoice          string  `json:"invoice"`
	RecipientName    string  `json:"recipient_name"`
	RecipientPhone   string  `json:"recipient_phone"`
	RecipientAddress string  `json:"recipient_address"`
	CODAmount        float64 `json:"cod_amount"`
	Note             string  `json:"note,omitempty"`
}

// Consignment is the create_order confirmation payload.
type Consignment struct {
	ConsignmentID json.Number `json:"consignment_id"`
	Invoice       string      `json:"invoice"`
	TrackingCode  string      `json:"tracking_code"`
	Status        string      `json:"status"`
	CreatedAt     string      `json:"created_at,omitempty"`
}

// StatusResponse is the status_by_trackingcode payload. Steadfast returns
// its embedded status field even under HTTP 200, so it is part of the shape.
type StatusResponse struct {
	Status         int    `json:"status"`
	DeliveryStatus string `json:"delivery_status"`
	Message        string `json:"message,omitempty"`
}

// BalanceResponse is the get_balance payload.
type BalanceResponse struct {
	Status         int     `json:"status"`
	CurrentBalance float64 `json:"current_balance"`
	Message        string  `json:"message,omitempty"`
}
