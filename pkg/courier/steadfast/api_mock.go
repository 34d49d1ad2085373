package steadfast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateOrder             func(ctx context.Context, req *OrderRequest) (*Consignment, error)
	OnGetStatusByTrackingCode func(ctx context.Context, trackingCode string) (*StatusResponse, error)
	OnGetBalance              func(ctx context.Context) (*BalanceResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return fmt.Errorf("steadfast mock: simulated API error")
	}
	return nil
}

// CreateOrder returns a mock consignment.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*Consignment, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}
	return &Consignment{
		ConsignmentID: json.Number("1424107"),
		Invoice:       req.Invoice,
		TrackingCode:  "SF" + uuid.New().String()[:8],
		Status:        "in_review",
		CreatedAt:     time.Now().Format(time.RFC3339),
	}, nil
}

// GetStatusByTrackingCode returns a mock delivery status.
func (m *MockAPIClient) GetStatusByTrackingCode(ctx context.Context, trackingCode string) (*StatusResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetStatusByTrackingCode != nil {
		return m.OnGetStatusByTrackingCode(ctx, trackingCode)
	}
	return &StatusResponse{
		Status:         200,
		DeliveryStatus: "in_review",
	}, nil
}

// GetBalance returns a mock balance.
func (m *MockAPIClient) GetBalance(ctx context.Context) (*BalanceResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetBalance != nil {
		return m.OnGetBalance(ctx)
	}
	return &BalanceResponse{
		Status:         200,
		CurrentBalance: 1280.50,
	}, nil
}

// Ensure MockAPIClient implements APIClient.
var _ APIClient = (*MockAPIClient)(nil)
