package pathao

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnIssueToken   func(ctx context.Context) (*TokenResponse, error)
	OnGetCities    func(ctx context.Context) ([]City, error)
	OnGetZones     func(ctx context.Context, cityID int) ([]Zone, error)
	OnGetAreas     func(ctx context.Context, zoneID int) ([]Area, error)
	OnGetPricePlan func(ctx context.Context, req *PricePlanRequest) (*PricePlan, error)
	OnCreateOrder  func(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	OnGetOrderInfo func(ctx context.Context, consignmentID string) (*OrderInfo, error)
	OnGetStores    func(ctx context.Context) ([]Store, error)
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
		return fmt.Errorf("pathao mock: simulated API error")
	}
	return nil
}

// IssueToken returns a mock bearer token.
func (m *MockAPIClient) IssueToken(ctx context.Context) (*TokenResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnIssueToken != nil {
		return m.OnIssueToken(ctx)
	}
	return &TokenResponse{
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		AccessToken: "mock-token-" + uuid.New().String()[:8],
	}, nil
}

// GetCities returns mock cities.
func (m *MockAPIClient) GetCities(ctx context.Context) ([]City, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetCities != nil {
		return m.OnGetCities(ctx)
	}
	return []City{
		{CityID: 1, CityName: "Dhaka"},
		{CityID: 2, CityName: "Chattogram"},
		{CityID: 3, CityName: "Sylhet"},
	}, nil
}

// GetZones returns mock zones for a city.
func (m *MockAPIClient) GetZones(ctx context.Context, cityID int) ([]Zone, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetZones != nil {
		return m.OnGetZones(ctx, cityID)
	}
	return []Zone{
		{ZoneID: 10, ZoneName: "Gulshan"},
		{ZoneID: 11, ZoneName: "Banani"},
	}, nil
}

// GetAreas returns mock areas for a zone.
func (m *MockAPIClient) GetAreas(ctx context.Context, zoneID int) ([]Area, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetAreas != nil {
		return m.OnGetAreas(ctx, zoneID)
	}
	return []Area{
		{AreaID: 100, AreaName: "Gulshan 1", HomeDeliveryAvailable: true, PickupAvailable: true},
		{AreaID: 101, AreaName: "Gulshan 2", HomeDeliveryAvailable: true, PickupAvailable: false},
	}, nil
}

// GetPricePlan returns a mock price plan.
func (m *MockAPIClient) GetPricePlan(ctx context.Context, req *PricePlanRequest) (*PricePlan, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetPricePlan != nil {
		return m.OnGetPricePlan(ctx, req)
	}
	return &PricePlan{
		Price:         80,
		CODEnabled:    1,
		CODPercentage: 0.01,
		FinalPrice:    0,
	}, nil
}

// CreateOrder returns a mock booking confirmation.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}
	return &OrderResponse{
		ConsignmentID:   "DL" + uuid.New().String()[:10],
		MerchantOrderID: req.MerchantOrderID,
		OrderStatus:     "Pending",
		DeliveryFee:     80,
	}, nil
}

// GetOrderInfo returns a mock tracking snapshot.
func (m *MockAPIClient) GetOrderInfo(ctx context.Context, consignmentID string) (*OrderInfo, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetOrderInfo != nil {
		return m.OnGetOrderInfo(ctx, consignmentID)
	}
	return &OrderInfo{
		ConsignmentID:   consignmentID,
		OrderStatus:     "In Transit",
		OrderStatusSlug: "in_transit",
		UpdatedAt:       time.Now().Format(time.RFC3339),
		Events: []OrderEvent{
			{Message: "Pickup requested", Status: "Pending", CreatedAt: time.Now().Add(-2 * time.Hour).Format(time.RFC3339)},
			{Message: "Assigned to rider", Status: "In Transit", CreatedAt: time.Now().Add(-1 * time.Hour).Format(time.RFC3339)},
		},
	}, nil
}

// GetStores returns mock pickup stores.
func (m *MockAPIClient) GetStores(ctx context.Context) ([]Store, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetStores != nil {
		return m.OnGetStores(ctx)
	}
	return []Store{
		{StoreID: 9001, StoreName: "Main Warehouse", StoreAddress: "House 1, Road 1, Gulshan", IsActive: 1, CityID: 1, ZoneID: 10, AreaID: 100},
	}, nil
}

// Ensure MockAPIClient implements APIClient.
var _ APIClient = (*MockAPIClient)(nil)
