package pathao_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/mock"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/pathao"
)

func newTestClient(t *testing.T, api *pathao.MockAPIClient, cache courier.Cache) *pathao.Client {
	t.Helper()
	cfg := pathao.Config{
		BaseURL:      "https://api-hermes.pathao.com",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "merchant@example.com",
		Password:     "secret",
		StoreID:      "9001",
	}
	return pathao.NewWithAPIClient(cfg, api, cache, otelzap.New(zap.NewNop()), nil)
}

func TestName(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)
	assert.Equal(t, "pathao", client.Name())
}

func TestAuthenticate(t *testing.T) {
	api := pathao.NewMockAPIClient()
	client := newTestClient(t, api, nil)
	assert.NoError(t, client.Authenticate(context.Background()))
}

func TestAuthenticate_Failure(t *testing.T) {
	api := pathao.NewMockAPIClient()
	api.SimulateErrors = true
	client := newTestClient(t, api, nil)
	assert.Error(t, client.Authenticate(context.Background()))
}

func TestGetCities(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)

	cities, err := client.GetCities(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 3)
	assert.Equal(t, 1, cities[0].ID)
	assert.Equal(t, "Dhaka", cities[0].Name)
}

func TestGetCities_Cached(t *testing.T) {
	calls := 0
	api := pathao.NewMockAPIClient()
	api.OnGetCities = func(ctx context.Context) ([]pathao.City, error) {
		calls++
		return []pathao.City{{CityID: 1, CityName: "Dhaka"}}, nil
	}
	client := newTestClient(t, api, mock.NewCache())

	ctx := context.Background()
	_, err := client.GetCities(ctx)
	require.NoError(t, err)
	_, err = client.GetCities(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestGetZones(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)

	zones, err := client.GetZones(context.Background(), courier.LocationFilter{CityID: 1})
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, 10, zones[0].ID)
	assert.Equal(t, 1, zones[0].ParentID)
}

func TestGetZones_MissingCity(t *testing.T) {
	calls := 0
	api := pathao.NewMockAPIClient()
	api.OnGetZones = func(ctx context.Context, cityID int) ([]pathao.Zone, error) {
		calls++
		return nil, nil
	}
	client := newTestClient(t, api, nil)

	_, err := client.GetZones(context.Background(), courier.LocationFilter{})
	var cerr *courier.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, courier.CodeValidation, cerr.Code)
	assert.True(t, errors.Is(err, courier.ErrMissingFilter))
	assert.Equal(t, 0, calls, "no upstream call on invalid input")
}

func TestGetAreas(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)

	areas, err := client.GetAreas(context.Background(), courier.LocationFilter{ZoneID: 10})
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.True(t, areas[0].HomeDeliveryAvailable)
	assert.Equal(t, 10, areas[0].ParentID)
}

func TestGetAreas_MissingZone(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)

	_, err := client.GetAreas(context.Background(), courier.LocationFilter{CityID: 1})
	assert.True(t, errors.Is(err, courier.ErrMissingFilter))
}

func TestCalculateCharge(t *testing.T) {
	api := pathao.NewMockAPIClient()
	api.OnGetPricePlan = func(ctx context.Context, req *pathao.PricePlanRequest) (*pathao.PricePlan, error) {
		assert.Equal(t, "9001", req.StoreID)
		assert.Equal(t, "parcel", req.ItemType)
		assert.Equal(t, "48", req.DeliveryType)
		return &pathao.PricePlan{Price: 100, CODPercentage: 0.01}, nil
	}
	client := newTestClient(t, api, nil)

	quote, err := client.CalculateCharge(context.Background(), &courier.PackageDescriptor{
		RecipientCity: 1,
		RecipientZone: 10,
		WeightKG:      1.2,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), quote.DeliveryCharge)
	assert.Equal(t, float64(1), quote.CODCharge)
	assert.Equal(t, float64(101), quote.FinalPrice)
	assert.Equal(t, "BDT", quote.Currency)
}

func TestCalculateCharge_CODAmount(t *testing.T) {
	api := pathao.NewMockAPIClient()
	api.OnGetPricePlan = func(ctx context.Context, req *pathao.PricePlanRequest) (*pathao.PricePlan, error) {
		return &pathao.PricePlan{Price: 100, CODPercentage: 0.01}, nil
	}
	client := newTestClient(t, api, nil)

	// The COD fee applies to the collectible amount when one is known.
	quote, err := client.CalculateCharge(context.Background(), &courier.PackageDescriptor{
		RecipientCity: 1,
		RecipientZone: 10,
		WeightKG:      0.5,
		CODAmount:     2500,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(25), quote.CODCharge)
	assert.Equal(t, float64(125), quote.FinalPrice)
}

func TestCalculateCharge_ProviderFinalPriceWins(t *testing.T) {
	api := pathao.NewMockAPIClient()
	api.OnGetPricePlan = func(ctx context.Context, req *pathao.PricePlanRequest) (*pathao.PricePlan, error) {
		return &pathao.PricePlan{Price: 100, CODPercentage: 0.01, FinalPrice: 110}, nil
	}
	client := newTestClient(t, api, nil)

	quote, err := client.CalculateCharge(context.Background(), &courier.PackageDescriptor{
		RecipientCity: 1,
		RecipientZone: 10,
		WeightKG:      0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(110), quote.FinalPrice)
}

func TestCalculateCharge_Validation(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)
	ctx := context.Background()

	_, err := client.CalculateCharge(ctx, nil)
	assert.Error(t, err)

	_, err = client.CalculateCharge(ctx, &courier.PackageDescriptor{WeightKG: 0.5})
	assert.True(t, errors.Is(err, courier.ErrInvalidPackage))

	_, err = client.CalculateCharge(ctx, &courier.PackageDescriptor{RecipientCity: 1, RecipientZone: 10})
	assert.True(t, errors.Is(err, courier.ErrInvalidPackage))
}

func TestCalculateCharge_Cached(t *testing.T) {
	calls := 0
	api := pathao.NewMockAPIClient()
	api.OnGetPricePlan = func(ctx context.Context, req *pathao.PricePlanRequest) (*pathao.PricePlan, error) {
		calls++
		return &pathao.PricePlan{Price: 80, CODPercentage: 0.01}, nil
	}
	client := newTestClient(t, api, mock.NewCache())

	ctx := context.Background()
	pkg := &courier.PackageDescriptor{RecipientCity: 1, RecipientZone: 10, WeightKG: 0.5}
	_, err := client.CalculateCharge(ctx, pkg)
	require.NoError(t, err)
	_, err = client.CalculateCharge(ctx, pkg)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// A different destination is a different cache entry.
	_, err = client.CalculateCharge(ctx, &courier.PackageDescriptor{RecipientCity: 2, RecipientZone: 20, WeightKG: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func testOrder() *courier.OrderDescriptor {
	return &courier.OrderDescriptor{
		InvoiceID:        "INV-1001",
		RecipientName:    "Rahim Uddin",
		RecipientPhone:   "+880 1712-345678",
		RecipientAddress: "House 12, Road 5, Dhanmondi, Dhaka",
		RecipientCity:    1,
		RecipientZone:    10,
		RecipientArea:    100,
		CODAmount:        1500,
		WeightKG:         0.5,
	}
}

func TestCreateOrder(t *testing.T) {
	api := pathao.NewMockAPIClient()
	api.OnCreateOrder = func(ctx context.Context, req *pathao.OrderRequest) (*pathao.OrderResponse, error) {
		assert.Equal(t, "01712345678", req.RecipientPhone, "phone must be normalized")
		assert.Equal(t, "INV-1001", req.MerchantOrderID)
		assert.Equal(t, 1, req.ItemQuantity)
		return &pathao.OrderResponse{ConsignmentID: "DL123456", MerchantOrderID: req.MerchantOrderID, OrderStatus: "Pending"}, nil
	}
	client := newTestClient(t, api, nil)

	res, err := client.CreateOrder(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "DL123456", res.TrackingID)
	assert.Equal(t, "Pending", res.Status)
}

func TestCreateOrder_InvalidatesTrackingCache(t *testing.T) {
	cache := mock.NewCache()
	trackCalls := 0
	api := pathao.NewMockAPIClient()
	api.OnGetOrderInfo = func(ctx context.Context, consignmentID string) (*pathao.OrderInfo, error) {
		trackCalls++
		return &pathao.OrderInfo{ConsignmentID: consignmentID, OrderStatus: "Pending", OrderStatusSlug: "pending"}, nil
	}
	client := newTestClient(t, api, cache)
	ctx := context.Background()

	_, err := client.TrackOrder(ctx, "DL123456")
	require.NoError(t, err)
	_, err = client.TrackOrder(ctx, "DL123456")
	require.NoError(t, err)
	assert.Equal(t, 1, trackCalls)

	_, err = client.CreateOrder(ctx, testOrder())
	require.NoError(t, err)

	// Booking dropped the cached snapshot; the next lookup goes upstream.
	_, err = client.TrackOrder(ctx, "DL123456")
	require.NoError(t, err)
	assert.Equal(t, 2, trackCalls)
}

func TestCreateOrder_InvalidPhone(t *testing.T) {
	calls := 0
	api := pathao.NewMockAPIClient()
	api.OnCreateOrder = func(ctx context.Context, req *pathao.OrderRequest) (*pathao.OrderResponse, error) {
		calls++
		return nil, nil
	}
	client := newTestClient(t, api, nil)

	order := testOrder()
	order.RecipientPhone = "12345"
	_, err := client.CreateOrder(context.Background(), order)
	var cerr *courier.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, courier.CodeValidation, cerr.Code)
	assert.Equal(t, 0, calls)
}

func TestCreateOrder_MissingZone(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)

	order := testOrder()
	order.RecipientZone = 0
	_, err := client.CreateOrder(context.Background(), order)
	assert.True(t, errors.Is(err, courier.ErrInvalidPackage))
}

func TestTrackOrder(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)

	res, err := client.TrackOrder(context.Background(), "DL123456")
	require.NoError(t, err)
	assert.Equal(t, "DL123456", res.TrackingID)
	assert.Equal(t, "In Transit", res.Status)
	assert.Equal(t, courier.StatusInTransit, res.StatusClass)
	require.Len(t, res.Updates, 2)
	assert.Equal(t, "Pickup requested", res.Updates[0].Message)
}

func TestTrackOrder_EmptyID(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)
	_, err := client.TrackOrder(context.Background(), "")
	assert.Error(t, err)
}

func TestGetBalance_NoEndpoint(t *testing.T) {
	api := pathao.NewMockAPIClient()
	api.SimulateErrors = true // must not matter, no call is made
	client := newTestClient(t, api, nil)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Zero(t, balance.CurrentBalance)
	assert.Equal(t, "BDT", balance.Currency)
}

func TestGetStores(t *testing.T) {
	client := newTestClient(t, pathao.NewMockAPIClient(), nil)

	stores, err := client.GetStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "9001", stores[0].ID)
	assert.Equal(t, "Main Warehouse", stores[0].Name)
}

func TestGetStores_DegradesToEmpty(t *testing.T) {
	api := pathao.NewMockAPIClient()
	api.SimulateErrors = true
	client := newTestClient(t, api, nil)

	stores, err := client.GetStores(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stores)
}
