package steadfast_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/mock"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/steadfast"
)

func newTestClient(t *testing.T, api *steadfast.MockAPIClient, cache courier.Cache) *steadfast.Client {
	t.Helper()
	cfg := steadfast.Config{
		BaseURL:   "https://portal.packzy.com/api/v1",
		APIKey:    "api-key",
		SecretKey: "secret-key",
	}
	return steadfast.NewWithAPIClient(cfg, api, cache, otelzap.New(zap.NewNop()), nil)
}

func TestName(t *testing.T) {
	client := newTestClient(t, steadfast.NewMockAPIClient(), nil)
	assert.Equal(t, "steadfast", client.Name())
}

func TestAuthenticate(t *testing.T) {
	client := newTestClient(t, steadfast.NewMockAPIClient(), nil)
	assert.NoError(t, client.Authenticate(context.Background()))
}

func TestAuthenticate_MissingKeys(t *testing.T) {
	client := steadfast.NewWithAPIClient(steadfast.Config{APIKey: "api-key"}, steadfast.NewMockAPIClient(), nil, otelzap.New(zap.NewNop()), nil)

	err := client.Authenticate(context.Background())
	var cerr *courier.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, courier.CodeAuthentication, cerr.Code)
	assert.True(t, errors.Is(err, courier.ErrMissingCredentials))
}

func TestLocations_Empty(t *testing.T) {
	client := newTestClient(t, steadfast.NewMockAPIClient(), nil)
	ctx := context.Background()

	cities, err := client.GetCities(ctx)
	require.NoError(t, err)
	assert.Empty(t, cities)

	zones, err := client.GetZones(ctx, courier.LocationFilter{CityID: 1})
	require.NoError(t, err)
	assert.Empty(t, zones)

	areas, err := client.GetAreas(ctx, courier.LocationFilter{ZoneID: 1})
	require.NoError(t, err)
	assert.Empty(t, areas)
}

func TestCalculateCharge_Tariff(t *testing.T) {
	client := newTestClient(t, steadfast.NewMockAPIClient(), nil)
	ctx := context.Background()

	cases := []struct {
		name         string
		pkg          courier.PackageDescriptor
		wantDelivery float64
		wantCOD      float64
	}{
		{"inside dhaka light", courier.PackageDescriptor{RecipientCity: 1, WeightKG: 0.5}, 60, 0},
		{"outside dhaka light", courier.PackageDescriptor{RecipientCity: 2, WeightKG: 0.5}, 120, 0},
		{"heavy surcharge", courier.PackageDescriptor{RecipientCity: 1, WeightKG: 3}, 90, 0},
		{"fractional weight rounds up", courier.PackageDescriptor{RecipientCity: 1, WeightKG: 1.2}, 75, 0},
		{"cod fee", courier.PackageDescriptor{RecipientCity: 1, WeightKG: 0.5, CODAmount: 2500}, 60, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := client.CalculateCharge(ctx, &tc.pkg)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDelivery, quote.DeliveryCharge)
			assert.Equal(t, tc.wantCOD, quote.CODCharge)
			assert.Equal(t, tc.wantDelivery+tc.wantCOD, quote.FinalPrice)
			assert.Equal(t, "BDT", quote.Currency)
		})
	}
}

func TestCalculateCharge_Validation(t *testing.T) {
	client := newTestClient(t, steadfast.NewMockAPIClient(), nil)
	ctx := context.Background()

	_, err := client.CalculateCharge(ctx, nil)
	assert.Error(t, err)

	_, err = client.CalculateCharge(ctx, &courier.PackageDescriptor{RecipientCity: 1})
	assert.True(t, errors.Is(err, courier.ErrInvalidPackage))

	_, err = client.CalculateCharge(ctx, &courier.PackageDescriptor{RecipientCity: 1, WeightKG: 0.5, CODAmount: -1})
	assert.True(t, errors.Is(err, courier.ErrInvalidPackage))
}

func testOrder() *courier.OrderDescriptor {
	return &courier.OrderDescriptor{
		InvoiceID:        "INV-2002",
		RecipientName:    "Karim Ahmed",
		RecipientPhone:   "8801812345678",
		RecipientAddress: "Agrabad, Chattogram",
		CODAmount:        900,
		WeightKG:         1,
	}
}

func TestCreateOrder(t *testing.T) {
	api := steadfast.NewMockAPIClient()
	api.OnCreateOrder = func(ctx context.Context, req *steadfast.OrderRequest) (*steadfast.Consignment, error) {
		assert.Equal(t, "01812345678", req.RecipientPhone, "phone must be normalized")
		assert.Equal(t, "INV-2002", req.Invoice)
		assert.Equal(t, float64(900), req.CODAmount)
		return &steadfast.Consignment{
			ConsignmentID: json.Number("1424107"),
			Invoice:       req.Invoice,
			TrackingCode:  "SF1A2B3C",
			Status:        "in_review",
		}, nil
	}
	client := newTestClient(t, api, nil)

	res, err := client.CreateOrder(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "SF1A2B3C", res.TrackingID)
	assert.Equal(t, "1424107", res.ConsignmentID)
	assert.Equal(t, "in_review", res.Status)
}

func TestCreateOrder_InvalidPhone(t *testing.T) {
	calls := 0
	api := steadfast.NewMockAPIClient()
	api.OnCreateOrder = func(ctx context.Context, req *steadfast.OrderRequest) (*steadfast.Consignment, error) {
		calls++
		return nil, nil
	}
	client := newTestClient(t, api, nil)

	order := testOrder()
	order.RecipientPhone = "555-0100"
	_, err := client.CreateOrder(context.Background(), order)
	var cerr *courier.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, courier.CodeValidation, cerr.Code)
	assert.Equal(t, 0, calls)
}

func TestCreateOrder_InvalidatesCaches(t *testing.T) {
	cache := mock.NewCache()
	balanceCalls := 0
	api := steadfast.NewMockAPIClient()
	api.OnGetBalance = func(ctx context.Context) (*steadfast.BalanceResponse, error) {
		balanceCalls++
		return &steadfast.BalanceResponse{Status: 200, CurrentBalance: 1000}, nil
	}
	client := newTestClient(t, api, cache)
	ctx := context.Background()

	_, err := client.GetBalance(ctx)
	require.NoError(t, err)
	_, err = client.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, balanceCalls)

	_, err = client.CreateOrder(ctx, testOrder())
	require.NoError(t, err)

	// Booking a COD order changes the receivable balance.
	_, err = client.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, balanceCalls)
}

func TestTrackOrder(t *testing.T) {
	api := steadfast.NewMockAPIClient()
	api.OnGetStatusByTrackingCode = func(ctx context.Context, trackingCode string) (*steadfast.StatusResponse, error) {
		return &steadfast.StatusResponse{Status: 200, DeliveryStatus: "delivered"}, nil
	}
	client := newTestClient(t, api, nil)

	res, err := client.TrackOrder(context.Background(), "SF1A2B3C")
	require.NoError(t, err)
	assert.Equal(t, "SF1A2B3C", res.TrackingID)
	assert.Equal(t, "delivered", res.Status)
	assert.Equal(t, courier.StatusDelivered, res.StatusClass)
	require.Len(t, res.Updates, 1)
}

func TestTrackOrder_Cached(t *testing.T) {
	calls := 0
	api := steadfast.NewMockAPIClient()
	api.OnGetStatusByTrackingCode = func(ctx context.Context, trackingCode string) (*steadfast.StatusResponse, error) {
		calls++
		return &steadfast.StatusResponse{Status: 200, DeliveryStatus: "in_review"}, nil
	}
	client := newTestClient(t, api, mock.NewCache())
	ctx := context.Background()

	_, err := client.TrackOrder(ctx, "SF1A2B3C")
	require.NoError(t, err)
	_, err = client.TrackOrder(ctx, "SF1A2B3C")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetBalance(t *testing.T) {
	client := newTestClient(t, steadfast.NewMockAPIClient(), nil)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1280.50, balance.CurrentBalance)
	assert.Equal(t, "BDT", balance.Currency)
}

func TestGetBalance_DegradesToZero(t *testing.T) {
	api := steadfast.NewMockAPIClient()
	api.SimulateErrors = true
	client := newTestClient(t, api, nil)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Zero(t, balance.CurrentBalance)
	assert.Equal(t, "BDT", balance.Currency)
}

func TestGetStores_Empty(t *testing.T) {
	client := newTestClient(t, steadfast.NewMockAPIClient(), nil)

	stores, err := client.GetStores(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stores)
}
