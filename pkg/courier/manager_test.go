package courier_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/mock"
)

// stubRegistry is a fixed in-memory provider registry.
type stubRegistry struct {
	providers map[string]*courier.ProviderConfig
}

func (r *stubRegistry) FindActiveProvider(ctx context.Context, name string) (*courier.ProviderConfig, error) {
	cfg, ok := r.providers[strings.ToLower(name)]
	if !ok || !cfg.IsActive {
		return nil, courier.ErrProviderNotFound
	}
	return cfg, nil
}

func (r *stubRegistry) ActiveProviderNames(ctx context.Context) ([]string, error) {
	var names []string
	for name, cfg := range r.providers {
		if cfg.IsActive {
			names = append(names, name)
		}
	}
	return names, nil
}

type managerFixture struct {
	manager  *courier.Manager
	cache    *mock.Cache
	adapters map[string]*mock.Client
	sleeps   []time.Duration
}

func newManagerFixture(t *testing.T, names ...string) *managerFixture {
	t.Helper()
	if len(names) == 0 {
		names = []string{"pathao", "steadfast"}
	}

	fx := &managerFixture{
		cache:    mock.NewCache(),
		adapters: make(map[string]*mock.Client),
	}
	reg := &stubRegistry{providers: make(map[string]*courier.ProviderConfig)}
	factories := make(map[string]courier.AdapterFactory)
	for _, name := range names {
		name := name
		reg.providers[name] = &courier.ProviderConfig{Name: name, IsActive: true}
		fx.adapters[name] = mock.New(name)
		factories[name] = func(cfg *courier.ProviderConfig) (courier.Courier, error) {
			return fx.adapters[name], nil
		}
	}

	fx.manager = courier.NewManager(courier.ManagerConfig{
		Registry:  reg,
		Cache:     fx.cache,
		Logger:    otelzap.New(zap.NewNop()),
		Factories: factories,
		SleepFunc: func(ctx context.Context, d time.Duration) error {
			fx.sleeps = append(fx.sleeps, d)
			return nil
		},
	})
	return fx
}

func TestGetService_MemoizedAndAuthenticatedOnce(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	first, err := fx.manager.GetService(ctx, "pathao")
	require.NoError(t, err)
	second, err := fx.manager.GetService(ctx, "pathao")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fx.adapters["pathao"].AuthenticateCalls)
}

func TestGetService_CaseInsensitive(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	first, err := fx.manager.GetService(ctx, "Pathao")
	require.NoError(t, err)
	second, err := fx.manager.GetService(ctx, " PATHAO ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fx.adapters["pathao"].AuthenticateCalls)
}

func TestGetService_SlowProviderDoesNotBlockOthers(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	_, err := fx.manager.GetService(ctx, "steadfast")
	require.NoError(t, err)

	authStarted := make(chan struct{})
	release := make(chan struct{})
	fx.adapters["pathao"].OnAuthenticate = func(ctx context.Context) error {
		close(authStarted)
		<-release
		return nil
	}

	pathaoDone := make(chan error, 1)
	go func() {
		_, err := fx.manager.GetService(ctx, "pathao")
		pathaoDone <- err
	}()
	<-authStarted

	// The memoized steadfast adapter must stay reachable while pathao's
	// authentication is still in flight.
	steadfastDone := make(chan struct{})
	go func() {
		defer close(steadfastDone)
		adapter, err := fx.manager.GetService(ctx, "steadfast")
		assert.NoError(t, err)
		assert.NotNil(t, adapter)
	}()
	select {
	case <-steadfastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("steadfast lookup blocked behind pathao authentication")
	}

	close(release)
	require.NoError(t, <-pathaoDone)
}

func TestGetService_ConcurrentResolutionAuthenticatesOnce(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	inAuth := make(chan struct{})
	release := make(chan struct{})
	fx.adapters["pathao"].OnAuthenticate = func(ctx context.Context) error {
		close(inAuth)
		<-release
		return nil
	}

	const callers = 8
	results := make(chan courier.Courier, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adapter, err := fx.manager.GetService(ctx, "pathao")
			assert.NoError(t, err)
			results <- adapter
		}()
	}
	<-inAuth
	close(release)
	wg.Wait()
	close(results)

	first := <-results
	for adapter := range results {
		assert.Same(t, first, adapter)
	}
	assert.Equal(t, 1, fx.adapters["pathao"].AuthenticateCalls)
}

func TestGetService_UnknownProvider(t *testing.T) {
	fx := newManagerFixture(t)

	_, err := fx.manager.GetService(context.Background(), "redx")
	var cerr *courier.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, courier.CodeConfiguration, cerr.Code)
	assert.True(t, errors.Is(err, courier.ErrProviderNotFound))
}

func TestGetService_EmptyName(t *testing.T) {
	fx := newManagerFixture(t)

	_, err := fx.manager.GetService(context.Background(), "  ")
	var cerr *courier.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, courier.CodeConfiguration, cerr.Code)
}

func TestGetService_AuthFailureNotMemoized(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	fail := true
	fx.adapters["pathao"].OnAuthenticate = func(ctx context.Context) error {
		if fail {
			return courier.ErrAuthenticationFailed
		}
		return nil
	}

	_, err := fx.manager.GetService(ctx, "pathao")
	require.ErrorIs(t, err, courier.ErrAuthenticationFailed)

	// Once credentials work the adapter resolves normally.
	fail = false
	adapter, err := fx.manager.GetService(ctx, "pathao")
	require.NoError(t, err)
	assert.Same(t, fx.adapters["pathao"], adapter.(*mock.Client))
}

func TestBatchTrackOrders(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	fx.adapters["pathao"].OnTrackOrder = func(ctx context.Context, trackingID string) (*courier.TrackingResult, error) {
		if trackingID == "DL-3" || trackingID == "DL-5" {
			return nil, courier.NewError("pathao", courier.CodeUpstreamTransient, "lookup failed")
		}
		return &courier.TrackingResult{TrackingID: trackingID, Status: "Delivered", StatusClass: courier.StatusDelivered}, nil
	}

	ids := []string{"DL-1", "DL-2", "DL-3", "DL-4", "DL-5", "DL-6", "DL-7"}
	results, err := fx.manager.BatchTrackOrders(ctx, "pathao", ids)
	require.NoError(t, err)
	require.Len(t, results, 7)

	for i, res := range results {
		assert.Equal(t, ids[i], res.TrackingID, "results keep input order")
		if res.TrackingID == "DL-3" || res.TrackingID == "DL-5" {
			assert.Equal(t, "error", res.Status)
			assert.Contains(t, res.Error, "lookup failed")
			assert.Nil(t, res.Data)
		} else {
			assert.Equal(t, "success", res.Status)
			require.NotNil(t, res.Data)
			assert.Equal(t, res.TrackingID, res.Data.TrackingID)
		}
	}

	// Seven ids make two chunks of five, spaced by one delay.
	require.Len(t, fx.sleeps, 1)
	assert.Equal(t, time.Second, fx.sleeps[0])
}

func TestBatchTrackOrders_SingleChunkNoDelay(t *testing.T) {
	fx := newManagerFixture(t)

	results, err := fx.manager.BatchTrackOrders(context.Background(), "pathao", []string{"DL-1", "DL-2"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Empty(t, fx.sleeps)
}

func TestComparePrices(t *testing.T) {
	fx := newManagerFixture(t, "alpha", "bravo", "charlie")
	ctx := context.Background()

	fx.adapters["alpha"].OnCalculateCharge = func(ctx context.Context, pkg *courier.PackageDescriptor) (*courier.PriceQuote, error) {
		return &courier.PriceQuote{DeliveryCharge: 150, FinalPrice: 150}, nil
	}
	fx.adapters["bravo"].OnCalculateCharge = func(ctx context.Context, pkg *courier.PackageDescriptor) (*courier.PriceQuote, error) {
		return &courier.PriceQuote{DeliveryCharge: 90, FinalPrice: 90}, nil
	}
	fx.adapters["charlie"].OnCalculateCharge = func(ctx context.Context, pkg *courier.PackageDescriptor) (*courier.PriceQuote, error) {
		return nil, courier.NewError("charlie", courier.CodeUpstreamTransient, "quote failed")
	}

	comparisons, err := fx.manager.ComparePrices(ctx, &courier.PackageDescriptor{RecipientCity: 1, WeightKG: 0.5})
	require.NoError(t, err)
	require.Len(t, comparisons, 3)

	assert.Equal(t, "bravo", comparisons[0].Provider)
	assert.Equal(t, float64(90), comparisons[0].Price.DeliveryCharge)
	assert.Equal(t, "alpha", comparisons[1].Provider)
	assert.Equal(t, "charlie", comparisons[2].Provider)
	assert.Contains(t, comparisons[2].Error, "quote failed")
	assert.Zero(t, comparisons[2].Price.DeliveryCharge)
}

func TestActiveProviders_CachedAndSorted(t *testing.T) {
	fx := newManagerFixture(t, "steadfast", "pathao")
	ctx := context.Background()

	names, err := fx.manager.ActiveProviders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pathao", "steadfast"}, names)

	_, ok := fx.cache.Get(ctx, "courier:providers:active")
	assert.True(t, ok)
}

func TestClearCache(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	fx.cache.Set(ctx, "courier:pathao:trackOrder:a", []byte(`1`), time.Minute)
	fx.cache.Set(ctx, "courier:pathao:getCities", []byte(`2`), time.Minute)
	fx.cache.Set(ctx, "courier:steadfast:trackOrder:b", []byte(`3`), time.Minute)

	fx.manager.ClearCache(ctx, "pathao", "trackOrder")
	_, ok := fx.cache.Get(ctx, "courier:pathao:trackOrder:a")
	assert.False(t, ok)
	_, ok = fx.cache.Get(ctx, "courier:pathao:getCities")
	assert.True(t, ok)

	fx.manager.ClearCache(ctx, "", "")
	assert.Equal(t, 0, fx.cache.Len())
}
