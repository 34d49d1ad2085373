package courier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// AdapterFactory constructs an adapter from its registry configuration.
// Factories are keyed by lowercase provider name; adding a carrier means
// adding one adapter package and one factory entry.
type AdapterFactory func(cfg *ProviderConfig) (Courier, error)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Registry  ProviderRegistry
	Cache     Cache
	Logger    *otelzap.Logger
	Factories map[string]AdapterFactory

	// BatchChunkSize bounds concurrent lookups per batch chunk. Default 5.
	BatchChunkSize int
	// BatchChunkDelay spaces consecutive chunks so batches do not burst
	// the per-adapter rate limiter. Default 1s.
	BatchChunkDelay time.Duration

	// SleepFunc overrides inter-chunk sleeps. Test hook.
	SleepFunc func(ctx context.Context, d time.Duration) error
}

// Manager is the aggregation layer's entry point: it resolves provider
// names to memoized adapter instances and exposes the uniform high-level
// operations plus the cross-provider utilities.
//
// A Manager owns all mutable per-provider state (adapter map, and through
// the adapters their rate-limit counters); construct one explicitly and
// inject it rather than sharing a package-level instance, so tests get
// isolated state.
type Manager struct {
	registry  ProviderRegistry
	cache     Cache
	logger    *otelzap.Logger
	factories map[string]AdapterFactory

	chunkSize  int
	chunkDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	adapters  map[string]Courier
	resolving singleflight.Group
}

// NewManager creates a Manager. Factories with mixed-case keys are
// normalized to lowercase.
func NewManager(cfg ManagerConfig) *Manager {
	factories := make(map[string]AdapterFactory, len(cfg.Factories))
	for name, f := range cfg.Factories {
		factories[strings.ToLower(name)] = f
	}

	chunkSize := cfg.BatchChunkSize
	if chunkSize <= 0 {
		chunkSize = 5
	}
	chunkDelay := cfg.BatchChunkDelay
	if chunkDelay <= 0 {
		chunkDelay = 1 * time.Second
	}
	sleep := cfg.SleepFunc
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return &Manager{
		registry:   cfg.Registry,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		factories:  factories,
		chunkSize:  chunkSize,
		chunkDelay: chunkDelay,
		sleep:      sleep,
		adapters:   make(map[string]Courier),
	}
}

// GetService resolves a provider name (case-insensitively) to its adapter.
// The first resolution reads the registry, constructs the adapter, and
// authenticates it once; the instance is then retained for the process
// lifetime. Token expiry is handled inside the adapter, never by
// recreating it here.
func (m *Manager) GetService(ctx context.Context, name string) (Courier, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, NewError(name, CodeConfiguration, "provider name is required")
	}

	if adapter, ok := m.lookup(key); ok {
		return adapter, nil
	}

	// Construction and the initial authentication run outside m.mu so a
	// slow token exchange for one carrier never blocks lookups for the
	// others. Concurrent first resolutions of the same provider are
	// coalesced per key, keeping Authenticate to a single call.
	v, err, _ := m.resolving.Do(key, func() (interface{}, error) {
		if adapter, ok := m.lookup(key); ok {
			return adapter, nil
		}
		adapter, err := m.resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.adapters[key] = adapter
		m.mu.Unlock()
		return adapter, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Courier), nil
}

func (m *Manager) lookup(key string) (Courier, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	adapter, ok := m.adapters[key]
	return adapter, ok
}

func (m *Manager) resolve(ctx context.Context, key string) (Courier, error) {
	cfg, err := m.registry.FindActiveProvider(ctx, key)
	if err != nil {
		return nil, NewError(key, CodeConfiguration, "provider not found or inactive").
			WithCause(err)
	}

	factory, ok := m.factories[key]
	if !ok {
		return nil, NewError(key, CodeConfiguration, "no adapter mapped for provider").
			WithCause(ErrProviderUnsupported)
	}

	adapter, err := factory(cfg)
	if err != nil {
		return nil, NewError(key, CodeConfiguration, "adapter construction failed").
			WithCause(err)
	}
	if err := adapter.Authenticate(ctx); err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("Resolved courier adapter", zap.String("provider", key))
	}
	return adapter, nil
}

// CalculateDeliveryCost quotes a package with one provider.
func (m *Manager) CalculateDeliveryCost(ctx context.Context, provider string, pkg *PackageDescriptor) (*PriceQuote, error) {
	adapter, err := m.GetService(ctx, provider)
	if err != nil {
		return nil, err
	}
	return adapter.CalculateCharge(ctx, pkg)
}

// CreateShippingOrder books an order with one provider.
func (m *Manager) CreateShippingOrder(ctx context.Context, provider string, order *OrderDescriptor) (*CreateOrderResult, error) {
	adapter, err := m.GetService(ctx, provider)
	if err != nil {
		return nil, err
	}
	return adapter.CreateOrder(ctx, order)
}

// TrackShippingOrder fetches one tracking snapshot.
func (m *Manager) TrackShippingOrder(ctx context.Context, provider, trackingID string) (*TrackingResult, error) {
	adapter, err := m.GetService(ctx, provider)
	if err != nil {
		return nil, err
	}
	return adapter.TrackOrder(ctx, trackingID)
}

// GetAvailableAreas lists a provider's areas for a filter.
func (m *Manager) GetAvailableAreas(ctx context.Context, provider string, filter LocationFilter) ([]LocationNode, error) {
	adapter, err := m.GetService(ctx, provider)
	if err != nil {
		return nil, err
	}
	return adapter.GetAreas(ctx, filter)
}

// GetProviderBalance reads one provider's merchant balance.
func (m *Manager) GetProviderBalance(ctx context.Context, provider string) (*BalanceInfo, error) {
	adapter, err := m.GetService(ctx, provider)
	if err != nil {
		return nil, err
	}
	return adapter.GetBalance(ctx)
}

// GetPickupStores lists one provider's pickup stores.
func (m *Manager) GetPickupStores(ctx context.Context, provider string) ([]StoreDescriptor, error) {
	adapter, err := m.GetService(ctx, provider)
	if err != nil {
		return nil, err
	}
	return adapter.GetStores(ctx)
}

// BatchTrackOrders tracks many consignments in fixed-size chunks. Lookups
// inside a chunk run concurrently with all-settled semantics: one failure
// never hides its siblings' results. Chunks are spaced by a fixed delay
// to avoid bursting the adapter's rate limiter. One result record is
// returned per input id, in input order.
func (m *Manager) BatchTrackOrders(ctx context.Context, provider string, trackingIDs []string) ([]BatchTrackResult, error) {
	adapter, err := m.GetService(ctx, provider)
	if err != nil {
		return nil, err
	}

	results := make([]BatchTrackResult, len(trackingIDs))
	for start := 0; start < len(trackingIDs); start += m.chunkSize {
		end := start + m.chunkSize
		if end > len(trackingIDs) {
			end = len(trackingIDs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := trackingIDs[i]
				data, err := adapter.TrackOrder(ctx, id)
				if err != nil {
					results[i] = BatchTrackResult{TrackingID: id, Status: "error", Error: err.Error()}
					return
				}
				results[i] = BatchTrackResult{TrackingID: id, Status: "success", Data: data}
			}(i)
		}
		wg.Wait()

		if end < len(trackingIDs) {
			if err := m.sleep(ctx, m.chunkDelay); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

// ComparePrices quotes a package with every active provider. A provider
// failure yields a zero-quote record annotated with its error instead of
// aborting the comparison. Successful quotes sort ascending by delivery
// charge; failed providers sort last.
func (m *Manager) ComparePrices(ctx context.Context, pkg *PackageDescriptor) ([]PriceComparison, error) {
	names, err := m.ActiveProviders(ctx)
	if err != nil {
		return nil, err
	}

	comparisons := make([]PriceComparison, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			quote, err := m.CalculateDeliveryCost(gctx, name, pkg)
			if err != nil {
				comparisons[i] = PriceComparison{Provider: name, Error: err.Error()}
				return nil // partial success is the contract
			}
			comparisons[i] = PriceComparison{Provider: name, Price: *quote}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(comparisons, func(a, b int) bool {
		if (comparisons[a].Error == "") != (comparisons[b].Error == "") {
			return comparisons[a].Error == ""
		}
		return comparisons[a].Price.DeliveryCharge < comparisons[b].Price.DeliveryCharge
	})
	return comparisons, nil
}

// ActiveProviders lists active provider names, cached for 5min.
func (m *Manager) ActiveProviders(ctx context.Context) ([]string, error) {
	key := fmt.Sprintf("%s:providers:active", Namespace)
	return GetOrSet(ctx, m.cache, key, TTLProviders, func(ctx context.Context) ([]string, error) {
		names, err := m.registry.ActiveProviderNames(ctx)
		if err != nil {
			return nil, err
		}
		lowered := make([]string, len(names))
		for i, n := range names {
			lowered[i] = strings.ToLower(n)
		}
		sort.Strings(lowered)
		return lowered, nil
	})
}

// ClearCache invalidates cached entries. With a provider it clears that
// provider's namespace (optionally narrowed to one method); without, the
// entire courier namespace.
func (m *Manager) ClearCache(ctx context.Context, provider, method string) {
	if m.cache == nil {
		return
	}
	m.cache.ClearPattern(ctx, ProviderPattern(provider, method))
	if m.logger != nil {
		m.logger.Info("Cleared courier cache",
			zap.String("provider", provider),
			zap.String("method", method),
		)
	}
}
