// Package mock provides a scriptable courier implementation and an
// in-memory cache for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
)

// Client is a mock courier for testing. Default behavior returns canned
// data; individual operations can be overridden with the On* hooks.
type Client struct {
	name string

	// AuthenticateCalls counts Authenticate invocations.
	AuthenticateCalls int

	OnAuthenticate    func(ctx context.Context) error
	OnCalculateCharge func(ctx context.Context, pkg *courier.PackageDescriptor) (*courier.PriceQuote, error)
	OnCreateOrder     func(ctx context.Context, order *courier.OrderDescriptor) (*courier.CreateOrderResult, error)
	OnTrackOrder      func(ctx context.Context, trackingID string) (*courier.TrackingResult, error)
	OnGetBalance      func(ctx context.Context) (*courier.BalanceInfo, error)
	OnGetStores       func(ctx context.Context) ([]courier.StoreDescriptor, error)
}

// New creates a new mock courier.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// Authenticate records the call and succeeds unless overridden.
func (c *Client) Authenticate(ctx context.Context) error {
	c.AuthenticateCalls++
	if c.OnAuthenticate != nil {
		return c.OnAuthenticate(ctx)
	}
	return nil
}

// GetCities returns mock cities.
func (c *Client) GetCities(ctx context.Context) ([]courier.LocationNode, error) {
	return []courier.LocationNode{
		{ID: 1, Name: "Dhaka"},
		{ID: 2, Name: "Chattogram"},
	}, nil
}

// GetZones returns mock zones.
func (c *Client) GetZones(ctx context.Context, filter courier.LocationFilter) ([]courier.LocationNode, error) {
	return []courier.LocationNode{
		{ID: 10, Name: "Gulshan", ParentID: filter.CityID},
	}, nil
}

// GetAreas returns mock areas.
func (c *Client) GetAreas(ctx context.Context, filter courier.LocationFilter) ([]courier.LocationNode, error) {
	return []courier.LocationNode{
		{ID: 100, Name: "Gulshan 1", ParentID: filter.ZoneID, HomeDeliveryAvailable: true, PickupAvailable: true},
	}, nil
}

// CalculateCharge returns a mock quote.
func (c *Client) CalculateCharge(ctx context.Context, pkg *courier.PackageDescriptor) (*courier.PriceQuote, error) {
	if c.OnCalculateCharge != nil {
		return c.OnCalculateCharge(ctx, pkg)
	}
	return &courier.PriceQuote{DeliveryCharge: 80, CODCharge: 1, FinalPrice: 81, Currency: "BDT"}, nil
}

// CreateOrder returns a mock booking confirmation.
func (c *Client) CreateOrder(ctx context.Context, order *courier.OrderDescriptor) (*courier.CreateOrderResult, error) {
	if c.OnCreateOrder != nil {
		return c.OnCreateOrder(ctx, order)
	}
	return &courier.CreateOrderResult{
		TrackingID:    fmt.Sprintf("%s-%d", c.name, time.Now().UnixNano()),
		ConsignmentID: fmt.Sprintf("%s-cn-%d", c.name, time.Now().UnixNano()),
		Status:        "Pending",
	}, nil
}

// TrackOrder returns a mock tracking snapshot.
func (c *Client) TrackOrder(ctx context.Context, trackingID string) (*courier.TrackingResult, error) {
	if c.OnTrackOrder != nil {
		return c.OnTrackOrder(ctx, trackingID)
	}
	return &courier.TrackingResult{
		TrackingID:  trackingID,
		Status:      "In Transit",
		StatusClass: courier.StatusInTransit,
		Updates: []courier.TrackingUpdate{
			{Message: "Assigned to rider", Status: "In Transit", Timestamp: time.Now()},
		},
	}, nil
}

// GetBalance returns a mock balance.
func (c *Client) GetBalance(ctx context.Context) (*courier.BalanceInfo, error) {
	if c.OnGetBalance != nil {
		return c.OnGetBalance(ctx)
	}
	return &courier.BalanceInfo{CurrentBalance: 500, Currency: "BDT"}, nil
}

// GetStores returns mock stores.
func (c *Client) GetStores(ctx context.Context) ([]courier.StoreDescriptor, error) {
	if c.OnGetStores != nil {
		return c.OnGetStores(ctx)
	}
	return []courier.StoreDescriptor{
		{ID: "1", Name: fmt.Sprintf("%s store", c.name), Address: "Dhaka"},
	}, nil
}

var _ courier.Courier = (*Client)(nil)

// Cache is a map-backed courier.Cache for tests. TTLs are honored against
// the wall clock.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewCache creates an empty in-memory cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached value and whether it was present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value with a TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Del removes keys.
func (c *Cache) Del(ctx context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// ClearPattern removes keys matching a glob prefix pattern ("prefix:*").
func (c *Cache) ClearPattern(ctx context.Context, pattern string) {
	prefix := pattern
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix = pattern[:n-1]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of live entries. Test helper.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ courier.Cache = (*Cache)(nil)
