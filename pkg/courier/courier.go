// Package courier provides an aggregation layer over third-party
// shipping-carrier APIs, exposing them behind one uniform interface.
package courier

import (
	"context"
)

// Courier defines the interface that all carrier adapters must implement.
type Courier interface {
	// Name returns the carrier identifier (e.g., "pathao", "steadfast").
	Name() string

	// Authenticate acquires or validates credentials for the carrier.
	// Called once when the adapter is first resolved; adapters re-authenticate
	// internally when their token expires.
	Authenticate(ctx context.Context) error

	// GetCities returns the carrier's top-level delivery cities.
	GetCities(ctx context.Context) ([]LocationNode, error)

	// GetZones returns zones under a city. Carriers that key zones by city
	// require filter.CityID and fail fast locally when it is missing.
	GetZones(ctx context.Context, filter LocationFilter) ([]LocationNode, error)

	// GetAreas returns areas under a zone, including delivery capability flags.
	GetAreas(ctx context.Context, filter LocationFilter) ([]LocationNode, error)

	// CalculateCharge returns a price quote for a package.
	CalculateCharge(ctx context.Context, pkg *PackageDescriptor) (*PriceQuote, error)

	// CreateOrder books a shipment with the carrier.
	CreateOrder(ctx context.Context, order *OrderDescriptor) (*CreateOrderResult, error)

	// TrackOrder returns the current tracking snapshot for a consignment.
	TrackOrder(ctx context.Context, trackingID string) (*TrackingResult, error)

	// GetBalance returns the merchant account balance. Carriers without a
	// balance endpoint return a zero-value placeholder, not an error.
	GetBalance(ctx context.Context) (*BalanceInfo, error)

	// GetStores returns the merchant's registered pickup stores. Carriers
	// without a store concept return an empty list, not an error.
	GetStores(ctx context.Context) ([]StoreDescriptor, error)
}

// ProviderRegistry is the external collaborator that resolves provider
// configuration. Backed by the relational vendor store in production; any
// lookup-by-name source works.
type ProviderRegistry interface {
	// FindActiveProvider returns the configuration for an active provider,
	// matched case-insensitively, or ErrProviderNotFound.
	FindActiveProvider(ctx context.Context, name string) (*ProviderConfig, error)

	// ActiveProviderNames returns the names of all active providers.
	ActiveProviderNames(ctx context.Context) ([]string, error)
}
