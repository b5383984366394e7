package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource resolves one card name to a price in the source's own currency.
// A NotFoundError means a confirmed negative; any other error is transient.
type PriceSource interface {
	Name() string
	Currency() string
	Fetch(ctx context.Context, card string) (decimal.Decimal, error)
}

// ExchangeRateProvider defines the interface for currency exchange rate sources
type ExchangeRateProvider interface {
	Base() string
	Target() string
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// TTLProvider supplies cache lifetimes. Implementations are read on every
// validity check so an operator change applies immediately.
type TTLProvider interface {
	PriceTTL() time.Duration
	ExchangeRateTTL() time.Duration
}

// CardLookup is the card database contract consumed by commander and deck checks
type CardLookup interface {
	GetCardDetails(name string) (CardRecord, bool)
	IsEligibleCommander(card CardRecord) bool
}

// RecommendationSource produces the card names suggested for a commander
type RecommendationSource interface {
	Recommendations(ctx context.Context, commander string) ([]string, error)
}
