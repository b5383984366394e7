package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CurrencyBRL = "BRL"
	CurrencyUSD = "USD"
)

// Source identifies which resolution path produced a quote
type Source string

const (
	SourceLocal     Source = "PRIMARY_LOCAL"
	SourceConverted Source = "SECONDARY_CONVERTED"
)

// PriceQuote is the resolver's answer for one card. Currency is always set;
// a converted quote whose rate lookup failed keeps the reference currency.
type PriceQuote struct {
	Price    decimal.Decimal `json:"price"`
	Source   Source          `json:"source"`
	Currency string          `json:"currency"`
}

// String renders the quote as "BRL 1.50"
func (q PriceQuote) String() string {
	return q.Currency + " " + q.Price.StringFixed(2)
}

// FailureReason tags a cached negative result
type FailureReason string

const (
	ReasonInvalidResult  FailureReason = "invalid_result"
	ReasonNoPricesFound  FailureReason = "no_prices_found"
	ReasonRenderNotFound FailureReason = "render_not_found"
	ReasonNotFound       FailureReason = "not_found"
	ReasonNoPrice        FailureReason = "no_price"
	ReasonInvalidPrice   FailureReason = "invalid_price"
)

// CacheMeta carries the per-entry details written next to a cached price.
// Reason is set for negatives; Origin and Editions describe successes.
type CacheMeta struct {
	Reason   FailureReason
	Origin   string
	Editions int
}

// CachedPrice is one (source, key) cache entry. A nil Value is a cached
// confirmed negative and expires under the same TTL as a price.
type CachedPrice struct {
	Key       string
	Value     *decimal.Decimal
	Timestamp time.Time
	Meta      CacheMeta
}

// Negative reports whether the entry records "no usable price"
func (c CachedPrice) Negative() bool {
	return c.Value == nil
}

// Age returns how long ago the entry was written
func (c CachedPrice) Age(now time.Time) time.Duration {
	return now.Sub(c.Timestamp)
}

// Fresh reports whether the entry is still valid under ttl.
// Entries are never deleted; staleness is decided here, at read time.
func (c CachedPrice) Fresh(now time.Time, ttl time.Duration) bool {
	return c.Age(now) < ttl
}
