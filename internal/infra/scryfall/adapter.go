// Package scryfall resolves USD reference prices from the Scryfall API.
package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"commander_go/internal/domain"
	"commander_go/internal/infra"
	"commander_go/internal/infra/cache"

	"github.com/shopspring/decimal"
)

// SourceName is the cache and rate-limit key of this adapter
const SourceName = "scryfall"

const defaultBaseURL = "https://api.scryfall.com"

// cardResponse is the part of a Scryfall card object we read
type cardResponse struct {
	Object string `json:"object"`
	Name   string `json:"name"`
	Prices struct {
		USD     *string `json:"usd"`
		USDFoil *string `json:"usd_foil"`
	} `json:"prices"`
}

// Adapter is the reference-price source
type Adapter struct {
	baseURL    string
	httpClient infra.HTTPDoer
	cache      *cache.Store
	ttl        domain.TTLProvider
	limiter    *infra.RateLimiter
	metrics    *infra.Metrics
	now        func() time.Time
}

var _ domain.PriceSource = (*Adapter)(nil)

// Option configures an Adapter
type Option func(*Adapter)

// WithBaseURL sets the API root
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		if baseURL != "" {
			a.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(doer infra.HTTPDoer) Option {
	return func(a *Adapter) {
		a.httpClient = doer
	}
}

// WithMetrics records cache and request counters
func WithMetrics(m *infra.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// New creates the adapter
func New(store *cache.Store, ttl domain.TTLProvider, limiter *infra.RateLimiter, opts ...Option) *Adapter {
	a := &Adapter{
		baseURL:    defaultBaseURL,
		httpClient: infra.NewHTTPClient(5 * time.Second),
		cache:      store,
		ttl:        ttl,
		limiter:    limiter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string     { return SourceName }
func (a *Adapter) Currency() string { return domain.CurrencyUSD }

// Fetch returns the USD price of card, preferring the regular price over the
// foil one. Zero is a valid price.
func (a *Adapter) Fetch(ctx context.Context, card string) (decimal.Decimal, error) {
	if entry, ok := a.cache.Get(SourceName, card); ok && entry.Fresh(a.now(), a.ttl.PriceTTL()) {
		a.metrics.RecordCacheHit()
		if entry.Negative() {
			slog.Debug("Scryfall cached negative", slog.String("card", card), slog.String("reason", string(entry.Meta.Reason)))
			return decimal.Zero, &domain.NotFoundError{Source: SourceName, Key: card, Reason: entry.Meta.Reason}
		}
		slog.Debug("Scryfall cache hit", slog.String("card", card))
		return *entry.Value, nil
	}
	a.metrics.RecordCacheMiss()

	price, err := a.query(ctx, card)
	if err != nil {
		if domain.IsConfirmedNegative(err) {
			a.metrics.RecordNegative()
			a.store(card, nil, domain.CacheMeta{Reason: reasonOf(err)})
		} else {
			a.metrics.RecordTransient()
			slog.Warn("Scryfall lookup failed", slog.String("card", card), slog.Any("error", err))
		}
		return decimal.Zero, err
	}

	a.store(card, &price, domain.CacheMeta{})
	slog.Info("Scryfall price found", slog.String("card", card), slog.String("usd", price.StringFixed(2)))
	return price, nil
}

func (a *Adapter) store(card string, price *decimal.Decimal, meta domain.CacheMeta) {
	if err := a.cache.Put(SourceName, card, price, meta); err != nil {
		slog.Error("Failed to write Scryfall cache", slog.String("card", card), slog.Any("error", err))
	}
}

func reasonOf(err error) domain.FailureReason {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return nf.Reason
	}
	return domain.ReasonNotFound
}

func (a *Adapter) query(ctx context.Context, card string) (decimal.Decimal, error) {
	negative := func(reason domain.FailureReason) error {
		return &domain.NotFoundError{Source: SourceName, Key: card, Reason: reason}
	}

	if err := a.limiter.WaitIfNeeded(ctx, SourceName); err != nil {
		return decimal.Zero, err
	}

	endpoint := a.baseURL + "/cards/named?" + url.Values{"exact": {card}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, infra.NewFatalRequestError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.AppName+"/1.0")

	start := a.now()
	resp, err := a.httpClient.Do(req)
	a.metrics.RecordRequest(a.now().Sub(start))
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("fetch", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return decimal.Zero, negative(domain.ReasonNotFound)
	case resp.StatusCode != http.StatusOK:
		return decimal.Zero, domain.NewNetworkError("fetch", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("read", err)
	}

	var data cardResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return decimal.Zero, negative(domain.ReasonInvalidResult)
	}

	raw := data.Prices.USD
	if raw == nil || *raw == "" {
		raw = data.Prices.USDFoil
	}
	if raw == nil || *raw == "" {
		return decimal.Zero, negative(domain.ReasonNoPrice)
	}

	price, err := decimal.NewFromString(*raw)
	if err != nil || price.IsNegative() {
		return decimal.Zero, negative(domain.ReasonInvalidPrice)
	}
	return price, nil
}
