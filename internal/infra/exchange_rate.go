package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"commander_go/internal/domain"
	"commander_go/internal/infra/cache"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ExchangeRateSource is the cache source name of the global rate
const ExchangeRateSource = "exchange_rate"

const defaultRateURL = "https://api.exchangerate-api.com/v4/latest/USD"

// rateAPIResponse represents the exchangerate-api.com latest response
type rateAPIResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// ExchangeRateClient resolves one global base->target rate, cached under
// the exchange-rate TTL. Failures are never cached.
type ExchangeRateClient struct {
	apiURL     string
	base       string
	target     string
	httpClient HTTPDoer
	cache      *cache.Store
	ttl        domain.TTLProvider
	limiter    *RateLimiter
	metrics    *Metrics
	retryDelay time.Duration
	attempts   int
	now        func() time.Time
	group      singleflight.Group
}

var _ domain.ExchangeRateProvider = (*ExchangeRateClient)(nil)

// ExchangeRateOption configures an ExchangeRateClient
type ExchangeRateOption func(*ExchangeRateClient)

// WithRateURL sets the endpoint returning {base, rates}
func WithRateURL(url string) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		if url != "" {
			c.apiURL = url
		}
	}
}

// WithRateCurrencies sets the base and target currencies
func WithRateCurrencies(base, target string) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		c.base = strings.ToUpper(base)
		c.target = strings.ToUpper(target)
	}
}

// WithRateHTTPClient sets the HTTP client
func WithRateHTTPClient(doer HTTPDoer) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		c.httpClient = doer
	}
}

// WithRateRetry sets the attempt count and the first backoff delay
func WithRateRetry(attempts int, delay time.Duration) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.retryDelay = delay
	}
}

// WithRateLimiter gates remote calls through limiter
func WithRateLimiter(limiter *RateLimiter) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		c.limiter = limiter
	}
}

// WithRateMetrics records cache and request counters
func WithRateMetrics(m *Metrics) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		c.metrics = m
	}
}

// WithRateClock overrides time.Now
func WithRateClock(now func() time.Time) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		c.now = now
	}
}

// NewExchangeRateClient creates a new exchange rate client
func NewExchangeRateClient(store *cache.Store, ttl domain.TTLProvider, opts ...ExchangeRateOption) *ExchangeRateClient {
	c := &ExchangeRateClient{
		apiURL:     defaultRateURL,
		base:       domain.CurrencyUSD,
		target:     domain.CurrencyBRL,
		httpClient: NewHTTPClient(5 * time.Second),
		cache:      store,
		ttl:        ttl,
		retryDelay: time.Second,
		attempts:   3,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ExchangeRateClient) Base() string   { return c.base }
func (c *ExchangeRateClient) Target() string { return c.target }

func (c *ExchangeRateClient) cacheKey() string {
	return c.base + "_" + c.target
}

// Rate returns the cached rate while fresh, otherwise fetches it. Concurrent
// callers share a single in-flight request.
func (c *ExchangeRateClient) Rate(ctx context.Context) (decimal.Decimal, error) {
	key := c.cacheKey()
	if entry, ok := c.cache.Get(ExchangeRateSource, key); ok && !entry.Negative() && entry.Fresh(c.now(), c.ttl.ExchangeRateTTL()) {
		c.metrics.RecordCacheHit()
		slog.Debug("Exchange rate cache hit", slog.String("pair", key), slog.String("rate", entry.Value.String()))
		return *entry.Value, nil
	}
	c.metrics.RecordCacheMiss()

	// The shared fetch must not die with whichever caller started it; each
	// caller still stops waiting on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		rate, err := c.fetchRate(flightCtx)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Put(ExchangeRateSource, key, &rate, domain.CacheMeta{Origin: c.apiURL}); err != nil {
			slog.Warn("Failed to persist exchange rate", slog.Any("error", err))
		}
		return rate, nil
	})

	select {
	case <-ctx.Done():
		c.metrics.RecordTransient()
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			c.metrics.RecordTransient()
			return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, res.Err)
		}
		return res.Val.(decimal.Decimal), nil
	}
}

// fetchRate fetches the current exchange rate with retry logic
func (c *ExchangeRateClient) fetchRate(ctx context.Context) (decimal.Decimal, error) {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			delay := ScaledBackoff(c.retryDelay, i-1)
			slog.Info("Retrying exchange rate fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			if err := sleepCtx(ctx, delay); err != nil {
				return decimal.Zero, err
			}
		}

		rate, err := c.doFetch(ctx)
		if err == nil {
			return rate, nil
		}
		lastErr = err
		slog.Warn("Exchange rate fetch attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
		if !domain.IsRetriable(err) {
			break
		}
	}
	return decimal.Zero, lastErr
}

func (c *ExchangeRateClient) doFetch(ctx context.Context) (decimal.Decimal, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitIfNeeded(ctx, ExchangeRateSource); err != nil {
			return decimal.Zero, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return decimal.Zero, NewFatalRequestError(err)
	}
	SetBrowserHeaders(req)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordRequest(c.now().Sub(start))
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("fetch rate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return decimal.Zero, domain.NewNetworkError("fetch rate", statusErr)
		}
		return decimal.Zero, domain.NewFatalNetworkError("fetch rate", statusErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("read rate", err)
	}

	var data rateAPIResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return decimal.Zero, domain.NewFatalNetworkError("decode rate", err)
	}
	if data.Base != "" && !strings.EqualFold(data.Base, c.base) {
		return decimal.Zero, domain.NewFatalNetworkError("decode rate",
			fmt.Errorf("response base %s, expected %s", data.Base, c.base))
	}

	raw, ok := data.Rates[c.target]
	if !ok || raw <= 0 {
		return decimal.Zero, domain.NewFatalNetworkError("decode rate",
			fmt.Errorf("no usable %s rate in response", c.target))
	}

	rate := decimal.NewFromFloat(raw)
	slog.Info("Exchange rate updated", slog.String("pair", c.cacheKey()), slog.String("rate", rate.String()))
	return rate, nil
}

// NewFatalRequestError wraps a request construction failure
func NewFatalRequestError(err error) error {
	return domain.NewFatalNetworkError("build request", err)
}

// IsTimeout reports whether err came from a deadline
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
