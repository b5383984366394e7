// Package ligamagic resolves card prices in BRL from the LigaMagic marketplace.
package ligamagic

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"commander_go/internal/domain"
	"commander_go/internal/infra"
	"commander_go/internal/infra/cache"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// SourceName is the cache and rate-limit key of this adapter
const SourceName = "ligamagic"

const defaultBaseURL = "https://www.ligamagic.com.br/"

// Renderer loads a card page in a real browser and reads the marketplace
// price. found=false with a nil error means the page rendered but showed no
// price; a non-nil error means rendering could not be carried out.
type Renderer interface {
	RenderPrice(ctx context.Context, card string) (price decimal.Decimal, found bool, err error)
}

// Adapter is the local-currency price source
type Adapter struct {
	baseURL    string
	httpClient infra.HTTPDoer
	cache      *cache.Store
	ttl        domain.TTLProvider
	limiter    *infra.RateLimiter
	renderer   Renderer
	metrics    *infra.Metrics
	now        func() time.Time
}

var _ domain.PriceSource = (*Adapter)(nil)

// Option configures an Adapter
type Option func(*Adapter)

// WithBaseURL sets the site root
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		if baseURL != "" {
			a.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(doer infra.HTTPDoer) Option {
	return func(a *Adapter) {
		a.httpClient = doer
	}
}

// WithRenderer enables escalation for pages whose prices load late
func WithRenderer(r Renderer) Option {
	return func(a *Adapter) {
		a.renderer = r
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

// New creates the adapter. limiter is shared process-wide.
func New(store *cache.Store, ttl domain.TTLProvider, limiter *infra.RateLimiter, opts ...Option) *Adapter {
	a := &Adapter{
		baseURL:    defaultBaseURL,
		httpClient: infra.NewHTTPClient(15 * time.Second),
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
func (a *Adapter) Currency() string { return domain.CurrencyBRL }

// CanEscalate reports whether a render path is configured
func (a *Adapter) CanEscalate() bool { return a.renderer != nil }

type state int

const (
	stateCacheCheck state = iota
	stateDirectFetch
	stateEscalate
	stateCacheWrite
	stateDone
)

func (s state) String() string {
	switch s {
	case stateCacheCheck:
		return "cache_check"
	case stateDirectFetch:
		return "direct_fetch"
	case stateEscalate:
		return "escalate"
	case stateCacheWrite:
		return "cache_write"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// attempt carries one Fetch through the state machine
type attempt struct {
	card  string
	price *decimal.Decimal
	meta  domain.CacheMeta
	err   error
}

func (at *attempt) negative(reason domain.FailureReason) {
	at.price = nil
	at.meta = domain.CacheMeta{Reason: reason}
}

func (at *attempt) found(p decimal.Decimal, meta domain.CacheMeta) {
	at.price = &p
	at.meta = meta
}

// Fetch returns the BRL price of card. A *domain.NotFoundError is a
// confirmed negative; other errors are transient and leave the cache alone.
func (a *Adapter) Fetch(ctx context.Context, card string) (decimal.Decimal, error) {
	at := &attempt{card: card}

	for st := stateCacheCheck; st != stateDone; {
		next := a.step(ctx, st, at)
		slog.Debug("LigaMagic state", slog.String("card", card), slog.String("from", st.String()), slog.String("to", next.String()))
		st = next
	}

	if at.err != nil {
		return decimal.Zero, at.err
	}
	if at.price == nil {
		return decimal.Zero, &domain.NotFoundError{Source: SourceName, Key: card, Reason: at.meta.Reason}
	}
	return *at.price, nil
}

func (a *Adapter) step(ctx context.Context, st state, at *attempt) state {
	switch st {
	case stateCacheCheck:
		return a.checkCache(at)
	case stateDirectFetch:
		return a.directFetch(ctx, at)
	case stateEscalate:
		return a.escalate(ctx, at)
	case stateCacheWrite:
		return a.writeCache(at)
	default:
		return stateDone
	}
}

func (a *Adapter) checkCache(at *attempt) state {
	entry, ok := a.cache.Get(SourceName, at.card)
	now := a.now()
	if !ok || !entry.Fresh(now, a.ttl.PriceTTL()) {
		a.metrics.RecordCacheMiss()
		return stateDirectFetch
	}

	a.metrics.RecordCacheHit()
	if entry.Negative() {
		slog.Info("LigaMagic cached negative",
			slog.String("card", at.card),
			slog.String("reason", string(entry.Meta.Reason)),
			slog.String("checked", humanize.RelTime(entry.Timestamp, now, "ago", "from now")))
		at.negative(entry.Meta.Reason)
		return stateDone
	}

	slog.Info("LigaMagic cache hit", slog.String("card", at.card), slog.String("price", entry.Value.StringFixed(2)))
	at.found(*entry.Value, entry.Meta)
	return stateDone
}

func (a *Adapter) searchURL(card string) string {
	q := url.Values{}
	q.Set("view", "cards/search")
	q.Set("card", card)
	return a.baseURL + "?" + q.Encode()
}

func (a *Adapter) transient(at *attempt, op string, err error) state {
	a.metrics.RecordTransient()
	slog.Warn("LigaMagic lookup failed", slog.String("card", at.card), slog.String("op", op), slog.Any("error", err))
	at.err = err
	return stateDone
}

func (a *Adapter) directFetch(ctx context.Context, at *attempt) state {
	if err := a.limiter.WaitIfNeeded(ctx, SourceName); err != nil {
		return a.transient(at, "rate limit", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.searchURL(at.card), nil)
	if err != nil {
		return a.transient(at, "build request", infra.NewFatalRequestError(err))
	}
	infra.SetBrowserHeaders(req)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	slog.Info("Fetching LigaMagic price", slog.String("card", at.card))
	start := a.now()
	resp, err := a.httpClient.Do(req)
	a.metrics.RecordRequest(a.now().Sub(start))
	if err != nil {
		return a.transient(at, "fetch", domain.NewNetworkError("fetch", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		at.negative(domain.ReasonNotFound)
		return stateCacheWrite
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return a.transient(at, "fetch", domain.NewNetworkError("fetch", fmt.Errorf("unexpected status code: %d", resp.StatusCode)))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return a.transient(at, "read", domain.NewNetworkError("read", err))
	}

	page := inspectPage(doc)
	switch {
	case !page.valid && !page.deferred:
		slog.Warn("LigaMagic page is not a card result", slog.String("card", at.card))
		at.negative(domain.ReasonInvalidResult)
		return stateCacheWrite
	case page.deferred:
		return stateEscalate
	}

	price, ok := lowest(page.prices)
	if !ok {
		at.negative(domain.ReasonNoPricesFound)
		return stateCacheWrite
	}

	slog.Info("LigaMagic price found",
		slog.String("card", at.card), slog.String("price", price.StringFixed(2)), slog.Int("editions", len(page.prices)))
	at.found(price, domain.CacheMeta{Editions: len(page.prices)})
	return stateCacheWrite
}

func (a *Adapter) escalate(ctx context.Context, at *attempt) state {
	if a.renderer == nil {
		return a.transient(at, "escalate", domain.ErrRenderUnavailable)
	}
	a.metrics.RecordEscalation()

	if err := a.limiter.WaitIfNeeded(ctx, SourceName); err != nil {
		return a.transient(at, "rate limit", err)
	}

	slog.Info("LigaMagic page needs rendering, escalating", slog.String("card", at.card))
	price, found, err := a.renderer.RenderPrice(ctx, at.card)
	if err != nil {
		return a.transient(at, "escalate", fmt.Errorf("%w: %v", domain.ErrRenderUnavailable, err))
	}
	if !found {
		at.negative(domain.ReasonRenderNotFound)
		return stateCacheWrite
	}

	at.found(price, domain.CacheMeta{Origin: "render"})
	return stateCacheWrite
}

func (a *Adapter) writeCache(at *attempt) state {
	if at.price == nil {
		a.metrics.RecordNegative()
		slog.Warn("LigaMagic confirmed negative, caching",
			slog.String("card", at.card), slog.String("reason", string(at.meta.Reason)))
	}
	if err := a.cache.Put(SourceName, at.card, at.price, at.meta); err != nil {
		slog.Error("Failed to write LigaMagic cache", slog.String("card", at.card), slog.Any("error", err))
	}
	return stateDone
}
