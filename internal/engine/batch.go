package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"commander_go/internal/domain"
	"commander_go/internal/event"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceResolver resolves one card; false means the price is unknown
type PriceResolver interface {
	Resolve(ctx context.Context, card string) (domain.PriceQuote, bool)
}

// Result is the outcome recorded for one card of a run
type Result struct {
	Card  string             `json:"card"`
	Quote *domain.PriceQuote `json:"quote"`
}

// Coordinator runs at most one batch at a time. Each run resolves its cards
// in order on its own goroutine and reports through the run's event queue.
type Coordinator struct {
	resolver PriceResolver
	currency string

	mu     sync.Mutex
	active *Run
	latest *Run
}

// NewCoordinator creates a coordinator whose running totals are labelled
// with currency
func NewCoordinator(resolver PriceResolver, currency string) *Coordinator {
	return &Coordinator{resolver: resolver, currency: currency}
}

// Start launches a run over cards. ctx bounds the run's network calls for
// its whole lifetime and should outlive the caller's request. Starting while
// another run is active returns domain.ErrBatchActive.
func (c *Coordinator) Start(ctx context.Context, cards []string) (*Run, error) {
	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, domain.ErrBatchActive
	}
	run := newRun(cards, c.currency)
	c.active = run
	c.latest = run
	c.mu.Unlock()

	slog.Info("Batch run started", slog.String("run", run.ID), slog.Int("cards", len(cards)))
	go c.work(ctx, run)
	return run, nil
}

// Active returns the running batch, or nil
func (c *Coordinator) Active() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Latest returns the most recently started run, finished or not
func (c *Coordinator) Latest() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Stop requests cancellation of the active run. It reports whether a run
// was active.
func (c *Coordinator) Stop() bool {
	if run := c.Active(); run != nil {
		run.Cancel()
		return true
	}
	return false
}

func (c *Coordinator) release(run *Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == run {
		c.active = nil
	}
}

func (c *Coordinator) work(ctx context.Context, run *Run) {
	defer close(run.done)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Batch worker panic recovered", slog.String("run", run.ID), slog.Any("panic", r))
			c.release(run)
			run.finish(false)
		}
	}()

	for i, card := range run.targets {
		if run.Cancelled() || ctx.Err() != nil {
			slog.Info("Batch run stopped", slog.String("run", run.ID), slog.Int("completed", i))
			c.release(run)
			run.finish(false)
			return
		}

		run.emit(event.ProgressEvent{Index: i + 1, Total: len(run.targets), Card: card})

		var quote *domain.PriceQuote
		if q, ok := c.resolver.Resolve(ctx, card); ok {
			quote = &q
		}
		run.complete(card, quote)
	}

	slog.Info("Batch run done", slog.String("run", run.ID), slog.String("total", run.total.StringFixed(2)))
	c.release(run)
	run.finish(true)
}

// Run is one batch over an ordered list of cards. It is never reused.
type Run struct {
	ID       string
	Started  time.Time
	targets  []string
	currency string

	cancel atomic.Bool
	queue  *event.Queue
	done   chan struct{}

	// owned by the worker goroutine
	seq      uint64
	total    decimal.Decimal
	mixed    bool
	finished bool

	mu      sync.Mutex
	results []Result
}

func newRun(cards []string, currency string) *Run {
	targets := make([]string, len(cards))
	copy(targets, cards)
	return &Run{
		ID:       uuid.NewString(),
		Started:  time.Now(),
		targets:  targets,
		currency: currency,
		queue:    event.NewQueue(),
		done:     make(chan struct{}),
		total:    decimal.Zero,
	}
}

func (r *Run) emit(ev event.Event) {
	r.seq++
	switch e := ev.(type) {
	case event.ProgressEvent:
		e.Seq = r.seq
		ev = e
	case event.QuoteEvent:
		e.Seq = r.seq
		ev = e
	case event.RunningTotalEvent:
		e.Seq = r.seq
		ev = e
	case event.DoneEvent:
		e.Seq = r.seq
		ev = e
	case event.StoppedEvent:
		e.Seq = r.seq
		ev = e
	default:
		panic(fmt.Sprintf("unknown event type %T", ev))
	}
	r.queue.Push(ev)
}

// complete records one card's outcome and emits its quote and total events
func (r *Run) complete(card string, quote *domain.PriceQuote) {
	if quote != nil {
		r.total = r.total.Add(quote.Price)
		if quote.Currency != r.currency {
			r.mixed = true
		}
	}

	r.mu.Lock()
	r.results = append(r.results, Result{Card: card, Quote: quote})
	r.mu.Unlock()

	r.emit(event.QuoteEvent{Card: card, Quote: quote})
	r.emit(event.RunningTotalEvent{Amount: r.total, Currency: r.currency, Mixed: r.mixed})
}

// finish emits the single terminal event of the run
func (r *Run) finish(done bool) {
	if r.finished {
		return
	}
	r.finished = true
	if done {
		r.emit(event.DoneEvent{Total: r.total, Currency: r.currency})
		return
	}
	r.emit(event.StoppedEvent{Total: r.total, Currency: r.currency, Completed: r.completed()})
}

func (r *Run) completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Cancel asks the worker to stop before its next card. The card being
// resolved, if any, still completes.
func (r *Run) Cancel() {
	r.cancel.Store(true)
}

// Cancelled reports whether Cancel was called
func (r *Run) Cancelled() bool {
	return r.cancel.Load()
}

// Len is the number of cards in the run
func (r *Run) Len() int { return len(r.targets) }

// Poll drains every event produced since the previous Poll, in order
func (r *Run) Poll() []event.Event {
	return r.queue.Drain()
}

// Ready signals that Poll has something to return
func (r *Run) Ready() <-chan struct{} {
	return r.queue.Ready()
}

// Done is closed once the worker has emitted its terminal event
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends or ctx is done
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns a copy of the per-card outcomes recorded so far
func (r *Run) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Pump polls the run every interval and hands each event to fn, returning
// after the terminal event or when ctx is done
func (r *Run) Pump(ctx context.Context, interval time.Duration, fn func(event.Event)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, ev := range r.Poll() {
			fn(ev)
			if event.IsTerminal(ev) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
