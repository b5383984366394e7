package event

import (
	"encoding/json"

	"commander_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Type defines the type of event.
type Type uint16

const (
	EvProgress Type = iota + 1
	EvQuote
	EvRunningTotal
	EvDone
	EvStopped
)

func (t Type) String() string {
	switch t {
	case EvProgress:
		return "progress"
	case EvQuote:
		return "quote"
	case EvRunningTotal:
		return "total"
	case EvDone:
		return "done"
	case EvStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is the interface for all batch run events.
type Event interface {
	GetSeq() uint64
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }

// ProgressEvent announces the card about to be resolved. Index is 1-based.
type ProgressEvent struct {
	BaseEvent
	Index int    `json:"index"`
	Total int    `json:"total"`
	Card  string `json:"card"`
}

func (e ProgressEvent) GetType() Type { return EvProgress }

// QuoteEvent carries the outcome for one card. A nil Quote means the price
// is unknown.
type QuoteEvent struct {
	BaseEvent
	Card  string             `json:"card"`
	Quote *domain.PriceQuote `json:"quote"`
}

func (e QuoteEvent) GetType() Type { return EvQuote }

// RunningTotalEvent is the sum of every price resolved so far. Mixed is set
// once a quote in a currency other than Currency has been added.
type RunningTotalEvent struct {
	BaseEvent
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Mixed    bool            `json:"mixed,omitempty"`
}

func (e RunningTotalEvent) GetType() Type { return EvRunningTotal }

// DoneEvent ends a run that went through every card.
type DoneEvent struct {
	BaseEvent
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

func (e DoneEvent) GetType() Type { return EvDone }

// StoppedEvent ends a cancelled run. Total covers completed cards only.
type StoppedEvent struct {
	BaseEvent
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Completed int             `json:"completed"`
}

func (e StoppedEvent) GetType() Type { return EvStopped }

// IsTerminal reports whether ev ends its run
func IsTerminal(ev Event) bool {
	t := ev.GetType()
	return t == EvDone || t == EvStopped
}

// Marshal encodes ev as {"type": "...", "seq": n, "data": {...}}
func Marshal(ev Event) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Data Event  `json:"data"`
	}{ev.GetType().String(), ev.GetSeq(), ev})
}
