package event

import (
	"encoding/json"
	"sync"
	"testing"

	"commander_go/internal/domain"

	"github.com/shopspring/decimal"
)

func TestMarshal(t *testing.T) {
	q := domain.PriceQuote{Price: decimal.RequireFromString("1.5"), Source: domain.SourceLocal, Currency: domain.CurrencyBRL}

	data, err := Marshal(QuoteEvent{BaseEvent: BaseEvent{Seq: 2}, Card: "Sol Ring", Quote: &q})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Data struct {
			Card  string `json:"card"`
			Quote struct {
				Price    string `json:"price"`
				Source   string `json:"source"`
				Currency string `json:"currency"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Type != "quote" || decoded.Seq != 2 {
		t.Errorf("unexpected envelope: %s", data)
	}
	if decoded.Data.Quote.Price != "1.5" || decoded.Data.Quote.Source != "PRIMARY_LOCAL" {
		t.Errorf("unexpected quote: %s", data)
	}
}

func TestMarshal_AbsentQuote(t *testing.T) {
	data, err := Marshal(QuoteEvent{Card: "Black Lotus"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded struct {
		Data map[string]any `json:"data"`
	}
	json.Unmarshal(data, &decoded)
	if v, ok := decoded.Data["quote"]; !ok || v != nil {
		t.Errorf("expected explicit null quote, got %s", data)
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		ev   Event
		want bool
	}{
		{ProgressEvent{}, false},
		{QuoteEvent{}, false},
		{RunningTotalEvent{}, false},
		{DoneEvent{}, true},
		{StoppedEvent{}, true},
	}
	for _, tt := range tests {
		if got := IsTerminal(tt.ev); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.ev.GetType(), got, tt.want)
		}
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	if q.Drain() != nil {
		t.Error("expected nil from empty queue")
	}

	for i := 1; i <= 3; i++ {
		q.Push(ProgressEvent{BaseEvent: BaseEvent{Seq: uint64(i)}})
	}

	select {
	case <-q.Ready():
	default:
		t.Fatal("expected ready signal after push")
	}

	events := q.Drain()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.GetSeq() != uint64(i+1) {
			t.Errorf("event %d has seq %d", i, ev.GetSeq())
		}
	}
	if q.Len() != 0 {
		t.Error("queue should be empty after drain")
	}
}

func TestQueue_ConcurrentProducer(t *testing.T) {
	q := NewQueue()
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			q.Push(ProgressEvent{BaseEvent: BaseEvent{Seq: uint64(i)}})
		}
	}()

	var got []Event
	for len(got) < n {
		<-q.Ready()
		got = append(got, q.Drain()...)
	}
	wg.Wait()

	for i, ev := range got {
		if ev.GetSeq() != uint64(i+1) {
			t.Fatalf("out of order at %d: seq %d", i, ev.GetSeq())
		}
	}
}
