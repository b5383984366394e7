package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("fetch", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "fetch: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "fetch: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalNetworkError("decode", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewNetworkError("dial", baseErr)
		fatal := NewFatalNetworkError("decode", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}
		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}
		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("out of range")
	err := &ConfigError{Field: "price_cache_hours", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [price_cache_hours]: out of range"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Source: "scryfall", Key: "Black Lotus", Reason: ReasonNoPrice}

	if !IsConfirmedNegative(err) {
		t.Error("NotFoundError should be a confirmed negative")
	}

	wrapped := fmt.Errorf("resolve: %w", err)
	if !IsConfirmedNegative(wrapped) {
		t.Error("wrapped NotFoundError should still be a confirmed negative")
	}

	if IsConfirmedNegative(NewNetworkError("fetch", errors.New("timeout"))) {
		t.Error("network errors must not count as confirmed negatives")
	}
	if IsConfirmedNegative(ErrRenderUnavailable) {
		t.Error("render unavailability must not count as a confirmed negative")
	}
}
