package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "fetch", "decode", "render")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NotFoundError is a confirmed negative: the source answered, but has no
// usable price for the key. Adapters cache it until the price TTL expires.
type NotFoundError struct {
	Source string
	Key    string
	Reason FailureReason
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no price for %q (%s)", e.Source, e.Key, e.Reason)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrPriceNotFound
}

// IsConfirmedNegative reports whether err means "the source has no price",
// as opposed to a transient lookup failure.
func IsConfirmedNegative(err error) bool {
	return errors.Is(err, ErrPriceNotFound)
}

var (
	// ErrPriceNotFound matches every NotFoundError.
	ErrPriceNotFound = errors.New("price not found")

	// ErrRenderUnavailable is returned when a page needs rendering and the
	// render path is missing or failed to execute. Never cached.
	ErrRenderUnavailable = errors.New("render escalation unavailable")

	// ErrRateUnavailable is returned when no exchange rate could be obtained
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrCardDatabaseUnavailable is the one fatal condition surfaced to callers
	ErrCardDatabaseUnavailable = errors.New("card database unavailable")

	// ErrBatchActive is returned when a batch is started while another one runs
	ErrBatchActive = errors.New("a batch run is already active")
)
