// Package settings holds the operator-adjustable cache lifetimes.
package settings

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"commander_go/internal/domain"
)

const (
	KeyPriceCacheHours          = "price_cache_hours"
	KeyExchangeRateCacheMinutes = "exchange_rate_cache_minutes"

	DefaultPriceCacheHours          = 12
	DefaultExchangeRateCacheMinutes = 10

	MinPriceCacheHours          = 1
	MaxPriceCacheHours          = 168
	MinExchangeRateCacheMinutes = 1
	MaxExchangeRateCacheMinutes = 1440
)

// Store is the flat key/value persistence the manager writes through to
type Store interface {
	SaveConfig(key, value string) error
	LoadConfigMap() (map[string]string, error)
}

// Manager implements domain.TTLProvider. Reads always see the latest Update.
type Manager struct {
	mu          sync.RWMutex
	store       Store
	priceHours  int
	rateMinutes int
}

var _ domain.TTLProvider = (*Manager)(nil)

// NewManager loads persisted values from store. A nil store keeps the
// settings in memory only. Load problems never fail startup.
func NewManager(store Store) *Manager {
	m := &Manager{
		store:       store,
		priceHours:  DefaultPriceCacheHours,
		rateMinutes: DefaultExchangeRateCacheMinutes,
	}
	if store == nil {
		return m
	}

	values, err := store.LoadConfigMap()
	if err != nil {
		slog.Warn("Failed to load settings, using defaults", slog.Any("error", err))
		return m
	}

	m.priceHours = parseBounded(values, KeyPriceCacheHours,
		MinPriceCacheHours, MaxPriceCacheHours, DefaultPriceCacheHours)
	m.rateMinutes = parseBounded(values, KeyExchangeRateCacheMinutes,
		MinExchangeRateCacheMinutes, MaxExchangeRateCacheMinutes, DefaultExchangeRateCacheMinutes)
	return m
}

func parseBounded(values map[string]string, key string, lo, hi, def int) int {
	raw, ok := values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		slog.Warn("Invalid persisted setting, using default",
			slog.String("key", key), slog.String("value", raw), slog.Int("default", def))
		return def
	}
	return n
}

// PriceTTL returns the lifetime of per-card price entries
func (m *Manager) PriceTTL() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Duration(m.priceHours) * time.Hour
}

// ExchangeRateTTL returns the lifetime of the cached exchange rate
func (m *Manager) ExchangeRateTTL() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Duration(m.rateMinutes) * time.Minute
}

func (m *Manager) PriceCacheHours() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.priceHours
}

func (m *Manager) ExchangeRateCacheMinutes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rateMinutes
}

// Update validates both values and persists them. Nothing changes when
// either value is out of bounds.
func (m *Manager) Update(priceHours, rateMinutes int) error {
	if priceHours < MinPriceCacheHours || priceHours > MaxPriceCacheHours {
		return &domain.ConfigError{
			Field: KeyPriceCacheHours,
			Err:   fmt.Errorf("must be between %d and %d, got %d", MinPriceCacheHours, MaxPriceCacheHours, priceHours),
		}
	}
	if rateMinutes < MinExchangeRateCacheMinutes || rateMinutes > MaxExchangeRateCacheMinutes {
		return &domain.ConfigError{
			Field: KeyExchangeRateCacheMinutes,
			Err:   fmt.Errorf("must be between %d and %d, got %d", MinExchangeRateCacheMinutes, MaxExchangeRateCacheMinutes, rateMinutes),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveConfig(KeyPriceCacheHours, strconv.Itoa(priceHours)); err != nil {
			return fmt.Errorf("failed to save %s: %w", KeyPriceCacheHours, err)
		}
		if err := m.store.SaveConfig(KeyExchangeRateCacheMinutes, strconv.Itoa(rateMinutes)); err != nil {
			return fmt.Errorf("failed to save %s: %w", KeyExchangeRateCacheMinutes, err)
		}
	}

	m.priceHours = priceHours
	m.rateMinutes = rateMinutes
	slog.Info("Cache settings updated",
		slog.Int(KeyPriceCacheHours, priceHours), slog.Int(KeyExchangeRateCacheMinutes, rateMinutes))
	return nil
}
