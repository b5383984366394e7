package settings

import (
	"errors"
	"testing"
	"time"

	"commander_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	values  map[string]string
	loadErr error
	saveErr error
}

func newMemStore(values map[string]string) *memStore {
	if values == nil {
		values = map[string]string{}
	}
	return &memStore{values: values}
}

func (s *memStore) SaveConfig(key, value string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.values[key] = value
	return nil
}

func (s *memStore) LoadConfigMap() (map[string]string, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(nil)
	assert.Equal(t, 12*time.Hour, m.PriceTTL())
	assert.Equal(t, 10*time.Minute, m.ExchangeRateTTL())
}

func TestNewManager_LoadsPersisted(t *testing.T) {
	m := NewManager(newMemStore(map[string]string{
		KeyPriceCacheHours:          "24",
		KeyExchangeRateCacheMinutes: "30",
	}))
	assert.Equal(t, 24*time.Hour, m.PriceTTL())
	assert.Equal(t, 30*time.Minute, m.ExchangeRateTTL())
}

func TestNewManager_InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		hours string
		mins  string
	}{
		{"Not a number", "abc", "x"},
		{"Below bounds", "0", "0"},
		{"Above bounds", "169", "1441"},
		{"Negative", "-5", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(newMemStore(map[string]string{
				KeyPriceCacheHours:          tt.hours,
				KeyExchangeRateCacheMinutes: tt.mins,
			}))
			assert.Equal(t, DefaultPriceCacheHours, m.PriceCacheHours())
			assert.Equal(t, DefaultExchangeRateCacheMinutes, m.ExchangeRateCacheMinutes())
		})
	}
}

func TestNewManager_LoadErrorUsesDefaults(t *testing.T) {
	store := newMemStore(nil)
	store.loadErr = errors.New("disk on fire")

	m := NewManager(store)
	assert.Equal(t, 12*time.Hour, m.PriceTTL())
}

func TestUpdate(t *testing.T) {
	t.Run("Valid values persist and apply immediately", func(t *testing.T) {
		store := newMemStore(nil)
		m := NewManager(store)

		require.NoError(t, m.Update(1, 1440))
		assert.Equal(t, time.Hour, m.PriceTTL())
		assert.Equal(t, 24*time.Hour, m.ExchangeRateTTL())
		assert.Equal(t, "1", store.values[KeyPriceCacheHours])
		assert.Equal(t, "1440", store.values[KeyExchangeRateCacheMinutes])

		reloaded := NewManager(store)
		assert.Equal(t, time.Hour, reloaded.PriceTTL())
	})

	t.Run("Out of bounds rejected", func(t *testing.T) {
		m := NewManager(nil)

		err := m.Update(200, 10)
		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, KeyPriceCacheHours, cfgErr.Field)

		err = m.Update(12, 0)
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, KeyExchangeRateCacheMinutes, cfgErr.Field)

		assert.Equal(t, DefaultPriceCacheHours, m.PriceCacheHours())
	})

	t.Run("Save failure keeps old values", func(t *testing.T) {
		store := newMemStore(nil)
		m := NewManager(store)
		store.saveErr = errors.New("read-only")

		require.Error(t, m.Update(48, 60))
		assert.Equal(t, DefaultPriceCacheHours, m.PriceCacheHours())
	})
}
