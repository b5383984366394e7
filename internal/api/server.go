// Package api exposes the resolver, the batch coordinator and the cache
// settings to external callers over HTTP, with batch events streamed on a
// websocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"commander_go/internal/domain"
	"commander_go/internal/engine"
	"commander_go/internal/event"
	"commander_go/internal/infra/settings"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Server is the HTTP bridge. Batch runs are started with the server's base
// context so they outlive the request that started them.
type Server struct {
	base     context.Context
	resolver engine.PriceResolver
	batches  *engine.Coordinator
	settings *settings.Manager
	poll     time.Duration
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewServer wires the routes. poll is the cadence at which the event stream
// drains a run's queue.
func NewServer(base context.Context, resolver engine.PriceResolver, batches *engine.Coordinator, s *settings.Manager, poll time.Duration) *Server {
	srv := &Server{
		base:     base,
		resolver: resolver,
		batches:  batches,
		settings: s,
		poll:     poll,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux: http.NewServeMux(),
	}

	srv.mux.HandleFunc("GET /price", srv.handlePrice)
	srv.mux.HandleFunc("POST /batch", srv.handleBatchStart)
	srv.mux.HandleFunc("POST /batch/stop", srv.handleBatchStop)
	srv.mux.HandleFunc("GET /batch/events", srv.handleBatchEvents)
	srv.mux.HandleFunc("GET /settings", srv.handleSettingsGet)
	srv.mux.HandleFunc("PUT /settings", srv.handleSettingsPut)
	return srv
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP bridge listening", slog.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("HTTP bridge shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	}
}

type priceResponse struct {
	Card  string             `json:"card"`
	Quote *domain.PriceQuote `json:"quote"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	card := strings.TrimSpace(r.URL.Query().Get("card"))
	if card == "" {
		writeError(w, http.StatusBadRequest, "missing card parameter")
		return
	}

	quote, ok := s.resolver.Resolve(r.Context(), card)
	if !ok {
		writeJSON(w, http.StatusNotFound, priceResponse{Card: card})
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Card: card, Quote: &quote})
}

type batchResponse struct {
	ID    string `json:"id"`
	Cards int    `json:"cards"`
}

func (s *Server) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	var cards []string
	if err := json.NewDecoder(r.Body).Decode(&cards); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON array of card names")
		return
	}

	run, err := s.batches.Start(s.base, cards)
	if errors.Is(err, domain.ErrBatchActive) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, batchResponse{ID: run.ID, Cards: run.Len()})
}

func (s *Server) handleBatchStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": s.batches.Stop()})
}

// handleBatchEvents streams the latest run's events until its terminal
// event. The run queue has a single consumer, so one subscriber per run.
func (s *Server) handleBatchEvents(w http.ResponseWriter, r *http.Request) {
	run := s.batches.Latest()
	if run == nil {
		writeError(w, http.StatusNotFound, "no batch run")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.base)
	defer cancel()

	// Reads only detect the peer going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeErr error
	err = run.Pump(ctx, s.poll, func(ev event.Event) {
		if writeErr != nil {
			return
		}
		data, err := event.Marshal(ev)
		if err != nil {
			writeErr = err
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			writeErr = err
			cancel()
		}
	})
	if writeErr != nil {
		slog.Warn("Event stream closed", slog.String("run", run.ID), slog.Any("error", writeErr))
		return
	}
	if err != nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
}

type settingsBody struct {
	PriceCacheHours          int `json:"price_cache_hours"`
	ExchangeRateCacheMinutes int `json:"exchange_rate_cache_minutes"`
}

func (s *Server) currentSettings() settingsBody {
	return settingsBody{
		PriceCacheHours:          s.settings.PriceCacheHours(),
		ExchangeRateCacheMinutes: s.settings.ExchangeRateCacheMinutes(),
	}
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentSettings())
}

func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	body := s.currentSettings()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body")
		return
	}

	if err := s.settings.Update(body.PriceCacheHours, body.ExchangeRateCacheMinutes); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.currentSettings())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
