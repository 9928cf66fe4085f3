// Package api provides the daemon's optional HTTP observability surface:
// a JSON snapshot of the last tick and the Prometheus metrics endpoint.
// The server is read-only; it observes the loop through an atomically
// swapped status pointer and never touches loop-owned state.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the last tick as seen by HTTP clients.
type Status struct {
	RunID           string    `json:"run_id"`
	Version         string    `json:"version"`
	Time            time.Time `json:"time"`
	Tick            uint64    `json:"tick"`
	PowerSource     string    `json:"power_source"`
	AvgUsage        *float64  `json:"avg_usage,omitempty"`
	MaxTempC        *float64  `json:"max_temp_c,omitempty"`
	BatteryPct      *float64  `json:"battery_pct,omitempty"`
	BatteryRateW    *float64  `json:"battery_rate_w,omitempty"`
	TurboEnabled    bool      `json:"turbo_enabled"`
	PollIntervalSec uint      `json:"poll_interval_sec"`
}

// Server serves /status and /metrics.
type Server struct {
	status atomic.Pointer[Status]
}

// NewServer creates an empty server; the loop publishes ticks with
// SetStatus.
func NewServer() *Server { return &Server{} }

// SetStatus atomically publishes the latest tick.
func (s *Server) SetStatus(st Status) { s.status.Store(&st) }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		st := s.status.Load()
		if st == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no tick recorded yet"})
			return
		}
		writeJSON(w, http.StatusOK, st)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Serve runs the HTTP server until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()
	log.Printf("[api] listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
