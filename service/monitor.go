// Package service exposes a small HTTP endpoint with health and prometheus
// metrics for the duration of a run. It is only started when a monitor
// address is configured; short one-shot runs normally do without it.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/pyshake/pyshake/metrics"
)

// Monitor serves /healthz and /metrics on a single address.
type Monitor struct {
	server *http.Server
	log    log.Logger
}

// NewMonitor creates a monitor bound to addr.
func NewMonitor(addr string, logger log.Logger) *Monitor {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})

	return &Monitor{
		server: &http.Server{
			Addr:    addr,
			Handler: c.Handler(mux),
		},
		log: logger,
	}
}

// Start serves in the background until Shutdown.
func (m *Monitor) Start() {
	m.log.Info("starting monitor server", "addr", m.server.Addr)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("error starting monitor server", "err", err)
			metrics.RecordErrorDetails("error starting monitor server", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.log.Info("monitor server shutting down")
	return m.server.Shutdown(ctx)
}
