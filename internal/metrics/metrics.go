// Package metrics exposes ingestion and polling counters for the dashboard.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is a no-op then.
type Metrics struct {
	registry *prometheus.Registry

	LinesReceived prometheus.Counter
	Flushes       prometheus.Counter
	Reconnects    prometheus.Counter
	Connected     prometheus.Gauge
	Polls         prometheus.Counter
	PollErrors    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LinesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smcbot_telemetry_lines_received_total",
			Help: "Non-empty log lines received from the push channel.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smcbot_telemetry_flushes_total",
			Help: "Batches moved from the pending buffer into the console buffer.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smcbot_telemetry_reconnects_total",
			Help: "Reconnect attempts scheduled after a channel closure.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smcbot_telemetry_connected",
			Help: "1 while the push channel is connected.",
		}),
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smcbot_run_polls_total",
			Help: "Run status queries issued.",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smcbot_run_poll_errors_total",
			Help: "Run status queries that failed in transport.",
		}),
	}
	reg.MustRegister(m.LinesReceived, m.Flushes, m.Reconnects, m.Connected, m.Polls, m.PollErrors)
	return m
}

// LineReceived counts one received line.
func (m *Metrics) LineReceived() {
	if m != nil {
		m.LinesReceived.Inc()
	}
}

// Flushed counts one buffer mutation.
func (m *Metrics) Flushed() {
	if m != nil {
		m.Flushes.Inc()
	}
}

// ReconnectScheduled counts one scheduled reconnect attempt.
func (m *Metrics) ReconnectScheduled() {
	if m != nil {
		m.Reconnects.Inc()
	}
}

// SetConnected records the push connection state.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// Polled counts one status query and whether it failed in transport.
func (m *Metrics) Polled(err error) {
	if m == nil {
		return
	}
	m.Polls.Inc()
	if err != nil {
		m.PollErrors.Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
