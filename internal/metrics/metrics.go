// Package metrics exposes the client's Prometheus instruments.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple controllers never
// collide on the default one. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	sessions      *prometheus.CounterVec
	answers       *prometheus.CounterVec
	activeSession prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		apiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viva_api_requests_total",
				Help: "Total number of backend requests",
			},
			[]string{"call", "outcome"},
		),
		apiDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viva_api_request_duration_seconds",
				Help:    "Time spent waiting on backend requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"call"},
		),
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viva_sessions_total",
				Help: "Sessions by terminal outcome",
			},
			[]string{"outcome"},
		),
		answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viva_answers_total",
				Help: "Recorded answers by classification and capture mode",
			},
			[]string{"classification", "mode"},
		),
		activeSession: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "viva_session_active",
				Help: "1 while a session is between welcome and summary",
			},
		),
	}
}

// ObserveRequest records one backend call. outcome is "ok" or an error kind.
func (m *Metrics) ObserveRequest(call string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(call, outcome).Inc()
	m.apiDuration.WithLabelValues(call).Observe(elapsed.Seconds())
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSession.Set(1)
}

// SessionEnded records a terminal outcome: completed, aborted or cancelled.
func (m *Metrics) SessionEnded(outcome string) {
	if m == nil {
		return
	}
	m.activeSession.Set(0)
	m.sessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AnswerRecorded(classification string, mode string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(classification, mode).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on listen until ctx is cancelled.
func Serve(ctx context.Context, listen string, m *Metrics, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("metrics listener started", "addr", ln.Addr().String())
	}
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
