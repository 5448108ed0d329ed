// Package metrics expone los contadores prometheus del scheduler.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracker implementa ports.Metrics sobre un registry propio.
type Tracker struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	captures     *prometheus.CounterVec
	anomalies    *prometheus.CounterVec
	results      prometheus.Counter
	tracked      prometheus.Gauge
	pollInterval prometheus.Gauge
}

// New crea el collector con todas las series registradas.
func New() *Tracker {
	registry := prometheus.NewRegistry()

	t := &Tracker{
		registry: registry,
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qlines_polls_total",
			Help: "Polls al feed inplay, por resultado.",
		}, []string{"outcome"}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qlines_captures_total",
			Help: "Intentos de captura, por tipo, mercado y resultado.",
		}, []string{"kind", "market", "outcome"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qlines_anomalies_total",
			Help: "Anomalías observadas, por tipo.",
		}, []string{"kind"}),
		results: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qlines_results_compiled_total",
			Help: "Filas de resultado compiladas.",
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qlines_tracked_events",
			Help: "Eventos actualmente en seguimiento.",
		}),
		pollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qlines_poll_interval_seconds",
			Help: "Intervalo adaptativo elegido para el próximo poll.",
		}),
	}

	registry.MustRegister(t.polls, t.captures, t.anomalies, t.results, t.tracked, t.pollInterval)
	return t
}

func (t *Tracker) PollCompleted(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	t.polls.WithLabelValues(outcome).Inc()
}

func (t *Tracker) CaptureAttempt(kind domain.CaptureKind, market domain.Market, outcome domain.CaptureOutcome) {
	t.captures.WithLabelValues(string(kind), string(market), outcome.String()).Inc()
}

func (t *Tracker) AnomalyObserved(kind domain.AnomalyKind) {
	t.anomalies.WithLabelValues(string(kind)).Inc()
}

func (t *Tracker) SetTracked(n int) { t.tracked.Set(float64(n)) }

func (t *Tracker) SetPollInterval(secs float64) { t.pollInterval.Set(secs) }

func (t *Tracker) ResultCompiled() { t.results.Inc() }

// Serve publica /metrics en la dirección dada hasta que el contexto muera.
func (t *Tracker) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("metrics server error", "err", err)
	}
}

// Nop implementa ports.Metrics sin hacer nada (tests, --once).
type Nop struct{}

func (Nop) PollCompleted(bool)                                                      {}
func (Nop) CaptureAttempt(domain.CaptureKind, domain.Market, domain.CaptureOutcome) {}
func (Nop) AnomalyObserved(domain.AnomalyKind)                                      {}
func (Nop) SetTracked(int)                                                          {}
func (Nop) SetPollInterval(float64)                                                 {}
func (Nop) ResultCompiled()                                                         {}
