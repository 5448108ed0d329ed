package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/adelgado/qlines/internal/ports"
)

// staleAfter: un evento que el feed dejó de reportar hace tanto se descarta
// de memoria; el chequeo de estancados del store lo sigue desde ahí.
const staleAfter = 2 * time.Hour

// Config contiene la configuración del tracker.
type Config struct {
	Thresholds Thresholds
	Idle       time.Duration // intervalo sin eventos live
	FinalGrace time.Duration // espera antes de buscar finales por API
	Bookmaker  string
	Once       bool // un solo ciclo y salir
}

// Tracker es el loop de scheduling: un ciclo cooperativo de
// {poll → evaluar → despachar capturas → recomputar intervalo → dormir}.
// Nunca hay dos polls en vuelo: el ciclo siguiente ve todas las escrituras
// del anterior, y la cancelación solo corta entre ciclos, nunca entre la
// evaluación y el despacho.
type Tracker struct {
	cfg       Config
	source    ports.SnapshotSource
	store     ports.Store
	notifier  ports.Notifier
	metrics   ports.Metrics
	state     *StateTracker
	captures  *CaptureEngine
	results   *ResultCompiler
	intervals IntervalPolicy
}

// New crea un Tracker con todas las dependencias inyectadas.
func New(cfg Config, source ports.SnapshotSource, store ports.Store, notifier ports.Notifier, metrics ports.Metrics) *Tracker {
	return &Tracker{
		cfg:      cfg,
		source:   source,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		state:    NewStateTracker(cfg.Thresholds),
		captures: NewCaptureEngine(store, metrics, cfg.Bookmaker),
		results:  NewResultCompiler(store, metrics),
		intervals: IntervalPolicy{
			Thresholds: cfg.Thresholds,
			Idle:       cfg.Idle,
		},
	}
}

// Run ejecuta el loop hasta que el contexto se cancele.
// Si cfg.Once está activo, ejecuta un solo ciclo.
func (t *Tracker) Run(ctx context.Context) error {
	slog.Info("tracker starting",
		"quarter_len", t.cfg.Thresholds.QuarterLength,
		"opener_window", t.cfg.Thresholds.OpenerWindow,
		"quarter_end", t.cfg.Thresholds.QuarterEnd,
		"idle", t.cfg.Idle,
		"once", t.cfg.Once,
	)

	for {
		t.runCycle(ctx)
		if t.cfg.Once {
			return nil
		}

		delay := t.intervals.Next(t.state.clocks(), time.Now().UTC())
		t.metrics.SetPollInterval(delay.Seconds())
		slog.Debug("next poll", "in", delay, "tracked", t.state.size())

		select {
		case <-ctx.Done():
			slog.Info("tracker stopped")
			return nil
		case <-time.After(delay):
		}
	}
}

// runCycle ejecuta un ciclo completo. Ningún error es fatal: un poll fallido
// es "sin transiciones este ciclo" y el estado queda intacto para el retry.
func (t *Tracker) runCycle(ctx context.Context) {
	start := time.Now()

	snaps, err := t.source.FetchInplay(ctx)
	if err != nil {
		slog.Warn("poll failed, state unchanged", "err", err)
		t.metrics.PollCompleted(false)
		return
	}
	t.metrics.PollCompleted(true)

	captures := 0
	for _, snap := range snaps {
		if t.processSnapshot(ctx, snap) {
			captures++
		}
	}

	t.checkStalled(ctx)

	for _, id := range t.state.pruneStale(time.Now().UTC(), staleAfter) {
		slog.Warn("event vanished from feed, dropping from memory", "event", id)
	}
	t.metrics.SetTracked(t.state.size())

	if err := t.notifier.Notify(ctx, t.state.views(t.intervals, time.Now().UTC())); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Debug("cycle complete",
		"live", len(snaps),
		"captures", captures,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// processSnapshot evalúa un evento y despacha su captura pendiente, si hay.
// Devuelve true si hubo un despacho este ciclo.
func (t *Tracker) processSnapshot(ctx context.Context, snap domain.Snapshot) bool {
	ev, first, regressed := t.state.Observe(snap)

	if first {
		slog.Info("tracking event",
			"event", ev.id, "home", ev.home, "away", ev.away,
			"status", ev.status, "quarter", snap.Quarter, "remaining", snap.Remaining)
		if err := t.store.EnsureEvent(ctx, domain.Event{
			ID:        ev.id,
			StartTime: ev.startTime,
			Status:    ev.status,
			HomeName:  ev.home,
			AwayName:  ev.away,
		}); err != nil {
			slog.Warn("ensure event failed", "event", ev.id, "err", err)
		}
	}

	if regressed {
		t.recordAnomaly(ctx, ev.id, domain.AnomalyClockRegression,
			fmt.Sprintf("quarter went from %d back to %d", ev.quarter, snap.Quarter))
		return false
	}

	kind, quarter, due := t.state.dueCapture(ev, snap)
	if !due {
		return false
	}

	switch kind {
	case domain.CaptureOpener:
		if t.captures.Capture(ctx, kind, 0, snap) != domain.CaptureFailed {
			t.advance(ctx, ev.id, domain.StatusLiveQ1)
		}

	case domain.CaptureQuarter:
		if t.captures.Capture(ctx, kind, quarter, snap) != domain.CaptureFailed {
			t.advance(ctx, ev.id, domain.StatusForQuarter(quarter+1))
		}

	case domain.CaptureFinal:
		if err := t.results.Compile(ctx, ev.id, snap.HomeScore, snap.AwayScore); err != nil {
			slog.Error("final capture failed, will retry", "event", ev.id, "err", err)
			return true
		}
		// final → archived: la fila derivada ya está escrita
		t.advance(ctx, ev.id, domain.StatusArchived)
		t.state.drop(ev.id)
	}
	return true
}

// advance acopla el estado en memoria con el persistido. El avance en
// memoria solo ocurre después de que la captura fue confirmada durable.
func (t *Tracker) advance(ctx context.Context, eventID int64, to domain.Status) {
	if err := t.state.advance(eventID, to); err != nil {
		slog.Error("state advance rejected", "event", eventID, "err", err)
		return
	}
	slog.Info("event advanced", "event", eventID, "status", to)
	if err := t.store.UpdateStatus(ctx, eventID, to); err != nil {
		// no bloquea: el status persistido se re-escribe en la próxima transición
		slog.Warn("status persist failed", "event", eventID, "status", to, "err", err)
	}
}

// checkStalled busca finales por API para eventos que siguen live pasada la
// gracia (el feed a veces deja de reportar un partido antes de su final).
// Si el final nunca aparece, el evento queda estancado y se reporta como
// anomalía: visible para el operador, jamás auto-reparado.
func (t *Tracker) checkStalled(ctx context.Context) {
	if t.cfg.FinalGrace <= 0 {
		return
	}

	stalled, err := t.store.StalledLive(ctx, time.Now().UTC().Add(-t.cfg.FinalGrace))
	if err != nil {
		slog.Warn("stalled check failed", "err", err)
		return
	}

	for _, e := range stalled {
		home, away, err := t.source.FetchFinal(ctx, e.ID)
		if err != nil {
			slog.Warn("final lookup failed", "event", e.ID, "err", err)
			continue
		}
		if home == nil || away == nil {
			t.recordAnomaly(ctx, e.ID, domain.AnomalyStalledFinal,
				fmt.Sprintf("live since %s with no final score", e.StartTime.Format(time.RFC3339)))
			continue
		}

		slog.Info("recovered final via result endpoint",
			"event", e.ID, "final", fmt.Sprintf("%d-%d", *home, *away))
		if err := t.results.Compile(ctx, e.ID, *home, *away); err != nil {
			slog.Error("result compile failed, will retry", "event", e.ID, "err", err)
			continue
		}
		if err := t.store.UpdateStatus(ctx, e.ID, domain.StatusArchived); err != nil {
			slog.Warn("status persist failed", "event", e.ID, "err", err)
		}
		t.state.drop(e.ID)
	}
}

func (t *Tracker) recordAnomaly(ctx context.Context, eventID int64, kind domain.AnomalyKind, detail string) {
	now := time.Now().UTC()
	slog.Warn("anomaly observed", "event", eventID, "kind", kind, "detail", detail)
	t.metrics.AnomalyObserved(kind)
	if err := t.store.RecordAnomaly(ctx, domain.Anomaly{
		EventID:   eventID,
		Kind:      kind,
		Detail:    detail,
		FirstSeen: now,
		LastSeen:  now,
	}); err != nil {
		slog.Warn("anomaly persist failed", "event", eventID, "err", err)
	}
}
