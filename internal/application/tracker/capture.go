package tracker

import (
	"context"
	"log/slog"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/adelgado/qlines/internal/ports"
)

// CaptureEngine persiste capturas pendientes. La idempotencia es del store
// (insert-if-absent sobre la clave natural): dos polls consecutivos dentro de
// la misma ventana producen una sola fila y el segundo reporta already-exists.
type CaptureEngine struct {
	store     ports.Store
	metrics   ports.Metrics
	bookmaker string
}

// NewCaptureEngine crea el engine para el bookmaker configurado.
func NewCaptureEngine(store ports.Store, metrics ports.Metrics, bookmaker string) *CaptureEngine {
	return &CaptureEngine{store: store, metrics: metrics, bookmaker: bookmaker}
}

// Capture persiste las líneas del snapshot para la ventana dada (opener o
// cierre de cuarto K). El outcome agregado decide si el tracker avanza:
//
//   - CaptureStored / CaptureExists — durable: avanzar.
//   - CaptureFailed — store caído o snapshot sin líneas: NO avanzar; la
//     transición se reintenta el próximo poll en vez de perderse en silencio.
func (e *CaptureEngine) Capture(ctx context.Context, kind domain.CaptureKind, quarter int, snap domain.Snapshot) domain.CaptureOutcome {
	if len(snap.Lines) == 0 {
		slog.Warn("capture window open but no lines in feed",
			"event", snap.EventID, "kind", kind, "quarter", quarter)
		return domain.CaptureFailed
	}

	outcome := domain.CaptureExists
	stored := false

	for _, line := range snap.Lines {
		line.Bookmaker = e.bookmaker
		cap := domain.Capture{
			EventID:   snap.EventID,
			Kind:      kind,
			Quarter:   quarter,
			Line:      line,
			Remaining: snap.Remaining,
			HomeScore: snap.HomeScore,
			AwayScore: snap.AwayScore,
			At:        snap.At,
		}

		created, err := e.insert(ctx, kind, cap)
		if err != nil {
			slog.Error("capture write failed",
				"event", snap.EventID, "kind", kind, "market", line.Market, "err", err)
			e.metrics.CaptureAttempt(kind, line.Market, domain.CaptureFailed)
			return domain.CaptureFailed
		}

		res := domain.CaptureExists
		if created {
			res = domain.CaptureStored
			stored = true
			slog.Info("line captured",
				"event", snap.EventID, "kind", kind, "quarter", quarter,
				"market", line.Market, "line", line.Value, "remaining", snap.Remaining)
		}
		e.metrics.CaptureAttempt(kind, line.Market, res)
	}

	if stored {
		outcome = domain.CaptureStored
	}
	return outcome
}

func (e *CaptureEngine) insert(ctx context.Context, kind domain.CaptureKind, c domain.Capture) (bool, error) {
	if kind == domain.CaptureOpener {
		return e.store.InsertOpener(ctx, c)
	}
	return e.store.InsertQuarterLine(ctx, c)
}
