package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/adelgado/qlines/internal/ports"
)

// ResultCompiler computa la fila derivada línea-vs-final cuando un evento
// alcanza su marcador final. Tolera datos parciales: deltas de capturas que
// nunca se registraron quedan en null.
type ResultCompiler struct {
	store   ports.Store
	metrics ports.Metrics
}

// NewResultCompiler crea el compiler sobre el store dado.
func NewResultCompiler(store ports.Store, metrics ports.Metrics) *ResultCompiler {
	return &ResultCompiler{store: store, metrics: metrics}
}

// Compile lee las líneas capturadas, computa los deltas y flags, inserta la
// fila (idempotente por event_id) y fija los finales en el evento. Si algo
// falla el llamador no avanza el estado y el camino se reintenta.
//
// El orden importa: la fila derivada primero. Si SetFinals falla después, el
// evento sigue sin finales y el chequeo de estancados vuelve a pasar por acá;
// el insert reporta already-exists y solo se repite SetFinals.
func (rc *ResultCompiler) Compile(ctx context.Context, eventID int64, finalHome, finalAway int) error {
	lines, err := rc.store.CapturedLines(ctx, eventID)
	if err != nil {
		return fmt.Errorf("results.Compile: %w", err)
	}

	r := domain.CompileResult(eventID, finalHome, finalAway, lines)

	created, err := rc.store.InsertResult(ctx, r)
	if err != nil {
		return fmt.Errorf("results.Compile: %w", err)
	}
	if err := rc.store.SetFinals(ctx, eventID, finalHome, finalAway); err != nil {
		return fmt.Errorf("results.Compile: %w", err)
	}

	if created {
		rc.metrics.ResultCompiled()
		slog.Info("result compiled",
			"event", eventID,
			"final", fmt.Sprintf("%d-%d", finalHome, finalAway),
			"spread_delta", deref(r.SpreadDelta),
			"total_delta", deref(r.TotalDelta))
	}
	return nil
}

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
