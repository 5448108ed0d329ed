// Package roster refresca periódicamente la lista de fixtures próximos y la
// siembra en el store. Corre como actividad independiente del tracker: lo
// único que comparten es el store, y el upsert de eventos garantiza que el
// roster nunca pise un estado que el tracker ya avanzó.
package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/adelgado/qlines/internal/ports"
)

// Refresher ejecuta el ciclo de refresco de fixtures.
type Refresher struct {
	source   ports.RosterSource
	store    ports.Store
	interval time.Duration
}

// New crea un Refresher con la cadencia dada.
func New(source ports.RosterSource, store ports.Store, interval time.Duration) *Refresher {
	return &Refresher{source: source, store: store, interval: interval}
}

// Run refresca el roster hasta que el contexto se cancele. Corre un refresco
// inicial inmediato para no esperar un tick entero al arrancar.
func (r *Refresher) Run(ctx context.Context) error {
	slog.Info("roster refresher starting", "interval", r.interval)

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("roster refresher stopped")
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh trae los fixtures y los upserta. Fixtures ya terminados no se
// siembran: un evento que nunca trackeamos en vivo no tiene nada que capturar.
func (r *Refresher) refresh(ctx context.Context) {
	fixtures, err := r.source.FetchUpcoming(ctx)
	if err != nil {
		slog.Warn("roster refresh failed", "err", err)
		return
	}

	seeded := 0
	for _, f := range fixtures {
		if f.Status == domain.RosterEnded {
			continue
		}
		if err := r.store.UpsertEvent(ctx, f); err != nil {
			slog.Warn("fixture upsert failed", "event", f.ID, "err", err)
			continue
		}
		seeded++
	}
	slog.Debug("roster refreshed", "fixtures", len(fixtures), "seeded", seeded)
}
