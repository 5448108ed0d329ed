package ports

import (
	"context"

	"github.com/adelgado/qlines/internal/domain"
)

// SnapshotSource entrega, en cada poll, el estado actual de los eventos
// en juego con reloj de partido y líneas de mercado vigentes.
type SnapshotSource interface {
	// FetchInplay devuelve un snapshot por evento live de las ligas target.
	// Un error envuelve domain.ErrSourceUnavailable: el ciclo se salta sin
	// tocar el estado del tracker.
	FetchInplay(ctx context.Context) ([]domain.Snapshot, error)

	// FetchFinal consulta el endpoint de resultados para un evento cuyo
	// final nunca llegó por el feed live. (nil, nil) si aún no hay resultado.
	FetchFinal(ctx context.Context, eventID int64) (home, away *int, err error)
}

// RosterSource entrega los fixtures próximos que siembran la lista de
// eventos trackeados.
type RosterSource interface {
	FetchUpcoming(ctx context.Context) ([]domain.Fixture, error)
}
