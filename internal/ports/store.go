package ports

import (
	"context"
	"time"

	"github.com/adelgado/qlines/internal/domain"
)

// Store es el contrato de persistencia del scheduler. Todas las escrituras de
// líneas son insert-if-absent sobre la clave natural: el booleano devuelto
// indica si la fila se creó ahora (false = ya existía, que es éxito).
// La atomicidad del insert es del store, no del llamador.
type Store interface {
	// UpsertEvent siembra o refresca metadatos desde el roster. Nunca pisa
	// un status que el tracker ya avanzó más allá de scheduled, y nunca
	// escribe marcadores finales.
	UpsertEvent(ctx context.Context, f domain.Fixture) error

	// EnsureEvent crea el registro si no existe (primer avistamiento por el
	// feed live, p.ej. tras un reinicio a mitad de partido). No-op si existe.
	EnsureEvent(ctx context.Context, e domain.Event) error

	// UpdateStatus persiste una transición de ciclo de vida.
	UpdateStatus(ctx context.Context, eventID int64, s domain.Status) error

	// SetFinals graba los marcadores finales y marca el evento como final.
	SetFinals(ctx context.Context, eventID int64, home, away int) error

	// InsertOpener inserta la línea de apertura. Clave: (event, book, market).
	InsertOpener(ctx context.Context, c domain.Capture) (created bool, err error)

	// InsertQuarterLine inserta una línea de cierre de cuarto.
	// Clave: (event, book, market, quarter); quarter ∈ {1,2,3}.
	InsertQuarterLine(ctx context.Context, c domain.Capture) (created bool, err error)

	// InsertResult inserta la fila derivada. Clave: event_id.
	InsertResult(ctx context.Context, r domain.Result) (created bool, err error)

	// CapturedLines devuelve todas las líneas registradas de un evento,
	// para la compilación del resultado.
	CapturedLines(ctx context.Context, eventID int64) (domain.LineSet, error)

	// StalledLive devuelve eventos aún live cuyo inicio es anterior a before
	// y sin finales: candidatos a consultar el endpoint de resultados.
	StalledLive(ctx context.Context, before time.Time) ([]domain.Event, error)

	// RecordAnomaly registra (o refresca last_seen de) una anomalía.
	RecordAnomaly(ctx context.Context, a domain.Anomaly) error

	// AccuracySummary agrega los resultados para el reporte de consola.
	AccuracySummary(ctx context.Context) (domain.AccuracySummary, error)

	Close() error
}
