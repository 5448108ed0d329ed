package ports

import (
	"context"

	"github.com/adelgado/qlines/internal/domain"
)

// TrackedView es la vista de un evento trackeado que se muestra por ciclo.
type TrackedView struct {
	EventID    int64
	HomeName   string
	AwayName   string
	Status     domain.Status
	Quarter    int
	Remaining  int
	HomeScore  int
	AwayScore  int
	Spread     *float64
	Total      *float64
	NextWindow int // segundos hasta la próxima ventana de captura
}

// Notifier recibe el estado de cada ciclo para visibilidad del operador.
type Notifier interface {
	Notify(ctx context.Context, views []TrackedView) error
}

// Metrics expone los contadores del scheduler sin acoplar la aplicación al
// backend concreto (prometheus en producción, nop en tests).
type Metrics interface {
	PollCompleted(ok bool)
	CaptureAttempt(kind domain.CaptureKind, market domain.Market, outcome domain.CaptureOutcome)
	AnomalyObserved(kind domain.AnomalyKind)
	SetTracked(n int)
	SetPollInterval(seconds float64)
	ResultCompiled()
}
