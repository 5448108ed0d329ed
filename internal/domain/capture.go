package domain

import (
	"errors"
	"time"
)

// CaptureKind distingue los tres momentos de captura del ciclo de vida.
type CaptureKind string

const (
	CaptureOpener  CaptureKind = "opener"
	CaptureQuarter CaptureKind = "quarter"
	CaptureFinal   CaptureKind = "final"
)

// Capture es una petición de persistir una línea en una ventana de captura.
// La clave natural (event, bookmaker, market [, quarter]) garantiza la
// idempotencia en el store, no el llamador.
type Capture struct {
	EventID   int64
	Kind      CaptureKind
	Quarter   int // 1–3, solo para Kind == CaptureQuarter
	Line      Line
	Remaining int // segundos restantes al momento de la captura
	HomeScore int
	AwayScore int
	At        time.Time
}

// CaptureOutcome es el resultado de un intento de captura.
type CaptureOutcome int

const (
	// CaptureStored: la fila se insertó ahora.
	CaptureStored CaptureOutcome = iota
	// CaptureExists: la clave ya existía — éxito por diseño, no error.
	CaptureExists
	// CaptureFailed: el store no confirmó la escritura; reintentar el
	// próximo ciclo sin avanzar el estado del evento.
	CaptureFailed
)

func (o CaptureOutcome) String() string {
	switch o {
	case CaptureStored:
		return "stored"
	case CaptureExists:
		return "exists"
	default:
		return "failed"
	}
}

// Errores de la taxonomía del loop. Ninguno es fatal: un poll fallido
// significa "sin transiciones este ciclo" y el estado queda intacto.
var (
	ErrSourceUnavailable = errors.New("snapshot source unavailable")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// AnomalyKind clasifica las anomalías que se reportan pero nunca se auto-reparan.
type AnomalyKind string

const (
	// AnomalyClockRegression: el upstream reportó un cuarto/tiempo que
	// retrocede; el evento se mantiene en su último estado válido.
	AnomalyClockRegression AnomalyKind = "clock_regression"
	// AnomalyStalledFinal: el evento lleva demasiado en live_q4 sin
	// marcadores finales (partido abandonado o feed muerto).
	AnomalyStalledFinal AnomalyKind = "stalled_final"
)

// Anomaly es un registro persistente para visibilidad del operador.
type Anomaly struct {
	ID        string
	EventID   int64
	Kind      AnomalyKind
	Detail    string
	FirstSeen time.Time
	LastSeen  time.Time
}
