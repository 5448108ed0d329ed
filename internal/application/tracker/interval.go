package tracker

import (
	"math"
	"time"

	"github.com/adelgado/qlines/internal/domain"
)

// EventClock es el estado mínimo de un evento que necesita el controller:
// estado de ciclo de vida más el último reloj de juego conocido.
type EventClock struct {
	Status    domain.Status
	Quarter   int
	Remaining int
	ClockTick bool
	StartTime time.Time
	LastPoll  time.Time
}

// IntervalPolicy computa el delay hasta el próximo poll. Es una función pura
// del snapshot de eventos trackeados: no muta estado.
type IntervalPolicy struct {
	Thresholds
	Idle time.Duration // sin eventos live: poll lento para descubrir partidos
}

// Escalera de intervalos: el mínimo tiempo-a-ventana entre todos los eventos
// elige el escalón. Empates rompen hacia el intervalo menor (conservador):
// nunca dormimos más que el deadline más apretado.
func stepInterval(secondsToWindow float64) time.Duration {
	switch {
	case secondsToWindow <= 5:
		return 1 * time.Second
	case secondsToWindow <= 10:
		return 2 * time.Second
	case secondsToWindow <= 20:
		return 3 * time.Second
	case secondsToWindow <= 30:
		return 5 * time.Second
	default:
		return 15 * time.Second
	}
}

// Next devuelve el delay antes del próximo poll dado el conjunto de eventos
// trackeados. Sin eventos no terminales devuelve Idle.
func (p IntervalPolicy) Next(clocks []EventClock, now time.Time) time.Duration {
	tightest := math.Inf(1)
	for _, c := range clocks {
		if secs, ok := p.secondsToWindow(c, now); ok && secs < tightest {
			tightest = secs
		}
	}
	if math.IsInf(tightest, 1) {
		return p.Idle
	}
	return stepInterval(tightest)
}

// secondsToWindow estima cuántos segundos faltan para la próxima ventana de
// captura del evento. El reloj de juego corre en tiempo real durante el
// juego, así que se extrapola linealmente desde el último poll.
func (p IntervalPolicy) secondsToWindow(c EventClock, now time.Time) (float64, bool) {
	switch c.Status {
	case domain.StatusScheduled, domain.StatusLivePregame:
		if c.Status == domain.StatusLivePregame && c.Quarter == 1 {
			// ya en juego: la ventana de opener está abierta o pasando
			return 0, true
		}
		if c.StartTime.IsZero() {
			return 0, true
		}
		return math.Max(0, c.StartTime.Sub(now).Seconds()), true

	case domain.StatusLiveQ1, domain.StatusLiveQ2, domain.StatusLiveQ3:
		rem := p.extrapolate(c, now)
		return math.Max(0, rem-float64(p.QuarterEnd)), true

	case domain.StatusLiveQ4:
		// la "ventana" final es remaining == 0
		return p.extrapolate(c, now), true

	default: // final / archived: sin ventanas
		return 0, false
	}
}

// extrapolate proyecta el remaining del último poll al instante actual.
// Con el reloj pausado el valor no decae.
func (p IntervalPolicy) extrapolate(c EventClock, now time.Time) float64 {
	rem := float64(c.Remaining)
	if c.ClockTick && !c.LastPoll.IsZero() {
		rem -= now.Sub(c.LastPoll).Seconds()
	}
	return math.Max(0, rem)
}
