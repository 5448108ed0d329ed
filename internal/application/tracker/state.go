package tracker

import (
	"fmt"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/adelgado/qlines/internal/ports"
)

// Thresholds define las ventanas de captura. Son política configurable: los
// cuartos duran 5 minutos y las ventanas son angostas, así que se captura
// apenas el evento ENTRA en la ventana en vez de esperar el cero exacto,
// para tolerar el jitter del poll.
type Thresholds struct {
	QuarterLength int // segundos por cuarto (300)
	OpenerWindow  int // opener: remaining ≥ QuarterLength − OpenerWindow en Q1
	QuarterEnd    int // cierre de cuarto: remaining ≤ QuarterEnd
}

// trackedEvent es el registro en memoria de un evento en seguimiento.
// El estado solo avanza: lo hace el loop después de que el capture engine
// confirma durabilidad, nunca el tracker por su cuenta.
type trackedEvent struct {
	id        int64
	league    string
	home      string
	away      string
	status    domain.Status
	quarter   int
	remaining int
	clockTick bool
	homeScore int
	awayScore int
	spread    *float64 // última línea vista, solo para la vista del operador
	total     *float64
	startTime time.Time
	lastPoll  time.Time
}

// StateTracker es el dueño del estado de ciclo de vida por evento. Es
// stateless-por-poll en la evaluación: re-propone la misma captura en polls
// consecutivos dentro de una ventana y deja la deduplicación a la clave
// natural del store.
type StateTracker struct {
	th     Thresholds
	events map[int64]*trackedEvent
}

// NewStateTracker crea un tracker vacío con los umbrales dados.
func NewStateTracker(th Thresholds) *StateTracker {
	return &StateTracker{th: th, events: make(map[int64]*trackedEvent)}
}

// Observe incorpora un snapshot. Devuelve el registro, si es la primera vez
// que vemos el evento, y si el reloj upstream retrocedió (anomalía: el evento
// se mantiene en su último estado válido, el ciclo de vida es monotónico).
func (t *StateTracker) Observe(snap domain.Snapshot) (ev *trackedEvent, first, regressed bool) {
	ev, ok := t.events[snap.EventID]
	if !ok {
		// Primer avistamiento: inferir el estado del reloj actual. Si ya
		// pasó una ventana (reinicio a mitad de partido), esa captura se
		// perdió para siempre; no se retro-captura con datos presentes.
		ev = &trackedEvent{
			id:        snap.EventID,
			league:    snap.League,
			home:      snap.HomeName,
			away:      snap.AwayName,
			status:    t.inferStatus(snap.Quarter, snap.Remaining),
			startTime: snap.At,
		}
		t.events[snap.EventID] = ev
		ev.applyClock(snap)
		return ev, true, false
	}

	if snap.Quarter < ev.quarter {
		return ev, false, true
	}

	ev.applyClock(snap)

	// Fast-forward: si el reloj implica un estado posterior al actual es que
	// una ventana pasó sin captura posible (p.ej. sin líneas en el feed).
	// Avanzar sin capturar; la ventana perdida queda perdida.
	if inferred := t.inferStatus(snap.Quarter, snap.Remaining); ev.status.Before(inferred) && !ev.status.Terminal() {
		ev.status = inferred
	}
	return ev, false, false
}

func (e *trackedEvent) applyClock(snap domain.Snapshot) {
	e.quarter = snap.Quarter
	e.remaining = snap.Remaining
	e.clockTick = snap.ClockTick
	e.homeScore = snap.HomeScore
	e.awayScore = snap.AwayScore
	e.lastPoll = snap.At
	if l, ok := snap.Line(domain.MarketSpread); ok {
		v := l.Value
		e.spread = &v
	}
	if l, ok := snap.Line(domain.MarketTotal); ok {
		v := l.Value
		e.total = &v
	}
}

// inferStatus deduce el estado de ciclo de vida que corresponde al reloj
// actual, sin pasar por encima de ventanas todavía abiertas.
func (t *StateTracker) inferStatus(quarter, remaining int) domain.Status {
	if quarter <= 1 {
		if remaining >= t.th.QuarterLength-t.th.OpenerWindow {
			return domain.StatusLivePregame // ventana de opener aún abierta
		}
		return domain.StatusLiveQ1
	}
	return domain.StatusForQuarter(quarter)
}

// dueCapture computa la captura pendiente del evento según su estado y el
// snapshot del poll actual. Cero o una por evento por ciclo.
func (t *StateTracker) dueCapture(ev *trackedEvent, snap domain.Snapshot) (domain.CaptureKind, int, bool) {
	switch ev.status {
	case domain.StatusScheduled, domain.StatusLivePregame:
		if snap.Quarter == 1 && snap.Remaining >= t.th.QuarterLength-t.th.OpenerWindow {
			return domain.CaptureOpener, 0, true
		}

	case domain.StatusLiveQ1, domain.StatusLiveQ2, domain.StatusLiveQ3:
		k := int(ev.status-domain.StatusLiveQ1) + 1
		if snap.Quarter != k {
			break
		}
		// remaining == 0 captura incluso con reloj pausado: el cuarto
		// definitivamente terminó.
		if snap.Remaining == 0 || (snap.Remaining <= t.th.QuarterEnd && snap.ClockTick) {
			return domain.CaptureQuarter, k, true
		}

	case domain.StatusLiveQ4:
		ended := snap.IsFinal || (snap.Quarter >= 4 && snap.Remaining == 0)
		if ended && snap.HomeScore+snap.AwayScore > 0 {
			return domain.CaptureFinal, 0, true
		}
	}
	return "", 0, false
}

// advance mueve el evento al estado dado. Regresar es error: el ciclo de
// vida es monotónico.
func (t *StateTracker) advance(eventID int64, to domain.Status) error {
	ev, ok := t.events[eventID]
	if !ok {
		return fmt.Errorf("tracker.advance: unknown event %d", eventID)
	}
	if to.Before(ev.status) {
		return fmt.Errorf("tracker.advance: event %d: %s -> %s would regress", eventID, ev.status, to)
	}
	ev.status = to
	return nil
}

// drop olvida un evento terminal (o zombi); la historia queda en el store.
func (t *StateTracker) drop(eventID int64) {
	delete(t.events, eventID)
}

// pruneStale descarta registros que el feed dejó de reportar hace más de
// maxAge sin llegar a terminal. El chequeo de finales estancados del store
// es quien los sigue de ahí en más.
func (t *StateTracker) pruneStale(now time.Time, maxAge time.Duration) []int64 {
	var dropped []int64
	for id, ev := range t.events {
		if now.Sub(ev.lastPoll) > maxAge {
			dropped = append(dropped, id)
			delete(t.events, id)
		}
	}
	return dropped
}

// clocks exporta el estado mínimo que necesita el controller de intervalos.
func (t *StateTracker) clocks() []EventClock {
	out := make([]EventClock, 0, len(t.events))
	for _, ev := range t.events {
		out = append(out, EventClock{
			Status:    ev.status,
			Quarter:   ev.quarter,
			Remaining: ev.remaining,
			ClockTick: ev.clockTick,
			StartTime: ev.startTime,
			LastPoll:  ev.lastPoll,
		})
	}
	return out
}

// views arma la vista por evento para el notifier.
func (t *StateTracker) views(p IntervalPolicy, now time.Time) []ports.TrackedView {
	out := make([]ports.TrackedView, 0, len(t.events))
	for _, ev := range t.events {
		v := ports.TrackedView{
			EventID:   ev.id,
			HomeName:  ev.home,
			AwayName:  ev.away,
			Status:    ev.status,
			Quarter:   ev.quarter,
			Remaining: ev.remaining,
			HomeScore: ev.homeScore,
			AwayScore: ev.awayScore,
			Spread:    ev.spread,
			Total:     ev.total,
		}
		if secs, ok := p.secondsToWindow(EventClock{
			Status: ev.status, Quarter: ev.quarter, Remaining: ev.remaining,
			ClockTick: ev.clockTick, StartTime: ev.startTime, LastPoll: ev.lastPoll,
		}, now); ok {
			v.NextWindow = int(secs)
		}
		out = append(out, v)
	}
	return out
}

func (t *StateTracker) size() int { return len(t.events) }
