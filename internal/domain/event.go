package domain

import (
	"fmt"
	"time"
)

// Status es el estado de ciclo de vida de un evento. El orden es monotónico:
// un evento nunca vuelve a un estado anterior una vez avanzado.
type Status int

const (
	StatusScheduled Status = iota
	StatusLivePregame
	StatusLiveQ1
	StatusLiveQ2
	StatusLiveQ3
	StatusLiveQ4
	StatusFinal
	StatusArchived
)

var statusNames = map[Status]string{
	StatusScheduled:   "scheduled",
	StatusLivePregame: "live_pregame",
	StatusLiveQ1:      "live_q1",
	StatusLiveQ2:      "live_q2",
	StatusLiveQ3:      "live_q3",
	StatusLiveQ4:      "live_q4",
	StatusFinal:       "final",
	StatusArchived:    "archived",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus convierte el valor persistido de vuelta a Status.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusScheduled, fmt.Errorf("domain.ParseStatus: unknown status %q", s)
}

// Before informa si s es estrictamente anterior a other en el ciclo de vida.
func (s Status) Before(other Status) bool { return s < other }

// Live informa si el evento está en juego (pregame incluido).
func (s Status) Live() bool { return s >= StatusLivePregame && s <= StatusLiveQ4 }

// Terminal informa si no quedan capturas posibles para el evento.
func (s Status) Terminal() bool { return s >= StatusFinal }

// StatusForQuarter devuelve el estado live correspondiente a un número de cuarto.
// Cuartos fuera de 1–4 (p.ej. overtime Q5) se tratan como Q4.
func StatusForQuarter(q int) Status {
	switch {
	case q <= 1:
		return StatusLiveQ1
	case q >= 4:
		return StatusLiveQ4
	default:
		return StatusLiveQ1 + Status(q-1)
	}
}

// Event identifica un partido. Registro de archivo: nunca se borra.
type Event struct {
	ID        int64
	LeagueID  int64
	StartTime time.Time
	Status    Status
	HomeName  string
	AwayName  string
	FinalHome *int // nil hasta que el partido termina
	FinalAway *int
}

// HasFinals informa si ambos marcadores finales están presentes.
func (e Event) HasFinals() bool { return e.FinalHome != nil && e.FinalAway != nil }

// RosterStatus es el estado grueso que reporta el refresco de fixtures.
// Solo sirve para sembrar el tracking, nunca pisa un estado ya avanzado.
type RosterStatus string

const (
	RosterScheduled RosterStatus = "scheduled"
	RosterLive      RosterStatus = "live"
	RosterEnded     RosterStatus = "ended"
)

// Fixture son los metadatos de evento que entrega el refresco de roster.
type Fixture struct {
	ID        int64
	LeagueID  int64
	StartTime time.Time
	HomeName  string
	AwayName  string
	Status    RosterStatus
}
