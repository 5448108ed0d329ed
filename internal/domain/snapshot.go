package domain

import "time"

// Market es uno de los dos mercados que trackeamos.
type Market string

const (
	MarketSpread Market = "spread"
	MarketTotal  Market = "total"
)

// Line es una línea de mercado cotizada por un bookmaker en un instante dado.
// Los precios son opcionales: el feed inplay de algunos books no los expone.
type Line struct {
	Bookmaker string
	Market    Market
	Value     float64
	PriceHome *float64
	PriceAway *float64
}

// Snapshot es el estado de un evento tal como lo reporta el feed inplay en un
// poll. Los campos ausentes o malformados del feed llegan aquí ya coercionados:
// líneas que faltan simplemente no aparecen en Lines.
type Snapshot struct {
	EventID   int64
	League    string
	HomeName  string
	AwayName  string
	Quarter   int  // 1–4 (5+ = overtime, tratado como 4)
	Remaining int  // segundos restantes del cuarto actual
	ClockTick bool // true si el reloj de juego está corriendo
	HomeScore int
	AwayScore int
	IsFinal   bool // el upstream marcó el partido como terminado
	Lines     []Line
	At        time.Time
}

// Line devuelve la línea del mercado pedido, si el snapshot la trae.
func (s Snapshot) Line(m Market) (Line, bool) {
	for _, l := range s.Lines {
		if l.Market == m {
			return l, true
		}
	}
	return Line{}, false
}
