package betsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adelgado/qlines/internal/domain"
)

// Límites de cordura para líneas extraídas del feed. Fuera de rango =
// handicap basura (placeholder "0", mercados de otro deporte mal etiquetados).
const (
	minSpread = 0.5
	maxSpread = 50
	minTotal  = 20
	maxTotal  = 300
)

// FetchInplay descarga el feed inplay completo y lo reduce a un snapshot por
// evento de las ligas target, con reloj, marcador y líneas vigentes.
func (c *Client) FetchInplay(ctx context.Context) ([]domain.Snapshot, error) {
	raw, err := c.get(ctx, c.inplayLimiter, "/v1/bet365/inplay", nil)
	if err != nil {
		return nil, sourceErr("FetchInplay", err)
	}
	return c.parseInplay(raw, time.Now().UTC()), nil
}

// parseInplay recorre el árbol CT/EV/MA/PA. Un CT fija la liga de los EV que
// siguen; los MA/PA se asocian al EV más reciente del mismo grupo. Nodos
// malformados se saltan: el feed trae de todo y un poll parcial es mejor que
// ninguno.
func (c *Client) parseInplay(raw json.RawMessage, now time.Time) []domain.Snapshot {
	var groups []json.RawMessage
	if err := json.Unmarshal(raw, &groups); err != nil {
		slog.Warn("inplay feed is not a list of groups", "err", err)
		return nil
	}

	// dedup por FI: el feed puede listar el mismo evento en varios grupos
	byFI := make(map[int64]*domain.Snapshot)
	var order []int64

	for _, g := range groups {
		var nodes []inplayNode
		if err := json.Unmarshal(g, &nodes); err != nil {
			continue
		}

		var league string
		var current *domain.Snapshot
		var marketOpen domain.Market
		var paSeen int

		for _, n := range nodes {
			switch n.Type {
			case "CT":
				league = toLowerTrim(n.NA.String())

			case "EV":
				current = nil
				marketOpen = ""
				if !c.leagueTargeted(league) {
					continue
				}
				snap, ok := parseEventNode(n, league, now)
				if !ok {
					continue
				}
				if existing, seen := byFI[snap.EventID]; seen {
					current = existing
					continue
				}
				byFI[snap.EventID] = &snap
				order = append(order, snap.EventID)
				current = byFI[snap.EventID]

			case "MA":
				marketOpen = classifyMarket(n.NA.String())
				paSeen = 0

			case "PA":
				if current == nil || marketOpen == "" {
					continue
				}
				paSeen++
				attachParticipant(current, marketOpen, n, paSeen)
			}
		}
	}

	out := make([]domain.Snapshot, 0, len(order))
	for _, fi := range order {
		out = append(out, *byFI[fi])
	}
	return out
}

// leagueTargeted aplica el filtro de ligas: los bloqueos ganan.
func (c *Client) leagueTargeted(league string) bool {
	if league == "" {
		return false
	}
	for _, b := range c.blockedLeagues {
		if strings.Contains(league, b) {
			return false
		}
	}
	for _, t := range c.targetLeagues {
		if strings.Contains(league, t) {
			return true
		}
	}
	return false
}

// parseEventNode coerciona un nodo EV al shape interno. TM/TS son tiempo
// RESTANTE del período, no transcurrido.
func parseEventNode(n inplayNode, league string, now time.Time) (domain.Snapshot, bool) {
	fi := firstNonZero(n.C2.String(), n.C3.String(), n.ID.String())
	if fi == "" {
		return domain.Snapshot{}, false
	}
	id, err := strconv.ParseInt(fi, 10, 64)
	if err != nil {
		return domain.Snapshot{}, false
	}

	name := strings.TrimSpace(n.NA.String())
	home, away := splitTeams(name)

	quarter := 1
	if cp := strings.TrimSpace(n.CP.String()); strings.HasPrefix(cp, "Q") {
		if q, err := strconv.Atoi(cp[1:]); err == nil {
			quarter = q
		}
	}

	hs, as := parseScore(n.SS.String())

	return domain.Snapshot{
		EventID:   id,
		League:    league,
		HomeName:  home,
		AwayName:  away,
		Quarter:   quarter,
		Remaining: n.TM.Int(0)*60 + n.TS.Int(0),
		ClockTick: n.TT.Int(0) == 1,
		HomeScore: hs,
		AwayScore: as,
		IsFinal:   n.TimeStatus.String() == "3",
		At:        now,
	}, true
}

// classifyMarket detecta los dos mercados que trackeamos por nombre de MA.
func classifyMarket(name string) domain.Market {
	lc := toLowerTrim(name)
	switch {
	case strings.Contains(lc, "spread") || strings.Contains(lc, "handicap"):
		return domain.MarketSpread
	case strings.Contains(lc, "total") || strings.Contains(lc, "o/u"):
		return domain.MarketTotal
	default:
		return ""
	}
}

// attachParticipant incorpora un PA a la línea del snapshot. El primer PA
// válido fija la línea; el segundo solo aporta su cuota.
func attachParticipant(snap *domain.Snapshot, market domain.Market, n inplayNode, ordinal int) {
	value, ok := parseHandicap(market, n.HA.String())
	price := parseFractionalOdds(n.OD.String())

	for i := range snap.Lines {
		if snap.Lines[i].Market != market {
			continue
		}
		// línea ya fijada por el primer participante: anotar precio away
		if ordinal > 1 && snap.Lines[i].PriceAway == nil {
			snap.Lines[i].PriceAway = price
		}
		return
	}

	if !ok {
		return
	}
	snap.Lines = append(snap.Lines, domain.Line{
		Market:    market,
		Value:     value,
		PriceHome: price,
	})
}

// parseHandicap coerciona el campo HA según el mercado: spreads llegan como
// "-4.5"/"+4.5" (guardamos magnitud, ajustada a medio punto), totales como
// "O 106.5"/"U106.5".
func parseHandicap(market domain.Market, ha string) (float64, bool) {
	s := strings.TrimSpace(ha)
	if s == "" || s == "0" {
		return 0, false
	}

	if market == domain.MarketTotal {
		s = strings.TrimLeft(s, "OUou ")
	}
	s = strings.ReplaceAll(s, "+", "")

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	v = math.Abs(v)

	switch market {
	case domain.MarketSpread:
		v = math.Round(v*2) / 2 // medio punto para closeness de margen
		if v < minSpread || v > maxSpread {
			return 0, false
		}
	case domain.MarketTotal:
		if v < minTotal || v > maxTotal {
			return 0, false
		}
	}
	return v, true
}

// parseFractionalOdds convierte una cuota "8/13" (o decimal "1.61") a decimal.
func parseFractionalOdds(od string) *float64 {
	s := strings.TrimSpace(od)
	if s == "" {
		return nil
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return nil
		}
		v := 1 + n/d
		return &v
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 1 {
		return nil
	}
	return &v
}

// splitTeams separa "Away Team @ Home Team" (convención del feed inplay).
func splitTeams(name string) (home, away string) {
	if a, h, ok := strings.Cut(name, " @ "); ok {
		return strings.TrimSpace(h), strings.TrimSpace(a)
	}
	return name, ""
}

func parseScore(ss string) (home, away int) {
	h, a, ok := strings.Cut(strings.TrimSpace(ss), "-")
	if !ok {
		return 0, 0
	}
	hn, err1 := strconv.Atoi(strings.TrimSpace(h))
	an, err2 := strconv.Atoi(strings.TrimSpace(a))
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return hn, an
}

func firstNonZero(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" && v != "0" {
			return v
		}
	}
	return ""
}
