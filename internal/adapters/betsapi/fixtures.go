package betsapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/adelgado/qlines/internal/domain"
)

const (
	sportIDBasketball = 18
	maxUpcomingPages  = 5
)

// FetchUpcoming devuelve los fixtures prematch de las ligas target,
// deduplicados por FI. Pagina hasta maxUpcomingPages o hasta una página vacía.
func (c *Client) FetchUpcoming(ctx context.Context) ([]domain.Fixture, error) {
	var rows []upcomingEvent
	for page := 1; page <= maxUpcomingPages; page++ {
		params := url.Values{}
		params.Set("sport_id", strconv.Itoa(sportIDBasketball))
		params.Set("page", strconv.Itoa(page))

		raw, err := c.get(ctx, c.slowLimiter, "/v1/bet365/upcoming", params)
		if err != nil {
			return nil, sourceErr("FetchUpcoming", err)
		}

		var pageRows []upcomingEvent
		if err := json.Unmarshal(raw, &pageRows); err != nil {
			return nil, sourceErr("FetchUpcoming", err)
		}
		if len(pageRows) == 0 {
			break
		}
		rows = append(rows, pageRows...)
	}

	seen := make(map[int64]bool, len(rows))
	out := make([]domain.Fixture, 0, len(rows))
	for _, r := range rows {
		f, ok := c.normalizeFixture(r)
		if !ok || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		out = append(out, f)
	}
	return out, nil
}

// normalizeFixture valida y coerciona una fila prematch. Filas sin id o sin
// equipos se descartan; ligas fuera del target también.
func (c *Client) normalizeFixture(r upcomingEvent) (domain.Fixture, bool) {
	id, err := strconv.ParseInt(r.ID.String(), 10, 64)
	if err != nil || id == 0 {
		return domain.Fixture{}, false
	}
	home := namedField(r.Home)
	away := namedField(r.Away)
	if home == "" || away == "" {
		return domain.Fixture{}, false
	}
	if !c.leagueTargeted(toLowerTrim(namedField(r.League))) {
		return domain.Fixture{}, false
	}

	return domain.Fixture{
		ID:        id,
		LeagueID:  namedFieldID(r.League),
		StartTime: parseEpoch(r.Time.String()),
		HomeName:  home,
		AwayName:  away,
		Status:    rosterStatus(r.TimeStatus.String()),
	}, true
}

// FetchFinal consulta el endpoint de resultados por los marcadores finales de
// un evento que nunca los reportó por el feed live. (nil, nil) si no hay
// resultado todavía.
func (c *Client) FetchFinal(ctx context.Context, eventID int64) (*int, *int, error) {
	params := url.Values{}
	params.Set("event_id", strconv.FormatInt(eventID, 10))

	raw, err := c.get(ctx, c.slowLimiter, "/v1/bet365/result", params)
	if err != nil {
		return nil, nil, sourceErr("FetchFinal", err)
	}

	var rows []resultRow
	if err := json.Unmarshal(raw, &rows); err != nil || len(rows) == 0 {
		return nil, nil, nil
	}

	if h, a := parseScore(rows[0].SS.String()); h != 0 || a != 0 {
		return &h, &a, nil
	}

	// fallback: algunos resultados traen scores.ft_home / ft_away explícitos
	var scores struct {
		FTHome flexString `json:"ft_home"`
		FTAway flexString `json:"ft_away"`
	}
	if err := json.Unmarshal(rows[0].Scores, &scores); err == nil {
		h, a := scores.FTHome.Int(-1), scores.FTAway.Int(-1)
		if h >= 0 && a >= 0 {
			return &h, &a, nil
		}
	}
	return nil, nil, nil
}

// rosterStatus mapea time_status a estado grueso. Valores vacíos o
// desconocidos quedan en scheduled: marcar "ended" por error es peor.
func rosterStatus(ts string) domain.RosterStatus {
	switch ts {
	case "1":
		return domain.RosterLive
	case "3":
		return domain.RosterEnded
	default:
		return domain.RosterScheduled
	}
}

// parseEpoch acepta epoch en segundos o "YYYY-MM-DD HH:MM:SS" UTC.
func parseEpoch(s string) time.Time {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
