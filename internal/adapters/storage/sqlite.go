package storage

// sqlite.go — persistencia del tracker.
//
// Estrategia:
//   - Las claves naturales hacen cumplir la no-duplicación: opener y
//     quarter_line usan INSERT ... ON CONFLICT DO NOTHING, y RowsAffected
//     distingue "insertado ahora" de "ya existía". Sin read-then-write.
//   - `event` es registro de archivo: se actualiza, nunca se borra.
//   - El upsert de roster solo puede tocar status mientras el evento sigue
//     en scheduled; los finales los escribe únicamente el tracker.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS event (
    event_id       INTEGER PRIMARY KEY,
    league_id      INTEGER NOT NULL DEFAULT 0,
    start_time_utc DATETIME,
    status         TEXT    NOT NULL,
    home_name      TEXT,
    away_name      TEXT,
    final_home     INTEGER,
    final_away     INTEGER
);

CREATE TABLE IF NOT EXISTS opener (
    event_id      INTEGER NOT NULL,
    bookmaker_id  TEXT    NOT NULL,
    market        TEXT    NOT NULL CHECK (market IN ('spread','total')),
    line          REAL    NOT NULL,
    price_home    REAL,
    price_away    REAL,
    opened_at_utc DATETIME NOT NULL,
    PRIMARY KEY (event_id, bookmaker_id, market)
);

CREATE TABLE IF NOT EXISTS quarter_line (
    event_id            INTEGER NOT NULL,
    bookmaker_id        TEXT    NOT NULL,
    market              TEXT    NOT NULL CHECK (market IN ('spread','total')),
    quarter             INTEGER NOT NULL CHECK (quarter BETWEEN 1 AND 3),
    line                REAL    NOT NULL,
    price_home          REAL,
    price_away          REAL,
    captured_at_utc     DATETIME NOT NULL,
    game_time_remaining INTEGER,
    home_score          INTEGER,
    away_score          INTEGER,
    PRIMARY KEY (event_id, bookmaker_id, market, quarter)
);

CREATE TABLE IF NOT EXISTS result (
    event_id        INTEGER PRIMARY KEY,
    spread_delta    REAL,
    total_delta     REAL,
    within2_spread  INTEGER NOT NULL DEFAULT 0,
    within3_spread  INTEGER NOT NULL DEFAULT 0,
    within4_spread  INTEGER NOT NULL DEFAULT 0,
    within5_spread  INTEGER NOT NULL DEFAULT 0,
    within2_total   INTEGER NOT NULL DEFAULT 0,
    within3_total   INTEGER NOT NULL DEFAULT 0,
    within4_total   INTEGER NOT NULL DEFAULT 0,
    within5_total   INTEGER NOT NULL DEFAULT 0,
    q1_spread_delta REAL,
    q2_spread_delta REAL,
    q3_spread_delta REAL,
    q1_total_delta  REAL,
    q2_total_delta  REAL,
    q3_total_delta  REAL,
    created_at_utc  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS anomaly (
    anomaly_id     TEXT PRIMARY KEY,
    event_id       INTEGER NOT NULL,
    kind           TEXT    NOT NULL,
    detail         TEXT,
    first_seen_utc DATETIME NOT NULL,
    last_seen_utc  DATETIME NOT NULL,
    UNIQUE (event_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_event_status ON event(status);
CREATE INDEX IF NOT EXISTS idx_event_start  ON event(start_time_utc);
`

// SQLiteStore implementa ports.Store usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// UpsertEvent siembra o refresca un evento desde el roster. El status solo
// avanza de scheduled hacia live_pregame: las transiciones en juego son del
// tracker y el roster nunca las pisa, tampoco escribe finales.
func (s *SQLiteStore) UpsertEvent(ctx context.Context, f domain.Fixture) error {
	status := domain.StatusScheduled
	if f.Status == domain.RosterLive {
		status = domain.StatusLivePregame
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event (event_id, league_id, start_time_utc, status, home_name, away_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			league_id      = excluded.league_id,
			start_time_utc = excluded.start_time_utc,
			home_name      = excluded.home_name,
			away_name      = excluded.away_name,
			status = CASE
				WHEN event.status = 'scheduled' THEN excluded.status
				ELSE event.status
			END
	`, f.ID, f.LeagueID, utc(f.StartTime), status.String(), f.HomeName, f.AwayName)
	if err != nil {
		return storeErr("UpsertEvent", err)
	}
	return nil
}

// EnsureEvent crea el registro si no existe. Cubre el primer avistamiento por
// el feed live (reinicio a mitad de partido): el roster nunca lo vio.
func (s *SQLiteStore) EnsureEvent(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event (event_id, league_id, start_time_utc, status, home_name, away_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`, e.ID, e.LeagueID, utc(e.StartTime), e.Status.String(), e.HomeName, e.AwayName)
	if err != nil {
		return storeErr("EnsureEvent", err)
	}
	return nil
}

// UpdateStatus persiste una transición del ciclo de vida.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, eventID int64, st domain.Status) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE event SET status = ? WHERE event_id = ?`, st.String(), eventID)
	if err != nil {
		return storeErr("UpdateStatus", err)
	}
	return nil
}

// SetFinals graba los marcadores finales y deja el evento en final.
func (s *SQLiteStore) SetFinals(ctx context.Context, eventID int64, home, away int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE event SET status = ?, final_home = ?, final_away = ?
		WHERE event_id = ?
	`, domain.StatusFinal.String(), home, away, eventID)
	if err != nil {
		return storeErr("SetFinals", err)
	}
	return nil
}

// InsertOpener inserta la línea de apertura, idempotente por clave natural.
func (s *SQLiteStore) InsertOpener(ctx context.Context, c domain.Capture) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO opener (event_id, bookmaker_id, market, line, price_home, price_away, opened_at_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id, bookmaker_id, market) DO NOTHING
	`, c.EventID, c.Line.Bookmaker, string(c.Line.Market), c.Line.Value,
		c.Line.PriceHome, c.Line.PriceAway, utc(c.At))
	if err != nil {
		return false, storeErr("InsertOpener", err)
	}
	return inserted(res), nil
}

// InsertQuarterLine inserta una línea de cierre de cuarto, idempotente.
func (s *SQLiteStore) InsertQuarterLine(ctx context.Context, c domain.Capture) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quarter_line
			(event_id, bookmaker_id, market, quarter, line, price_home, price_away,
			 captured_at_utc, game_time_remaining, home_score, away_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id, bookmaker_id, market, quarter) DO NOTHING
	`, c.EventID, c.Line.Bookmaker, string(c.Line.Market), c.Quarter, c.Line.Value,
		c.Line.PriceHome, c.Line.PriceAway, utc(c.At), c.Remaining, c.HomeScore, c.AwayScore)
	if err != nil {
		return false, storeErr("InsertQuarterLine", err)
	}
	return inserted(res), nil
}

// InsertResult inserta la fila derivada, idempotente por event_id.
func (s *SQLiteStore) InsertResult(ctx context.Context, r domain.Result) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO result
			(event_id, spread_delta, total_delta,
			 within2_spread, within3_spread, within4_spread, within5_spread,
			 within2_total, within3_total, within4_total, within5_total,
			 q1_spread_delta, q2_spread_delta, q3_spread_delta,
			 q1_total_delta, q2_total_delta, q3_total_delta,
			 created_at_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`, r.EventID, r.SpreadDelta, r.TotalDelta,
		r.Within2Spread, r.Within3Spread, r.Within4Spread, r.Within5Spread,
		r.Within2Total, r.Within3Total, r.Within4Total, r.Within5Total,
		r.Q1SpreadDelta, r.Q2SpreadDelta, r.Q3SpreadDelta,
		r.Q1TotalDelta, r.Q2TotalDelta, r.Q3TotalDelta,
		utc(time.Now()))
	if err != nil {
		return false, storeErr("InsertResult", err)
	}
	return inserted(res), nil
}

// CapturedLines lee todas las líneas registradas de un evento para compilar
// su resultado. Capturas ausentes simplemente no aparecen.
func (s *SQLiteStore) CapturedLines(ctx context.Context, eventID int64) (domain.LineSet, error) {
	ls := domain.LineSet{
		QSpread: make(map[int]float64),
		QTotal:  make(map[int]float64),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT market, line FROM opener WHERE event_id = ?`, eventID)
	if err != nil {
		return ls, storeErr("CapturedLines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var market string
		var line float64
		if err := rows.Scan(&market, &line); err != nil {
			return ls, storeErr("CapturedLines", err)
		}
		v := line
		switch domain.Market(market) {
		case domain.MarketSpread:
			ls.OpenerSpread = &v
		case domain.MarketTotal:
			ls.OpenerTotal = &v
		}
	}
	if err := rows.Err(); err != nil {
		return ls, storeErr("CapturedLines", err)
	}

	qrows, err := s.db.QueryContext(ctx,
		`SELECT market, quarter, line FROM quarter_line WHERE event_id = ?`, eventID)
	if err != nil {
		return ls, storeErr("CapturedLines", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var market string
		var quarter int
		var line float64
		if err := qrows.Scan(&market, &quarter, &line); err != nil {
			return ls, storeErr("CapturedLines", err)
		}
		switch domain.Market(market) {
		case domain.MarketSpread:
			ls.QSpread[quarter] = line
		case domain.MarketTotal:
			ls.QTotal[quarter] = line
		}
	}
	if err := qrows.Err(); err != nil {
		return ls, storeErr("CapturedLines", err)
	}
	return ls, nil
}

// StalledLive devuelve eventos aún en juego, sin finales, que empezaron antes
// de before: candidatos a buscar su resultado por API.
func (s *SQLiteStore) StalledLive(ctx context.Context, before time.Time) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, league_id, start_time_utc, status, home_name, away_name
		FROM event
		WHERE status IN ('live_pregame','live_q1','live_q2','live_q3','live_q4')
		  AND final_home IS NULL
		  AND start_time_utc < ?
	`, utc(before))
	if err != nil {
		return nil, storeErr("StalledLive", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var start, status string
		if err := rows.Scan(&e.ID, &e.LeagueID, &start, &status, &e.HomeName, &e.AwayName); err != nil {
			return nil, storeErr("StalledLive", err)
		}
		if st, err := domain.ParseStatus(status); err == nil {
			e.Status = st
		}
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			e.StartTime = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordAnomaly inserta la anomalía o refresca last_seen/detail si ya existe
// para el mismo (evento, kind).
func (s *SQLiteStore) RecordAnomaly(ctx context.Context, a domain.Anomaly) error {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anomaly (anomaly_id, event_id, kind, detail, first_seen_utc, last_seen_utc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id, kind) DO UPDATE SET
			detail        = excluded.detail,
			last_seen_utc = excluded.last_seen_utc
	`, id, a.EventID, string(a.Kind), a.Detail, utc(a.FirstSeen), utc(a.LastSeen))
	if err != nil {
		return storeErr("RecordAnomaly", err)
	}
	return nil
}

// AccuracySummary agrega los resultados para el reporte de consola. Los
// hit-rates se calculan solo sobre filas que tienen la línea correspondiente.
func (s *SQLiteStore) AccuracySummary(ctx context.Context) (domain.AccuracySummary, error) {
	var sum domain.AccuracySummary
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(spread_delta), COUNT(total_delta),
		       COALESCE(AVG(spread_delta), 0), COALESCE(AVG(total_delta), 0),
		       COALESCE(AVG(CASE WHEN spread_delta IS NOT NULL THEN within2_spread END), 0),
		       COALESCE(AVG(CASE WHEN spread_delta IS NOT NULL THEN within3_spread END), 0),
		       COALESCE(AVG(CASE WHEN spread_delta IS NOT NULL THEN within4_spread END), 0),
		       COALESCE(AVG(CASE WHEN spread_delta IS NOT NULL THEN within5_spread END), 0),
		       COALESCE(AVG(CASE WHEN total_delta IS NOT NULL THEN within2_total END), 0),
		       COALESCE(AVG(CASE WHEN total_delta IS NOT NULL THEN within3_total END), 0),
		       COALESCE(AVG(CASE WHEN total_delta IS NOT NULL THEN within4_total END), 0),
		       COALESCE(AVG(CASE WHEN total_delta IS NOT NULL THEN within5_total END), 0)
		FROM result
	`)
	err := row.Scan(&sum.Events, &sum.SpreadCount, &sum.TotalCount,
		&sum.AvgSpread, &sum.AvgTotal,
		&sum.SpreadWithin[0], &sum.SpreadWithin[1], &sum.SpreadWithin[2], &sum.SpreadWithin[3],
		&sum.TotalWithin[0], &sum.TotalWithin[1], &sum.TotalWithin[2], &sum.TotalWithin[3])
	if err != nil {
		return sum, storeErr("AccuracySummary", err)
	}
	return sum, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func inserted(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

func utc(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("storage.%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
