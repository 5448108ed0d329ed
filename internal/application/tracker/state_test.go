package tracker

import (
	"testing"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testThresholds() Thresholds {
	return Thresholds{QuarterLength: 300, OpenerWindow: 5, QuarterEnd: 10}
}

func snapAt(eventID int64, quarter, remaining int, ticking bool) domain.Snapshot {
	return domain.Snapshot{
		EventID:   eventID,
		League:    "ebasketball h2h gg league - 4x5mins",
		HomeName:  "Lakers (pro)",
		AwayName:  "Celtics (ace)",
		Quarter:   quarter,
		Remaining: remaining,
		ClockTick: ticking,
		At:        time.Now().UTC(),
	}
}

func withLines(s domain.Snapshot) domain.Snapshot {
	s.Lines = []domain.Line{
		{Market: domain.MarketSpread, Value: 4.5},
		{Market: domain.MarketTotal, Value: 110.5},
	}
	return s
}

func TestObserve_FirstSightInference(t *testing.T) {
	st := NewStateTracker(testThresholds())

	cases := []struct {
		quarter, remaining int
		want               domain.Status
	}{
		{1, 298, domain.StatusLivePregame}, // ventana de opener aún abierta
		{1, 295, domain.StatusLivePregame}, // borde: 300−5
		{1, 294, domain.StatusLiveQ1},
		{1, 120, domain.StatusLiveQ1},
		{2, 250, domain.StatusLiveQ2},
		{3, 40, domain.StatusLiveQ3},
		{4, 0, domain.StatusLiveQ4},
	}
	for i, c := range cases {
		ev, first, regressed := st.Observe(snapAt(int64(100+i), c.quarter, c.remaining, true))
		require.True(t, first)
		require.False(t, regressed)
		assert.Equal(t, c.want, ev.status, "quarter=%d remaining=%d", c.quarter, c.remaining)
	}
}

func TestObserve_ClockRegressionHoldsState(t *testing.T) {
	st := NewStateTracker(testThresholds())

	ev, first, _ := st.Observe(snapAt(1, 2, 100, true))
	require.True(t, first)
	require.Equal(t, domain.StatusLiveQ2, ev.status)

	// el upstream retrocede a Q1: anomalía, el reloj guardado no se pisa
	ev2, first2, regressed := st.Observe(snapAt(1, 1, 250, true))
	assert.False(t, first2)
	assert.True(t, regressed)
	assert.Equal(t, domain.StatusLiveQ2, ev2.status)
	assert.Equal(t, 2, ev2.quarter)
	assert.Equal(t, 100, ev2.remaining)
}

func TestObserve_FastForwardOnMissedWindow(t *testing.T) {
	st := NewStateTracker(testThresholds())

	ev, _, _ := st.Observe(snapAt(1, 1, 150, true))
	require.Equal(t, domain.StatusLiveQ1, ev.status)

	// el feed salta a Q3: la ventana de cierre de Q1 y Q2 pasaron sin
	// captura posible; el estado avanza en silencio, sin retro-capturar
	ev2, _, regressed := st.Observe(snapAt(1, 3, 280, true))
	assert.False(t, regressed)
	assert.Equal(t, domain.StatusLiveQ3, ev2.status)
}

func TestObserve_TracksLastSeenLines(t *testing.T) {
	st := NewStateTracker(testThresholds())

	ev, _, _ := st.Observe(withLines(snapAt(1, 1, 150, true)))
	require.NotNil(t, ev.spread)
	assert.InDelta(t, 4.5, *ev.spread, 0.001)
	require.NotNil(t, ev.total)
	assert.InDelta(t, 110.5, *ev.total, 0.001)

	// un snapshot sin líneas no borra las últimas vistas
	ev2, _, _ := st.Observe(snapAt(1, 1, 140, true))
	assert.NotNil(t, ev2.spread)
}

func TestDueCapture_Opener(t *testing.T) {
	st := NewStateTracker(testThresholds())

	snap := snapAt(1, 1, 297, true)
	ev, _, _ := st.Observe(snap)

	kind, _, due := st.dueCapture(ev, snap)
	require.True(t, due)
	assert.Equal(t, domain.CaptureOpener, kind)

	// fuera de la ventana: ya no es opener
	late := snapAt(1, 1, 290, true)
	ev2, _, _ := st.Observe(late)
	_, _, due = st.dueCapture(ev2, late)
	assert.False(t, due)
}

func TestDueCapture_QuarterEnd(t *testing.T) {
	st := NewStateTracker(testThresholds())

	// evento en Q1 a mitad de cuarto: nada pendiente
	mid := snapAt(1, 1, 150, true)
	ev, _, _ := st.Observe(mid)
	_, _, due := st.dueCapture(ev, mid)
	require.False(t, due)

	// ≤10s con reloj corriendo: ventana de cierre de Q1
	closing := snapAt(1, 1, 8, true)
	ev, _, _ = st.Observe(closing)
	kind, quarter, due := st.dueCapture(ev, closing)
	require.True(t, due)
	assert.Equal(t, domain.CaptureQuarter, kind)
	assert.Equal(t, 1, quarter)
}

func TestDueCapture_QuarterEndPausedClock(t *testing.T) {
	st := NewStateTracker(testThresholds())

	// 8s restantes y reloj pausado: timeout, todavía no
	paused := snapAt(1, 1, 8, false)
	ev, _, _ := st.Observe(paused)
	_, _, due := st.dueCapture(ev, paused)
	assert.False(t, due)

	// remaining == 0 captura incluso pausado: el cuarto terminó seguro
	zero := snapAt(1, 1, 0, false)
	ev, _, _ = st.Observe(zero)
	kind, quarter, due := st.dueCapture(ev, zero)
	require.True(t, due)
	assert.Equal(t, domain.CaptureQuarter, kind)
	assert.Equal(t, 1, quarter)
}

func TestDueCapture_QuarterMismatchSkips(t *testing.T) {
	st := NewStateTracker(testThresholds())

	ev, _, _ := st.Observe(snapAt(1, 1, 150, true))
	require.Equal(t, domain.StatusLiveQ1, ev.status)

	// snapshot de Q2 mientras el estado espera el cierre de Q1: el
	// fast-forward de Observe ya movió el estado, no hay captura de Q1
	s2 := snapAt(1, 2, 290, true)
	ev2, _, _ := st.Observe(s2)
	assert.Equal(t, domain.StatusLiveQ2, ev2.status)
	_, _, due := st.dueCapture(ev2, s2)
	assert.False(t, due)
}

func TestDueCapture_Final(t *testing.T) {
	st := NewStateTracker(testThresholds())

	ev, _, _ := st.Observe(snapAt(1, 4, 120, true))
	require.Equal(t, domain.StatusLiveQ4, ev.status)

	// reloj en cero pero marcador vacío: feed a medio actualizar, esperar
	empty := snapAt(1, 4, 0, false)
	ev, _, _ = st.Observe(empty)
	_, _, due := st.dueCapture(ev, empty)
	assert.False(t, due)

	done := snapAt(1, 4, 0, false)
	done.HomeScore, done.AwayScore = 61, 55
	ev, _, _ = st.Observe(done)
	kind, _, due := st.dueCapture(ev, done)
	require.True(t, due)
	assert.Equal(t, domain.CaptureFinal, kind)
}

func TestDueCapture_FinalFlagBeforeZero(t *testing.T) {
	st := NewStateTracker(testThresholds())

	st.Observe(snapAt(1, 4, 30, true))

	flagged := snapAt(1, 4, 12, false)
	flagged.IsFinal = true
	flagged.HomeScore, flagged.AwayScore = 58, 60
	ev, _, _ := st.Observe(flagged)
	kind, _, due := st.dueCapture(ev, flagged)
	require.True(t, due)
	assert.Equal(t, domain.CaptureFinal, kind)
}

func TestAdvance_RejectsRegression(t *testing.T) {
	st := NewStateTracker(testThresholds())
	st.Observe(snapAt(1, 3, 100, true))

	require.NoError(t, st.advance(1, domain.StatusLiveQ4))
	assert.Error(t, st.advance(1, domain.StatusLiveQ1))
	assert.Error(t, st.advance(99, domain.StatusLiveQ1)) // desconocido
}

func TestPruneStale(t *testing.T) {
	st := NewStateTracker(testThresholds())
	st.Observe(snapAt(1, 2, 100, true))
	st.Observe(snapAt(2, 2, 100, true))

	// nadie es viejo todavía
	assert.Empty(t, st.pruneStale(time.Now().UTC(), time.Hour))
	assert.Equal(t, 2, st.size())

	dropped := st.pruneStale(time.Now().UTC().Add(2*time.Hour), time.Hour)
	assert.Len(t, dropped, 2)
	assert.Equal(t, 0, st.size())
}
