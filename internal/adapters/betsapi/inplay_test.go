package betsapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient("", "test-token",
		[]string{"ebasketball h2h gg league - 4x5mins"},
		[]string{"women"})
}

// feed inplay real (recortado): un grupo CT/EV/MA/PA por evento.
const inplayFeed = `[
  [
    {"type":"CT","NA":"eBasketball H2H GG League - 4x5mins"},
    {"type":"EV","NA":"Celtics (shady) @ Lakers (wolf)","C2":"171234567","C3":"0","TM":4,"TS":55,"TT":"1","CP":"Q2","SS":"31-28","time_status":"1"},
    {"type":"MA","NA":"Game Spread"},
    {"type":"PA","NA":"Lakers (wolf)","HA":"-4.5","OD":"8/13"},
    {"type":"PA","NA":"Celtics (shady)","HA":"+4.5","OD":"6/5"},
    {"type":"MA","NA":"Game Total"},
    {"type":"PA","NA":"Over","HA":"O 106.5","OD":"10/11"},
    {"type":"PA","NA":"Under","HA":"U 106.5","OD":"10/11"}
  ]
]`

func TestParseInplay_FullTree(t *testing.T) {
	c := testClient()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	snaps := c.parseInplay(json.RawMessage(inplayFeed), now)

	require.Len(t, snaps, 1)
	s := snaps[0]

	assert.Equal(t, int64(171234567), s.EventID)
	assert.Equal(t, "Lakers (wolf)", s.HomeName)
	assert.Equal(t, "Celtics (shady)", s.AwayName)
	assert.Equal(t, 2, s.Quarter)
	assert.Equal(t, 4*60+55, s.Remaining)
	assert.True(t, s.ClockTick)
	assert.Equal(t, 31, s.HomeScore)
	assert.Equal(t, 28, s.AwayScore)
	assert.False(t, s.IsFinal)
	assert.Equal(t, now, s.At)

	require.Len(t, s.Lines, 2)

	spread, ok := s.Line(domain.MarketSpread)
	require.True(t, ok)
	assert.InDelta(t, 4.5, spread.Value, 0.001) // magnitud, sin signo
	require.NotNil(t, spread.PriceHome)
	assert.InDelta(t, 1.6154, *spread.PriceHome, 0.001) // 1 + 8/13
	require.NotNil(t, spread.PriceAway)
	assert.InDelta(t, 2.2, *spread.PriceAway, 0.001)

	total, ok := s.Line(domain.MarketTotal)
	require.True(t, ok)
	assert.InDelta(t, 106.5, total.Value, 0.001)
}

func TestParseInplay_LeagueFilter(t *testing.T) {
	c := testClient()

	feed := `[
	  [
	    {"type":"CT","NA":"Euroleague"},
	    {"type":"EV","NA":"A @ B","C2":"111","TM":3,"TS":0,"CP":"Q1","SS":"10-8"}
	  ],
	  [
	    {"type":"CT","NA":"eBasketball H2H GG League - 4x5mins (Women)"},
	    {"type":"EV","NA":"C @ D","C2":"222","TM":3,"TS":0,"CP":"Q1","SS":"10-8"}
	  ]
	]`

	// liga fuera del target y liga bloqueada: ambas descartadas
	snaps := c.parseInplay(json.RawMessage(feed), time.Now().UTC())
	assert.Empty(t, snaps)
}

func TestParseInplay_DedupByFI(t *testing.T) {
	c := testClient()

	feed := `[
	  [
	    {"type":"CT","NA":"eBasketball H2H GG League - 4x5mins"},
	    {"type":"EV","NA":"A @ B","C2":"333","TM":2,"TS":10,"CP":"Q3","SS":"50-48"}
	  ],
	  [
	    {"type":"CT","NA":"eBasketball H2H GG League - 4x5mins"},
	    {"type":"EV","NA":"A @ B","C2":"333","TM":2,"TS":10,"CP":"Q3","SS":"50-48"}
	  ]
	]`

	snaps := c.parseInplay(json.RawMessage(feed), time.Now().UTC())
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(333), snaps[0].EventID)
}

func TestParseInplay_MalformedNodesSkipped(t *testing.T) {
	c := testClient()

	// EV sin FI parseable y PA sin MA previo: se saltan sin romper el poll
	feed := `[
	  [
	    {"type":"CT","NA":"eBasketball H2H GG League - 4x5mins"},
	    {"type":"EV","NA":"A @ B","C2":"abc"},
	    {"type":"PA","NA":"orphan","HA":"-3.5","OD":"1/2"},
	    {"type":"EV","NA":"C @ D","C2":"444","TM":1,"TS":30,"CP":"Q4","SS":"70-71","time_status":"3"}
	  ]
	]`

	snaps := c.parseInplay(json.RawMessage(feed), time.Now().UTC())
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(444), snaps[0].EventID)
	assert.True(t, snaps[0].IsFinal)
	assert.Empty(t, snaps[0].Lines)
}

func TestParseInplay_NotAList(t *testing.T) {
	c := testClient()
	assert.Empty(t, c.parseInplay(json.RawMessage(`{"oops":1}`), time.Now().UTC()))
}

func TestParseHandicap_Spread(t *testing.T) {
	cases := []struct {
		ha   string
		want float64
		ok   bool
	}{
		{"-4.5", 4.5, true},
		{"+4.5", 4.5, true},
		{"7", 7, true},
		{"4.3", 4.5, true}, // ajuste a medio punto
		{"4.2", 4.0, true},
		{"0", 0, false},    // placeholder del feed
		{"0.2", 0, false},  // bajo el piso de cordura
		{"60", 0, false},   // sobre el techo
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		v, ok := parseHandicap(domain.MarketSpread, c.ha)
		assert.Equal(t, c.ok, ok, "ha=%q", c.ha)
		if c.ok {
			assert.InDelta(t, c.want, v, 0.001, "ha=%q", c.ha)
		}
	}
}

func TestParseHandicap_Total(t *testing.T) {
	cases := []struct {
		ha   string
		want float64
		ok   bool
	}{
		{"O 106.5", 106.5, true},
		{"U106.5", 106.5, true},
		{"110", 110, true},
		{"10", 0, false},  // demasiado bajo para un total de basket
		{"500", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		v, ok := parseHandicap(domain.MarketTotal, c.ha)
		assert.Equal(t, c.ok, ok, "ha=%q", c.ha)
		if c.ok {
			assert.InDelta(t, c.want, v, 0.001, "ha=%q", c.ha)
		}
	}
}

func TestParseFractionalOdds(t *testing.T) {
	od := parseFractionalOdds("8/13")
	require.NotNil(t, od)
	assert.InDelta(t, 1.6154, *od, 0.001)

	od = parseFractionalOdds("10/11")
	require.NotNil(t, od)
	assert.InDelta(t, 1.9091, *od, 0.001)

	od = parseFractionalOdds("1.61")
	require.NotNil(t, od)
	assert.InDelta(t, 1.61, *od, 0.001)

	assert.Nil(t, parseFractionalOdds(""))
	assert.Nil(t, parseFractionalOdds("evens?"))
	assert.Nil(t, parseFractionalOdds("8/0"))
	assert.Nil(t, parseFractionalOdds("0.5")) // una cuota decimal ≤1 es basura
}

func TestSplitTeams(t *testing.T) {
	home, away := splitTeams("Celtics (shady) @ Lakers (wolf)")
	assert.Equal(t, "Lakers (wolf)", home)
	assert.Equal(t, "Celtics (shady)", away)

	// sin separador: todo al home, away vacío
	home, away = splitTeams("TBD")
	assert.Equal(t, "TBD", home)
	assert.Empty(t, away)
}

func TestParseScore(t *testing.T) {
	h, a := parseScore("31-28")
	assert.Equal(t, 31, h)
	assert.Equal(t, 28, a)

	h, a = parseScore("")
	assert.Zero(t, h)
	assert.Zero(t, a)

	h, a = parseScore("x-y")
	assert.Zero(t, h)
	assert.Zero(t, a)
}

func TestFlexString_StringOrNumber(t *testing.T) {
	var n inplayNode
	require.NoError(t, json.Unmarshal([]byte(`{"TM":4,"TS":"55","C2":171234567,"NA":null}`), &n))
	assert.Equal(t, 4, n.TM.Int(0))
	assert.Equal(t, 55, n.TS.Int(0))
	assert.Equal(t, "171234567", n.C2.String())
	assert.Equal(t, "", n.NA.String())
	assert.Equal(t, -1, n.CP.Int(-1)) // ausente → fallback
}
