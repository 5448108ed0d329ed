package domain_test

import (
	"testing"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestCompileResult_FullSet(t *testing.T) {
	lines := domain.LineSet{
		OpenerSpread: fptr(3.5),
		OpenerTotal:  fptr(112.5),
		QSpread:      map[int]float64{1: 4.5, 2: 2.5, 3: 6.0},
		QTotal:       map[int]float64{1: 110.0, 2: 115.5, 3: 118.0},
	}

	// final 60-55: margen 5, total 115
	r := domain.CompileResult(777, 60, 55, lines)

	require.NotNil(t, r.SpreadDelta)
	assert.InDelta(t, 1.5, *r.SpreadDelta, 0.001)
	require.NotNil(t, r.TotalDelta)
	assert.InDelta(t, 2.5, *r.TotalDelta, 0.001)

	// delta spread 1.5 entra en todos los within
	assert.True(t, r.Within2Spread)
	assert.True(t, r.Within3Spread)
	assert.True(t, r.Within4Spread)
	assert.True(t, r.Within5Spread)

	// delta total 2.5 queda fuera de within2
	assert.False(t, r.Within2Total)
	assert.True(t, r.Within3Total)
	assert.True(t, r.Within4Total)
	assert.True(t, r.Within5Total)

	require.NotNil(t, r.Q1SpreadDelta)
	assert.InDelta(t, 0.5, *r.Q1SpreadDelta, 0.001) // |5 − 4.5|
	require.NotNil(t, r.Q2SpreadDelta)
	assert.InDelta(t, 2.5, *r.Q2SpreadDelta, 0.001)
	require.NotNil(t, r.Q3SpreadDelta)
	assert.InDelta(t, 1.0, *r.Q3SpreadDelta, 0.001)

	require.NotNil(t, r.Q1TotalDelta)
	assert.InDelta(t, 5.0, *r.Q1TotalDelta, 0.001)
	require.NotNil(t, r.Q3TotalDelta)
	assert.InDelta(t, 3.0, *r.Q3TotalDelta, 0.001)
}

func TestCompileResult_NegativeSpreadUsesMagnitude(t *testing.T) {
	lines := domain.LineSet{OpenerSpread: fptr(-7.5)}

	// final 80-70: margen 10 contra |−7.5|
	r := domain.CompileResult(1, 80, 70, lines)

	require.NotNil(t, r.SpreadDelta)
	assert.InDelta(t, 2.5, *r.SpreadDelta, 0.001)
	assert.False(t, r.Within2Spread)
	assert.True(t, r.Within3Spread)
}

func TestCompileResult_PartialData(t *testing.T) {
	// solo el total del opener y el spread del Q2 llegaron a capturarse
	lines := domain.LineSet{
		OpenerTotal: fptr(100.0),
		QSpread:     map[int]float64{2: 3.5},
	}

	r := domain.CompileResult(2, 48, 52, lines)

	assert.Nil(t, r.SpreadDelta)
	assert.False(t, r.Within5Spread) // sin línea no hay hit

	require.NotNil(t, r.TotalDelta)
	assert.InDelta(t, 0.0, *r.TotalDelta, 0.001)
	assert.True(t, r.Within2Total)

	require.NotNil(t, r.Q2SpreadDelta)
	assert.InDelta(t, 0.5, *r.Q2SpreadDelta, 0.001)
	assert.Nil(t, r.Q1SpreadDelta)
	assert.Nil(t, r.Q3SpreadDelta)
	assert.Nil(t, r.Q1TotalDelta)
}

func TestCompileResult_Empty(t *testing.T) {
	r := domain.CompileResult(3, 50, 45, domain.LineSet{})

	assert.Equal(t, int64(3), r.EventID)
	assert.Nil(t, r.SpreadDelta)
	assert.Nil(t, r.TotalDelta)
	assert.False(t, r.Within5Spread)
	assert.False(t, r.Within5Total)
}

func TestStatusForQuarter(t *testing.T) {
	assert.Equal(t, domain.StatusLiveQ1, domain.StatusForQuarter(0))
	assert.Equal(t, domain.StatusLiveQ1, domain.StatusForQuarter(1))
	assert.Equal(t, domain.StatusLiveQ2, domain.StatusForQuarter(2))
	assert.Equal(t, domain.StatusLiveQ3, domain.StatusForQuarter(3))
	assert.Equal(t, domain.StatusLiveQ4, domain.StatusForQuarter(4))
	// overtime se trata como Q4
	assert.Equal(t, domain.StatusLiveQ4, domain.StatusForQuarter(5))
}

func TestStatusLifecycle(t *testing.T) {
	assert.True(t, domain.StatusScheduled.Before(domain.StatusLivePregame))
	assert.True(t, domain.StatusLiveQ2.Before(domain.StatusLiveQ3))
	assert.False(t, domain.StatusFinal.Before(domain.StatusLiveQ4))

	assert.False(t, domain.StatusScheduled.Live())
	assert.True(t, domain.StatusLivePregame.Live())
	assert.True(t, domain.StatusLiveQ4.Live())
	assert.False(t, domain.StatusFinal.Live())

	assert.True(t, domain.StatusFinal.Terminal())
	assert.True(t, domain.StatusArchived.Terminal())
	assert.False(t, domain.StatusLiveQ4.Terminal())
}

func TestParseStatus_RoundTrip(t *testing.T) {
	for _, s := range []domain.Status{
		domain.StatusScheduled, domain.StatusLivePregame, domain.StatusLiveQ1,
		domain.StatusLiveQ4, domain.StatusFinal, domain.StatusArchived,
	} {
		parsed, err := domain.ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := domain.ParseStatus("halftime")
	assert.Error(t, err)
}
