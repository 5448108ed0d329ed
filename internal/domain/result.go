package domain

import "math"

// LineSet agrupa las líneas capturadas de un evento: opener y cierres de
// cuarto Q1–Q3, por mercado. nil = esa captura nunca se registró.
type LineSet struct {
	OpenerSpread *float64
	OpenerTotal  *float64
	QSpread      map[int]float64 // quarter → línea spread al cierre
	QTotal       map[int]float64
}

// Result es la fila derivada que mide cada línea contra el resultado final.
// Es derivada, nunca fuente primaria: requiere marcadores finales no nulos.
// Las capturas que faltan dejan su delta en nil — dato parcial esperado.
type Result struct {
	EventID     int64
	SpreadDelta *float64 // |margen − |línea spread opener||
	TotalDelta  *float64 // |(fh+fa) − línea total opener|

	Within2Spread bool
	Within3Spread bool
	Within4Spread bool
	Within5Spread bool
	Within2Total  bool
	Within3Total  bool
	Within4Total  bool
	Within5Total  bool

	Q1SpreadDelta *float64
	Q2SpreadDelta *float64
	Q3SpreadDelta *float64
	Q1TotalDelta  *float64
	Q2TotalDelta  *float64
	Q3TotalDelta  *float64
}

// CompileResult computa los deltas línea-vs-final y los flags within-N.
// Determinística y tolerante a datos parciales: computa lo que haya.
//
// spread usa margen absoluto contra línea absoluta; total usa la suma de
// puntos contra la línea. within_N = delta ≤ N para N ∈ {2,3,4,5}.
func CompileResult(eventID int64, finalHome, finalAway int, lines LineSet) Result {
	margin := math.Abs(float64(finalHome - finalAway))
	total := float64(finalHome + finalAway)

	r := Result{EventID: eventID}

	if lines.OpenerSpread != nil {
		d := math.Abs(margin - math.Abs(*lines.OpenerSpread))
		r.SpreadDelta = &d
		r.Within2Spread = d <= 2
		r.Within3Spread = d <= 3
		r.Within4Spread = d <= 4
		r.Within5Spread = d <= 5
	}
	if lines.OpenerTotal != nil {
		d := math.Abs(total - *lines.OpenerTotal)
		r.TotalDelta = &d
		r.Within2Total = d <= 2
		r.Within3Total = d <= 3
		r.Within4Total = d <= 4
		r.Within5Total = d <= 5
	}

	r.Q1SpreadDelta = spreadDelta(lines.QSpread, 1, margin)
	r.Q2SpreadDelta = spreadDelta(lines.QSpread, 2, margin)
	r.Q3SpreadDelta = spreadDelta(lines.QSpread, 3, margin)
	r.Q1TotalDelta = totalDelta(lines.QTotal, 1, total)
	r.Q2TotalDelta = totalDelta(lines.QTotal, 2, total)
	r.Q3TotalDelta = totalDelta(lines.QTotal, 3, total)

	return r
}

func spreadDelta(lines map[int]float64, q int, margin float64) *float64 {
	line, ok := lines[q]
	if !ok {
		return nil
	}
	d := math.Abs(margin - math.Abs(line))
	return &d
}

func totalDelta(lines map[int]float64, q int, total float64) *float64 {
	line, ok := lines[q]
	if !ok {
		return nil
	}
	d := math.Abs(total - line)
	return &d
}

// AccuracySummary es el agregado de solo-lectura que consume el reporte.
type AccuracySummary struct {
	Events       int
	SpreadCount  int
	TotalCount   int
	AvgSpread    float64
	AvgTotal     float64
	SpreadWithin [4]float64 // hit-rate para N = 2,3,4,5
	TotalWithin  [4]float64
}
