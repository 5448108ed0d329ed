package betsapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexString acepta string o número en el JSON del feed: bet365 mezcla ambos
// para los mismos campos según el endpoint.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// Int parsea el valor como entero; fallback si está vacío o malformado.
func (f flexString) Int(fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return fallback
	}
	return n
}

// inplayNode es un nodo del árbol del feed inplay. El feed es una lista de
// grupos; cada grupo intercala nodos tipados:
//
//	CT — competición (liga), aplica a los EV que siguen
//	EV — evento, con reloj (TM/TS/TT), período (CP) y marcador (SS)
//	MA — mercado (spread, total, ...) del EV más reciente
//	PA — participante de un MA, con handicap (HA) y cuota (OD)
type inplayNode struct {
	Type       string     `json:"type"`
	NA         flexString `json:"NA"` // nombre (liga, evento, mercado o participante)
	ID         flexString `json:"ID"`
	C2         flexString `json:"C2"` // FI del evento (C3 es "0" en partidos H2H)
	C3         flexString `json:"C3"`
	TM         flexString `json:"TM"` // minutos RESTANTES del período
	TS         flexString `json:"TS"` // segundos restantes
	TT         flexString `json:"TT"` // 1 = reloj corriendo
	TimeStatus flexString `json:"time_status"`
	CP         flexString `json:"CP"` // período actual ("Q2")
	SS         flexString `json:"SS"` // marcador "H-A"
	HA         flexString `json:"HA"` // handicap del participante
	OD         flexString `json:"OD"` // cuota fraccional ("8/13")
}

// upcomingEvent es una fila del endpoint de fixtures próximos.
type upcomingEvent struct {
	ID         flexString      `json:"id"`
	Time       flexString      `json:"time"`        // epoch
	TimeStatus flexString      `json:"time_status"` // 0 no empezó, 1 live, 3 terminado
	SS         flexString      `json:"ss"`
	League     json.RawMessage `json:"league"`
	Home       json.RawMessage `json:"home"`
	Away       json.RawMessage `json:"away"`
}

// resultRow es una fila del endpoint de resultados.
type resultRow struct {
	SS     flexString      `json:"ss"`
	Scores json.RawMessage `json:"scores"`
}

// namedField extrae un nombre de un campo que puede ser string u objeto
// {"name": ...} según el endpoint.
func namedField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Name flexString `json:"name"`
		ID   flexString `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name.String())
	}
	return ""
}

// namedFieldID extrae el id numérico de un campo objeto {"id": ...}.
func namedFieldID(raw json.RawMessage) int64 {
	var obj struct {
		ID flexString `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0
	}
	n, err := strconv.ParseInt(obj.ID.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func toLowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
