package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
)

// Text is a payload scalar that may arrive as a JSON string or number.
// Valid is false for null or absent values.
type Text struct {
	Value string
	Valid bool
}

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, ok := normalize.Stringify(v)
	*t = Text{Value: s, Valid: ok}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Ptr returns nil for null or empty text.
func (t Text) Ptr() *string {
	if !t.Valid || t.Value == "" {
		return nil
	}
	s := t.Value
	return &s
}

// Num is a payload number that may arrive as a JSON number or a numeric
// string. Text keeps the rendering used for display.
type Num struct {
	Value   float64
	Text    string
	Numeric bool
	Valid   bool
}

func (n *Num) UnmarshalJSON(b []byte) error {
	*n = Num{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*n = Num{Value: x, Text: strconv.FormatFloat(x, 'f', -1, 64), Numeric: true, Valid: true}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		f, ok := normalize.Number(s)
		*n = Num{Value: f, Text: s, Numeric: ok, Valid: true}
	default:
		s, _ := normalize.Stringify(x)
		*n = Num{Text: s, Valid: true}
	}
	return nil
}

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	if n.Numeric {
		return json.Marshal(n.Value)
	}
	return json.Marshal(n.Text)
}

// bound reports whether n counts as a reference bound: present and not zero.
func (n Num) bound() bool {
	return n.Valid && !(n.Numeric && n.Value == 0)
}

// List is a payload array that tolerates bad shapes: a non-array value
// decodes as empty and elements that fail to decode are dropped, so one
// malformed entry does not hide the rest of the results.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := make(List[T], 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// Payload is the results response of one order.
type Payload struct {
	Groups  List[RawGroup]     `json:"grupos"`
	Patient *RawPatient        `json:"paciente"`
	Order   *RawOrder          `json:"orden"`
	Flat    []normalize.Result `json:"-"`
}

type RawGroup struct {
	ID         Text               `json:"grupoId"`
	Code       Text               `json:"grupoCodigo"`
	Name       Text               `json:"grupoNombre"`
	Procedures List[RawProcedure] `json:"procedimientos"`
}

type RawProcedure struct {
	ProcedureID Text             `json:"procedimientoId"`
	Procedure   RawProcedureInfo `json:"procedimiento"`
	Tests       List[RawTest]    `json:"pruebas"`
}

type RawProcedureInfo struct {
	ID     Text `json:"id"`
	CupsID Text `json:"idCups"`
	Method Text `json:"metodo"`
	Code   Text `json:"codigo"`
	Name   Text `json:"nombre"`
}

// RawTest pairs a test definition with its result.
type RawTest struct {
	Test   RawTestInfo `json:"prueba"`
	Result RawResult   `json:"resultado"`
}

type RawTestInfo struct {
	ID           Text `json:"id"`
	Code         Text `json:"codigoPrueba"`
	Name         Text `json:"nombrePrueba"`
	Unit         Text `json:"unidad"`
	ResultTypeID Text `json:"idTipoResultado"`
}

type RawResult struct {
	ID              Text `json:"id"`
	Date            Text `json:"fecha"`
	OrderID         Text `json:"idOrden"`
	ProcedureID     Text `json:"idProcedimiento"`
	TestID          Text `json:"idPrueba"`
	TestOptionID    Text `json:"idPruebaOpcion"`
	Option          Text `json:"resOpcion"`
	Numeric         Num  `json:"resNumerico"`
	FreeText        Text `json:"resTexto"`
	Memo            Text `json:"resMemo"`
	ProcessingCount Text `json:"numProcesamientos"`
	RefMin          Num  `json:"valor_ref_min"`
	RefMax          Num  `json:"valor_ref_max"`
}

type RawPatient struct {
	ID             Text `json:"id"`
	DocumentType   Text `json:"tipo_documento"`
	DocumentNumber Text `json:"numero_documento"`
	FirstNames     Text `json:"nombres"`
	LastNames      Text `json:"apellidos"`
	BirthDate      Text `json:"fecha_nacimiento"`
	Gender         Text `json:"genero"`
	Phone          Text `json:"telefono"`
	Email          Text `json:"email"`
	Address        Text `json:"direccion"`
	InsurerName    Text `json:"eps_nombre"`
	InsurerCode    Text `json:"eps_codigo"`
}

type RawOrder struct {
	ID                   Text `json:"id"`
	Number               Text `json:"numero"`
	Date                 Text `json:"fecha"`
	ExternalProfessional Text `json:"profesional_externo"`
}

// Decode parses a results response. A grouped payload fills Groups, Patient
// and Order; a bare array or a {data: [...]} envelope fills Flat through the
// result normalizer.
func Decode(body []byte) (*Payload, error) {
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	if arr, ok := probe.([]any); ok {
		return &Payload{Flat: normalize.NormalizeResults(arr)}, nil
	}

	r := normalize.NewRecord(probe)
	if !r.Has("grupos") {
		if data, ok := r.Lookup("data"); ok {
			arr, _ := data.([]any)
			return &Payload{Flat: normalize.NormalizeResults(arr)}, nil
		}
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return &p, nil
}
