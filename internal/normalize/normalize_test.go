package normalize

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, raw string) Record {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}
	return NewRecord(v)
}

func str(s string) *string { return &s }

func assertField(t *testing.T, name string, got *string, want *string) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("Expected %s to be nil, got '%s'", name, *got)
	case want != nil && got == nil:
		t.Errorf("Expected %s '%s', got nil", name, *want)
	case want != nil && *got != *want:
		t.Errorf("Expected %s '%s', got '%s'", name, *want, *got)
	}
}

// TestNormalizeProfile_Aliases tests the secondary keys of a legacy record
func TestNormalizeProfile_Aliases(t *testing.T) {
	r := decode(t, `{
		"tipo_identificacion": "CC",
		"documento": 123456,
		"fecha_nac": "1990-05-04",
		"sexo_biologico": "F",
		"telefono": "3001234567",
		"direccion_residencia": "Calle 1",
		"email": "ana@example.com",
		"nombre1": "Ana",
		"nombre2": "",
		"apellido1": "Pérez",
		"apellido2": "Gómez",
		"eps_nombre": "Sura",
		"eps_codigo": "EPS010"
	}`)

	p := NormalizeProfile(r)

	assertField(t, "tipo", p.Type, str("CC"))
	assertField(t, "numero", p.Number, str("123456"))
	assertField(t, "fechaNacimiento", p.BirthDate, str("1990-05-04"))
	assertField(t, "sexo", p.Sex, str("F"))
	assertField(t, "celular", p.Mobile, str("3001234567"))
	assertField(t, "direccion", p.Address, str("Calle 1"))
	assertField(t, "correo", p.Email, str("ana@example.com"))
	assertField(t, "nombreCompleto", p.FullName, str("Ana Pérez Gómez"))
	assertField(t, "eps", p.Insurer, str("Sura"))
	assertField(t, "eps_codigo", p.InsurerCode, str("EPS010"))
	assertField(t, "eps_nombre", p.InsurerName, str("Sura"))
	if !p.Raw.Has("nombre1") {
		t.Error("Expected raw record to be preserved")
	}
}

// TestNormalizeProfile_FirstAliasWins tests alias priority
func TestNormalizeProfile_FirstAliasWins(t *testing.T) {
	r := decode(t, `{"tipoId": "TI", "tipo_documento": "CC", "correo": "a@x.co", "email": "b@x.co"}`)

	p := NormalizeProfile(r)

	assertField(t, "tipo", p.Type, str("TI"))
	assertField(t, "correo", p.Email, str("a@x.co"))
}

// TestNormalizeProfile_NullSkipped tests that null aliases fall through
func TestNormalizeProfile_NullSkipped(t *testing.T) {
	r := decode(t, `{"celular": null, "tel_movil": "311"}`)

	p := NormalizeProfile(r)

	assertField(t, "celular", p.Mobile, str("311"))
}

func TestNormalizeProfile_FullName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *string
	}{
		{"explicit", `{"nombreCompleto": "Ana María", "nombre": "X", "apellidos": "Y"}`, str("Ana María")},
		{"nombre and apellidos", `{"nombre": "Ana", "apellidos": "Pérez"}`, str("Ana Pérez")},
		{"only apellidos", `{"apellidos": "Pérez"}`, str("Pérez")},
		{"split names", `{"nombre1": "Ana", "apellido1": "Pérez", "apellido2": null}`, str("Ana Pérez")},
		{"nombres", `{"nombres": "Ana María", "apellidos": "Pérez"}`, str("Ana María Pérez")},
		{"empty explicit", `{"nombreCompleto": "", "nombre": "Ana"}`, str("")},
		{"null explicit", `{"nombreCompleto": null, "nombre": "Ana"}`, str("Ana")},
		{"none", `{"correo": "a@x.co"}`, nil},
		{"all empty", `{"nombre": "", "nombre1": "", "nombres": ""}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NormalizeProfile(decode(t, tt.raw))
			assertField(t, "nombreCompleto", p.FullName, tt.want)
		})
	}
}

// TestNormalizeProfile_NotAnObject tests that odd input yields an empty profile
func TestNormalizeProfile_NotAnObject(t *testing.T) {
	for _, raw := range []string{`null`, `[1,2]`, `"text"`, `42`} {
		p := NormalizeProfile(decode(t, raw))
		if p.Type != nil || p.FullName != nil || p.Email != nil {
			t.Errorf("Expected empty profile for %s, got %+v", raw, p)
		}
	}
}

// TestProfile_RoundTrip tests that the canonical rendering normalizes to the same profile
func TestProfile_RoundTrip(t *testing.T) {
	fixtures := []string{
		`{"tipo_documento": "CE", "numeroid": "9", "fechanac": "2001-01-01", "eps_nombre": "Nueva EPS", "nombres": "Luis", "apellidos": "Rojas"}`,
		`{"tipo": "CC", "numero": "1", "nombreCompleto": "Ana", "eps": "Sura", "eps_codigo": "E1", "eps_nombre": "Sura SA"}`,
		`{}`,
	}

	for _, raw := range fixtures {
		first := NormalizeProfile(decode(t, raw))
		second := NormalizeProfile(first.Record())

		first.Raw, second.Raw = Record{}, Record{}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Expected round trip to be stable for %s\nfirst:  %+v\nsecond: %+v", raw, first, second)
		}
	}
}

// TestAliasTables_CanonicalFirst tests that each field lists its own name first
func TestAliasTables_CanonicalFirst(t *testing.T) {
	for name, tables := range map[string]map[string][]string{
		"profile": ProfileAliases,
		"order":   OrderAliases,
		"result":  ResultAliases,
	} {
		for field, aliases := range tables {
			if len(aliases) == 0 || aliases[0] != field {
				t.Errorf("Expected %s field '%s' to list itself first, got %v", name, field, aliases)
			}
		}
	}
}

func TestNormalizeOrder(t *testing.T) {
	r := decode(t, `{"id_orden": 77, "fecha_orden": "2024-03-01T10:30:00Z", "documento_paciente": "123", "num_orden": "A-1"}`)

	o := NormalizeOrder(r)

	assertField(t, "id", o.ID, str("77"))
	assertField(t, "fecha", o.Date, str("2024-03-01T10:30:00Z"))
	assertField(t, "documento", o.Document, str("123"))
	assertField(t, "numero", o.Number, str("A-1"))
}

// TestNormalizeOrder_NumberFallsBackToID tests the display number fallback chain
func TestNormalizeOrder_NumberFallsBackToID(t *testing.T) {
	o := NormalizeOrder(decode(t, `{"id": 5}`))

	assertField(t, "id", o.ID, str("5"))
	assertField(t, "numero", o.Number, str("5"))
	assertField(t, "documento", o.Document, nil)

	second := NormalizeOrder(o.Record())
	o.Raw, second.Raw = Record{}, Record{}
	if !reflect.DeepEqual(o, second) {
		t.Errorf("Expected order round trip to be stable, got %+v vs %+v", o, second)
	}
}

func TestNormalizeResults(t *testing.T) {
	var items []any
	if err := json.Unmarshal([]byte(`[
		{"id_prueba": "GLU", "prueba": "Glucosa", "valor": 92, "unidad_medida": "mg/dL", "rango_referencia": "70 - 100"},
		"garbage"
	]`), &items); err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}

	results := NormalizeResults(items)

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	r := results[0]
	assertField(t, "codigo", r.Code, str("GLU"))
	assertField(t, "nombre", r.Name, str("Glucosa"))
	assertField(t, "resultado", r.Value, str("92"))
	assertField(t, "unidad", r.Unit, str("mg/dL"))
	assertField(t, "valoresReferencia", r.ReferenceRange, str("70 - 100"))
	if results[1].Code != nil {
		t.Error("Expected empty result for non-object element")
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(3), 3, true},
		{" 42 ", 42, true},
		{json.Number("7"), 7, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := Number(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Number(%#v): expected (%v, %v), got (%v, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

// TestRecord_MarshalJSON tests that the raw record serializes unchanged
func TestRecord_MarshalJSON(t *testing.T) {
	r := decode(t, `{"a": 1, "b": {"c": "d"}}`)

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(b) != `{"a":1,"b":{"c":"d"}}` {
		t.Errorf("Expected original JSON, got: %s", b)
	}
	if got, _ := r.Record("b").String("c"); got != "d" {
		t.Errorf("Expected nested lookup 'd', got '%s'", got)
	}
}
