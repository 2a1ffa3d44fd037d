package results

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

const samplePayload = `{
  "grupos": [
    {
      "grupoId": 1, "grupoCodigo": "QS", "grupoNombre": "Química sanguínea",
      "procedimientos": [
        {
          "procedimientoId": 10,
          "procedimiento": {"id": 10, "codigo": "903841", "nombre": "Glucosa en suero", "metodo": "Enzimático"},
          "pruebas": [
            {"prueba": {"id": 100, "codigoPrueba": "GLU", "nombrePrueba": "Glucosa", "unidad": "mg/dL"},
             "resultado": {"id": 1000, "resNumerico": 98, "valor_ref_min": 70, "valor_ref_max": 100}}
          ]
        },
        {
          "procedimientoId": 11,
          "procedimiento": {"id": 11, "codigo": "903818", "nombre": "Colesterol total"},
          "pruebas": [
            {"prueba": {"id": 101, "codigoPrueba": "COL", "nombrePrueba": "Colesterol Total", "unidad": "mg/dL"},
             "resultado": {"id": 1001, "resNumerico": 0, "valor_ref_min": 0, "valor_ref_max": 0}}
          ]
        }
      ]
    },
    {
      "grupoId": 2, "grupoCodigo": "MB", "grupoNombre": "Microbiología",
      "procedimientos": [
        {
          "procedimientoId": 20,
          "procedimiento": {"id": 20, "codigo": "901107", "nombre": "Frotis vaginal"},
          "pruebas": [
            {"prueba": {"id": 200, "codigoPrueba": "BLAS", "nombrePrueba": "Blastoconidias"},
             "resultado": {"id": 2000, "resOpcion": "Negativo"}},
            {"prueba": {"id": 201, "codigoPrueba": "OBS", "nombrePrueba": "Observaciones"},
             "resultado": {"id": 2001, "resMemo": "Muestra adecuada"}}
          ]
        }
      ]
    }
  ],
  "paciente": {"id": 42, "tipo_documento": "CC", "numero_documento": "1020304050", "nombres": "Ana María", "apellidos": "Pérez Gómez", "fecha_nacimiento": "1990-05-04", "genero": "F", "eps_nombre": "Sura", "eps_codigo": "EPS010"},
  "orden": {"id": 7, "numero": "A-77", "fecha": "2024-03-01T10:30:00Z", "profesional_externo": "Dr. Ruiz"}
}`

func decodePayload(t *testing.T, raw string) *Payload {
	t.Helper()
	p, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return p
}

func rawTest(t *testing.T, raw string) RawTest {
	t.Helper()
	var rt RawTest
	if err := json.Unmarshal([]byte(raw), &rt); err != nil {
		t.Fatalf("Failed to decode test fixture: %v", err)
	}
	return rt
}

func TestGrouper_Group(t *testing.T) {
	p := decodePayload(t, samplePayload)

	grouped := NewGrouper().Group(p.Groups)

	if grouped.Len() != 2 {
		t.Fatalf("Expected 2 groups, got %d", grouped.Len())
	}
	if !reflect.DeepEqual(grouped.Keys(), []string{"QS-Química sanguínea", "MB-Microbiología"}) {
		t.Errorf("Unexpected group order: %v", grouped.Keys())
	}

	qs, ok := grouped.Get("QS-Química sanguínea")
	if !ok {
		t.Fatal("Expected QS group")
	}
	if len(qs.Procedures) != 2 {
		t.Fatalf("Expected 2 procedures, got %d", len(qs.Procedures))
	}
	if qs.PrimaryProcedure() != "Glucosa en suero" {
		t.Errorf("Expected primary procedure 'Glucosa en suero', got '%s'", qs.PrimaryProcedure())
	}
	if m := qs.Procedures[0].Procedure.Method; m == nil || *m != "Enzimático" {
		t.Errorf("Expected method 'Enzimático', got %v", m)
	}
	if qs.Procedures[1].Procedure.Method != nil {
		t.Error("Expected absent method to stay nil")
	}

	glucose := qs.Procedures[0].Tests[0]
	if glucose.DisplayValue != "98" {
		t.Errorf("Expected value '98', got '%s'", glucose.DisplayValue)
	}
	if glucose.ReferenceRange != "70 - 100" {
		t.Errorf("Expected range '70 - 100', got '%s'", glucose.ReferenceRange)
	}

	cholesterol := qs.Procedures[1].Tests[0]
	if cholesterol.DisplayValue != "0" {
		t.Errorf("Expected numeric zero to display as '0', got '%s'", cholesterol.DisplayValue)
	}
	if cholesterol.ReferenceRange != "< 200 mg/dL" {
		t.Errorf("Expected zero bounds to fall back to '< 200 mg/dL', got '%s'", cholesterol.ReferenceRange)
	}
}

// TestGrouper_DuplicateKeysOverwriteInPlace tests that a repeated key keeps its first position
func TestGrouper_DuplicateKeysOverwriteInPlace(t *testing.T) {
	p := decodePayload(t, `{"grupos": [
		{"grupoId": 1, "grupoCodigo": "A", "grupoNombre": "Uno", "procedimientos": [
			{"procedimiento": {"codigo": "P", "nombre": "Proc"}, "pruebas": [{"prueba": {"codigoPrueba": "X"}, "resultado": {"resTexto": "first"}}]},
			{"procedimiento": {"codigo": "Q", "nombre": "Otro"}, "pruebas": []},
			{"procedimiento": {"codigo": "P", "nombre": "Proc"}, "pruebas": [{"prueba": {"codigoPrueba": "X"}, "resultado": {"resTexto": "second"}}]}
		]},
		{"grupoId": 2, "grupoCodigo": "B", "grupoNombre": "Dos", "procedimientos": []},
		{"grupoId": 3, "grupoCodigo": "A", "grupoNombre": "Uno", "procedimientos": null}
	]}`)

	grouped := NewGrouper().Group(p.Groups)

	if !reflect.DeepEqual(grouped.Keys(), []string{"A-Uno", "B-Dos"}) {
		t.Fatalf("Unexpected keys: %v", grouped.Keys())
	}
	a, _ := grouped.Get("A-Uno")
	if a.Group.ID != "3" {
		t.Errorf("Expected later group to replace earlier, got id '%s'", a.Group.ID)
	}
	if len(a.Procedures) != 0 {
		t.Errorf("Expected replaced group to have no procedures, got %d", len(a.Procedures))
	}

	procs := NewGrouper().procedures(p.Groups[0].Procedures)
	if len(procs) != 2 || procs[0].Key != "P-Proc" || procs[1].Key != "Q-Otro" {
		t.Fatalf("Unexpected procedures: %+v", procs)
	}
	if procs[0].Tests[0].DisplayValue != "second" {
		t.Errorf("Expected later procedure to win, got '%s'", procs[0].Tests[0].DisplayValue)
	}
}

// TestGrouper_SameIDDifferentNames tests that the key uses code and name, not the id
func TestGrouper_SameIDDifferentNames(t *testing.T) {
	p := decodePayload(t, `{"grupos": [
		{"grupoId": 5, "grupoCodigo": "H", "grupoNombre": "Hematología", "procedimientos": []},
		{"grupoId": 5, "grupoCodigo": "H", "grupoNombre": "Química", "procedimientos": []}
	]}`)

	grouped := NewGrouper().Group(p.Groups)

	if grouped.Len() != 2 {
		t.Fatalf("Expected 2 groups, got %d", grouped.Len())
	}
	if !reflect.DeepEqual(grouped.Keys(), []string{"H-Hematología", "H-Química"}) {
		t.Errorf("Unexpected keys: %v", grouped.Keys())
	}
}

func TestGrouper_Empty(t *testing.T) {
	grouped := NewGrouper().Group(nil)

	if grouped.Len() != 0 {
		t.Errorf("Expected no groups, got %d", grouped.Len())
	}
	if _, ok := grouped.Get("x"); ok {
		t.Error("Expected lookup miss on empty grouping")
	}
}

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"option wins", `{"resOpcion": "Positivo", "resNumerico": 5, "resTexto": "t"}`, "Positivo"},
		{"numeric", `{"resNumerico": 5.25, "resTexto": "t"}`, "5.25"},
		{"numeric zero", `{"resNumerico": 0, "resTexto": "t"}`, "0"},
		{"numeric string", `{"resNumerico": "7.50"}`, "7.50"},
		{"empty option skipped", `{"resOpcion": "", "resTexto": "texto"}`, "texto"},
		{"memo", `{"resMemo": "memo"}`, "memo"},
		{"nothing", `{"resOpcion": null, "resNumerico": null}`, NoValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r RawResult
			if err := json.Unmarshal([]byte(tt.raw), &r); err != nil {
				t.Fatalf("Failed to decode fixture: %v", err)
			}
			if got := DisplayValue(r); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestReferenceRange(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"both bounds", `{"prueba": {}, "resultado": {"valor_ref_min": 4.5, "valor_ref_max": 11}}`, "4.5 - 11"},
		{"min only", `{"prueba": {}, "resultado": {"valor_ref_min": 3}}`, "> 3"},
		{"max only", `{"prueba": {}, "resultado": {"valor_ref_max": 200}}`, "< 200"},
		{"zero min is absent", `{"prueba": {}, "resultado": {"valor_ref_min": 0, "valor_ref_max": 40}}`, "< 40"},
		{"string bounds", `{"prueba": {}, "resultado": {"valor_ref_min": "70.0", "valor_ref_max": "100.0"}}`, "70.0 - 100.0"},
		{"code match", `{"prueba": {"codigoPrueba": "CBGV", "nombrePrueba": "X"}, "resultado": {}}`, "Escaso"},
		{"name match", `{"prueba": {"codigoPrueba": "Z", "nombrePrueba": "Células Guía"}, "resultado": {}}`, "Negativo"},
		{"hemoglobin", `{"prueba": {"nombrePrueba": "HEMOGLOBINA"}, "resultado": {}}`, "12.0 - 16.0 g/dL"},
		{"glucose", `{"prueba": {"nombrePrueba": "Glucosa basal"}, "resultado": {}}`, "70 - 100 mg/dL"},
		{"triglycerides", `{"prueba": {"nombrePrueba": "Triglicéridos"}, "resultado": {}}`, "< 150 mg/dL"},
		{"corynebacterium", `{"prueba": {"codigoPrueba": "CORY"}, "resultado": {}}`, "Negativo"},
		{"no match", `{"prueba": {"nombrePrueba": "Sodio"}, "resultado": {}}`, NormalValues},
	}

	g := NewGrouper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.ReferenceRange(rawTest(t, tt.raw)); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

// TestReferenceRange_InjectedTable tests that the fallback table can be replaced
func TestReferenceRange_InjectedTable(t *testing.T) {
	g := &Grouper{Defaults: []ReferenceDefault{{NameContains: "sodio", Range: "135 - 145 mmol/L"}}}

	if got := g.ReferenceRange(rawTest(t, `{"prueba": {"nombrePrueba": "Sodio"}, "resultado": {}}`)); got != "135 - 145 mmol/L" {
		t.Errorf("Expected injected range, got '%s'", got)
	}
	if got := g.ReferenceRange(rawTest(t, `{"prueba": {"nombrePrueba": "Glucosa"}, "resultado": {}}`)); got != NormalValues {
		t.Errorf("Expected default table to be replaced, got '%s'", got)
	}
}

func TestGroupEntry_Rows(t *testing.T) {
	p := decodePayload(t, samplePayload)
	grouped := NewGrouper().Group(p.Groups)
	mb, _ := grouped.Get("MB-Microbiología")
	date := "01/03/2024, 10:30"

	rows := mb.Rows(&date)

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if *rows[0].ID != "2000" || *rows[0].Code != "BLAS" || rows[0].Value != "Negativo" || rows[0].ReferenceRange != "Negativo" {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[1].Unit != nil {
		t.Error("Expected missing unit to be nil")
	}
	if rows[1].Value != "Muestra adecuada" || rows[1].ReferenceRange != NormalValues {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}
	if *rows[1].OrderDate != date {
		t.Errorf("Expected order date '%s', got '%s'", date, *rows[1].OrderDate)
	}
}

func TestBuildView(t *testing.T) {
	p := decodePayload(t, samplePayload)

	v := NewGrouper().BuildView("7", p, time.UTC)

	if v.Empty() {
		t.Fatal("Expected a non-empty view")
	}
	if len(v.Groups) != 2 || v.Groups[0].Name != "Química sanguínea" || v.Groups[0].PrimaryProcedure != "Glucosa en suero" {
		t.Errorf("Unexpected groups: %+v", v.Groups)
	}
	if got := *v.Groups[0].Rows[0].OrderDate; got != "01/03/2024, 10:30" {
		t.Errorf("Expected formatted order date, got '%s'", got)
	}
	if v.Patient == nil || v.Patient.FullName() != "Ana María Pérez Gómez" {
		t.Errorf("Unexpected patient: %+v", v.Patient)
	}
	if v.Order == nil || v.Order.ExternalProfessional != "Dr. Ruiz" {
		t.Errorf("Unexpected order: %+v", v.Order)
	}
}

// TestDecode_FlatResults tests the plain list forms of the results response
func TestDecode_FlatResults(t *testing.T) {
	for _, raw := range []string{
		`[{"codigo": "GLU", "nombre": "Glucosa", "valor": 90}]`,
		`{"data": [{"id_prueba": "GLU", "prueba": "Glucosa", "resultado": "90"}]}`,
	} {
		p := decodePayload(t, raw)
		if len(p.Flat) != 1 || len(p.Groups) != 0 {
			t.Fatalf("%s: expected one flat result, got %+v", raw, p)
		}

		v := NewGrouper().BuildView("1", p, time.UTC)
		if v.Flat[0].Code != "GLU" || v.Flat[0].Value != "90" {
			t.Errorf("%s: unexpected flat view %+v", raw, v.Flat[0])
		}
	}
}

// TestDecode_MalformedNestedLists tests that bad list shapes only drop the affected entries
func TestDecode_MalformedNestedLists(t *testing.T) {
	p := decodePayload(t, `{"grupos": [
		{"grupoId": 1, "grupoCodigo": "A", "grupoNombre": "Uno", "procedimientos": {}},
		{"grupoId": 2, "grupoCodigo": "B", "grupoNombre": "Dos", "procedimientos": [
			{"procedimiento": {"codigo": "P", "nombre": "Proc"}, "pruebas": "x"},
			{"procedimiento": "not an object", "pruebas": []},
			{"procedimiento": {"codigo": "Q", "nombre": "Otro"}, "pruebas": [
				{"prueba": {"codigoPrueba": "X", "nombrePrueba": "Buena"}, "resultado": {"resTexto": "ok"}},
				{"prueba": [], "resultado": {}}
			]}
		]},
		"not a group"
	], "orden": {"id": 7}}`)

	if len(p.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(p.Groups))
	}
	if len(p.Groups[0].Procedures) != 0 {
		t.Errorf("Expected object procedures to decode as empty, got %d", len(p.Groups[0].Procedures))
	}
	procs := p.Groups[1].Procedures
	if len(procs) != 2 {
		t.Fatalf("Expected the malformed procedure to be dropped, got %d", len(procs))
	}
	if len(procs[0].Tests) != 0 {
		t.Errorf("Expected string tests to decode as empty, got %d", len(procs[0].Tests))
	}
	if len(procs[1].Tests) != 1 || procs[1].Tests[0].Test.Name.Value != "Buena" {
		t.Errorf("Unexpected tests: %+v", procs[1].Tests)
	}
	if p.Order == nil || p.Order.ID.Value != "7" {
		t.Errorf("Expected order block to survive, got %+v", p.Order)
	}

	v := NewGrouper().BuildView("7", p, time.UTC)
	if v.Empty() {
		t.Error("Expected the valid results to be shown")
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte(`{"grupos": `)); err == nil {
		t.Error("Expected error for truncated body")
	}
}

func TestDecode_EmptyObject(t *testing.T) {
	p := decodePayload(t, `{}`)

	v := NewGrouper().BuildView("1", p, time.UTC)

	if !v.Empty() {
		t.Error("Expected empty view")
	}
	if v.Patient != nil || v.Order != nil {
		t.Error("Expected no header blocks")
	}
}
