// Package normalize maps heterogeneous backend records onto fixed shapes.
//
// The lab backend names the same field differently depending on the endpoint
// and version that produced the record. Each entity declares an alias table;
// a field takes the value of the first alias present in the record. The first
// alias of every field is its canonical name, so a record written with the
// canonical names normalizes back to the same value.
package normalize

import "strings"

// Profile field names.
const (
	FieldDocType     = "tipo"
	FieldDocNumber   = "numero"
	FieldBirthDate   = "fechaNacimiento"
	FieldSex         = "sexo"
	FieldMobile      = "celular"
	FieldAddress     = "direccion"
	FieldEmail       = "correo"
	FieldFullName    = "nombreCompleto"
	FieldInsurer     = "eps"
	FieldInsurerCode = "eps_codigo"
	FieldInsurerName = "eps_nombre"
)

// Order field names.
const (
	FieldOrderID       = "id"
	FieldOrderDate     = "fecha"
	FieldOrderDocument = "documento"
	FieldOrderNumber   = "numero"
)

// Result field names.
const (
	FieldResultCode  = "codigo"
	FieldResultName  = "nombre"
	FieldResultValue = "resultado"
	FieldResultUnit  = "unidad"
	FieldResultRange = "valoresReferencia"
)

// ProfileAliases lists, per profile field, the backend keys tried in order.
var ProfileAliases = map[string][]string{
	FieldDocType:     {"tipo", "tipoIdentificacion", "tipoId", "tipo_identificacion", "id_tipoid", "tipo_documento"},
	FieldDocNumber:   {"numero", "numeroIdentificacion", "documento", "numeroId", "numeroid", "num_documento"},
	FieldBirthDate:   {"fechaNacimiento", "fecha_nacimiento", "fechanac", "fecha_nac"},
	FieldSex:         {"sexo", "sexoBiologico", "sexo_biologico", "sexoNombre", "id_sexobiologico"},
	FieldMobile:      {"celular", "tel_movil", "telMovil", "telefono"},
	FieldAddress:     {"direccion", "direccion_residencia"},
	FieldEmail:       {"correo", "email"},
	FieldFullName:    {"nombreCompleto"},
	FieldInsurer:     {"eps", "eps_nombre"},
	FieldInsurerCode: {"eps_codigo"},
	FieldInsurerName: {"eps_nombre"},
}

// fullNameParts are tried in order when no explicit full name exists.
var fullNameParts = [][]string{
	{"nombre", "apellidos"},
	{"nombre1", "nombre2", "apellido1", "apellido2"},
	{"nombres", "apellidos"},
}

// OrderAliases lists, per order field, the backend keys tried in order.
var OrderAliases = map[string][]string{
	FieldOrderID:       {"id", "id_orden", "orden_id"},
	FieldOrderDate:     {"fecha", "fecha_orden", "fechaorden"},
	FieldOrderDocument: {"documento", "documento_orden", "numeroid", "num_documento", "numero_documento", "documento_paciente", "paciente_documento"},
	FieldOrderNumber:   {"numero", "numero_orden", "num_orden", "id_orden", "id"},
}

// ResultAliases lists, per flat result field, the backend keys tried in order.
var ResultAliases = map[string][]string{
	FieldResultCode:  {"codigo", "id_prueba", "prueba_codigo"},
	FieldResultName:  {"nombre", "prueba", "nombre_prueba"},
	FieldResultValue: {"resultado", "valor"},
	FieldResultUnit:  {"unidad", "unidad_medida"},
	FieldResultRange: {"valoresReferencia", "rango_referencia", "referencia"},
}

// resolve returns the first present alias value rendered as text, or nil.
func resolve(r Record, aliases []string) *string {
	v, ok := r.First(aliases...)
	if !ok {
		return nil
	}
	s, ok := Stringify(v)
	if !ok {
		return nil
	}
	return &s
}

func joinParts(r Record, keys []string) *string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := r.Lookup(k)
		if !ok || !truthy(v) {
			continue
		}
		if s, ok := Stringify(v); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, " ")
	return &s
}

func put(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

// Value dereferences an optional field, returning fallback for nil.
func Value(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
