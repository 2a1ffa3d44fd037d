package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is an untransformed backend object kept next to the normalized view.
// Consumers of normalized fields never read it; secondary lookups go through
// the accessors below.
type Record struct {
	fields map[string]any
}

// NewRecord wraps a decoded JSON value. Anything that is not a JSON object
// becomes an empty record.
func NewRecord(v any) Record {
	m, _ := v.(map[string]any)
	return Record{fields: m}
}

// RecordFrom builds a record from explicit fields, dropping nil values.
func RecordFrom(fields map[string]any) Record {
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		if v != nil {
			m[k] = v
		}
	}
	return Record{fields: m}
}

// IsZero reports whether the record carries no fields.
func (r Record) IsZero() bool {
	return len(r.fields) == 0
}

// Lookup returns the value under key when it is present and non-null.
func (r Record) Lookup(key string) (any, bool) {
	if r.fields == nil {
		return nil, false
	}
	v, ok := r.fields[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether key is present and non-null.
func (r Record) Has(key string) bool {
	_, ok := r.Lookup(key)
	return ok
}

// First returns the value of the first present alias.
func (r Record) First(aliases ...string) (any, bool) {
	for _, a := range aliases {
		if v, ok := r.Lookup(a); ok {
			return v, true
		}
	}
	return nil, false
}

// String returns the value under key rendered as text.
func (r Record) String(key string) (string, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return "", false
	}
	return Stringify(v)
}

// Number returns the value under key coerced to a number.
func (r Record) Number(key string) (float64, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return 0, false
	}
	return Number(v)
}

// Record returns the nested object under key.
func (r Record) Record(key string) Record {
	v, _ := r.Lookup(key)
	return NewRecord(v)
}

// MarshalJSON emits the original fields unchanged.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.fields)
}

// UnmarshalJSON accepts any JSON value; non-objects yield an empty record.
func (r *Record) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = NewRecord(v)
	return nil
}

// Stringify renders a decoded JSON scalar as text. Objects and arrays are
// re-encoded as JSON. nil yields false.
func Stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// Number coerces a decoded JSON value to a finite number. Numeric strings
// are accepted after trimming; blank strings, booleans and non-finite values
// are not numbers.
func Number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// truthy mirrors the loose truthiness the backend payloads are written for:
// null, "", 0 and false are empty.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case bool:
		return x
	default:
		return true
	}
}
