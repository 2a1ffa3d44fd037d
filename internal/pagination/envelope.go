package pagination

import (
	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
)

// Envelope is a list response reduced to items, page and total.
type Envelope struct {
	Items []any
	Page  int
	Total int
}

// NormalizeEnvelope accepts the list shapes the backend produces: a bare
// array, {items: [...]} or {data: [...]}, with the page under "pagina" or
// "page" and the total under "total" or "count". items is used only when it
// is an array. A missing or non-numeric page is 1; a missing total is the
// bare array's length, else 0.
func NormalizeEnvelope(v any) Envelope {
	if arr, ok := v.([]any); ok {
		return Envelope{Items: arr, Page: DefaultPage, Total: len(arr)}
	}

	r := normalize.NewRecord(v)
	env := Envelope{Items: []any{}, Page: DefaultPage}

	for _, key := range []string{"items", "data"} {
		list, _ := r.Lookup(key)
		if arr, ok := list.([]any); ok {
			env.Items = arr
			break
		}
	}

	if raw, ok := r.First("pagina", "page"); ok {
		if n, ok := normalize.Number(raw); ok && n >= 1 {
			env.Page = int(n)
		}
	}
	if raw, ok := r.First("total", "count"); ok {
		if n, ok := normalize.Number(raw); ok && n >= 0 {
			env.Total = int(n)
		}
	}
	return env
}
