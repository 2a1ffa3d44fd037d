package pagination

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		query string
		page  int
		limit int
	}{
		{"", 1, 20},
		{"?page=3&limit=10", 3, 10},
		{"?page=0&limit=-5", 1, 20},
		{"?page=abc", 1, 20},
		{"?limit=1000", 1, MaxLimit},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/orders"+tt.query, nil)
		p := ParseParams(r)
		if p.Page != tt.page || p.Limit != tt.limit {
			t.Errorf("%q: expected page %d limit %d, got page %d limit %d", tt.query, tt.page, tt.limit, p.Page, p.Limit)
		}
	}
}

func TestParseParamsWithLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/orders", nil)

	p := ParseParamsWithLimit(r, 5)

	if p.Limit != 5 {
		t.Errorf("Expected default limit 5, got %d", p.Limit)
	}
}

// TestParams_Navigation tests the next/previous policy
func TestParams_Navigation(t *testing.T) {
	tests := []struct {
		page, limit, total int
		next, prev         bool
	}{
		{1, 20, 0, false, false},
		{1, 20, 20, false, false},
		{1, 20, 21, true, false},
		{2, 20, 40, false, true},
		{2, 20, 41, true, true},
		{3, 20, 41, false, true},
	}

	for _, tt := range tests {
		p := Params{Page: tt.page, Limit: tt.limit}
		if got := p.HasNext(tt.total); got != tt.next {
			t.Errorf("page %d total %d: expected HasNext %v, got %v", tt.page, tt.total, tt.next, got)
		}
		if got := p.HasPrevious(); got != tt.prev {
			t.Errorf("page %d: expected HasPrevious %v, got %v", tt.page, tt.prev, got)
		}
	}
}

func TestCalculateMeta(t *testing.T) {
	p := Params{Page: 3, Limit: 20}

	meta := p.CalculateMeta(45)

	if meta.TotalPages != 3 {
		t.Errorf("Expected 3 total pages, got %d", meta.TotalPages)
	}
	if meta.Showing != 45 {
		t.Errorf("Expected showing 45, got %d", meta.Showing)
	}
	if meta.HasNext {
		t.Error("Expected no next page")
	}
	if !meta.HasPrevious {
		t.Error("Expected a previous page")
	}
}

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}
	return v
}

func TestNormalizeEnvelope(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		items int
		page  int
		total int
	}{
		{"bare array", `[{"id":1},{"id":2},{"id":3}]`, 3, 1, 3},
		{"items with pagina", `{"items":[{"id":1}],"pagina":2,"total":41}`, 1, 2, 41},
		{"data with page and count", `{"data":[{"id":1},{"id":2}],"page":"4","count":"90"}`, 2, 4, 90},
		{"items wins over data", `{"items":[{"id":1}],"data":[{},{}]}`, 1, 1, 0},
		{"non-array items falls back to data", `{"items":{"id":1},"data":[{},{}]}`, 2, 1, 0},
		{"null items falls back to data", `{"items":null,"data":[{}]}`, 1, 1, 0},
		{"non-array items without data", `{"items":"x"}`, 0, 1, 0},
		{"pagina wins over page", `{"items":[],"pagina":3,"page":9}`, 0, 3, 0},
		{"missing everything", `{}`, 0, 1, 0},
		{"non-numeric page", `{"items":[],"pagina":"x","total":"y"}`, 0, 1, 0},
		{"null", `null`, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NormalizeEnvelope(decodeJSON(t, tt.raw))
			if len(env.Items) != tt.items {
				t.Errorf("Expected %d items, got %d", tt.items, len(env.Items))
			}
			if env.Page != tt.page {
				t.Errorf("Expected page %d, got %d", tt.page, env.Page)
			}
			if env.Total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, env.Total)
			}
		})
	}
}
