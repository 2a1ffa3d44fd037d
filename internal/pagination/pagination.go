package pagination

import (
	"net/http"
	"strconv"
)

// Default pagination values
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params represents pagination query parameters
type Params struct {
	Page  int `json:"page"`  // Current page number (1-based)
	Limit int `json:"limit"` // Number of items per page
}

// Meta contains pagination metadata for responses
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	Showing      int  `json:"showing"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// NewParams returns params for the given page and limit, normalized.
func NewParams(page, limit int) Params {
	p := Params{Page: page, Limit: limit}
	p.Validate()
	return p
}

// ParseParams extracts and validates pagination parameters from HTTP request
func ParseParams(r *http.Request) Params {
	return ParseParamsWithLimit(r, DefaultLimit)
}

// ParseParamsWithLimit is ParseParams with a caller supplied default limit.
func ParseParamsWithLimit(r *http.Request, defaultLimit int) Params {
	page := DefaultPage
	limit := defaultLimit

	// Parse page parameter
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	// Parse limit parameter
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	return NewParams(page, limit)
}

// Validate ensures pagination parameters are valid and sets defaults if needed
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// HasNext reports whether another page exists after the current one.
func (p Params) HasNext(total int) bool {
	return p.Page*p.Limit < total
}

// HasPrevious reports whether the current page is past the first.
func (p Params) HasPrevious() bool {
	return p.Page > 1
}

// Showing is the count displayed by "showing X of Y": the records up to and
// including the current page, capped at total.
func (p Params) Showing(total int) int {
	n := p.Page * p.Limit
	if n > total {
		n = total
	}
	if n < 0 {
		n = 0
	}
	return n
}

// CalculateMeta creates pagination metadata based on total records
func (p Params) CalculateMeta(totalRecords int) Meta {
	totalPages := (totalRecords + p.Limit - 1) / p.Limit // Ceiling division
	if totalPages < 1 {
		totalPages = 1
	}

	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		Showing:      p.Showing(totalRecords),
		HasNext:      p.HasNext(totalRecords),
		HasPrevious:  p.HasPrevious(),
	}
}
