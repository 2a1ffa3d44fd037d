// Package orders holds the patient's lab order listing and the pager that
// walks it.
package orders

import (
	"context"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
)

// Filter narrows the order list. Empty fields are not sent.
type Filter struct {
	Search string `json:"search,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// Query is one page request for a patient's orders.
type Query struct {
	PersonaID int64
	Page      int
	Limit     int
	Filter
}

// Listing is one normalized page of orders.
type Listing struct {
	Items []normalize.Order `json:"items"`
	Page  int               `json:"page"`
	Total int               `json:"total"`
}

// NewListing normalizes a decoded list response.
func NewListing(v any) *Listing {
	env := pagination.NormalizeEnvelope(v)
	return &Listing{
		Items: normalize.NormalizeOrders(env.Items),
		Page:  env.Page,
		Total: env.Total,
	}
}

// Fetcher loads one page of orders.
type Fetcher interface {
	FetchOrders(ctx context.Context, q Query) (*Listing, error)
}
