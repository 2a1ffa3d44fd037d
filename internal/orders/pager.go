package orders

import (
	"context"
	"errors"
	"sync"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
)

// ErrStale is returned by Load when a newer load was issued while this one
// was in flight. The stale response is discarded.
var ErrStale = errors.New("stale orders response discarded")

// Pager keeps the current page, filter and total for one patient's order
// list. Changing the filter returns to the first page. Each Load is tagged
// with a sequence number and only the latest one updates the pager.
type Pager struct {
	fetcher   Fetcher
	personaID int64

	mu     sync.Mutex
	params pagination.Params
	filter Filter
	total  int
	items  []normalize.Order
	issued uint64
}

func NewPager(fetcher Fetcher, personaID int64, limit int) *Pager {
	return &Pager{
		fetcher:   fetcher,
		personaID: personaID,
		params:    pagination.NewParams(pagination.DefaultPage, limit),
	}
}

// SetFilter replaces the filter and resets to page 1.
func (p *Pager) SetFilter(f Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
	p.params.Page = pagination.DefaultPage
}

// Filter returns the active filter.
func (p *Pager) Filter() Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// Next advances one page when more records exist.
func (p *Pager) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.params.HasNext(p.total) {
		return false
	}
	p.params.Page++
	return true
}

// Previous steps back one page when not on the first.
func (p *Pager) Previous() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.params.HasPrevious() {
		return false
	}
	p.params.Page--
	return true
}

// Load fetches the current page. When another Load starts before this one
// returns, the result is discarded and ErrStale is returned.
func (p *Pager) Load(ctx context.Context) (*Listing, error) {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	q := Query{
		PersonaID: p.personaID,
		Page:      p.params.Page,
		Limit:     p.params.Limit,
		Filter:    p.filter,
	}
	p.mu.Unlock()

	listing, err := p.fetcher.FetchOrders(ctx, q)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.issued {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	p.total = listing.Total
	p.items = listing.Items
	return listing, nil
}

// Page returns the current page number.
func (p *Pager) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params.Page
}

// Total returns the total reported by the last successful load.
func (p *Pager) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// Items returns the orders of the last successful load.
func (p *Pager) Items() []normalize.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]normalize.Order, len(p.items))
	copy(out, p.items)
	return out
}

// Meta summarizes the position for display.
func (p *Pager) Meta() pagination.Meta {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params.CalculateMeta(p.total)
}
