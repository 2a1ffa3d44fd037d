package results

import "time"

// GroupView is one group ready for display.
type GroupView struct {
	Key              string `json:"key"`
	Name             string `json:"grupo"`
	PrimaryProcedure string `json:"procedimiento"`
	Rows             []Row  `json:"resultados"`
}

// View is everything shown for one order's results.
type View struct {
	OrderID string           `json:"ordenId"`
	Patient *Patient         `json:"paciente,omitempty"`
	Order   *OrderInfo       `json:"orden,omitempty"`
	Groups  []GroupView      `json:"grupos"`
	Flat    []FlatResultView `json:"resultados,omitempty"`
	Grouped *Grouped         `json:"-"`
}

// FlatResultView is a result from a backend that answers with a plain list.
type FlatResultView struct {
	Code           string `json:"codigo"`
	Name           string `json:"nombre"`
	Value          string `json:"resultado"`
	Unit           string `json:"unidad"`
	ReferenceRange string `json:"valoresReferencia"`
}

// Empty reports whether the order has nothing to show.
func (v *View) Empty() bool {
	return len(v.Groups) == 0 && len(v.Flat) == 0
}

// BuildView groups the payload and formats the order date in loc.
func (g *Grouper) BuildView(orderID string, p *Payload, loc *time.Location) *View {
	v := &View{
		OrderID: orderID,
		Patient: newPatient(p.Patient),
		Order:   newOrderInfo(p.Order),
		Groups:  []GroupView{},
	}

	var orderDate *string
	if v.Order != nil && v.Order.Date != "" {
		s := FormatOrderDate(v.Order.Date, loc)
		orderDate = &s
	}

	v.Grouped = g.Group(p.Groups)
	for _, e := range v.Grouped.Groups {
		v.Groups = append(v.Groups, GroupView{
			Key:              e.Key,
			Name:             e.Group.Name,
			PrimaryProcedure: e.PrimaryProcedure(),
			Rows:             e.Rows(orderDate),
		})
	}

	for _, r := range p.Flat {
		v.Flat = append(v.Flat, FlatResultView{
			Code:           ptr(r.Code),
			Name:           ptr(r.Name),
			Value:          first(ptr(r.Value), NoValue),
			Unit:           ptr(r.Unit),
			ReferenceRange: ptr(r.ReferenceRange),
		})
	}
	return v
}
