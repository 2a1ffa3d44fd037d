package normalize

// Order is one normalized lab order.
type Order struct {
	ID       *string `json:"id"`
	Date     *string `json:"fecha"`
	Document *string `json:"documento"`
	Number   *string `json:"numero"`

	Raw Record `json:"-"`
}

func NormalizeOrder(r Record) Order {
	return Order{
		ID:       resolve(r, OrderAliases[FieldOrderID]),
		Date:     resolve(r, OrderAliases[FieldOrderDate]),
		Document: resolve(r, OrderAliases[FieldOrderDocument]),
		Number:   resolve(r, OrderAliases[FieldOrderNumber]),
		Raw:      r,
	}
}

// NormalizeOrders maps a decoded JSON array onto orders. Non-object elements
// produce empty orders so positions are preserved.
func NormalizeOrders(items []any) []Order {
	out := make([]Order, 0, len(items))
	for _, it := range items {
		out = append(out, NormalizeOrder(NewRecord(it)))
	}
	return out
}

// Record renders the order under its canonical field names.
func (o Order) Record() Record {
	m := map[string]any{}
	put(m, FieldOrderID, o.ID)
	put(m, FieldOrderDate, o.Date)
	put(m, FieldOrderDocument, o.Document)
	put(m, FieldOrderNumber, o.Number)
	return Record{fields: m}
}

// Result is one flat test result, used when the backend answers the results
// endpoint with a plain list instead of the grouped payload.
type Result struct {
	Code           *string `json:"codigo"`
	Name           *string `json:"nombre"`
	Value          *string `json:"resultado"`
	Unit           *string `json:"unidad"`
	ReferenceRange *string `json:"valoresReferencia"`

	Raw Record `json:"-"`
}

func NormalizeResult(r Record) Result {
	return Result{
		Code:           resolve(r, ResultAliases[FieldResultCode]),
		Name:           resolve(r, ResultAliases[FieldResultName]),
		Value:          resolve(r, ResultAliases[FieldResultValue]),
		Unit:           resolve(r, ResultAliases[FieldResultUnit]),
		ReferenceRange: resolve(r, ResultAliases[FieldResultRange]),
		Raw:            r,
	}
}

func NormalizeResults(items []any) []Result {
	out := make([]Result, 0, len(items))
	for _, it := range items {
		out = append(out, NormalizeResult(NewRecord(it)))
	}
	return out
}
