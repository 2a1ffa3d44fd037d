// Package results turns an order's results payload into display-ready
// groups of procedures and tests.
package results

import (
	"strings"
)

// NoValue is displayed when a result carries no value at all.
const NoValue = "—"

// NormalValues is the reference range shown when no rule matches.
const NormalValues = "Valores normales"

// ReferenceDefault is a fallback reference range for tests whose result
// carries no bounds. A rule matches on the exact test code or on a substring
// of the lower-cased test name.
type ReferenceDefault struct {
	Code         string
	NameContains string
	Range        string
}

func (d ReferenceDefault) matches(code, lowerName string) bool {
	if d.Code != "" && code == d.Code {
		return true
	}
	return d.NameContains != "" && strings.Contains(lowerName, d.NameContains)
}

// DefaultReferenceTable holds the fallback ranges currently shown to
// patients. The values are not clinically sourced and await product review.
var DefaultReferenceTable = []ReferenceDefault{
	{Code: "BLAS", NameContains: "blastoconidia", Range: "Negativo"},
	{Code: "CGF", NameContains: "células guía", Range: "Negativo"},
	{Code: "CBGV", NameContains: "coco bacilos", Range: "Escaso"},
	{Code: "CORY", NameContains: "corynebacterium", Range: "Negativo"},
	{NameContains: "hemoglobina", Range: "12.0 - 16.0 g/dL"},
	{NameContains: "glucosa", Range: "70 - 100 mg/dL"},
	{NameContains: "colesterol", Range: "< 200 mg/dL"},
	{NameContains: "triglicéridos", Range: "< 150 mg/dL"},
}

// Group identifies a result group.
type Group struct {
	ID   string `json:"id"`
	Code string `json:"codigo"`
	Name string `json:"nombre"`
}

// Procedure identifies a procedure inside a group.
type Procedure struct {
	ID     string  `json:"id"`
	Code   string  `json:"codigo"`
	Name   string  `json:"nombre"`
	Method *string `json:"metodo,omitempty"`
}

// Test is one resolved test result.
type Test struct {
	ResultID       *string `json:"id"`
	Code           *string `json:"codigo"`
	Name           *string `json:"nombre"`
	Unit           *string `json:"unidad"`
	DisplayValue   string  `json:"resultado"`
	ReferenceRange string  `json:"valoresReferencia"`
}

// ProcedureEntry is a procedure with its tests.
type ProcedureEntry struct {
	Key       string    `json:"key"`
	Procedure Procedure `json:"procedimiento"`
	Tests     []Test    `json:"pruebas"`
}

// GroupEntry is a group with its procedures in first-seen order.
type GroupEntry struct {
	Key        string           `json:"key"`
	Group      Group            `json:"grupo"`
	Procedures []ProcedureEntry `json:"procedimientos"`
}

// Grouped is the ordered grouping of one order's results. Keys are
// "<code>-<name>"; a repeated key replaces the earlier entry in place.
type Grouped struct {
	Groups []GroupEntry `json:"grupos"`
	index  map[string]int
}

// Len returns the number of groups.
func (g *Grouped) Len() int {
	return len(g.Groups)
}

// Get returns the group stored under key.
func (g *Grouped) Get(key string) (*GroupEntry, bool) {
	i, ok := g.index[key]
	if !ok {
		return nil, false
	}
	return &g.Groups[i], true
}

// Keys returns group keys in display order.
func (g *Grouped) Keys() []string {
	keys := make([]string, len(g.Groups))
	for i, e := range g.Groups {
		keys[i] = e.Key
	}
	return keys
}

// Grouper resolves display values and reference ranges while grouping.
type Grouper struct {
	Defaults []ReferenceDefault
}

// NewGrouper returns a grouper using DefaultReferenceTable.
func NewGrouper() *Grouper {
	return &Grouper{Defaults: DefaultReferenceTable}
}

// Group builds the hierarchy from the payload's groups. It never fails;
// missing pieces become empty strings.
func (g *Grouper) Group(groups []RawGroup) *Grouped {
	out := &Grouped{Groups: []GroupEntry{}, index: map[string]int{}}

	for _, rg := range groups {
		entry := GroupEntry{
			Key: key(rg.Code.Value, rg.Name.Value),
			Group: Group{
				ID:   rg.ID.Value,
				Code: rg.Code.Value,
				Name: rg.Name.Value,
			},
			Procedures: g.procedures(rg.Procedures),
		}

		if i, ok := out.index[entry.Key]; ok {
			out.Groups[i] = entry
			continue
		}
		out.index[entry.Key] = len(out.Groups)
		out.Groups = append(out.Groups, entry)
	}
	return out
}

func (g *Grouper) procedures(raw []RawProcedure) []ProcedureEntry {
	entries := []ProcedureEntry{}
	index := map[string]int{}

	for _, rp := range raw {
		info := rp.Procedure
		entry := ProcedureEntry{
			Key: key(info.Code.Value, info.Name.Value),
			Procedure: Procedure{
				ID:     info.ID.Value,
				Code:   info.Code.Value,
				Name:   info.Name.Value,
				Method: info.Method.Ptr(),
			},
			Tests: make([]Test, 0, len(rp.Tests)),
		}
		for _, rt := range rp.Tests {
			entry.Tests = append(entry.Tests, g.Test(rt))
		}

		if i, ok := index[entry.Key]; ok {
			entries[i] = entry
			continue
		}
		index[entry.Key] = len(entries)
		entries = append(entries, entry)
	}
	return entries
}

func key(code, name string) string {
	return code + "-" + name
}

// Test resolves one raw test.
func (g *Grouper) Test(rt RawTest) Test {
	return Test{
		ResultID:       rt.Result.ID.Ptr(),
		Code:           rt.Test.Code.Ptr(),
		Name:           rt.Test.Name.Ptr(),
		Unit:           rt.Test.Unit.Ptr(),
		DisplayValue:   DisplayValue(rt.Result),
		ReferenceRange: g.ReferenceRange(rt),
	}
}

// DisplayValue picks the first non-empty of option, numeric, free text and
// memo. A numeric zero is a value.
func DisplayValue(r RawResult) string {
	switch {
	case r.Option.Value != "":
		return r.Option.Value
	case r.Numeric.Valid:
		return r.Numeric.Text
	case r.FreeText.Value != "":
		return r.FreeText.Value
	case r.Memo.Value != "":
		return r.Memo.Value
	}
	return NoValue
}

// ReferenceRange renders the result's bounds, falling back to the default
// table when neither bound is usable. Zero is not a usable bound.
func (g *Grouper) ReferenceRange(rt RawTest) string {
	lo, hi := rt.Result.RefMin, rt.Result.RefMax
	switch {
	case lo.bound() && hi.bound():
		return lo.Text + " - " + hi.Text
	case lo.bound():
		return "> " + lo.Text
	case hi.bound():
		return "< " + hi.Text
	}

	code := rt.Test.Code.Value
	name := strings.ToLower(rt.Test.Name.Value)
	for _, d := range g.Defaults {
		if d.matches(code, name) {
			return d.Range
		}
	}
	return NormalValues
}

// Row is one line of a group's results table.
type Row struct {
	ID             *string `json:"id"`
	Code           *string `json:"codigo"`
	Name           *string `json:"nombre"`
	Value          string  `json:"resultado"`
	ReferenceRange string  `json:"valoresReferencia"`
	Unit           *string `json:"unidad"`
	OrderDate      *string `json:"fechaOrden"`
}

// Rows flattens the group's procedures into table rows. orderDate is the
// already formatted order date, or nil.
func (e GroupEntry) Rows(orderDate *string) []Row {
	rows := []Row{}
	for _, p := range e.Procedures {
		for _, t := range p.Tests {
			rows = append(rows, Row{
				ID:             t.ResultID,
				Code:           t.Code,
				Name:           t.Name,
				Value:          t.DisplayValue,
				ReferenceRange: t.ReferenceRange,
				Unit:           t.Unit,
				OrderDate:      orderDate,
			})
		}
	}
	return rows
}

// PrimaryProcedure returns the name of the group's first procedure, or "".
func (e GroupEntry) PrimaryProcedure() string {
	if len(e.Procedures) == 0 {
		return ""
	}
	return e.Procedures[0].Procedure.Name
}
