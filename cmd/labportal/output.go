package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}

// recordText returns the first alias present in r as text, or "-".
func recordText(r normalize.Record, aliases ...string) string {
	v, ok := r.First(aliases...)
	if !ok {
		return "-"
	}
	if b, ok := v.(bool); ok {
		return yesNo(b)
	}
	if s, ok := normalize.Stringify(v); ok && s != "" {
		return s
	}
	return "-"
}

func pageFooter(meta pagination.Meta, noun string) string {
	pages := meta.TotalPages
	if pages < 1 {
		pages = 1
	}
	return fmt.Sprintf("Página %d de %d (%d %s)", meta.CurrentPage, pages, meta.TotalRecords, noun)
}
