// Package render prints extraction results as terminal tables.
package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
)

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(headers)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return t
}

// Header prints the general information fields as a two-column table.
// Absent fields are shown with an empty value.
func Header(w io.Writer, h labreport.Header) {
	t := newTable(w, []string{"Champ", "Valeur"})
	for _, f := range h {
		t.Append([]string{f.Label, f.Value})
	}
	t.Render()
}

// Rows prints the analysis rows under the schema's column titles.
func Rows(w io.Writer, s labreport.Schema, rows []labreport.Row) {
	t := newTable(w, s.Columns)
	for _, r := range rows {
		t.Append(r)
	}
	t.Render()
}

// Flat prints the single combined table: analysis rows, then one row per
// header field.
func Flat(w io.Writer, res *labreport.Result) {
	Rows(w, res.Schema, res.FlatRows())
}

// Result prints a titled header table followed by the analysis table.
func Result(w io.Writer, title string, res *labreport.Result) {
	fmt.Fprintf(w, "%s (%s)\n", title, res.Family.Label())
	Header(w, res.Header)
	if missing := res.Header.Missing(); len(missing) > 0 {
		fmt.Fprintf(w, "champs absents: %d\n", len(missing))
	}
	Rows(w, res.Schema, res.Rows)
}
