package labreport

import "strings"

// Schema is the fixed column layout of an analysis table.
type Schema struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Width is the number of cells every row of this schema carries.
func (s Schema) Width() int { return len(s.Columns) }

// Index returns the position of a column title, or -1.
func (s Schema) Index(column string) int {
	for i, c := range s.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// fit truncates or right-pads cells to the schema width.
func (s Schema) fit(cells []string) Row {
	row := make(Row, s.Width())
	copy(row, cells)
	return row
}

// isHeading reports whether cells are the table's own column titles,
// which reports repeat at the top of each page.
func (s Schema) isHeading(cells []string) bool {
	return len(cells) > 0 && len(s.Columns) > 0 && strings.EqualFold(cells[0], s.Columns[0])
}

// Row is one analysis line. Missing cells are "", never absent.
type Row []string

// place copies r into a row of the given width starting at offset.
func (r Row) place(width, offset int) Row {
	out := make(Row, width)
	for i, v := range r {
		if offset+i < width {
			out[offset+i] = v
		}
	}
	return out
}

var (
	// LabexiaSchema is the six-column LABEXIA determination table.
	LabexiaSchema = Schema{
		Name: "labexia",
		Columns: []string{
			"Détermination",
			"Méthode",
			"Unité",
			"Résultat",
			"Spécification",
			"Incertitude",
		},
	}

	// LabexiaExtendedSchema appends the HPD-derived metrics and the timestamp.
	LabexiaExtendedSchema = Schema{
		Name: "labexia-extended",
		Columns: append(append([]string{}, LabexiaSchema.Columns...),
			"HPD",
			"Lipides rapportés à l'HPD 82",
			"SST rapportés à l'HPD 82",
			"Rapport collagène/protéine",
			"Poids net",
			"Horodatage",
		),
	}

	// CarrefourSchema is the LABE-Carrefour determination table.
	CarrefourSchema = Schema{
		Name: "labe-carrefour",
		Columns: []string{
			"Détermination",
			"Méthode",
			"Unité",
			"Résultat",
			"Règlementation",
			"Étiquetage",
			"CDC",
			"Incertitude",
			"Poids net",
			"Horodatage",
			"Poids net en g",
		},
	}
)
