package labreport

import "regexp"

// Field is one header value. Absent fields keep Value == "" and Found == false.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Header lists a family's fields in the order of its label table.
type Header []Field

// Get returns the value of a label and whether it was found.
func (h Header) Get(label string) (string, bool) {
	for _, f := range h {
		if f.Label == label {
			return f.Value, f.Found
		}
	}
	return "", false
}

// Missing returns the labels whose pattern did not match.
func (h Header) Missing() []string {
	var out []string
	for _, f := range h {
		if !f.Found {
			out = append(out, f.Label)
		}
	}
	return out
}

// Map flattens the header for JSON consumers; absent labels map to "".
func (h Header) Map() map[string]string {
	out := make(map[string]string, len(h))
	for _, f := range h {
		out[f.Label] = f.Value
	}
	return out
}

type compiledField struct {
	label string
	re    *regexp.Regexp
}

const (
	textValue = `[ \t]*:[ \t]*([^\n]*?)[ \t]*$`
	dateValue = `[ \t]*:[ \t]*(\d{2}/\d{2}/\d{4})`
)

func compileFields(rules []FieldRule) []compiledField {
	out := make([]compiledField, len(rules))
	for i, r := range rules {
		value := textValue
		if r.Kind == FieldDate {
			value = dateValue
		}
		out[i] = compiledField{
			label: r.Label,
			re:    regexp.MustCompile(`(?m)^[ \t]*(?:` + r.Pattern + `)` + value),
		}
	}
	return out
}

// ExtractHeader applies each rule, in order, against the general-information
// zone. Values never extend past the end of the label's line. It panics if
// a rule pattern does not compile.
func ExtractHeader(text string, rules []FieldRule) Header {
	return extractHeader(text, compileFields(rules))
}

func extractHeader(text string, fields []compiledField) Header {
	h := make(Header, len(fields))
	for i, f := range fields {
		h[i].Label = f.label
		if m := f.re.FindStringSubmatch(text); m != nil && m[1] != "" {
			h[i].Value = m[1]
			h[i].Found = true
		}
	}
	return h
}
