package labreport

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labex-extractor/constants"
)

// FieldKind selects the value pattern of a header field.
type FieldKind int

const (
	// FieldText captures everything up to the end of the line.
	FieldText FieldKind = iota
	// FieldDate only accepts a DD/MM/YYYY value.
	FieldDate
)

// FieldRule declares one header field: the label shown to users, the
// regular expression fragment matching that label in the report, and the
// shape of its value.
type FieldRule struct {
	Label   string
	Pattern string
	Kind    FieldKind
}

// Markers are the literal headings that delimit the report zones.
type Markers struct {
	Analysis   string
	Conclusion string
}

// anchorPass populates a run of columns from a fixed sequence of labels.
type anchorPass struct {
	anchors []string
	offset  int
	re      *regexp.Regexp
}

// Profile is the complete rule set of one report family.
type Profile struct {
	Family  constants.Family
	Markers Markers
	Fields  []FieldRule
	Schema  Schema

	// Extended is the wide schema filled by the anchored passes; zero when
	// the family has none.
	Extended Schema

	fields     []compiledField
	lineLabels []*regexp.Regexp
	passes     []anchorPass
}

var labexiaFields = []FieldRule{
	{Label: "Dénomination", Pattern: `D[ée]nomination`},
	{Label: "Conditionnement", Pattern: `Conditionnement`},
	{Label: "Code produit client", Pattern: `Code produit client`},
	{Label: "Nombre d'uvc analysées", Pattern: `Nombre d['’ ]?uvc analys[ée]es`},
	{Label: "Numéro bon de commande", Pattern: `Num[ée]ro (?:de )?bon de commande`},
	{Label: "Famille de produit", Pattern: `Famille de produits?`},
	{Label: "N° client", Pattern: `N[ \t]*[°º]?[ \t]*client`},
	{Label: "Lot", Pattern: `Lot`},
	{Label: "Echantillon reçu le", Pattern: `[EÉ]chantillon re[çc]u le`, Kind: FieldDate},
	{Label: "Date limite de consommation", Pattern: `(?:Date limite de consommation|DLC)`, Kind: FieldDate},
}

var carrefourFields = []FieldRule{
	{Label: "Dénomination", Pattern: `D[ée]nomination`},
	{Label: "Conditionnement", Pattern: `Conditionnement`},
	{Label: "Code produit client", Pattern: `Code produit client`},
	{Label: "Lot", Pattern: `Lot`},
	{Label: "Fournisseur", Pattern: `Fournisseur`},
	{Label: "Echantillon reçu le", Pattern: `[EÉ]chantillon re[çc]u le`, Kind: FieldDate},
}

var defaultMarkers = Markers{Analysis: "CHIMIE", Conclusion: "Conclusion"}

var (
	labexiaProfile   = newProfile(constants.LABEXIA, defaultMarkers, labexiaFields, LabexiaSchema, LabexiaExtendedSchema)
	carrefourProfile = newProfile(constants.LABECarrefour, defaultMarkers, carrefourFields, CarrefourSchema, Schema{})
)

// ProfileFor returns the rule set of a family; unknown values get the default family's rules.
func ProfileFor(f constants.Family) *Profile {
	if f == constants.LABECarrefour {
		return carrefourProfile
	}
	return labexiaProfile
}

func newProfile(family constants.Family, m Markers, fields []FieldRule, schema, extended Schema) *Profile {
	p := &Profile{
		Family:   family,
		Markers:  m,
		Fields:   fields,
		Schema:   schema,
		Extended: extended,
		fields:   compileFields(fields),
	}

	p.lineLabels = append(p.lineLabels,
		regexp.MustCompile(regexp.QuoteMeta(m.Analysis)),
		regexp.MustCompile(regexp.QuoteMeta(m.Conclusion)),
	)
	for _, f := range fields {
		p.lineLabels = append(p.lineLabels, regexp.MustCompile(`(?:`+f.Pattern+`)[ \t]*:`))
	}

	if extended.Width() > 0 {
		p.passes = []anchorPass{
			newAnchorPass(schema.Width(), extended.Columns[schema.Width():extended.Width()-1]...),
			newAnchorPass(extended.Width()-1, extended.Columns[extended.Width()-1]),
		}
	}
	return p
}

func newAnchorPass(offset int, anchors ...string) anchorPass {
	var b strings.Builder
	b.WriteString(`(?s)`)
	for i, a := range anchors {
		b.WriteString(literalPattern(a))
		if i < len(anchors)-1 {
			b.WriteString(`[ \t]*:?\s*(.*?)\s*`)
		} else {
			b.WriteString(`[ \t]*:?[ \t]*([^\n]*)`)
		}
	}
	return anchorPass{
		anchors: anchors,
		offset:  offset,
		re:      regexp.MustCompile(b.String()),
	}
}

// literalPattern quotes s, letting spaces match any whitespace run and
// apostrophes match their typographic variant.
func literalPattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ':
			b.WriteString(`\s+`)
		case '\'', '’':
			b.WriteString(`['’]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
