package labreport

import (
	"context"

	"github.com/joseph-ayodele/labex-extractor/constants"
)

// ZoneStats records the size in bytes of each normalized zone.
type ZoneStats struct {
	GeneralInfo      int `json:"general_info"`
	ChemicalAnalysis int `json:"chemical_analysis"`
	Conclusion       int `json:"conclusion"`
}

// Result is the outcome of one report extraction.
type Result struct {
	Family constants.Family `json:"family"`
	Schema Schema           `json:"schema"`
	Header Header           `json:"header"`
	Rows   []Row            `json:"rows"`
	Zones  ZoneStats        `json:"zones"`
}

// FlatRows returns the analysis rows followed by one row per header field,
// with the label in the first column and the value in the Résultat column.
func (r *Result) FlatRows() []Row {
	out := make([]Row, 0, len(r.Rows)+len(r.Header))
	out = append(out, r.Rows...)
	valueCol := r.Schema.Index("Résultat")
	for _, f := range r.Header {
		row := make(Row, r.Schema.Width())
		row[0] = f.Label
		if valueCol > 0 {
			row[valueCol] = f.Value
		}
		out = append(out, row)
	}
	return out
}

// Extractor runs normalize, segment and extract for one report at a time.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	extended bool
	family   constants.Family
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExtendedSchema toggles the twelve-column LABEXIA layout.
func WithExtendedSchema(on bool) Option {
	return func(e *Extractor) { e.extended = on }
}

// WithFamily forces a family instead of selecting it from the hint.
func WithFamily(f constants.Family) Option {
	return func(e *Extractor) { e.family = f }
}

// New returns an Extractor with the extended LABEXIA schema enabled.
func New(opts ...Option) *Extractor {
	e := &Extractor{extended: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Family returns the family used for a hint.
func (e *Extractor) Family(hint string) constants.Family {
	if e.family != "" {
		return e.family
	}
	return constants.SelectFamily(hint)
}

// Layout returns the family and table schema Extract uses for a hint.
func (e *Extractor) Layout(hint string) (constants.Family, Schema) {
	p := ProfileFor(e.Family(hint))
	if e.extended && p.Extended.Width() > 0 {
		return p.Family, p.Extended
	}
	return p.Family, p.Schema
}

// Extract processes raw report text. The hint is usually the file name.
// The only error is a *SegmentationError.
func (e *Extractor) Extract(raw, hint string) (*Result, error) {
	p := ProfileFor(e.Family(hint))
	text := normalizeWith(raw, p)

	sections, err := Segment(text, p.Markers)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Family: p.Family,
		Schema: p.Schema,
		Header: extractHeader(sections.GeneralInfo, p.fields),
		Zones: ZoneStats{
			GeneralInfo:      len(sections.GeneralInfo),
			ChemicalAnalysis: len(sections.ChemicalAnalysis),
			Conclusion:       len(sections.Conclusion),
		},
	}

	rows := ExtractRows(sections.ChemicalAnalysis, p.Schema)
	if !e.extended || p.Extended.Width() == 0 {
		res.Rows = rows
		return res, nil
	}

	res.Schema = p.Extended
	width := p.Extended.Width()
	res.Rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		res.Rows = append(res.Rows, r.place(width, 0))
	}
	for _, pass := range p.passes {
		res.Rows = append(res.Rows, anchoredRows(pass, width, sections.ChemicalAnalysis, sections.GeneralInfo)...)
	}
	return res, nil
}

// ExtractContext is Extract bounded by ctx. The extraction itself cannot be
// interrupted; on cancellation the result is discarded.
func (e *Extractor) ExtractContext(ctx context.Context, raw, hint string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ctx.Done() == nil {
		return e.Extract(raw, hint)
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Extract(raw, hint)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}
