package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "native" | "pdftotext"
	Duration time.Duration
	Warnings []string
}

// FieldExtractor is Stage 2: text -> header fields and analysis rows.
// The hint is the originating file name, used to pick the report family.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text, hint string) (FieldsResult, error)
}

// LayoutReporter is implemented by field extractors that know, before any
// text is read, which family and table schema a hint resolves to.
type LayoutReporter interface {
	Layout(hint string) (constants.Family, labreport.Schema)
}

type FieldsResult struct {
	Report *labreport.Result
	// JSON is the serialized Report, validated against the result schema elsewhere.
	JSON string
}
