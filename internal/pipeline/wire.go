package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/extract"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/pdftext"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

// PDFConfig maps the application's PDF section onto the text extractor.
func PDFConfig(c common.PDFConfig) pdftext.Config {
	return pdftext.Config{
		Method:    c.Method,
		Pdftotext: c.Pdftotext,
		MaxPages:  c.MaxPages,
		Inspect:   c.Inspect,
	}
}

// NewFromConfig wires pdftext and labreport into a Processor over jobs.
// Extra options are applied after the configured schema toggle.
func NewFromConfig(cfg *common.Config, jobs repository.ExtractJobRepository, logger *slog.Logger, opts ...labreport.Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	pdf := pdftext.NewExtractor(PDFConfig(cfg.PDF), logger)

	xopts := append([]labreport.Option{labreport.WithExtendedSchema(cfg.Extraction.ExtendedSchema)}, opts...)
	x := labreport.New(xopts...)

	text := NewTextStage(jobs, extract.NewPDFTextAdapter(pdf, logger), logger)
	parse := NewParseStage(logger, jobs, extract.NewReportAdapter(x, cfg.Extraction.Timeout, logger))
	return NewProcessor(logger, jobs, text, parse)
}
