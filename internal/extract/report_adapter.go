package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
)

// ReportAdapter runs the lab report extractor as a FieldExtractor.
type ReportAdapter struct {
	x       *labreport.Extractor
	timeout time.Duration
	logger  *slog.Logger
}

// NewReportAdapter bounds each extraction by timeout when it is positive.
func NewReportAdapter(x *labreport.Extractor, timeout time.Duration, logger *slog.Logger) *ReportAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if x == nil {
		x = labreport.New()
	}
	return &ReportAdapter{x: x, timeout: timeout, logger: logger}
}

// Layout reports the family and schema the wrapped extractor uses for hint.
func (a *ReportAdapter) Layout(hint string) (constants.Family, labreport.Schema) {
	return a.x.Layout(hint)
}

func (a *ReportAdapter) ExtractFields(ctx context.Context, text, hint string) (FieldsResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := a.x.ExtractContext(ctx, text, hint)
	if err != nil {
		a.logger.Warn("report.extract.failed", "hint", hint, "error", err)
		return FieldsResult{}, err
	}

	b, err := json.Marshal(res)
	if err != nil {
		return FieldsResult{}, fmt.Errorf("marshal report: %w", err)
	}

	a.logger.Info("report.extract.ok",
		"hint", hint,
		"family", res.Family,
		"rows", len(res.Rows),
		"missing", len(res.Header.Missing()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return FieldsResult{Report: res, JSON: string(b)}, nil
}
