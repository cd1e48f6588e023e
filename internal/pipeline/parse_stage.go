package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/extract"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

type ParseStage struct {
	Logger    *slog.Logger
	JobsRepo  repository.ExtractJobRepository
	Extractor extract.FieldExtractor
}

func NewParseStage(logger *slog.Logger, jobs repository.ExtractJobRepository, fe extract.FieldExtractor) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Logger: logger, JobsRepo: jobs, Extractor: fe}
}

// Run extracts the header and analysis rows from a TEXT_OK job's raw text,
// validates the serialized result and stores it (PARSED).
// Preconditions: job is TEXT_OK with raw_text set.
func (p *ParseStage) Run(ctx context.Context, jobID uuid.UUID) (*labreport.Result, error) {
	job, err := p.JobsRepo.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.Status != string(constants.JobStatusTextOK) || job.RawText == nil {
		return nil, fmt.Errorf("job not ready for parse: status=%s raw_text_empty=%t", job.Status, job.RawText == nil)
	}

	p.Logger.Info("parse fields start", "job_id", job.ID, "filename", job.Filename, "text_bytes", len(*job.RawText))

	fields, err := p.Extractor.ExtractFields(ctx, *job.RawText, job.Filename)
	if err != nil {
		_ = p.JobsRepo.FinishFailure(context.WithoutCancel(ctx), job.ID, err.Error())
		return nil, fmt.Errorf("extract fields: %w", err)
	}
	res := fields.Report

	if err := ValidateResultJSON(res.Schema, []byte(fields.JSON)); err != nil {
		_ = p.JobsRepo.FinishFailure(context.WithoutCancel(ctx), job.ID, err.Error())
		return nil, err
	}

	missing := res.Header.Missing()
	needsReview := len(missing) > 0 || len(res.Rows) == 0
	if needsReview {
		p.Logger.Warn("report needs review", "job_id", job.ID, "missing", missing, "rows", len(res.Rows))
	}

	out := repository.ParseOutcome{
		Family:        res.Family,
		ExtractedJSON: fields.JSON,
		RowCount:      len(res.Rows),
		NeedsReview:   needsReview,
	}
	if err := p.JobsRepo.FinishParse(ctx, job.ID, out); err != nil {
		return nil, err
	}

	p.Logger.Info("parsed fields successfully",
		"job_id", job.ID,
		"family", res.Family,
		"rows", len(res.Rows),
		"needs_review", needsReview,
	)
	return res, nil
}
