package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/extract"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

type TextStage struct {
	JobsRepo      repository.ExtractJobRepository
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewTextStage(jobs repository.ExtractJobRepository, tx extract.TextExtractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{JobsRepo: jobs, TextExtractor: tx, Logger: logger}
}

// Run moves a registered job to RUNNING, extracts the PDF text and stores it
// (TEXT_OK). Any extraction error marks the job FAILED and is returned.
func (s *TextStage) Run(ctx context.Context, jobID uuid.UUID) (extract.TextExtractionResult, error) {
	job, err := s.JobsRepo.Get(ctx, jobID)
	if err != nil {
		return extract.TextExtractionResult{}, fmt.Errorf("load job: %w", err)
	}

	if constants.MapExtToFormat(filepath.Ext(job.SourcePath)) == "" {
		err := fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Ext(job.SourcePath))
		_ = s.JobsRepo.FinishFailure(ctx, job.ID, err.Error())
		return extract.TextExtractionResult{}, err
	}

	if err := s.JobsRepo.Start(ctx, job.ID); err != nil {
		return extract.TextExtractionResult{}, err
	}

	res, err := s.TextExtractor.Extract(ctx, job.SourcePath)
	if err != nil {
		// The job must not stay RUNNING when the caller's context is gone.
		_ = s.JobsRepo.FinishFailure(context.WithoutCancel(ctx), job.ID, err.Error())
		return res, err
	}
	for _, w := range res.Warnings {
		s.Logger.Warn("text extraction warning", "job_id", job.ID, "warning", w)
	}

	out := repository.TextOutcome{RawText: res.Text, Method: res.Method, Pages: res.Pages}
	if err := s.JobsRepo.FinishText(ctx, job.ID, out); err != nil {
		return res, err
	}
	return res, nil
}
