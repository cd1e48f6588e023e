package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/entity"
	"github.com/joseph-ayodele/labex-extractor/internal/pipeline"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

// ErrEmpty means there was no parsed report to export.
var ErrEmpty = errors.New("no parsed report to export")

// Service turns stored extraction jobs into XLSX bytes.
type Service struct {
	jobs   repository.ExtractJobRepository
	logger *slog.Logger
}

func NewService(jobs repository.ExtractJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobXLSX returns the workbook of a single PARSED job.
func (s *Service) ExportJobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, []*entity.ExtractJob{job}, "job_id", jobID.String())
}

// ExportXLSX returns one workbook with every PARSED job of the family
// (all families when empty), newest first, up to limit jobs.
func (s *Service) ExportXLSX(ctx context.Context, family constants.Family, limit int) ([]byte, error) {
	jobs, err := s.jobs.List(ctx, repository.ListFilter{
		Family: family,
		Status: constants.JobStatusParsed,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	return s.export(ctx, jobs, "family", string(family))
}

func (s *Service) export(_ context.Context, jobs []*entity.ExtractJob, key, value string) ([]byte, error) {
	start := time.Now()

	reports := make([]Report, 0, len(jobs))
	for _, job := range jobs {
		if job.Status != string(constants.JobStatusParsed) || len(job.ExtractedJSON) == 0 {
			s.logger.Warn("export.skip", "job_id", job.ID, "status", job.Status)
			continue
		}
		res, err := pipeline.DecodeResult(job)
		if err != nil {
			return nil, err
		}
		reports = append(reports, Report{Filename: job.Filename, Result: res})
	}

	b, err := WorkbookXLSX(reports)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		key, value,
		"reports", len(reports),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}
