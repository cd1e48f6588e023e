package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/entity"
	"github.com/joseph-ayodele/labex-extractor/internal/extract"
	"github.com/joseph-ayodele/labex-extractor/internal/ingest"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

// Processor coordinates text extraction then report parsing for one job.
type Processor struct {
	Logger *slog.Logger
	Jobs   repository.ExtractJobRepository
	Text   *TextStage
	Parse  *ParseStage
}

// Outcome is what ProcessFile reports back to callers.
type Outcome struct {
	JobID        uuid.UUID
	Result       *labreport.Result
	Deduplicated bool
}

func NewProcessor(logger *slog.Logger, jobs repository.ExtractJobRepository, text *TextStage, parse *ParseStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Jobs: jobs, Text: text, Parse: parse}
}

// Register hashes a staged file and records a QUEUED job for it.
func (p *Processor) Register(ctx context.Context, path, filename string) (*entity.ExtractJob, error) {
	hash, _, err := ingest.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash file: %w", err)
	}
	if filename == "" {
		filename = filepath.Base(path)
	}
	return p.Jobs.Register(ctx, repository.NewJob{
		Filename:    filename,
		SourcePath:  path,
		ContentHash: hash,
		Family:      constants.SelectFamily(filename),
	})
}

// ProcessJob runs the remaining stages of a registered job. A job already
// holding its text skips extraction; a PARSED job returns its stored result.
func (p *Processor) ProcessJob(ctx context.Context, jobID uuid.UUID) (*labreport.Result, error) {
	job, err := p.Jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	log := p.logger(ctx)
	switch {
	case job.Status == string(constants.JobStatusParsed):
		return DecodeResult(job)
	case job.Status == string(constants.JobStatusTextOK) && job.RawText != nil:
		log.Info("processor.text.skipped", "job_id", jobID)
	default:
		res, err := p.Text.Run(ctx, jobID)
		if err != nil {
			log.Error("processor.text.failed", "job_id", jobID, "err", err)
			return nil, err
		}
		log.Info("processor.text.ok",
			"job_id", jobID,
			"method", res.Method,
			"pages", res.Pages,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}

	out, err := p.Parse.Run(ctx, jobID)
	if err != nil {
		log.Error("processor.parse.failed", "job_id", jobID, "err", err)
		return nil, err
	}
	log.Info("processor.parse.ok", "job_id", jobID)
	return out, nil
}

// ProcessFile registers and processes a file synchronously. A file whose
// content was already parsed under the same family and schema returns the
// earlier job without new work.
func (p *Processor) ProcessFile(ctx context.Context, path, filename string) (Outcome, error) {
	hash, _, err := ingest.HashFile(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash file: %w", err)
	}
	ctx = common.WithContentHash(ctx, hash)
	if filename == "" {
		filename = filepath.Base(path)
	}

	prev, err := p.Jobs.FindByHash(ctx, hash)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return Outcome{}, err
	}
	for _, job := range prev {
		res, err := DecodeResult(job)
		if err != nil {
			return Outcome{}, err
		}
		if p.sameLayout(res, filename) {
			p.logger(ctx).Info("processor.dedup", "job_id", job.ID)
			return Outcome{JobID: job.ID, Result: res, Deduplicated: true}, nil
		}
	}
	if len(prev) > 0 {
		p.logger(ctx).Info("processor.dedup.layout_changed", "parsed_jobs", len(prev))
	}

	job, err := p.Register(ctx, path, filename)
	if err != nil {
		return Outcome{}, err
	}
	res, err := p.ProcessJob(ctx, job.ID)
	return Outcome{JobID: job.ID, Result: res}, err
}

// sameLayout reports whether a stored result has the family and schema the
// current extractor would produce for filename.
func (p *Processor) sameLayout(res *labreport.Result, filename string) bool {
	lr, ok := p.Parse.Extractor.(extract.LayoutReporter)
	if !ok {
		return true
	}
	family, schema := lr.Layout(filename)
	return res.Family == family && res.Schema.Name == schema.Name
}

func (p *Processor) logger(ctx context.Context) *slog.Logger {
	if h := common.ContentHashFromContext(ctx); h != "" {
		return p.Logger.With("hash", h)
	}
	return p.Logger
}

// DecodeResult reads the stored result of a PARSED job.
func DecodeResult(job *entity.ExtractJob) (*labreport.Result, error) {
	if len(job.ExtractedJSON) == 0 {
		return nil, fmt.Errorf("extract_job %s has no stored result: %w", job.ID, common.ErrNotFound)
	}
	var res labreport.Result
	if err := json.Unmarshal(job.ExtractedJSON, &res); err != nil {
		return nil, fmt.Errorf("decode extract_job %s: %w", job.ID, err)
	}
	return &res, nil
}
