package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/entity"
)

// NewJob describes a file about to be processed.
type NewJob struct {
	Filename    string
	SourcePath  string
	ContentHash string
	Family      constants.Family
}

// TextOutcome is what stage 1 persists.
type TextOutcome struct {
	RawText string
	Method  string
	Pages   int
}

// ParseOutcome is what stage 2 persists.
type ParseOutcome struct {
	Family        constants.Family
	ExtractedJSON string
	RowCount      int
	NeedsReview   bool
}

// ListFilter narrows List; zero values match everything.
type ListFilter struct {
	Family constants.Family
	Status constants.JobStatus
	Limit  int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type ExtractJobRepository interface {
	Register(ctx context.Context, job NewJob) (*entity.ExtractJob, error)
	Start(ctx context.Context, jobID uuid.UUID) error
	FinishText(ctx context.Context, jobID uuid.UUID, out TextOutcome) error
	FinishParse(ctx context.Context, jobID uuid.UUID, out ParseOutcome) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	FindByHash(ctx context.Context, hash string) ([]*entity.ExtractJob, error)
	List(ctx context.Context, f ListFilter) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

var jobColumns = []string{
	"id", "filename", "source_path", "content_hash", "family", "status",
	"started_at", "finished_at", "error_message", "raw_text", "method",
	"pages", "extracted_json", "row_count", "needs_review",
}

func (r *extractJobRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *extractJobRepo) Register(ctx context.Context, in NewJob) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:          uuid.New(),
		Filename:    in.Filename,
		SourcePath:  in.SourcePath,
		ContentHash: in.ContentHash,
		Family:      string(in.Family),
		Status:      string(constants.JobStatusQueued),
		StartedAt:   r.now(),
	}
	query, args := r.builder().
		Insert(extractJobTable).
		Columns("id", "filename", "source_path", "content_hash", "family", "status", "started_at", "pages", "row_count", "needs_review").
		Values(job.ID, job.Filename, job.SourcePath, job.ContentHash, job.Family, job.Status, job.StartedAt, 0, 0, false).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extract_job register failed", "filename", in.Filename, "err", err)
		return nil, fmt.Errorf("%w: register job: %v", common.ErrDatabase, err)
	}
	r.log.Info("extract_job registered", "job_id", job.ID, "filename", in.Filename, "family", in.Family)
	return job, nil
}

func (r *extractJobRepo) Start(ctx context.Context, jobID uuid.UUID) error {
	upd := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusRunning)).
		Set("started_at", r.now())
	if err := r.update(ctx, jobID, upd); err != nil {
		r.log.Error("extract_job start failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job started", "job_id", jobID)
	return nil
}

func (r *extractJobRepo) FinishText(ctx context.Context, jobID uuid.UUID, out TextOutcome) error {
	upd := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusTextOK)).
		Set("raw_text", out.RawText).
		Set("method", out.Method).
		Set("pages", out.Pages)
	if err := r.update(ctx, jobID, upd); err != nil {
		r.log.Error("extract_job finish(TEXT_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job text stored", "job_id", jobID, "method", out.Method, "pages", out.Pages)
	return nil
}

func (r *extractJobRepo) FinishParse(ctx context.Context, jobID uuid.UUID, out ParseOutcome) error {
	upd := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusParsed)).
		Set("family", string(out.Family)).
		Set("extracted_json", out.ExtractedJSON).
		Set("row_count", out.RowCount).
		Set("needs_review", out.NeedsReview).
		Set("finished_at", r.now())
	if err := r.update(ctx, jobID, upd); err != nil {
		r.log.Error("extract_job finish(PARSED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (PARSED)", "job_id", jobID, "rows", out.RowCount, "needs_review", out.NeedsReview)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	upd := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusFailed)).
		Set("error_message", message).
		Set("finished_at", r.now())
	if err := r.update(ctx, jobID, upd); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, upd *entsql.UpdateBuilder) error {
	query, args := upd.Where(entsql.EQ("id", jobID)).Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("extract_job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	jobs, err := r.query(ctx, entsql.EQ("id", jobID), 1)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("extract_job %s: %w", jobID, common.ErrNotFound)
	}
	return jobs[0], nil
}

// FindByHash returns every PARSED job for a content hash, newest first.
func (r *extractJobRepo) FindByHash(ctx context.Context, hash string) ([]*entity.ExtractJob, error) {
	jobs, err := r.query(ctx, entsql.And(
		entsql.EQ("content_hash", hash),
		entsql.EQ("status", string(constants.JobStatusParsed)),
	), maxListLimit)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("extract_job with hash %s: %w", hash, common.ErrNotFound)
	}
	return jobs, nil
}

func (r *extractJobRepo) List(ctx context.Context, f ListFilter) ([]*entity.ExtractJob, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var preds []*entsql.Predicate
	if f.Family != "" {
		preds = append(preds, entsql.EQ("family", string(f.Family)))
	}
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	var where *entsql.Predicate
	if len(preds) > 0 {
		where = entsql.And(preds...)
	}
	return r.query(ctx, where, limit)
}

func (r *extractJobRepo) query(ctx context.Context, where *entsql.Predicate, limit int) ([]*entity.ExtractJob, error) {
	sel := r.builder().
		Select(jobColumns...).
		From(entsql.Table(extractJobTable))
	if where != nil {
		sel = sel.Where(where)
	}
	query, args := sel.OrderBy(entsql.Desc("started_at")).Limit(limit).Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan extract_job: %v", common.ErrDatabase, err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func scanJob(rows entsql.Rows) (*entity.ExtractJob, error) {
	var (
		job        entity.ExtractJob
		finishedAt sql.NullTime
		errMsg     sql.NullString
		rawText    sql.NullString
		method     sql.NullString
		extracted  sql.NullString
	)
	err := rows.Scan(
		&job.ID, &job.Filename, &job.SourcePath, &job.ContentHash, &job.Family, &job.Status,
		&job.StartedAt, &finishedAt, &errMsg, &rawText, &method,
		&job.Pages, &extracted, &job.RowCount, &job.NeedsReview,
	)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if rawText.Valid {
		job.RawText = &rawText.String
	}
	if method.Valid {
		job.Method = &method.String
	}
	if extracted.Valid && extracted.String != "" {
		job.ExtractedJSON = []byte(extracted.String)
	}
	return &job, nil
}

// IsNotFound reports whether err means the job does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
