package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/async"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/entity"
	"github.com/joseph-ayodele/labex-extractor/internal/export"
	"github.com/joseph-ayodele/labex-extractor/internal/ingest"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/pipeline"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsAPI serves uploads and queries of extraction jobs over HTTP.
type ReportsAPI struct {
	Processor *pipeline.Processor
	Jobs      repository.ExtractJobRepository
	Stager    *ingest.Stager
	Queue     async.Queue // nil disables ?async=1
	Export    *export.Service
	Ping      func(ctx context.Context) error
	MaxUpload int64
	Logger    *slog.Logger
}

// Router mounts the API routes on a chi router.
func (a *ReportsAPI) Router() http.Handler {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/health", a.handleHealth)
	r.Route("/reports", func(r chi.Router) {
		r.Post("/", a.handleUpload)
		r.Get("/", a.handleList)
		r.Get("/xlsx", a.handleExportAll)
		r.Get("/{id}", a.handleGet)
		r.Get("/{id}/xlsx", a.handleXLSX)
	})
	return r
}

func (a *ReportsAPI) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		log := a.Logger.With("request_id", reqID)
		ctx := common.WithLogger(common.WithRequestID(r.Context(), reqID), log)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// reportResponse is the JSON body returned for one job.
type reportResponse struct {
	Job          *entity.ExtractJob `json:"job,omitempty"`
	JobID        string             `json:"job_id,omitempty"`
	Deduplicated bool               `json:"deduplicated,omitempty"`
	Result       *labreport.Result  `json:"result,omitempty"`
	Error        string             `json:"error,omitempty"`
}

func (a *ReportsAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.Ping != nil {
		if err := a.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *ReportsAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := common.LoggerFromContext(ctx, a.Logger)

	if a.MaxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUpload+1<<20)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: multipart field \"file\": %v", common.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	if err := common.ValidateAndReturnError(common.NewValidator().
		Field("file", hdr.Filename, common.Required, common.PDFFilename)); err != nil {
		writeError(w, err)
		return
	}

	staged, err := a.Stager.Stage(ctx, hdr.Filename, file)
	if err != nil {
		log.Warn("upload rejected", "filename", hdr.Filename, "error", err)
		writeError(w, err)
		return
	}

	if queued, _ := strconv.ParseBool(r.URL.Query().Get("async")); queued && a.Queue != nil {
		a.enqueue(w, r, staged)
		return
	}

	out, err := a.Processor.ProcessFile(ctx, staged.Path, staged.Filename)
	if err != nil {
		log.Warn("report processing failed", "filename", staged.Filename, "error", err)
		resp := reportResponse{Error: err.Error()}
		if out.JobID != uuid.Nil {
			resp.JobID = out.JobID.String()
		}
		writeJSON(w, common.HTTPStatus(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		JobID:        out.JobID.String(),
		Deduplicated: out.Deduplicated,
		Result:       out.Result,
	})
}

func (a *ReportsAPI) enqueue(w http.ResponseWriter, r *http.Request, staged ingest.Staged) {
	ctx := r.Context()
	job, err := a.Processor.Register(ctx, staged.Path, staged.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	err = a.Queue.Enqueue(ctx, async.Job{
		JobID:       job.ID,
		SubmittedAt: time.Now(),
		TraceID:     common.RequestIDFromContext(ctx),
	})
	if err != nil {
		if errors.Is(err, async.ErrClosed) {
			writeJSON(w, http.StatusServiceUnavailable, reportResponse{JobID: job.ID.String(), Error: err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/reports/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, reportResponse{Job: job})
}

func (a *ReportsAPI) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := common.NewValidator()
	if fam := q.Get("family"); fam != "" {
		v.Field("family", fam, common.Family)
	}
	if st := q.Get("status"); st != "" {
		v.Field("status", st, common.OneOf(jobStatuses()...))
	}
	limit := 0
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			n = -1
		}
		v.Field("limit", n, common.Positive)
		limit = n
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		writeError(w, err)
		return
	}

	filter := repository.ListFilter{Status: constants.JobStatus(q.Get("status")), Limit: limit}
	if fam := q.Get("family"); fam != "" {
		filter.Family, _ = constants.ParseFamily(fam)
	}
	jobs, err := a.Jobs.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, j := range jobs {
		j.RawText = nil
		j.ExtractedJSON = nil
	}
	if jobs == nil {
		jobs = []*entity.ExtractJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (a *ReportsAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJob(w, r)
	if !ok {
		return
	}
	resp := reportResponse{Job: job}
	if job.Status == string(constants.JobStatusParsed) {
		res, err := pipeline.DecodeResult(job)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Result = res
	}
	job.RawText = nil
	job.ExtractedJSON = nil
	writeJSON(w, http.StatusOK, resp)
}

func (a *ReportsAPI) handleXLSX(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := a.Export.ExportJobXLSX(r.Context(), id)
	if err != nil {
		if errors.Is(err, export.ErrEmpty) {
			writeJSON(w, http.StatusConflict, reportResponse{JobID: id.String(), Error: "report is not parsed"})
			return
		}
		writeError(w, err)
		return
	}
	writeXLSX(w, "labex-"+id.String()+".xlsx", b)
}

// handleExportAll returns one workbook with the PARSED jobs of an optional family.
func (a *ReportsAPI) handleExportAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := common.NewValidator().Field("family", q.Get("family"), common.Family)
	limit := 0
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			n = -1
		}
		v.Field("limit", n, common.Positive)
		limit = n
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		writeError(w, err)
		return
	}

	var family constants.Family
	if fam := q.Get("family"); fam != "" {
		family, _ = constants.ParseFamily(fam)
	}
	b, err := a.Export.ExportXLSX(r.Context(), family, limit)
	if err != nil {
		if errors.Is(err, export.ErrEmpty) {
			writeJSON(w, http.StatusConflict, reportResponse{Error: "no parsed report to export"})
			return
		}
		writeError(w, err)
		return
	}
	name := "labex.xlsx"
	if family != "" {
		name = "labex-" + strings.ToLower(string(family)) + ".xlsx"
	}
	writeXLSX(w, name, b)
}

func (a *ReportsAPI) loadJob(w http.ResponseWriter, r *http.Request) (*entity.ExtractJob, bool) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	job, err := a.Jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return job, true
}

func jobID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	if err := common.ValidateAndReturnError(common.NewValidator().Field("id", raw, common.UUID)); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

func jobStatuses() []string {
	return []string{
		string(constants.JobStatusQueued),
		string(constants.JobStatusRunning),
		string(constants.JobStatusTextOK),
		string(constants.JobStatusParsed),
		string(constants.JobStatusFailed),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeXLSX(w http.ResponseWriter, filename string, b []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, common.HTTPStatus(err), map[string]string{"error": err.Error()})
}
