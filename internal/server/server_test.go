package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/labex-extractor/internal/async"
	"github.com/joseph-ayodele/labex-extractor/internal/export"
	"github.com/joseph-ayodele/labex-extractor/internal/extract"
	"github.com/joseph-ayodele/labex-extractor/internal/ingest"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/pipeline"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

const sampleReport = "Dénomination : Thon\nLot : 77\nCHIMIE\nHistamine  HPLC  mg/kg  <10  100\nConclusion\nOK\n"

// textByName returns the report text registered for an upload's file name.
type textByName map[string]string

func (f textByName) Extract(_ context.Context, path string) (extract.TextExtractionResult, error) {
	base := filepath.Base(path)
	for name, text := range f {
		if strings.HasSuffix(base, "-"+name) {
			return extract.TextExtractionResult{Text: text, Pages: 1, Method: "native"}, nil
		}
	}
	return extract.TextExtractionResult{Pages: 1, Method: "native"}, nil
}

type fixture struct {
	api  *ReportsAPI
	proc *pipeline.Processor
	jobs repository.ExtractJobRepository
}

func newFixture(t *testing.T, texts textByName) *fixture {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "jobs.db") + "?_pragma=foreign_keys(1)"
	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close(nil) })
	if err := repository.Migrate(ctx, db, nil); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	jobs := repository.NewExtractJobRepository(db, nil)
	proc := pipeline.NewProcessor(nil, jobs,
		pipeline.NewTextStage(jobs, texts, nil),
		pipeline.NewParseStage(nil, jobs, extract.NewReportAdapter(labreport.New(), 0, nil)),
	)
	api := &ReportsAPI{
		Processor: proc,
		Jobs:      jobs,
		Stager:    ingest.NewStager(t.TempDir(), 1<<20, nil),
		Export:    export.NewService(jobs, nil),
		Ping:      func(ctx context.Context) error { return repository.HealthCheck(ctx, db, time.Second, nil) },
	}
	return &fixture{api: api, proc: proc, jobs: jobs}
}

func upload(t *testing.T, h http.Handler, target, filename string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(body)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type uploadBody struct {
	JobID        string            `json:"job_id"`
	Deduplicated bool              `json:"deduplicated"`
	Result       *labreport.Result `json:"result"`
	Error        string            `json:"error"`
	Job          *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"job"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) uploadBody {
	t.Helper()
	var b uploadBody
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return b
}

func TestHTTPUploadAndQuery(t *testing.T) {
	f := newFixture(t, textByName{"thon-carrefour.pdf": sampleReport})
	h := f.api.Router()

	rec := upload(t, h, "/reports", "thon-carrefour.pdf", []byte("%PDF-1.4 a"))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /reports = %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	want := []labreport.Row{{"Histamine", "HPLC", "mg/kg", "<10", "100", "", "", "", "", "", ""}}
	if diff := cmp.Diff(want, body.Result.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if v, ok := body.Result.Header.Get("Lot"); !ok || v != "77" {
		t.Errorf("Lot = %q, %t", v, ok)
	}

	again := decodeBody(t, upload(t, h, "/reports", "thon-carrefour.pdf", []byte("%PDF-1.4 a")))
	if !again.Deduplicated || again.JobID != body.JobID {
		t.Errorf("second upload = %+v", again)
	}

	rec = get(h, "/reports/"+body.JobID)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET job = %d", rec.Code)
	}
	if got := decodeBody(t, rec); got.Job == nil || got.Job.Status != "PARSED" || got.Result == nil {
		t.Errorf("GET job body = %s", rec.Body.String())
	}

	rec = get(h, "/reports?family=carrefour&limit=10")
	var list struct {
		Jobs []json.RawMessage `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list.Jobs) != 1 {
		t.Errorf("GET /reports = %d %s", rec.Code, rec.Body.String())
	}

	rec = get(h, "/reports/"+body.JobID+"/xlsx")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxContentType || rec.Body.Len() == 0 {
		t.Errorf("GET xlsx = %d %q (%d bytes)", rec.Code, rec.Header().Get("Content-Type"), rec.Body.Len())
	}

	rec = get(h, "/reports/xlsx?family=carrefour")
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("GET /reports/xlsx = %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "labex-labe_carrefour.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec := get(h, "/reports/xlsx?family=labexia"); rec.Code != http.StatusConflict {
		t.Errorf("GET /reports/xlsx?family=labexia = %d, want 409", rec.Code)
	}

	if rec := get(h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d", rec.Code)
	}
}

func TestHTTPErrors(t *testing.T) {
	f := newFixture(t, textByName{"broken.pdf": "no markers"})
	h := f.api.Router()

	tests := []struct {
		name string
		rec  *httptest.ResponseRecorder
		code int
	}{
		{"segmentation", upload(t, h, "/reports", "broken.pdf", []byte("x")), http.StatusUnprocessableEntity},
		{"extension", upload(t, h, "/reports", "notes.txt", []byte("x")), http.StatusBadRequest},
		{"empty upload", upload(t, h, "/reports", "empty.pdf", nil), http.StatusBadRequest},
		{"bad id", get(h, "/reports/nope"), http.StatusBadRequest},
		{"unknown id", get(h, "/reports/7d5b6a7e-8f0c-4f3e-9a51-000000000000"), http.StatusNotFound},
		{"bad limit", get(h, "/reports?limit=0"), http.StatusBadRequest},
		{"bad family", get(h, "/reports?family=acme"), http.StatusBadRequest},
		{"xlsx bad id", get(h, "/reports/nope/xlsx"), http.StatusBadRequest},
		{"export bad family", get(h, "/reports/xlsx?family=acme"), http.StatusBadRequest},
		{"export bad limit", get(h, "/reports/xlsx?limit=x"), http.StatusBadRequest},
		{"export empty", get(h, "/reports/xlsx"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rec.Code != tt.code {
				t.Errorf("status = %d, want %d (%s)", tt.rec.Code, tt.code, tt.rec.Body.String())
			}
		})
	}

	if body := tests[1].rec.Body.String(); !strings.Contains(body, "must be a .pdf file") {
		t.Errorf("extension error body = %s", body)
	}
}

func TestHTTPAsyncUpload(t *testing.T) {
	f := newFixture(t, textByName{"r.pdf": sampleReport})
	q := async.NewProcessorQueue(f.proc, nil, async.WithWorkers(1))
	f.api.Queue = q
	h := f.api.Router()

	rec := upload(t, h, "/reports?async=1", "r.pdf", []byte("%PDF async"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST async = %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body.Job == nil || body.Job.Status != "QUEUED" {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/reports/"+body.Job.ID {
		t.Errorf("Location = %q", loc)
	}

	q.Shutdown(context.Background())
	if got := decodeBody(t, get(h, "/reports/"+body.Job.ID)); got.Job.Status != "PARSED" {
		t.Errorf("status after drain = %s", got.Job.Status)
	}
}

func dialBufconn(t *testing.T, svc ExtractionServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterGRPC(s, svc)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGRPCExtract(t *testing.T) {
	f := newFixture(t, textByName{
		"thon-carrefour.pdf": sampleReport,
		"broken.pdf":         "no markers",
	})
	conn := dialBufconn(t, NewExtractionService(f.api.Stager, f.proc, nil))
	ctx := context.Background()

	out, err := CallExtract(ctx, conn, "thon-carrefour.pdf", []byte("%PDF grpc"))
	if err != nil {
		t.Fatalf("CallExtract() error = %v", err)
	}
	m := out.AsMap()
	if m["family"] != "LABE_CARREFOUR" || m["job_id"] == "" || m["deduplicated"] != false {
		t.Errorf("response = %v", m)
	}
	rows, _ := m["rows"].([]any)
	if len(rows) != 1 {
		t.Errorf("rows = %v", m["rows"])
	}

	_, err = CallExtract(ctx, conn, "broken.pdf", []byte("%PDF broken"))
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("broken code = %v, want FailedPrecondition", status.Code(err))
	}
	_, err = CallExtract(ctx, conn, "x.pdf", nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("empty code = %v, want InvalidArgument", status.Code(err))
	}

	hc, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ExtractionServiceName})
	if err != nil || hc.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("health = %v, %v", hc, err)
	}
}
