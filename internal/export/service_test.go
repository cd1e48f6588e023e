package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/repository"
)

func openJobs(t *testing.T) repository.ExtractJobRepository {
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
	return repository.NewExtractJobRepository(db, nil)
}

func TestServiceExport(t *testing.T) {
	ctx := context.Background()
	jobs := openJobs(t)

	res := mustExtract(t, labreport.New(), carrefourText, "thon-carrefour.pdf")
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	job, err := jobs.Register(ctx, repository.NewJob{Filename: "thon-carrefour.pdf", SourcePath: "/tmp/x.pdf", ContentHash: "h1", Family: res.Family})
	if err != nil {
		t.Fatal(err)
	}
	if err := jobs.FinishParse(ctx, job.ID, repository.ParseOutcome{Family: res.Family, ExtractedJSON: string(b), RowCount: len(res.Rows)}); err != nil {
		t.Fatal(err)
	}
	pending, err := jobs.Register(ctx, repository.NewJob{Filename: "queued.pdf", SourcePath: "/tmp/y.pdf", ContentHash: "h2", Family: constants.LABEXIA})
	if err != nil {
		t.Fatal(err)
	}

	svc := NewService(jobs, nil)

	one, err := svc.ExportJobXLSX(ctx, job.ID)
	if err != nil {
		t.Fatalf("ExportJobXLSX() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(one))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got, _ := f.GetCellValue("Analyses LABE-Carrefour", "B2"); got != "Histamine" {
		t.Errorf("first analysis = %q", got)
	}

	if _, err := svc.ExportXLSX(ctx, "", 0); err != nil {
		t.Errorf("ExportXLSX() error = %v", err)
	}
	if _, err := svc.ExportXLSX(ctx, constants.LABEXIA, 0); !errors.Is(err, ErrEmpty) {
		t.Errorf("ExportXLSX(LABEXIA) error = %v, want ErrEmpty", err)
	}
	if _, err := svc.ExportJobXLSX(ctx, pending.ID); !errors.Is(err, ErrEmpty) {
		t.Errorf("ExportJobXLSX(queued) error = %v, want ErrEmpty", err)
	}
}
