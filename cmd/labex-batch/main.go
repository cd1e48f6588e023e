package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/export"
	"github.com/joseph-ayodele/labex-extractor/internal/ingest"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/labex-extractor/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// batch collects the parsed reports of one run, keyed by source path.
type batch struct {
	proc    *pipeline.Processor
	logger  *slog.Logger
	workers int

	mu      sync.Mutex
	reports map[string]export.Report

	processed atomic.Int64
	failures  atomic.Int64
}

// run processes paths with bounded concurrency. A failing report is logged
// and counted; it never stops the others.
func (b *batch) run(ctx context.Context, paths []string) {
	var g errgroup.Group
	g.SetLimit(b.workers)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			b.process(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *batch) process(ctx context.Context, path string) {
	b.logger.Info("processing file", "path", path)
	out, err := b.proc.ProcessFile(ctx, path, "")
	if err != nil {
		b.logger.Error("failed to process file", "path", path, "job_id", out.JobID, "error", err)
		b.failures.Add(1)
		return
	}
	b.processed.Add(1)

	b.mu.Lock()
	b.reports[path] = export.Report{Filename: filepath.Base(path), Result: out.Result}
	b.mu.Unlock()
}

func (b *batch) writeWorkbook(out string) error {
	b.mu.Lock()
	reports := make([]export.Report, 0, len(b.reports))
	for _, r := range b.reports {
		reports = append(reports, r)
	}
	b.mu.Unlock()
	sort.Slice(reports, func(i, j int) bool { return reports[i].Filename < reports[j].Filename })

	data, err := export.WorkbookXLSX(reports)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use an in-memory SQLite job store")
		dir        = flag.String("dir", "", "directory to process reports from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers    = flag.Int("workers", 4, "reports processed concurrently")
		family     = flag.String("family", "", "force the report family for every file")
		watch      = flag.Bool("watch", false, "keep running and process new reports as they appear")
		skipHidden = flag.Bool("skip-hidden", true, "ignore dot files and dot directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "labex.xlsx")
	}
	if *workers < 1 {
		*workers = 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var opts []labreport.Option
	if *family != "" {
		f, ok := constants.ParseFamily(*family)
		if !ok {
			printError("Error: unknown family %q\n", *family)
			os.Exit(1)
		}
		opts = append(opts, labreport.WithFamily(f))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *inmem {
		cfg.Database.Driver = repo.DriverSQLite
		cfg.Database.DSN = repo.InMemoryDSN
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)
	if err := repo.Migrate(ctx, db, logger); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	jobs := repo.NewExtractJobRepository(db, logger)
	b := &batch{
		proc:    pipeline.NewFromConfig(cfg, jobs, logger, opts...),
		logger:  logger,
		workers: *workers,
		reports: map[string]export.Report{},
	}

	ingestor := ingest.NewFSIngestor(logger)
	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, *skipHidden)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}

	var paths []string
	for _, r := range results {
		if r.Err == "" && !r.Deduplicated {
			paths = append(paths, r.SourcePath)
		}
	}
	logger.Info("ingestion complete",
		"files_ingested", len(paths),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	b.run(ctx, paths)

	if err := b.writeWorkbook(*out); err != nil {
		logger.Error("failed to write workbook", "output", *out, "error", err)
	} else {
		logger.Info("workbook written", "output", *out)
	}

	logger.Info("batch processing complete",
		"files_ingested", len(paths),
		"files_processed", b.processed.Load(),
		"failures", b.failures.Load(),
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files ingested: %d\n", len(paths))
	fmt.Printf("- Files processed: %d\n", b.processed.Load())
	fmt.Printf("- Failures: %d\n", b.failures.Load())
	fmt.Printf("- Output: %s\n", *out)

	if !*watch {
		return
	}

	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:      []string{*dir},
		SkipHidden: *skipHidden,
		Debounce:   500 * time.Millisecond,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching for new reports", "dir", *dir)
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return
			}
			b.process(ctx, path)
			if err := b.writeWorkbook(*out); err != nil {
				logger.Error("failed to write workbook", "output", *out, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
