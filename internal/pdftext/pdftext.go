package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/labex-extractor/constants"
)

// Extraction methods.
const (
	MethodNative    = "native"
	MethodPdftotext = "pdftotext"
	MethodAuto      = "auto"
)

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("pdftext: no text extracted")

type Config struct {
	Method    string // native | pdftotext | auto (pdftotext, then native); empty -> auto
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxPages  int    // 0 = no limit
	Inspect   bool   // validate the document with pdfcpu before extracting
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Method == "" {
		cfg.Method = MethodAuto
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner, mainly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract returns the text of every page, in page order.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if constants.MapExtToFormat(ext) != constants.PDF {
		e.logger.Error("unsupported extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	e.logger.Debug("starting text extraction", "path", path, "method", e.cfg.Method)

	var warns []string
	if e.cfg.Inspect {
		info, err := Inspect(path)
		if err != nil {
			warns = append(warns, err.Error())
			e.logger.Warn("pdf inspection failed", "path", path, "error", err)
		} else {
			e.logger.Debug("pdf inspected", "path", path, "pages", info.Pages, "bytes", info.Size)
		}
	}

	res, err := e.extract(ctx, path)
	res.Duration = time.Since(start)
	res.Warnings = append(warns, res.Warnings...)
	if err != nil {
		return res, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return res, ErrNoText
	}
	e.logger.Info("text extracted",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extract(ctx context.Context, path string) (ExtractionResult, error) {
	switch e.cfg.Method {
	case MethodNative:
		return e.native(ctx, path)
	case MethodPdftotext:
		return e.layout(ctx, path)
	case MethodAuto:
		res, err := e.layout(ctx, path)
		if err == nil && strings.TrimSpace(res.Text) != "" {
			return res, nil
		}
		warn := "pdftotext returned no text"
		if err != nil {
			warn = "pdftotext failed: " + err.Error()
		}
		e.logger.Warn("falling back to native reader", "path", path, "reason", warn)
		fallback, err := e.native(ctx, path)
		fallback.Warnings = append([]string{warn}, fallback.Warnings...)
		return fallback, err
	default:
		return ExtractionResult{}, fmt.Errorf("unknown extraction method: %q", e.cfg.Method)
	}
}
