package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/export"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
	"github.com/joseph-ayodele/labex-extractor/internal/pdftext"
	"github.com/joseph-ayodele/labex-extractor/internal/pipeline"
	"github.com/joseph-ayodele/labex-extractor/internal/render"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		asJSON   = flag.Bool("json", false, "print the result as JSON instead of tables")
		flat     = flag.Bool("flat", false, "print one combined table, header fields appended as rows")
		xlsxOut  = flag.String("xlsx", "", "also write the result to this XLSX file")
		family   = flag.String("family", "", "force the report family (labexia, carrefour)")
		extended = flag.Bool("extended", true, "use the twelve-column LABEXIA layout")
		method   = flag.String("method", "", "text extraction method: native, pdftotext or auto")
		timeout  = flag.Duration("timeout", time.Minute, "overall time limit")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		printError("usage: labex [flags] <report.pdf>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *method != "" {
		cfg.PDF.Method = *method
	}

	opts := []labreport.Option{labreport.WithExtendedSchema(*extended)}
	if *family != "" {
		f, ok := constants.ParseFamily(*family)
		if !ok {
			printError("Error: unknown family %q (want one of %v)\n", *family, constants.AsStringSlice())
			os.Exit(2)
		}
		opts = append(opts, labreport.WithFamily(f))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	text, err := pdftext.NewExtractor(pipeline.PDFConfig(cfg.PDF), logger).Extract(ctx, path)
	if err != nil {
		printError("Error: text extraction failed: %v\n", err)
		os.Exit(1)
	}
	for _, w := range text.Warnings {
		logger.Warn("text extraction warning", "warning", w)
	}

	name := filepath.Base(path)
	res, err := labreport.New(opts...).ExtractContext(ctx, text.Text, name)
	if err != nil {
		printError("Error: %s: %v\n", name, err)
		os.Exit(1)
	}

	switch {
	case *asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
	case *flat:
		render.Flat(os.Stdout, res)
	default:
		render.Result(os.Stdout, name, res)
	}

	if *xlsxOut != "" {
		b, err := export.WorkbookXLSX([]export.Report{{Filename: name, Result: res}})
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, b, 0o644); err != nil {
			printError("Error: write %s: %v\n", *xlsxOut, err)
			os.Exit(1)
		}
		logger.Info("workbook written", "path", *xlsxOut)
	}
}
