package pdftext

import (
	"context"
	"strconv"
	"strings"
)

// layout runs pdftotext in layout mode, which keeps the column gaps the row
// extractor splits on.
func (e *Extractor) layout(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: MethodPdftotext}

	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, "-")

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		if len(errb) > 0 {
			res.Warnings = append(res.Warnings, string(errb))
		}
		return res, err
	}

	// A form-feed separates pages; the last page is terminated by one too.
	text := strings.TrimSuffix(string(out), "\f")
	res.Pages = 1 + strings.Count(text, "\f")
	res.Text = strings.ReplaceAll(text, "\f", "\n")
	return res, nil
}
