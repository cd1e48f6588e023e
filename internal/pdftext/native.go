package pdftext

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (e *Extractor) native(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: MethodNative}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return res, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	if e.cfg.MaxPages > 0 && total > e.cfg.MaxPages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("only the first %d of %d pages read", e.cfg.MaxPages, total))
		total = e.cfg.MaxPages
	}

	var b strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}

	res.Text = b.String()
	res.Pages = total
	return res, nil
}
