package pdftext

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Info is the structural summary of a PDF.
type Info struct {
	Pages int
	Size  int64
}

// Inspect reads and validates a PDF with pdfcpu.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return Info{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	return Info{Pages: ctx.PageCount, Size: st.Size()}, nil
}
