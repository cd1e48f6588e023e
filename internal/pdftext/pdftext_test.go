package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeRunner struct {
	out   string
	err   error
	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	return []byte(f.out), nil, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractPdftotext(t *testing.T) {
	path := writeFile(t, "report.pdf", "%PDF-1.4")
	r := &fakeRunner{out: "Lot : 1\fCHIMIE\nConclusion\f"}
	x := NewExtractor(Config{Method: MethodPdftotext, MaxPages: 3}, nil).WithRunner(r)

	res, err := x.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Text != "Lot : 1\nCHIMIE\nConclusion" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Pages != 2 || res.Method != MethodPdftotext {
		t.Errorf("Pages = %d, Method = %q", res.Pages, res.Method)
	}

	want := [][]string{{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", "-l", "3", path, "-"}}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("runner calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAutoPrefersLayout(t *testing.T) {
	path := writeFile(t, "report.pdf", "not a pdf")
	r := &fakeRunner{out: "CHIMIE\nSel  M1  g  1,2\nConclusion\n"}
	x := NewExtractor(Config{}, nil).WithRunner(r)

	res, err := x.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Method != MethodPdftotext {
		t.Errorf("Method = %q, want %q", res.Method, MethodPdftotext)
	}
	if !strings.Contains(res.Text, "Sel  M1  g  1,2") {
		t.Errorf("Text = %q, want column gaps kept", res.Text)
	}
	if len(r.calls) != 1 || len(res.Warnings) != 0 {
		t.Errorf("calls = %d, Warnings = %q", len(r.calls), res.Warnings)
	}
}

func TestExtractAutoFallsBack(t *testing.T) {
	path := writeFile(t, "broken.pdf", "not a pdf")
	r := &fakeRunner{err: errors.New("pdftotext not available")}
	x := NewExtractor(Config{}, nil).WithRunner(r)

	res, err := x.Extract(context.Background(), path)
	if err == nil {
		t.Fatal("Extract() error = nil, want native failure on garbage input")
	}
	if len(r.calls) != 1 {
		t.Errorf("runner calls = %d, want 1", len(r.calls))
	}
	if len(res.Warnings) == 0 || !strings.HasPrefix(res.Warnings[0], "pdftotext failed") {
		t.Errorf("Warnings = %q", res.Warnings)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		runner *fakeRunner
		check  func(error) bool
	}{
		{
			name:   "unsupported extension",
			file:   "scan.png",
			runner: &fakeRunner{},
			check:  func(err error) bool { return err != nil && strings.Contains(err.Error(), "unsupported extension") },
		},
		{
			name:   "empty text",
			file:   "blank.pdf",
			runner: &fakeRunner{out: " \n\f"},
			check:  func(err error) bool { return errors.Is(err, ErrNoText) },
		},
		{
			name:   "runner failure",
			file:   "x.pdf",
			runner: &fakeRunner{err: errors.New("exit status 1")},
			check:  func(err error) bool { return err != nil && err.Error() == "exit status 1" },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, tc.file, "x")
			x := NewExtractor(Config{Method: MethodPdftotext}, nil).WithRunner(tc.runner)
			if _, err := x.Extract(context.Background(), path); !tc.check(err) {
				t.Errorf("Extract() error = %v", err)
			}
		})
	}
}

func TestExtractUnknownMethod(t *testing.T) {
	path := writeFile(t, "x.pdf", "x")
	x := NewExtractor(Config{Method: "ocr"}, nil)
	if _, err := x.Extract(context.Background(), path); err == nil || !strings.Contains(err.Error(), "unknown extraction method") {
		t.Errorf("Extract() error = %v", err)
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := writeFile(t, "x.pdf", "definitely not a pdf")
	if _, err := Inspect(path); err == nil {
		t.Error("Inspect() error = nil, want failure")
	}
}
