package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
)

const (
	labexiaText   = "Dénomination : Saumon\nLot : L1\nCHIMIE\nProtéines  Kjeldahl  g/100g  20,1  >18  OK\nConclusion\nConforme\n"
	carrefourText = "Dénomination : Thon\nLot : 77\nCHIMIE\nHistamine  HPLC  mg/kg  <10  100\nSel  Volhard  g/100g  1,2  2\nConclusion\nOK\n"
)

func mustExtract(t *testing.T, x *labreport.Extractor, text, hint string) *labreport.Result {
	t.Helper()
	res, err := x.Extract(text, hint)
	if err != nil {
		t.Fatalf("Extract(%s) error = %v", hint, err)
	}
	return res
}

func TestWorkbookXLSX(t *testing.T) {
	x := labreport.New(labreport.WithExtendedSchema(false))
	reports := []Report{
		{Filename: "thon-carrefour.pdf", Result: mustExtract(t, x, carrefourText, "thon-carrefour.pdf")},
		{Filename: "saumon.pdf", Result: mustExtract(t, x, labexiaText, "saumon.pdf")},
		{Filename: "broken.pdf"},
	}

	b, err := WorkbookXLSX(reports)
	if err != nil {
		t.Fatalf("WorkbookXLSX() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	wantSheets := []string{
		"Informations LABEXIA", "Analyses LABEXIA",
		"Informations LABE-Carrefour", "Analyses LABE-Carrefour",
	}
	if diff := cmp.Diff(wantSheets, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	cells := []struct {
		sheet, cell, want string
	}{
		{"Informations LABEXIA", "A1", "Fichier"},
		{"Informations LABEXIA", "B1", "Dénomination"},
		{"Informations LABEXIA", "A2", "saumon.pdf"},
		{"Informations LABEXIA", "B2", "Saumon"},
		{"Analyses LABEXIA", "B1", "Détermination"},
		{"Analyses LABEXIA", "B2", "Protéines"},
		{"Analyses LABEXIA", "E2", "20,1"},
		{"Informations LABE-Carrefour", "A2", "thon-carrefour.pdf"},
		{"Analyses LABE-Carrefour", "A3", "thon-carrefour.pdf"},
		{"Analyses LABE-Carrefour", "B3", "Sel"},
		{"Analyses LABE-Carrefour", "A4", ""},
	}
	for _, c := range cells {
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s) error = %v", c.sheet, c.cell, err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}
}

func TestWorkbookXLSXEmpty(t *testing.T) {
	if _, err := WorkbookXLSX(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("error = %v, want ErrEmpty", err)
	}
}
