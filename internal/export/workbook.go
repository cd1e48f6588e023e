package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
)

// Report is one parsed file to place in a workbook.
type Report struct {
	Filename string
	Result   *labreport.Result
}

const fileColumn = "Fichier"

// InfoSheet and AnalysisSheet name the two sheets written per family.
func InfoSheet(f constants.Family) string     { return "Informations " + f.Label() }
func AnalysisSheet(f constants.Family) string { return "Analyses " + f.Label() }

// WorkbookXLSX writes the reports into a workbook with an information sheet
// and an analysis sheet per family present, in family order.
func WorkbookXLSX(reports []Report) ([]byte, error) {
	groups := map[constants.Family][]Report{}
	for _, r := range reports {
		if r.Result == nil {
			continue
		}
		groups[r.Result.Family] = append(groups[r.Result.Family], r)
	}
	if len(groups) == 0 {
		return nil, ErrEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, name := range constants.AsStringSlice() {
		family := constants.Family(name)
		group, ok := groups[family]
		if !ok {
			continue
		}
		if err := writeInfo(f, family, group); err != nil {
			return nil, err
		}
		if err := writeAnalyses(f, family, group); err != nil {
			return nil, err
		}
		if first {
			idx, _ := f.GetSheetIndex(InfoSheet(family))
			f.SetActiveSheet(idx)
			first = false
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("xlsx delete default sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInfo(f *excelize.File, family constants.Family, group []Report) error {
	sheet := InfoSheet(family)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx new sheet %q: %w", sheet, err)
	}

	rules := labreport.ProfileFor(family).Fields
	headers := make([]any, 0, len(rules)+1)
	headers = append(headers, fileColumn)
	for _, r := range rules {
		headers = append(headers, r.Label)
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}

	for i, rep := range group {
		values := make([]any, 0, len(headers))
		values = append(values, rep.Filename)
		for _, r := range rules {
			v, _ := rep.Result.Header.Get(r.Label)
			values = append(values, v)
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "B", last, 24)
	return nil
}

func writeAnalyses(f *excelize.File, family constants.Family, group []Report) error {
	sheet := AnalysisSheet(family)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx new sheet %q: %w", sheet, err)
	}

	// Base LABEXIA columns are a prefix of the extended ones, so the widest
	// schema of the group lays out every row.
	schema := group[0].Result.Schema
	for _, rep := range group[1:] {
		if rep.Result.Schema.Width() > schema.Width() {
			schema = rep.Result.Schema
		}
	}

	headers := make([]any, 0, schema.Width()+1)
	headers = append(headers, fileColumn)
	for _, c := range schema.Columns {
		headers = append(headers, c)
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}

	line := 2
	for _, rep := range group {
		for _, row := range rep.Result.Rows {
			values := make([]any, 0, len(row)+1)
			values = append(values, rep.Filename)
			for _, cell := range row {
				values = append(values, cell)
			}
			if err := writeRow(f, sheet, line, values); err != nil {
				return err
			}
			line++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx write row %d of %q: %w", row, sheet, err)
	}
	return nil
}
