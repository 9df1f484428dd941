// Package export writes analysis reports as Excel workbooks.
package export

import (
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/results"
)

// Sheet names of the report workbook
const (
	SheetSummary     = "Summary"
	SheetProgress    = "Progress"
	SheetCoverage    = "Coverage"
	SheetCorrelation = "Correlation"
	SheetWorst       = "Worst Scored"
)

const defaultSheet = "Sheet1"

// ContentType of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportXLSX renders rep as a workbook with one sheet per section
func ReportXLSX(rep *analysis.Report) ([]byte, error) {
	f := excelize.NewFile()

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetSummary, summaryRows(rep.Summary)},
		{SheetProgress, progressRows(rep.Progress)},
		{SheetCoverage, coverageRows(rep.Coverage)},
		{SheetCorrelation, correlationRows(rep.Correlation)},
		{SheetWorst, tableRows(rep.Worst)},
	}

	for _, s := range sheets {
		f.NewSheet(s.name)
		if err := writeRows(f, s.name, s.rows); err != nil {
			return nil, fmt.Errorf("failed to write sheet %s: %w", s.name, err)
		}
	}
	f.DeleteSheet(defaultSheet)
	f.SetActiveSheet(f.GetSheetIndex(SheetSummary))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(summary []analysis.SummaryRow) [][]interface{} {
	header := []interface{}{"Run ID", "Mean Score", "Num Samples"}
	if len(summary) > 0 {
		for _, m := range summary[0].Metrics {
			header = append(header, m.Title)
		}
	}
	rows := [][]interface{}{header}
	for _, s := range summary {
		row := []interface{}{s.RunID, s.Display, s.NumSamples}
		for _, m := range s.Metrics {
			row = append(row, m.Display)
		}
		rows = append(rows, row)
	}
	return rows
}

func progressRows(progress []analysis.FileProgress) [][]interface{} {
	rows := [][]interface{}{{"run_id", "user_name", "labelled_samples_count", "labelled_percentage"}}
	for _, p := range progress {
		rows = append(rows, []interface{}{p.RunID, p.UserName, p.Count, p.Percentage})
	}
	return rows
}

func coverageRows(coverage []analysis.Coverage) [][]interface{} {
	rows := [][]interface{}{{
		"run_id",
		"labelled_by_at_least_1", "labelled_percentage_at_least_1",
		"labelled_by_at_least_2", "labelled_percentage_at_least_2",
	}}
	for _, c := range coverage {
		rows = append(rows, []interface{}{
			c.RunID,
			c.AtLeast[1], c.Percentage[1],
			c.AtLeast[2], c.Percentage[2],
		})
	}
	return rows
}

func correlationRows(m analysis.CorrelationMatrix) [][]interface{} {
	if m.Empty() {
		return [][]interface{}{{"Not enough data to compute correlations."}}
	}
	header := []interface{}{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	rows := [][]interface{}{header}
	for i, c := range m.Columns {
		row := []interface{}{c}
		for j := range m.Columns {
			row = append(row, m.Cell(i, j))
		}
		rows = append(rows, row)
	}
	return rows
}

func tableRows(tbl *results.Table) [][]interface{} {
	if tbl == nil {
		return nil
	}
	cols := tbl.Columns()
	header := make([]interface{}, 0, len(cols)+1)
	header = append(header, "row_id")
	for _, c := range cols {
		header = append(header, c)
	}
	rows := [][]interface{}{header}
	for _, id := range tbl.RowIDs() {
		row := make([]interface{}, 0, len(cols)+1)
		row = append(row, id)
		for _, c := range cols {
			v, _ := tbl.Get(id, c)
			row = append(row, results.FormatValue(v))
		}
		rows = append(rows, row)
	}
	return rows
}
