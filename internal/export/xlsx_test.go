package export_test

import (
	"bytes"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/export"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report() *analysis.Report {
	worst := results.New("question", "score")
	worst.AddRow("4", map[string]any{"question": "why?", "score": 0.2})

	return &analysis.Report{
		Summary: []analysis.SummaryRow{{
			RunID:      "run_a",
			Display:    "0.53 ± 0.12",
			NumSamples: 3,
			Metrics:    []analysis.MetricSummary{{Column: "bleu", Title: "Mean Bleu", Display: "0.57 ± 0.10"}},
		}},
		Progress: []analysis.FileProgress{{RunID: "run_a", UserName: "ada", Count: 3, Percentage: 100}},
		Coverage: []analysis.Coverage{{
			RunID:      "run_a",
			Total:      3,
			AtLeast:    map[int]int{1: 3, 2: 2},
			Percentage: map[int]float64{1: 100, 2: 66.7},
		}},
		Worst: worst,
	}
}

func TestReportXLSX(t *testing.T) {
	data, err := export.ReportXLSX(report())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{export.SheetSummary, export.SheetProgress, export.SheetCoverage, export.SheetCorrelation, export.SheetWorst},
		f.GetSheetList(),
	)

	rows, err := f.GetRows(export.SheetSummary)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Run ID", "Mean Score", "Num Samples", "Mean Bleu"}, rows[0])
	assert.Equal(t, []string{"run_a", "0.53 ± 0.12", "3", "0.57 ± 0.10"}, rows[1])

	rows, err = f.GetRows(export.SheetCorrelation)
	require.NoError(t, err)
	assert.Equal(t, "Not enough data to compute correlations.", rows[0][0])

	rows, err = f.GetRows(export.SheetWorst)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"row_id", "question", "score"}, rows[0])
	assert.Equal(t, []string{"4", "why?", "0.2"}, rows[1])
}

func TestReportXLSX_EmptyReport(t *testing.T) {
	data, err := export.ReportXLSX(&analysis.Report{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
