package analysis

import (
	"github.com/straye-as/labelling-app/internal/results"
)

// ReportOptions selects what a report covers
type ReportOptions struct {
	// RunIDs limits the report to these runs, empty means all runs
	RunIDs []string
	// SummaryColumns are extra numeric columns for the summary
	SummaryColumns []string
	// Metrics are correlated with the user scores, nil means every available
	// metric
	Metrics       []string
	WorstN        int
	HistogramBins int
}

// Report is every section of the data analysis view
type Report struct {
	RunIDs           []string
	Selected         []string
	Warnings         []string
	NumericColumns   []string
	AvailableMetrics []string
	Metrics          []string
	Progress         []FileProgress
	Coverage         []Coverage
	Summary          []SummaryRow
	Distributions    []Histogram
	Correlation      CorrelationMatrix
	Worst            *results.Table
}

// BuildReport computes the report sections over the selected runs
func BuildReport(res *Results, opts ReportOptions) *Report {
	runs := res.Select(opts.RunIDs)
	rep := &Report{
		RunIDs:   res.RunIDs(),
		Warnings: res.Warnings,
		Worst:    results.New(),
	}
	for _, run := range runs {
		rep.Selected = append(rep.Selected, run.ID)
	}
	if len(runs) == 0 {
		return rep
	}

	// numeric columns come from the first selected run
	rep.NumericColumns = NumericColumns(runs[0].Data)

	tables := make([]*results.Table, len(runs))
	for i, run := range runs {
		tables[i] = run.Data
	}
	rep.AvailableMetrics = AvailableMetrics(Concat(tables))
	rep.Metrics = opts.Metrics
	if rep.Metrics == nil {
		rep.Metrics = rep.AvailableMetrics
	}

	rep.Progress = ProgressPerFile(runs)
	rep.Coverage = LabelledByAtLeast(runs, 1, 2)
	rep.Summary = Summary(runs, opts.SummaryColumns)
	for _, run := range runs {
		rep.Distributions = append(rep.Distributions, ScoreDistribution(run, "", opts.HistogramBins))
	}
	if len(rep.Metrics) > 0 {
		rep.Correlation = Correlation(runs, rep.Metrics)
	}
	rep.Worst = WorstScored(runs, opts.WorstN)
	return rep
}
