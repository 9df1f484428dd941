package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Confidence is the level of the reported confidence intervals
const Confidence = 0.95

// MeanCI returns the mean of values and the half-width of its Student-t
// confidence interval. The half-width is NaN for fewer than two values.
func MeanCI(values []float64) (mean, halfWidth float64) {
	n := len(values)
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	mean = stat.Mean(values, nil)
	if n < 2 {
		return mean, math.NaN()
	}
	sem := stat.StdDev(values, nil) / math.Sqrt(float64(n))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(1 - (1-Confidence)/2)
	return mean, t * sem
}

// FormatMeanCI renders "mean ± half-width" with two decimals
func FormatMeanCI(mean, halfWidth float64) string {
	return fmt.Sprintf("%.2f ± %.2f", mean, halfWidth)
}

var titleCaser = cases.Title(language.English)

// MetricTitle turns a column name into a summary header, "bleu_score"
// becomes "Mean Bleu Score"
func MetricTitle(col string) string {
	return "Mean " + titleCaser.String(strings.ReplaceAll(col, "_", " "))
}

// NumericColumns returns the numeric columns of tbl in order
func NumericColumns(tbl *results.Table) []string {
	var cols []string
	for _, c := range tbl.Columns() {
		if tbl.IsNumeric(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// AvailableMetrics returns the numeric columns that are not scores
func AvailableMetrics(tbl *results.Table) []string {
	var cols []string
	for _, c := range NumericColumns(tbl) {
		if !strings.Contains(c, domain.ColumnScore) {
			cols = append(cols, c)
		}
	}
	return cols
}

// MetricSummary is one extra column of a summary row
type MetricSummary struct {
	Column    string  `json:"column"`
	Title     string  `json:"title"`
	Mean      float64 `json:"-"`
	HalfWidth float64 `json:"-"`
	Display   string  `json:"display"`
}

// SummaryRow summarises one run
type SummaryRow struct {
	RunID      string          `json:"runId"`
	MeanScore  float64         `json:"-"`
	HalfWidth  float64         `json:"-"`
	Display    string          `json:"meanScore"`
	NumSamples int             `json:"numSamples"`
	Metrics    []MetricSummary `json:"metrics,omitempty"`
}

// Summary computes, per run, the mean of the per-row mean user score with its
// confidence interval, and the mean of each extra column over the same rows
func Summary(runs []*Run, extra []string) []SummaryRow {
	rows := make([]SummaryRow, 0, len(runs))
	for _, run := range runs {
		ids, scores := RowMeanScores(run.Data)
		mean, hw := MeanCI(scores)
		row := SummaryRow{
			RunID:      run.ID,
			MeanScore:  mean,
			HalfWidth:  hw,
			Display:    FormatMeanCI(mean, hw),
			NumSamples: len(scores),
		}

		for _, col := range extra {
			m := MetricSummary{Column: col, Title: MetricTitle(col), Mean: math.NaN(), HalfWidth: math.NaN()}
			if run.Data.HasColumn(col) {
				var values []float64
				for _, id := range ids {
					v, ok := run.Data.Get(id, col)
					if !ok {
						continue
					}
					if f, ok := results.ToFloat(v); ok && !math.IsNaN(f) {
						values = append(values, f)
					}
				}
				if len(values) > 0 {
					m.Mean, m.HalfWidth = MeanCI(values)
				}
			}
			m.Display = FormatMeanCI(m.Mean, m.HalfWidth)
			row.Metrics = append(row.Metrics, m)
		}
		rows = append(rows, row)
	}
	return rows
}

// Bin is one histogram bucket [Lower, Upper)
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is the distribution of per-row mean scores of a run
type Histogram struct {
	RunID string `json:"runId"`
	Bins  []Bin  `json:"bins"`
}

// ScoreDistribution bins the per-row mean scores of run. With user set only
// that user's scores are used.
func ScoreDistribution(run *Run, user string, bins int) Histogram {
	if bins <= 0 {
		bins = 20
	}

	var values []float64
	if user != "" {
		values = present(run.Data.Floats(domain.UserScoreColumn(user)))
	} else {
		_, values = RowMeanScores(run.Data)
	}

	h := Histogram{RunID: run.ID}
	if len(values) == 0 {
		return h
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i].Lower = lo + float64(i)*width
		h.Bins[i].Upper = lo + float64(i+1)*width
	}
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Bins[i].Count++
	}
	return h
}

// CorrelationMatrix holds pairwise Pearson coefficients and p-values.
// Cells are NaN where fewer than two paired values exist.
type CorrelationMatrix struct {
	Columns []string
	R       [][]float64
	P       [][]float64
}

// Empty reports whether nothing could be correlated
func (c CorrelationMatrix) Empty() bool {
	return len(c.Columns) == 0
}

// Cell renders "r (p)" or "" when undefined
func (c CorrelationMatrix) Cell(i, j int) string {
	r, p := c.R[i][j], c.P[i][j]
	if math.IsNaN(r) || math.IsNaN(p) {
		return ""
	}
	return fmt.Sprintf("%.2f (%.2f)", r, p)
}

// Pearson returns the correlation of the pairs where both values are present
// and its two-sided p-value. n is the number of pairs used.
func Pearson(x, y []float64) (r, p float64, n int) {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	n = len(xs)
	if n < 2 {
		return math.NaN(), math.NaN(), n
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN(), math.NaN(), n
	}

	r = stat.Correlation(xs, ys, nil)
	r = math.Max(-1, math.Min(1, r))
	if n == 2 || math.Abs(r) == 1 {
		if n == 2 {
			return r, 1, n
		}
		return r, 0, n
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(math.Abs(t))
	return r, p, n
}

// Correlation correlates the user score columns and the chosen metrics over
// the stacked data of runs. Columns whose coefficients are all undefined are
// dropped.
func Correlation(runs []*Run, metrics []string) CorrelationMatrix {
	tables := make([]*results.Table, len(runs))
	for i, run := range runs {
		tables[i] = run.Data
	}
	data := Concat(tables)

	set := make(map[string]bool)
	for _, c := range data.Columns() {
		if strings.Contains(c, domain.ColumnScore) {
			set[c] = true
		}
	}
	for _, m := range metrics {
		if data.HasColumn(m) {
			set[m] = true
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	values := make(map[string][]float64, len(cols))
	for _, c := range cols {
		values[c] = data.Floats(c)
	}

	n := len(cols)
	r := make([][]float64, n)
	p := make([][]float64, n)
	for i := range cols {
		r[i] = make([]float64, n)
		p[i] = make([]float64, n)
		for j := range cols {
			r[i][j], p[i][j], _ = Pearson(values[cols[i]], values[cols[j]])
		}
	}

	var keep []int
	for i := range cols {
		for j := range cols {
			if !math.IsNaN(r[i][j]) {
				keep = append(keep, i)
				break
			}
		}
	}

	out := CorrelationMatrix{
		Columns: make([]string, len(keep)),
		R:       make([][]float64, len(keep)),
		P:       make([][]float64, len(keep)),
	}
	for a, i := range keep {
		out.Columns[a] = cols[i]
		out.R[a] = make([]float64, len(keep))
		out.P[a] = make([]float64, len(keep))
		for b, j := range keep {
			out.R[a][b] = r[i][j]
			out.P[a][b] = p[i][j]
		}
	}
	return out
}

// WorstScored stacks the runs, scores each row with the mean of its user
// scores and returns the n lowest scored rows, lowest first
func WorstScored(runs []*Run, n int) *results.Table {
	if n <= 0 {
		n = 10
	}

	tables := make([]*results.Table, len(runs))
	for i, run := range runs {
		tables[i] = run.Data
	}
	data := Concat(tables)

	ids, means := RowMeanScores(data)
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return means[order[a]] < means[order[b]] })
	if len(order) > n {
		order = order[:n]
	}

	picked := make([]string, len(order))
	for i, k := range order {
		picked[i] = ids[k]
	}
	worst := data.Select(picked)
	for _, k := range order {
		_ = worst.Set(ids[k], domain.ColumnScore, means[k])
	}
	return worst
}
