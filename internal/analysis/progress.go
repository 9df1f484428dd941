package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
)

// FileProgress is how far one user got through one run
type FileProgress struct {
	RunID      string  `json:"runId"`
	UserName   string  `json:"userName"`
	Count      int     `json:"labelledSamplesCount"`
	Percentage float64 `json:"labelledPercentage"`
}

// Coverage counts, per run, the rows scored by at least N users
type Coverage struct {
	RunID      string          `json:"runId"`
	Total      int             `json:"total"`
	AtLeast    map[int]int     `json:"labelledByAtLeast"`
	Percentage map[int]float64 `json:"labelledPercentageAtLeast"`
}

// ProgressPerFile returns one entry per run and labeller
func ProgressPerFile(runs []*Run) []FileProgress {
	var out []FileProgress
	for _, run := range runs {
		total := run.Data.Len()
		for _, col := range UserScoreColumns(run.Data) {
			count := 0
			for _, v := range run.Data.Floats(col) {
				if !math.IsNaN(v) {
					count++
				}
			}
			out = append(out, FileProgress{
				RunID:      run.ID,
				UserName:   strings.TrimPrefix(col, domain.ColumnScore+"_"),
				Count:      count,
				Percentage: percentage(count, total),
			})
		}
	}
	return out
}

// LabelledByAtLeast reports, per run sorted by id, how many rows have at
// least n user scores for each n in ns
func LabelledByAtLeast(runs []*Run, ns ...int) []Coverage {
	if len(ns) == 0 {
		ns = []int{1, 2}
	}

	out := make([]Coverage, 0, len(runs))
	for _, run := range runs {
		counts := scoredPerRow(run.Data)
		c := Coverage{
			RunID:      run.ID,
			Total:      run.Data.Len(),
			AtLeast:    make(map[int]int, len(ns)),
			Percentage: make(map[int]float64, len(ns)),
		}
		for _, n := range ns {
			hits := 0
			for _, k := range counts {
				if k >= n {
					hits++
				}
			}
			c.AtLeast[n] = hits
			c.Percentage[n] = percentage(hits, c.Total)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out
}

func scoredPerRow(tbl *results.Table) []int {
	cols := UserScoreColumns(tbl)
	counts := make([]int, 0, tbl.Len())
	for _, id := range tbl.RowIDs() {
		k := 0
		for _, c := range cols {
			v, ok := tbl.Get(id, c)
			if !ok {
				continue
			}
			if f, ok := results.ToFloat(v); ok && !math.IsNaN(f) {
				k++
			}
		}
		counts = append(counts, k)
	}
	return counts
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
