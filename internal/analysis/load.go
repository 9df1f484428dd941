// Package analysis merges persisted result files per run and computes the
// statistics of the data analysis view.
package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DefaultLowVarianceThreshold is the score standard deviation under which a
// results file is considered carelessly labelled
const DefaultLowVarianceThreshold = 0.1

// Source lists and reads persisted results files
type Source interface {
	List(ctx context.Context) ([]domain.ResultFile, error)
	Read(ctx context.Context, name string) (*results.Table, error)
}

// Options controls ReadAll
type Options struct {
	CheckLowVariance     bool
	LowVarianceThreshold float64
}

// Run is every results file of one run merged into one table
type Run struct {
	ID string
	// Files maps user name to the file read for that user
	Files map[string]string
	// Frames are the per-file tables in read order
	Frames []*results.Table
	// Data has one score_{user} column per labeller
	Data *results.Table
}

// Users returns the labellers of the run, sorted
func (r *Run) Users() []string {
	users := make([]string, 0, len(r.Files))
	for u := range r.Files {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Results is the merged view over all results files
type Results struct {
	Runs     map[string]*Run
	Warnings []string
	Files    int
	LoadedAt time.Time
}

// RunIDs returns the run ids, sorted
func (r *Results) RunIDs() []string {
	ids := make([]string, 0, len(r.Runs))
	for id := range r.Runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Select returns the runs with the given ids in the given order. Unknown ids
// are skipped. An empty selection returns every run.
func (r *Results) Select(ids []string) []*Run {
	if len(ids) == 0 {
		ids = r.RunIDs()
	}
	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		if run, ok := r.Runs[id]; ok {
			runs = append(runs, run)
		}
	}
	return runs
}

// ReadAll reads every results file, scores it, optionally drops files whose
// scores barely vary, and merges the files of each run
func ReadAll(ctx context.Context, src Source, opts Options, logger *zap.Logger) (*Results, error) {
	files, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list results files: %w", err)
	}

	out := &Results{Runs: make(map[string]*Run), LoadedAt: time.Now().UTC()}
	if len(files) == 0 {
		out.Warnings = append(out.Warnings, "No result files found in storage.")
		return out, nil
	}

	threshold := opts.LowVarianceThreshold
	if threshold <= 0 {
		threshold = DefaultLowVarianceThreshold
	}

	for _, f := range files {
		tbl, err := src.Read(ctx, f.Name)
		if err != nil {
			logger.Warn("Skipping unreadable results file", zap.String("file_name", f.Name), zap.Error(err))
			continue
		}
		out.Files++

		prepare(tbl, f)

		if opts.CheckLowVariance {
			scores := present(tbl.Floats(domain.ColumnScore))
			if len(scores) >= 2 {
				if sd := stat.StdDev(scores, nil); sd < threshold {
					msg := fmt.Sprintf("Low variance in Run: %s; Score Mean: %.2f; User: %s. Removing this run from analysis.",
						f.RunID, stat.Mean(scores, nil), f.UserName)
					out.Warnings = append(out.Warnings, msg)
					logger.Info("Dropping low variance results file",
						zap.String("file_name", f.Name),
						zap.Float64("std", sd),
					)
					continue
				}
			}
		}

		run, ok := out.Runs[f.RunID]
		if !ok {
			run = &Run{ID: f.RunID, Files: make(map[string]string)}
			out.Runs[f.RunID] = run
		}
		run.Files[f.UserName] = f.Name
		run.Frames = append(run.Frames, tbl)
	}

	for _, run := range out.Runs {
		run.Data = Merge(run.Frames)
	}
	return out, nil
}

// prepare attaches run and user columns and computes the score column
func prepare(tbl *results.Table, f domain.ResultFile) {
	tbl.EnsureColumn(domain.ColumnLabelQuality)
	tbl.EnsureColumn(domain.ColumnScore)
	for _, id := range tbl.RowIDs() {
		_ = tbl.Set(id, domain.ColumnRunID, f.RunID)
		_ = tbl.Set(id, domain.ColumnUserName, f.UserName)

		label, ok := tbl.Get(id, domain.ColumnLabelQuality)
		if !ok {
			_ = tbl.Set(id, domain.ColumnScore, nil)
			continue
		}
		s, _ := label.(string)
		_ = tbl.Set(id, domain.ColumnScore, domain.QualityScore(s))
	}
}

// Merge outer-joins frames on row id. Each frame's score column becomes
// score_{user}. Columns present in several frames keep the first non-null
// value.
func Merge(frames []*results.Table) *results.Table {
	merged := results.New()
	for _, frame := range frames {
		if frame.Len() == 0 {
			continue
		}
		user := frame.GetString(frame.RowIDs()[0], domain.ColumnUserName)

		for _, col := range frame.Columns() {
			merged.EnsureColumn(renameScore(col, user))
		}
		for _, id := range frame.RowIDs() {
			if !merged.HasRow(id) {
				merged.AddRow(id, nil)
			}
			for _, col := range frame.Columns() {
				v, ok := frame.Get(id, col)
				if !ok {
					continue
				}
				target := renameScore(col, user)
				if _, taken := merged.Get(id, target); taken {
					continue
				}
				_ = merged.Set(id, target, v)
			}
		}
	}
	return merged
}

func renameScore(col, user string) string {
	if col == domain.ColumnScore {
		return domain.UserScoreColumn(user)
	}
	return col
}

// UserScoreColumns returns the score_{user} columns of tbl in order
func UserScoreColumns(tbl *results.Table) []string {
	var cols []string
	for _, c := range tbl.Columns() {
		if domain.IsUserScoreColumn(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// RowMeanScores returns, for every row with at least one user score, the mean
// of its user scores. ids holds the matching row ids.
func RowMeanScores(tbl *results.Table) (ids []string, means []float64) {
	cols := UserScoreColumns(tbl)
	for _, id := range tbl.RowIDs() {
		var sum float64
		var n int
		for _, c := range cols {
			v, ok := tbl.Get(id, c)
			if !ok {
				continue
			}
			if f, ok := results.ToFloat(v); ok && !math.IsNaN(f) {
				sum += f
				n++
			}
		}
		if n > 0 {
			ids = append(ids, id)
			means = append(means, sum/float64(n))
		}
	}
	return ids, means
}

// Concat stacks tables, renumbering rows "0".."n-1". Columns keep first-seen
// order.
func Concat(tables []*results.Table) *results.Table {
	out := results.New()
	i := 0
	for _, tbl := range tables {
		cols := tbl.Columns()
		for _, c := range cols {
			out.EnsureColumn(c)
		}
		for _, id := range tbl.RowIDs() {
			row, _ := tbl.Row(id)
			values := make([]any, len(cols))
			for j, c := range cols {
				values[j], _ = row.Get(c)
			}
			out.AddRowOrdered(strconv.Itoa(i), cols, values)
			i++
		}
	}
	return out
}

func present(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
