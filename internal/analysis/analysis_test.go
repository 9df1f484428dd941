package analysis_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	files  []domain.ResultFile
	tables map[string]*results.Table
}

func (f *fakeSource) List(ctx context.Context) ([]domain.ResultFile, error) {
	return f.files, nil
}

func (f *fakeSource) Read(ctx context.Context, name string) (*results.Table, error) {
	tbl, ok := f.tables[name]
	if !ok {
		return nil, errors.New("unreadable")
	}
	return tbl.Clone(), nil
}

func (f *fakeSource) add(runID, user string, labels []string, bleu []float64) {
	name := "labelling_results/20240101000000___" + runID + "___" + user + ".json"
	tbl := results.New("question", "bleu", domain.ColumnLabelQuality)
	for i, label := range labels {
		id := string(rune('0' + i))
		row := map[string]any{"question": "q" + id, "bleu": bleu[i]}
		if label != "" {
			row[domain.ColumnLabelQuality] = label
		}
		tbl.AddRow(id, row)
	}
	f.files = append(f.files, domain.ResultFile{Name: name, Timestamp: "20240101000000", RunID: runID, UserName: user})
	if f.tables == nil {
		f.tables = make(map[string]*results.Table)
	}
	f.tables[name] = tbl
}

func fixtureSource() *fakeSource {
	src := &fakeSource{}
	src.add("run_a", "ada", []string{"Good", "Average", "Very Good"}, []float64{0.5, 0.3, 0.9})
	src.add("run_a", "bob", []string{"Poor", "Average", ""}, []float64{0.5, 0.3, 0.9})
	src.add("run_b", "ada", []string{"Good", "Good"}, []float64{0.1, 0.2})
	return src
}

func readFixture(t *testing.T, opts analysis.Options) *analysis.Results {
	t.Helper()
	res, err := analysis.ReadAll(context.Background(), fixtureSource(), opts, zap.NewNop())
	require.NoError(t, err)
	return res
}

func TestReadAll_MergesRunsPerUser(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	assert.Equal(t, []string{"run_a", "run_b"}, res.RunIDs())
	assert.Equal(t, 3, res.Files)
	assert.Empty(t, res.Warnings)

	run := res.Runs["run_a"]
	assert.Equal(t, []string{"ada", "bob"}, run.Users())
	assert.Equal(t, []string{"score_ada", "score_bob"}, analysis.UserScoreColumns(run.Data))
	assert.Equal(t, 3, run.Data.Len())

	v, ok := run.Data.Get("0", "score_bob")
	require.True(t, ok)
	assert.InDelta(t, 0.2, v, 1e-9)
	_, ok = run.Data.Get("2", "score_bob")
	assert.False(t, ok)
}

func TestReadAll_DropsLowVarianceFiles(t *testing.T) {
	res := readFixture(t, analysis.Options{CheckLowVariance: true, LowVarianceThreshold: 0.1})

	assert.Equal(t, []string{"run_a"}, res.RunIDs())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t,
		"Low variance in Run: run_b; Score Mean: 0.60; User: ada. Removing this run from analysis.",
		res.Warnings[0],
	)
}

func TestReadAll_NoFiles(t *testing.T) {
	res, err := analysis.ReadAll(context.Background(), &fakeSource{}, analysis.Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, res.Runs)
	assert.Equal(t, []string{"No result files found in storage."}, res.Warnings)
}

func TestReadAll_SkipsUnreadableFiles(t *testing.T) {
	src := fixtureSource()
	src.files = append(src.files, domain.ResultFile{Name: "labelling_results/broken.json", RunID: "run_c", UserName: "eve"})

	res, err := analysis.ReadAll(context.Background(), src, analysis.Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.NotContains(t, res.Runs, "run_c")
}

func TestResults_Select(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	assert.Len(t, res.Select(nil), 2)
	runs := res.Select([]string{"run_b", "missing"})
	require.Len(t, runs, 1)
	assert.Equal(t, "run_b", runs[0].ID)
}

func TestProgressPerFile(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	progress := analysis.ProgressPerFile(res.Select([]string{"run_a"}))
	require.Len(t, progress, 2)
	assert.Equal(t, "ada", progress[0].UserName)
	assert.Equal(t, 3, progress[0].Count)
	assert.InDelta(t, 100.0, progress[0].Percentage, 1e-9)
	assert.Equal(t, "bob", progress[1].UserName)
	assert.Equal(t, 2, progress[1].Count)
	assert.InDelta(t, 66.666, progress[1].Percentage, 1e-2)
}

func TestLabelledByAtLeast(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	coverage := analysis.LabelledByAtLeast(res.Select([]string{"run_b", "run_a"}))
	require.Len(t, coverage, 2)
	assert.Equal(t, "run_a", coverage[0].RunID)
	assert.Equal(t, 3, coverage[0].AtLeast[1])
	assert.Equal(t, 2, coverage[0].AtLeast[2])
	assert.Equal(t, "run_b", coverage[1].RunID)
	assert.Equal(t, 0, coverage[1].AtLeast[2])
}

func TestMeanCI(t *testing.T) {
	mean, hw := analysis.MeanCI([]float64{1, 2, 3})
	assert.InDelta(t, 2.0, mean, 1e-9)
	assert.InDelta(t, 2.4841, hw, 1e-3)

	mean, hw = analysis.MeanCI([]float64{0.7})
	assert.InDelta(t, 0.7, mean, 1e-9)
	assert.True(t, math.IsNaN(hw))

	mean, _ = analysis.MeanCI(nil)
	assert.True(t, math.IsNaN(mean))
}

func TestSummary(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	rows := analysis.Summary(res.Select([]string{"run_a", "run_b"}), []string{"bleu"})
	require.Len(t, rows, 2)

	assert.Equal(t, "run_a", rows[0].RunID)
	assert.Equal(t, 3, rows[0].NumSamples)
	assert.InDelta(t, 1.6/3, rows[0].MeanScore, 1e-9)
	require.Len(t, rows[0].Metrics, 1)
	assert.Equal(t, "Mean Bleu", rows[0].Metrics[0].Title)
	assert.InDelta(t, 1.7/3, rows[0].Metrics[0].Mean, 1e-9)

	assert.Equal(t, "0.60 ± 0.00", rows[1].Display)
}

func TestMetricTitle(t *testing.T) {
	assert.Equal(t, "Mean Bleu Score", analysis.MetricTitle("bleu_score"))
	assert.Equal(t, "Mean Latency Ms", analysis.MetricTitle("latency_ms"))
}

func TestAvailableMetrics(t *testing.T) {
	res := readFixture(t, analysis.Options{})
	data := res.Runs["run_a"].Data

	assert.Contains(t, analysis.NumericColumns(data), "score_ada")
	assert.Equal(t, []string{"bleu"}, analysis.AvailableMetrics(data))
}

func TestScoreDistribution(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	h := analysis.ScoreDistribution(res.Runs["run_a"], "", 20)
	require.Len(t, h.Bins, 20)
	total := 0
	for _, b := range h.Bins {
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, h.Bins[0].Count)
	assert.Equal(t, 1, h.Bins[19].Count)

	single := analysis.ScoreDistribution(res.Runs["run_b"], "ada", 0)
	require.Len(t, single.Bins, 20)
	total = 0
	for _, b := range single.Bins {
		total += b.Count
	}
	assert.Equal(t, 2, total)
}

func TestPearson(t *testing.T) {
	r, p, n := analysis.Pearson([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	assert.Equal(t, 4, n)
	assert.InDelta(t, 1.0, r, 1e-9)
	assert.InDelta(t, 0.0, p, 1e-9)

	r, p, n = analysis.Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5})
	assert.Equal(t, 5, n)
	assert.InDelta(t, 0.8, r, 1e-9)
	assert.InDelta(t, 0.1041, p, 1e-3)

	_, p, n = analysis.Pearson([]float64{1, 2, math.NaN()}, []float64{3, 1, 2})
	assert.Equal(t, 2, n)
	assert.InDelta(t, 1.0, p, 1e-9)

	r, p, _ = analysis.Pearson([]float64{1, math.NaN()}, []float64{1, 2})
	assert.True(t, math.IsNaN(r))
	assert.True(t, math.IsNaN(p))
}

func TestCorrelation(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	m := analysis.Correlation(res.Select([]string{"run_a"}), []string{"bleu"})
	require.False(t, m.Empty())
	assert.Equal(t, []string{"bleu", "score_ada", "score_bob"}, m.Columns)
	assert.Equal(t, "1.00 (0.00)", m.Cell(0, 0))
	assert.Equal(t, "1.00 (1.00)", m.Cell(2, 2))
}

func TestCorrelation_NothingToCorrelate(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	m := analysis.Correlation(res.Select([]string{"run_b"}), nil)
	assert.True(t, m.Empty())
}

func TestWorstScored(t *testing.T) {
	res := readFixture(t, analysis.Options{})

	worst := analysis.WorstScored(res.Select([]string{"run_a"}), 2)
	require.Equal(t, 2, worst.Len())
	assert.Equal(t, []string{"0", "1"}, worst.RowIDs())
	v, ok := worst.Get("0", domain.ColumnScore)
	require.True(t, ok)
	assert.InDelta(t, 0.4, v, 1e-9)
}
