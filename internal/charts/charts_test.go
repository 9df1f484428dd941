package charts_test

import (
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/charts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogram() analysis.Histogram {
	return analysis.Histogram{
		RunID: "run_a",
		Bins: []analysis.Bin{
			{Lower: 0, Upper: 0.5, Count: 3},
			{Lower: 0.5, Upper: 1, Count: 1},
		},
	}
}

func TestHistogramConfig(t *testing.T) {
	cfg := charts.HistogramConfig(histogram())

	assert.Equal(t, "bar", cfg.Type)
	assert.Equal(t, []string{"0.25", "0.75"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.DataSets, 1)
	assert.Equal(t, []int{3, 1}, cfg.Data.DataSets[0].Data)
	assert.Equal(t, "Quality Score", cfg.Options.Scales.XAxes[0].ScaleLabel.LabelString)
	assert.Equal(t, "Frequency", cfg.Options.Scales.YAxes[0].ScaleLabel.LabelString)
}

func TestHistogramURL(t *testing.T) {
	chartURL, err := charts.NewRenderer("").HistogramURL(histogram())
	require.NoError(t, err)

	u, err := url.Parse(chartURL)
	require.NoError(t, err)
	assert.Contains(t, u.Host, "quickchart.io")
}

func TestHistogramURL_CustomBase(t *testing.T) {
	chartURL, err := charts.NewRenderer("http://charts.internal:3400/").HistogramURL(histogram())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(chartURL, "http://charts.internal:3400/"), chartURL)
}

func TestHeatColor(t *testing.T) {
	assert.Equal(t, "#ffffff", charts.HeatColor(0))
	assert.Equal(t, "#b2182b", charts.HeatColor(1))
	assert.Equal(t, "#2166ac", charts.HeatColor(-1))
	assert.Equal(t, "#b2182b", charts.HeatColor(3))
	assert.Equal(t, "#eeeeee", charts.HeatColor(math.NaN()))
}

func TestTextColor(t *testing.T) {
	assert.Equal(t, "#ffffff", charts.TextColor(0.9))
	assert.Equal(t, "#000000", charts.TextColor(0.1))
	assert.Equal(t, "#000000", charts.TextColor(math.NaN()))
}
