// Package charts renders analysis results as QuickChart image URLs and
// heatmap cell colors.
package charts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	quickchartgo "github.com/henomis/quickchart-go"
	"github.com/straye-as/labelling-app/internal/analysis"
)

// ErrChartURL is returned when QuickChart cannot build an image URL
var ErrChartURL = errors.New("failed to get chart url from quickchart")

type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	DataSets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string `json:"label"`
	Data            []int  `json:"data"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

type ChartOptions struct {
	Title  Title  `json:"title"`
	Legend Legend `json:"legend"`
	Scales Scales `json:"scales"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type Legend struct {
	Display bool `json:"display"`
}

type Scales struct {
	XAxes []Axis `json:"xAxes"`
	YAxes []Axis `json:"yAxes"`
}

type Axis struct {
	ScaleLabel ScaleLabel `json:"scaleLabel"`
}

type ScaleLabel struct {
	Display     bool   `json:"display"`
	LabelString string `json:"labelString"`
}

// Renderer builds chart URLs. BaseURL replaces the QuickChart scheme and host
// when set (self-hosted QuickChart).
type Renderer struct {
	BaseURL string
}

// NewRenderer creates a renderer
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// HistogramConfig is the bar chart of a score distribution
func HistogramConfig(h analysis.Histogram) ChartConfig {
	labels := make([]string, len(h.Bins))
	counts := make([]int, len(h.Bins))
	for i, b := range h.Bins {
		labels[i] = fmt.Sprintf("%.2f", (b.Lower+b.Upper)/2)
		counts[i] = b.Count
	}

	axis := func(label string) []Axis {
		return []Axis{{ScaleLabel: ScaleLabel{Display: true, LabelString: label}}}
	}
	return ChartConfig{
		Type: "bar",
		Data: ChartData{
			Labels: labels,
			DataSets: []Dataset{{
				Label:           h.RunID,
				Data:            counts,
				BackgroundColor: "rgba(54, 162, 235, 0.8)",
			}},
		},
		Options: ChartOptions{
			Title:  Title{Display: true, Text: "Distribution of the Scores: " + h.RunID},
			Legend: Legend{Display: false},
			Scales: Scales{XAxes: axis("Quality Score"), YAxes: axis("Frequency")},
		},
	}
}

// HistogramURL returns the image URL of the score distribution of h
func (r *Renderer) HistogramURL(h analysis.Histogram) (string, error) {
	return r.URL(HistogramConfig(h))
}

// URL returns the image URL of config
func (r *Renderer) URL(config ChartConfig) (string, error) {
	bytes, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chart config: %w", err)
	}

	qc := quickchartgo.New()
	qc.Config = string(bytes)
	chartURL, err := qc.GetUrl()
	if err != nil {
		return "", ErrChartURL
	}
	return r.rebase(chartURL)
}

func (r *Renderer) rebase(chartURL string) (string, error) {
	if r.BaseURL == "" {
		return chartURL, nil
	}
	base, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid chart base url: %w", err)
	}
	u, err := url.Parse(chartURL)
	if err != nil {
		return "", ErrChartURL
	}
	u.Scheme = base.Scheme
	u.Host = base.Host
	u.Path = base.Path + u.Path
	return u.String(), nil
}

// HeatColor maps a correlation coefficient in [-1, 1] to a CSS color on a
// reversed red-blue scale: -1 is blue, 0 white, 1 red. NaN is light grey.
func HeatColor(r float64) string {
	if math.IsNaN(r) {
		return "#eeeeee"
	}
	r = math.Max(-1, math.Min(1, r))

	// interpolate from white towards the end color
	var end [3]float64
	if r >= 0 {
		end = [3]float64{178, 24, 43}
	} else {
		end = [3]float64{33, 102, 172}
	}
	t := math.Abs(r)
	c := func(i int) int {
		return int(math.Round(255 + (end[i]-255)*t))
	}
	return fmt.Sprintf("#%02x%02x%02x", c(0), c(1), c(2))
}

// TextColor picks readable text over HeatColor(r)
func TextColor(r float64) string {
	if !math.IsNaN(r) && math.Abs(r) > 0.6 {
		return "#ffffff"
	}
	return "#000000"
}
