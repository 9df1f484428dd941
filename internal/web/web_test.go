package web_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/forms"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/straye-as/labelling-app/internal/service"
	"github.com/straye-as/labelling-app/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRenderer(t *testing.T) *web.Renderer {
	t.Helper()
	r, err := web.NewRenderer("Labelling App", "# Read me\n\nLabel *carefully*.", zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestMarkdown(t *testing.T) {
	assert.Equal(t, "", string(web.Markdown("  ")))
	assert.Contains(t, string(web.Markdown("**bold**")), "<strong>bold</strong>")
	assert.NotContains(t, string(web.Markdown("<script>alert(1)</script>")), "<script>")
}

func TestRender_LabelPage(t *testing.T) {
	r := newRenderer(t)
	view := &service.LabellingView{
		Files:          []string{"eval.json"},
		FileName:       "eval.json",
		RunID:          "eval",
		Total:          2,
		Completed:      1,
		Question:       "What is Go?",
		ModelAnswer:    "A language",
		HasModelAnswer: true,
		Forms: []service.FormView{{
			ID:          "quality_feedback",
			Title:       "Quality feedback",
			SubmitLabel: "Submit",
			Fields: []forms.Field{
				{Name: "label_quality", Label: "Quality", Type: forms.FieldSelect, Options: []string{"Good", "Poor"}, Value: "Good", Error: "pick one"},
				{Name: "answer_is_better", Label: "Better", Type: forms.FieldCheckbox, Value: true},
			},
		}},
	}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, web.PageLabel, &web.Page{Title: "Labelling", Data: view})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "What is Go?")
	assert.Contains(t, body, `<option value="Good" selected>`)
	assert.Contains(t, body, "pick one")
	assert.Contains(t, body, "<em>carefully</em>")
	assert.Contains(t, body, "50.0%")
	assert.NotContains(t, body, "Data Analysis View")
}

func TestRender_AnalysisLinkForDataScientists(t *testing.T) {
	r := newRenderer(t)
	user := &auth.UserContext{Username: "ada", DisplayName: "Ada", DataScientist: true}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, web.PageError, &web.Page{Title: "Oops", User: user, Data: "broken"})

	body := rec.Body.String()
	assert.Contains(t, body, "Data Analysis View")
	assert.Contains(t, body, "Welcome <b>Ada</b>")
}

func TestRender_AnalysisPage(t *testing.T) {
	r := newRenderer(t)
	worst := results.New("question", "score")
	worst.AddRow("0", map[string]any{"question": "q0", "score": 0.2})

	rep := &analysis.Report{
		RunIDs:           []string{"run_a"},
		Selected:         []string{"run_a"},
		AvailableMetrics: []string{"bleu"},
		Metrics:          []string{"bleu"},
		Summary:          []analysis.SummaryRow{{RunID: "run_a", Display: "0.50 ± 0.10", NumSamples: 3}},
		Correlation: analysis.CorrelationMatrix{
			Columns: []string{"bleu"},
			R:       [][]float64{{1}},
			P:       [][]float64{{0}},
		},
		Worst: worst,
	}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, web.PageAnalysis, &web.Page{Title: "Data Analysis", Data: &web.AnalysisData{Report: rep}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "0.50 ± 0.10")
	assert.Contains(t, body, "1.00 (0.00)")
	assert.Contains(t, body, "#b2182b")
	assert.True(t, strings.Contains(body, "q0"))
}

func TestRender_UnknownPage(t *testing.T) {
	rec := httptest.NewRecorder()
	newRenderer(t).Render(rec, http.StatusOK, "nope", &web.Page{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
