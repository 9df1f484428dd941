package handler

import (
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/charts"
	"github.com/straye-as/labelling-app/internal/export"
	"github.com/straye-as/labelling-app/internal/mapper"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/straye-as/labelling-app/internal/service"
	"github.com/straye-as/labelling-app/internal/web"
	"go.uber.org/zap"
)

// Query parameters of the analysis view and API
const (
	paramRun    = "run"
	paramColumn = "column"
	paramMetric = "metric"
)

type AnalysisHandler struct {
	service  *service.AnalysisService
	charts   *charts.Renderer
	renderer *web.Renderer
	logger   *zap.Logger
}

func NewAnalysisHandler(analysisService *service.AnalysisService, chartRenderer *charts.Renderer, renderer *web.Renderer, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:  analysisService,
		charts:   chartRenderer,
		renderer: renderer,
		logger:   logger,
	}
}

// ProgressResponse is the labelling progress of the selected runs
type ProgressResponse struct {
	Progress []analysis.FileProgress `json:"progress"`
	Coverage []analysis.Coverage     `json:"coverage"`
	Warnings []string                `json:"warnings,omitempty"`
}

// SummaryResponse is the score summary of the selected runs
type SummaryResponse struct {
	Summary       []analysis.SummaryRow `json:"summary"`
	Distributions []analysis.Histogram  `json:"distributions"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// reportOptions reads the selection from the query. Without any metric
// parameter every available metric is correlated.
func reportOptions(q url.Values) analysis.ReportOptions {
	opts := analysis.ReportOptions{
		RunIDs:         q[paramRun],
		SummaryColumns: q[paramColumn],
	}
	if metrics, ok := q[paramMetric]; ok {
		opts.Metrics = metrics
	}
	return opts
}

// selectionQuery repeats the selection of q for links
func selectionQuery(q url.Values) template.URL {
	out := url.Values{}
	for _, key := range []string{paramRun, paramColumn, paramMetric} {
		if v, ok := q[key]; ok {
			out[key] = v
		}
	}
	return template.URL(out.Encode())
}

// Page renders the data analysis view
func (h *AnalysisHandler) Page(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := reportOptions(q)

	rep, err := h.service.Report(r.Context(), opts)
	if err != nil {
		h.logger.Error("Failed to build analysis report", zap.Error(err))
		h.renderer.Render(w, http.StatusInternalServerError, web.PageError, newPage(r, "Error", "The results could not be loaded from storage. Try again later."))
		return
	}

	data := &web.AnalysisData{
		Report:          rep,
		SelectedColumns: opts.SummaryColumns,
		SelectedMetrics: rep.Metrics,
		Query:           selectionQuery(q),
	}
	for _, hist := range rep.Distributions {
		chartURL, err := h.charts.HistogramURL(hist)
		if err != nil {
			h.logger.Warn("Failed to build chart URL", zap.String("run_id", hist.RunID), zap.Error(err))
			continue
		}
		data.Charts = append(data.Charts, web.ChartView{RunID: hist.RunID, URL: chartURL})
	}

	page := newPage(r, "Data Analysis", data)
	for _, msg := range rep.Warnings {
		page.Flashes = append(page.Flashes, service.Flash{Level: service.FlashWarning, Message: msg})
	}
	h.renderer.Render(w, http.StatusOK, web.PageAnalysis, page)
}

func (h *AnalysisHandler) report(w http.ResponseWriter, r *http.Request) (*analysis.Report, bool) {
	rep, err := h.service.Report(r.Context(), reportOptions(r.URL.Query()))
	if err != nil {
		h.logger.Error("Failed to build analysis report", zap.Error(err))
		handleError(w, err)
		return nil, false
	}
	return rep, true
}

// Progress godoc
// @Summary Labelling progress
// @Description Labelled samples per results file and rows labelled by at least one and two users
// @Tags Analysis
// @Produce json
// @Param run query []string false "Run ids, all when omitted"
// @Success 200 {object} ProgressResponse
// @Failure 401 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /analysis/progress [get]
func (h *AnalysisHandler) Progress(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.report(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ProgressResponse{
		Progress: nonNil(rep.Progress),
		Coverage: nonNil(rep.Coverage),
		Warnings: rep.Warnings,
	})
}

// Summary godoc
// @Summary Score summary
// @Description Mean score with 95% confidence interval per run and score distributions
// @Tags Analysis
// @Produce json
// @Param run query []string false "Run ids, all when omitted"
// @Param column query []string false "Extra numeric columns to summarise"
// @Success 200 {object} SummaryResponse
// @Security ApiKeyAuth
// @Router /analysis/summary [get]
func (h *AnalysisHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.report(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, SummaryResponse{
		Summary:       nonNil(rep.Summary),
		Distributions: nonNil(rep.Distributions),
		Warnings:      rep.Warnings,
	})
}

// Worst godoc
// @Summary Worst scored samples
// @Description The lowest scored samples of the selected runs, in the results file layout
// @Tags Analysis
// @Produce json
// @Param run query []string false "Run ids, all when omitted"
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /analysis/worst [get]
func (h *AnalysisHandler) Worst(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.report(w, r)
	if !ok {
		return
	}
	worst := rep.Worst
	if worst == nil {
		worst = results.New()
	}
	respondJSON(w, http.StatusOK, worst)
}

// Correlation godoc
// @Summary Correlation matrix
// @Description Pearson correlation between user scores and metrics with p-values
// @Tags Analysis
// @Produce json
// @Param run query []string false "Run ids, all when omitted"
// @Param metric query []string false "Metric columns, all available when omitted"
// @Success 200 {object} domain.CorrelationDTO
// @Security ApiKeyAuth
// @Router /analysis/correlation [get]
func (h *AnalysisHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.report(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToCorrelationDTO(rep.Correlation))
}

// Export godoc
// @Summary Export analysis to Excel
// @Description Every section of the analysis view as an XLSX workbook
// @Tags Analysis
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param run query []string false "Run ids, all when omitted"
// @Param column query []string false "Extra numeric columns to summarise"
// @Param metric query []string false "Metric columns, all available when omitted"
// @Success 200 {file} binary
// @Security ApiKeyAuth
// @Router /analysis/export [get]
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportXLSX(r.Context(), reportOptions(r.URL.Query()))
	if err != nil {
		h.logger.Error("Failed to export analysis", zap.Error(err))
		handleError(w, err)
		return
	}
	name := "analysis_" + time.Now().UTC().Format("20060102150405") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Refresh godoc
// @Summary Reload results
// @Description Re-read every results file from storage and replace the cached analysis
// @Tags Analysis
// @Produce json
// @Success 200 {object} domain.RefreshResponse
// @Security ApiKeyAuth
// @Router /analysis/refresh [post]
func (h *AnalysisHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.Error("Failed to refresh analysis", zap.Error(err))
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToRefreshResponse(res))
}

// Runs godoc
// @Summary List runs
// @Description Results files grouped by run
// @Tags Analysis
// @Produce json
// @Success 200 {array} domain.RunDTO
// @Security ApiKeyAuth
// @Router /runs [get]
func (h *AnalysisHandler) Runs(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.Runs(r.Context())
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(runs))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
