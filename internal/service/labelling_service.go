package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/straye-as/labelling-app/internal/config"
	"github.com/straye-as/labelling-app/internal/dataset"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/forms"
	applog "github.com/straye-as/labelling-app/internal/logger"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/straye-as/labelling-app/internal/storage"
	"go.uber.org/zap"
)

// Navigation actions
const (
	NavigatePrev = "prev"
	NavigateNext = "next"
	NavigateGoto = "goto"
)

// Export formats
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
)

// Messages shown on the labelling page
const (
	MsgNoMoreSamples   = "No more samples to label."
	MsgInvalidIndex    = "Invalid sample index. Setting to 0."
	MsgLoginToSave     = "Please login to enable automatic saving of the results in progress"
	MsgNoSavedFiles    = "No saved files found"
	MsgResultsLoaded   = "Results loaded successfully!"
	MsgSaveFailed      = "Error saving results"
	MsgNoGroundTruth   = "No ground truth provided."
	MsgNoModelAnswer   = "No model answer provided."
	MsgNoContext       = "No context data available."
	MsgSelectInputFile = "Please upload a JSON file to start labelling."
)

// resultColumns are shown in the results table below the forms
var resultColumns = []string{
	domain.ColumnLabelQuality,
	domain.ColumnFeedback,
	domain.ColumnErrorAnalysis,
	domain.ColumnAnswerIsBetter,
	domain.ColumnStartTime,
	domain.ColumnEndTime,
}

var optionalResultColumns = []string{
	domain.ColumnSynQARelevance,
	domain.ColumnSynCorrectedQuestion,
	domain.ColumnSynGTAnswer,
}

// FormState carries a rejected submission back into the page
type FormState struct {
	FormID string
	Values url.Values
	Err    error
}

// FormView is one form ready to render
type FormView struct {
	ID          string
	Title       string
	SubmitLabel string
	Fields      []forms.Field
}

// Metric is one numeric column of the current sample
type Metric struct {
	Name  string
	Value string
}

// ResultsView is the results table below the forms
type ResultsView struct {
	Columns []string
	Rows    [][]string
}

// LabellingView is everything the labelling page renders
type LabellingView struct {
	Files    []string
	FileName string
	RunID    string
	LoggedIn bool

	// SavePrompt is set when the user should decide about loading saved results
	SavePrompt *domain.ResultFile

	Index     int
	Total     int
	RowID     string
	Completed int

	Question       string
	ModelAnswer    string
	HasModelAnswer bool
	GroundTruth    string
	HasGroundTruth bool
	ShowContext    bool
	Context        string
	HasContext     bool
	ShowMetrics    bool
	Metrics        []Metric

	PreviousErrors []forms.ErrorEntry
	Forms          []FormView
	Results        ResultsView
	Flashes        []Flash
}

// Percentage of labelled samples, 0 for an empty dataset
func (v *LabellingView) Percentage() float64 {
	if v.Total == 0 {
		return 0
	}
	return 100 * float64(v.Completed) / float64(v.Total)
}

// LabellingService drives the labelling page
type LabellingService struct {
	store    storage.Storage
	results  *ResultStore
	audit    *SaveAuditService
	forms    *forms.Registry
	cfg      *config.LabellingConfig
	sessions *SessionStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewLabellingService creates a new labelling service
func NewLabellingService(
	store storage.Storage,
	resultStore *ResultStore,
	audit *SaveAuditService,
	registry *forms.Registry,
	cfg *config.LabellingConfig,
	sessions *SessionStore,
	logger *zap.Logger,
) *LabellingService {
	return &LabellingService{
		store:    store,
		results:  resultStore,
		audit:    audit,
		forms:    registry,
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Sessions returns the session store
func (s *LabellingService) Sessions() *SessionStore {
	return s.sessions
}

// Forms returns the form registry
func (s *LabellingService) Forms() *forms.Registry {
	return s.forms
}

// ListInputFiles returns the top-level .json and .csv blobs
func (s *LabellingService) ListInputFiles(ctx context.Context) ([]string, error) {
	var names []string
	for _, ext := range []string{".json", ".csv"} {
		found, err := storage.ListFiles(ctx, s.store, "", ext)
		if err != nil {
			return nil, err
		}
		names = append(names, found...)
	}
	sort.Strings(names)
	return names, nil
}

// SelectFile loads name into the session. Selecting a different file resets
// the current row, the seed and the results table; selecting the same file
// keeps them.
func (s *LabellingService) SelectFile(ctx context.Context, sess *LabellingSession, name string) error {
	if name == "" {
		return fmt.Errorf("%w: no file selected", domain.ErrInvalidInput)
	}
	if name == sess.fileName && sess.results != nil {
		return nil
	}

	data, err := s.store.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	ds, err := dataset.Parse(name, data, s.cfg.RequiredColumns())
	if err != nil {
		return err
	}

	seed := rand.Int63n(1e9)
	sample := ds.Sample(s.cfg.SampleSize, seed)

	tbl := sample.Clone()
	tbl.EnsureColumn(domain.ColumnStartTime)
	tbl.EnsureColumn(domain.ColumnEndTime)

	sess.fileName = name
	sess.runID = ds.RunID
	sess.seed = seed
	sess.data = sample
	sess.results = tbl
	sess.selectedRow = 0
	sess.loadDecided = make(map[string]bool)

	applog.WithRun(s.logger, ds.RunID, name).Info("Input file selected",
		zap.String("session_id", sess.ID),
		zap.Int("rows", sample.Len()),
	)
	return nil
}

// SavedResultsPrompt returns the latest saved file of user for the current
// run when the user has not yet decided whether to load it
func (s *LabellingService) SavedResultsPrompt(ctx context.Context, sess *LabellingSession, userName string) (*domain.ResultFile, error) {
	if userName == "" || sess.results == nil || sess.loadDecided[userName] {
		return nil, nil
	}

	files, err := s.results.FilesFor(ctx, userName, sess.runID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		sess.addFlash(FlashWarning, MsgNoSavedFiles)
		sess.loadDecided[userName] = true
		return nil, nil
	}

	latest, ok := Latest(files)
	if !ok {
		return nil, nil
	}
	return &latest, nil
}

// LoadSavedResults replaces the session results with the latest saved file
// of user
func (s *LabellingService) LoadSavedResults(ctx context.Context, sess *LabellingSession, userName string) error {
	if userName == "" {
		return domain.ErrLoginRequired
	}
	if sess.results == nil {
		return domain.ErrNoDataset
	}

	files, err := s.results.FilesFor(ctx, userName, sess.runID)
	if err != nil {
		return err
	}
	latest, ok := Latest(files)
	if !ok {
		return fmt.Errorf("%w: no saved results for %s", domain.ErrNotFound, sess.runID)
	}

	tbl, err := s.results.Read(ctx, latest.Name)
	if err != nil {
		sess.addFlash(FlashError, "Error loading data from file: "+err.Error())
		return err
	}

	sess.results = tbl
	sess.loadDecided[userName] = true
	sess.addFlash(FlashSuccess, MsgResultsLoaded)

	s.logger.Info("Saved results loaded",
		zap.String("session_id", sess.ID),
		zap.String("file_name", latest.Name),
		zap.String("user_name", userName),
	)
	return nil
}

// DiscardSavedResults records that user starts over
func (s *LabellingService) DiscardSavedResults(sess *LabellingSession, userName string) {
	if sess.loadDecided == nil {
		sess.loadDecided = make(map[string]bool)
	}
	sess.loadDecided[userName] = true
}

// SetOptions toggles the context and metrics panels
func (s *LabellingService) SetOptions(sess *LabellingSession, showContext, showMetrics bool) {
	sess.showContext = showContext
	sess.showMetrics = showMetrics
}

// Navigate moves the current sample. The position is clamped to the dataset
// with a warning.
func (s *LabellingService) Navigate(sess *LabellingSession, action string, target int) error {
	if sess.data == nil {
		return domain.ErrNoDataset
	}

	next := sess.selectedRow
	switch action {
	case NavigatePrev:
		next--
	case NavigateNext:
		next++
	case NavigateGoto:
		next = target
	default:
		return fmt.Errorf("%w: unknown navigation %q", domain.ErrInvalidInput, action)
	}

	sess.selectedRow = next
	s.clampRow(sess)
	return nil
}

func (s *LabellingService) clampRow(sess *LabellingSession) {
	total := sess.data.Len()
	switch {
	case sess.selectedRow >= total:
		sess.addFlash(FlashWarning, MsgNoMoreSamples)
		sess.selectedRow = total - 1
		if sess.selectedRow < 0 {
			sess.selectedRow = 0
		}
	case sess.selectedRow < 0:
		sess.addFlash(FlashWarning, MsgInvalidIndex)
		sess.selectedRow = 0
	}
}

// currentRowID returns the row id of the current sample and makes sure the
// results table has that row
func (s *LabellingService) currentRowID(sess *LabellingSession) (string, bool) {
	row, ok := sess.data.RowAt(sess.selectedRow)
	if !ok {
		return "", false
	}
	if !sess.results.HasRow(row.ID) {
		values := make(map[string]any)
		for _, col := range sess.data.Columns() {
			if v, ok := row.Get(col); ok {
				values[col] = v
			}
		}
		sess.results.AddRow(row.ID, values)
	}
	return row.ID, true
}

// CurrentView builds the labelling page. It stamps the start time of the
// current sample when it has none.
func (s *LabellingService) CurrentView(ctx context.Context, sess *LabellingSession, userName string, pending *FormState) (*LabellingView, error) {
	files, err := s.ListInputFiles(ctx)
	if err != nil {
		return nil, err
	}

	view := &LabellingView{
		Files:       files,
		FileName:    sess.fileName,
		RunID:       sess.runID,
		LoggedIn:    userName != "",
		ShowContext: sess.showContext,
		ShowMetrics: sess.showMetrics,
	}

	if sess.results == nil {
		view.Flashes = append(sess.TakeFlashes(), Flash{Level: FlashWarning, Message: MsgSelectInputFile})
		return view, nil
	}

	prompt, err := s.SavedResultsPrompt(ctx, sess, userName)
	if err != nil {
		s.logger.Warn("Failed to look up saved results", zap.String("run_id", sess.runID), zap.Error(err))
	}
	if prompt != nil {
		view.SavePrompt = prompt
		view.Flashes = sess.TakeFlashes()
		return view, nil
	}

	s.clampRow(sess)
	rowID, ok := s.currentRowID(sess)
	if !ok {
		view.Flashes = sess.TakeFlashes()
		return view, nil
	}

	if sess.results.GetString(rowID, domain.ColumnStartTime) == "" {
		_ = sess.results.Set(rowID, domain.ColumnStartTime, forms.Timestamp(s.now()))
	}

	row, _ := sess.results.Row(rowID)
	view.Index = sess.selectedRow
	view.Total = sess.data.Len()
	view.RowID = rowID
	view.Completed = sess.results.Count(domain.ColumnLabelQuality)

	view.Question = row.String(s.cfg.QuestionColumn)
	view.ModelAnswer = row.String(s.cfg.PredictionsColumn)
	view.HasModelAnswer = row.Has(s.cfg.PredictionsColumn)
	view.GroundTruth = row.String(s.cfg.GroundTruthColumn)
	view.HasGroundTruth = row.Has(s.cfg.GroundTruthColumn)
	if !view.HasGroundTruth {
		sess.addFlash(FlashWarning, MsgNoGroundTruth)
	}
	if !view.HasModelAnswer {
		sess.addFlash(FlashWarning, MsgNoModelAnswer)
	}

	if sess.showContext {
		view.Context = row.String(s.cfg.ContextColumn)
		view.HasContext = row.Has(s.cfg.ContextColumn)
		if !view.HasContext {
			sess.addFlash(FlashWarning, MsgNoContext)
		}
	}
	if sess.showMetrics {
		exclude := append(s.cfg.RequiredColumns(), s.cfg.ContextColumn)
		for _, col := range dataset.MetricColumns(sess.data, exclude...) {
			if v, ok := row.Get(col); ok {
				view.Metrics = append(view.Metrics, Metric{Name: col, Value: results.FormatValue(v)})
			}
		}
	}

	view.PreviousErrors = forms.PreviousErrors(row)
	if view.HasModelAnswer {
		for _, h := range s.forms.Visible(row) {
			fields := h.Fields(row)
			if pending != nil && pending.FormID == h.ID() {
				fields = forms.WithErrors(forms.WithValues(fields, pending.Values), pending.Err)
			}
			view.Forms = append(view.Forms, FormView{
				ID:          h.ID(),
				Title:       h.Title(),
				SubmitLabel: h.SubmitLabel(),
				Fields:      fields,
			})
		}
	}

	view.Results = s.resultsView(sess.results)
	view.Flashes = sess.TakeFlashes()
	return view, nil
}

func (s *LabellingService) resultsView(tbl *results.Table) ResultsView {
	cols := append([]string{s.cfg.QuestionColumn}, resultColumns...)
	for _, c := range optionalResultColumns {
		if tbl.HasColumn(c) {
			cols = append(cols, c)
		}
	}

	view := ResultsView{Columns: cols, Rows: make([][]string, 0, tbl.Len())}
	for _, id := range tbl.RowIDs() {
		row, _ := tbl.Row(id)
		cells := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := row.Get(c); ok {
				cells[i] = displayCell(v)
			}
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}

func displayCell(v any) string {
	switch v.(type) {
	case []any, map[string]any:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	return results.FormatValue(v)
}

// SubmitResult reports the outcome of a form submission
type SubmitResult struct {
	Saved *SaveResult
}

// Submit validates values for form formID, writes them into the current row
// and saves the results for logged-in users
func (s *LabellingService) Submit(ctx context.Context, sess *LabellingSession, userName, formID string, values url.Values) (*SubmitResult, error) {
	if sess.results == nil {
		return nil, domain.ErrNoDataset
	}
	h, ok := s.forms.Get(formID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown form %q", domain.ErrNotFound, formID)
	}

	s.clampRow(sess)
	rowID, ok := s.currentRowID(sess)
	if !ok {
		return nil, domain.ErrNoDataset
	}

	sub, err := h.Parse(values)
	if err != nil {
		return nil, err
	}
	if err := h.Apply(sess.results, rowID, sub, s.now()); err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", formID, err)
	}

	s.logger.Info("Form submitted",
		zap.String("session_id", sess.ID),
		zap.String("form_id", formID),
		zap.String("run_id", sess.runID),
		zap.String("row_id", rowID),
		zap.String("user_name", userName),
	)
	sess.addFlash(FlashSuccess, h.Title()+" saved!")

	// Save failures are reported through flashes; the submission itself stands
	saved, _ := s.Save(ctx, sess, userName)
	return &SubmitResult{Saved: saved}, nil
}

// Save persists the session results for userName. Anonymous users get a
// warning and nothing is written.
func (s *LabellingService) Save(ctx context.Context, sess *LabellingSession, userName string) (*SaveResult, error) {
	if sess.results == nil {
		return nil, domain.ErrNoDataset
	}
	if userName == "" {
		sess.addFlash(FlashWarning, MsgLoginToSave)
		return nil, domain.ErrLoginRequired
	}

	saved, err := s.results.Save(ctx, sess.runID, userName, sess.results, s.now())
	if err != nil {
		s.logger.Error("Error saving results",
			zap.String("run_id", sess.runID),
			zap.String("user_name", userName),
			zap.Error(err),
		)
		sess.addFlash(FlashError, MsgSaveFailed)
		return nil, err
	}

	s.audit.Record(ctx, saved, sess.results.Len(), sess.results.Count(domain.ColumnLabelQuality))
	return saved, nil
}

// Export encodes the session results for download. The file name follows the
// results file convention without the folder.
func (s *LabellingService) Export(sess *LabellingSession, userName, format string) (string, string, []byte, error) {
	if sess.results == nil {
		return "", "", nil, domain.ErrNoDataset
	}

	runID := sess.runID
	if runID == "" {
		runID = domain.DefaultRunID
	}
	base := strings.TrimSuffix(strings.TrimPrefix(EncodeFileName(s.now(), runID, userName), domain.ResultsFolder), ".json")

	switch format {
	case ExportJSON, "":
		data, err := sess.results.MarshalJSON()
		if err != nil {
			return "", "", nil, err
		}
		return base + ".json", "application/json", data, nil
	case ExportCSV:
		var buf bytes.Buffer
		if err := sess.results.WriteCSV(&buf); err != nil {
			return "", "", nil, err
		}
		return base + ".csv", "text/csv", buf.Bytes(), nil
	default:
		return "", "", nil, fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidInput, format)
	}
}
