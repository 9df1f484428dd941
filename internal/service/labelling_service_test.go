package service_test

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/straye-as/labelling-app/internal/config"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/forms"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/straye-as/labelling-app/internal/service"
	"github.com/straye-as/labelling-app/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const inputJSON = `{
	"question": {"0": "How do I sort a list?", "1": "How do I reverse a string?", "2": "What is a goroutine?"},
	"predictions": {"0": "Use sorted().", "1": "Use s[::-1].", "2": "A lightweight thread."},
	"ground_truth": {"0": "sorted(xs)", "1": null, "2": "A function running concurrently."},
	"context": {"0": "python docs", "1": null, "2": "go docs"},
	"bleu": {"0": 0.5, "1": 0.25, "2": 1}
}`

type labellingFixture struct {
	store    storage.Storage
	results  *service.ResultStore
	svc      *service.LabellingService
	sessions *service.SessionStore
}

func newLabellingFixture(t *testing.T) *labellingFixture {
	t.Helper()
	store := newLocalStore(t)
	require.NoError(t, store.Put(context.Background(), "run_a.json", "application/json", []byte(inputJSON)))
	require.NoError(t, store.Put(context.Background(), "broken.csv", "text/csv", []byte("question,predictions\nq,p\n")))

	cfg := &config.LabellingConfig{
		QuestionColumn:    "question",
		PredictionsColumn: "predictions",
		GroundTruthColumn: "ground_truth",
		ContextColumn:     "context",
	}
	registry, err := forms.NewDefaultRegistry(cfg, nil)
	require.NoError(t, err)

	rs := service.NewResultStore(store, zap.NewNop())
	sessions := service.NewSessionStore(time.Hour)
	svc := service.NewLabellingService(store, rs, service.NewSaveAuditService(nil, zap.NewNop()), registry, cfg, sessions, zap.NewNop())
	return &labellingFixture{store: store, results: rs, svc: svc, sessions: sessions}
}

func flashMessages(flashes []service.Flash) []string {
	msgs := make([]string, len(flashes))
	for i, f := range flashes {
		msgs[i] = f.Message
	}
	return msgs
}

func qualityValues(label string) url.Values {
	return url.Values{
		domain.ColumnLabelQuality:   {label},
		domain.ColumnFeedback:       {"fine"},
		domain.ColumnAnswerIsBetter: {"on"},
	}
}

func TestLabellingService_ListInputFiles(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, "labelling_results/20240101000000___run_a___ada.json", "application/json", []byte(`{}`)))
	require.NoError(t, f.store.Put(ctx, "notes.txt", "text/plain", []byte("x")))

	files, err := f.svc.ListInputFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken.csv", "run_a.json"}, files)
}

func TestLabellingService_NoFileSelected(t *testing.T) {
	f := newLabellingFixture(t)
	sess := f.sessions.Get("")

	view, err := f.svc.CurrentView(context.Background(), sess, "", nil)
	require.NoError(t, err)
	assert.Empty(t, view.FileName)
	assert.Contains(t, flashMessages(view.Flashes), service.MsgSelectInputFile)

	_, err = f.svc.Submit(context.Background(), sess, "", "quality_feedback", qualityValues("Good"))
	assert.ErrorIs(t, err, domain.ErrNoDataset)
}

func TestLabellingService_SelectFileValidatesColumns(t *testing.T) {
	f := newLabellingFixture(t)
	sess := f.sessions.Get("")

	err := f.svc.SelectFile(context.Background(), sess, "broken.csv")
	require.ErrorIs(t, err, domain.ErrMissingColumn)
	assert.Contains(t, err.Error(), "column ground_truth is missing from the file")
	assert.Empty(t, sess.FileName())
}

func TestLabellingService_CurrentView(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))
	f.svc.SetOptions(sess, true, true)

	view, err := f.svc.CurrentView(ctx, sess, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "run_a", view.RunID)
	assert.Equal(t, 0, view.Index)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, "How do I sort a list?", view.Question)
	assert.Equal(t, "sorted(xs)", view.GroundTruth)
	assert.True(t, view.HasGroundTruth)
	assert.Equal(t, "python docs", view.Context)
	assert.Equal(t, []service.Metric{{Name: "bleu", Value: "0.5"}}, view.Metrics)
	assert.Zero(t, view.Percentage())

	var formIDs []string
	for _, fv := range view.Forms {
		formIDs = append(formIDs, fv.ID)
	}
	assert.Equal(t, []string{"error_feedback", "quality_feedback"}, formIDs, "ground truth form is hidden when a ground truth exists")

	assert.NotEmpty(t, sess.Results().GetString("0", domain.ColumnStartTime))
	assert.Len(t, view.Results.Rows, 3)
	assert.Equal(t, "question", view.Results.Columns[0])
}

func TestLabellingService_GroundTruthFormForMissingGroundTruth(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))
	require.NoError(t, f.svc.Navigate(sess, service.NavigateGoto, 1))

	view, err := f.svc.CurrentView(ctx, sess, "", nil)
	require.NoError(t, err)
	assert.False(t, view.HasGroundTruth)
	assert.Contains(t, flashMessages(view.Flashes), service.MsgNoGroundTruth)
	require.Len(t, view.Forms, 3)
	assert.Equal(t, "ground_truth", view.Forms[2].ID)
}

func TestLabellingService_NavigateClamps(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))

	require.NoError(t, f.svc.Navigate(sess, service.NavigatePrev, 0))
	assert.Equal(t, 0, sess.SelectedRow())
	assert.Contains(t, flashMessages(sess.TakeFlashes()), service.MsgInvalidIndex)

	require.NoError(t, f.svc.Navigate(sess, service.NavigateGoto, 10))
	assert.Equal(t, 2, sess.SelectedRow())
	assert.Contains(t, flashMessages(sess.TakeFlashes()), service.MsgNoMoreSamples)

	require.NoError(t, f.svc.Navigate(sess, service.NavigatePrev, 0))
	assert.Equal(t, 1, sess.SelectedRow())
	assert.Empty(t, sess.TakeFlashes())

	assert.ErrorIs(t, f.svc.Navigate(sess, "sideways", 0), domain.ErrInvalidInput)
}

func TestLabellingService_ReselectingSameFileKeepsState(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))
	require.NoError(t, f.svc.Navigate(sess, service.NavigateNext, 0))
	_, err := f.svc.Submit(ctx, sess, "", "quality_feedback", qualityValues("Good"))
	require.NoError(t, err)

	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))
	assert.Equal(t, 1, sess.SelectedRow())
	assert.Equal(t, "Good", sess.Results().GetString("1", domain.ColumnLabelQuality))
}

func TestLabellingService_SubmitAnonymousDoesNotSave(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))

	res, err := f.svc.Submit(ctx, sess, "", "quality_feedback", qualityValues("Very Good"))
	require.NoError(t, err)
	assert.Nil(t, res.Saved)

	tbl := sess.Results()
	assert.Equal(t, "Very Good", tbl.GetString("0", domain.ColumnLabelQuality))
	assert.Equal(t, "fine", tbl.GetString("0", domain.ColumnFeedback))
	v, _ := tbl.Get("0", domain.ColumnAnswerIsBetter)
	assert.Equal(t, true, v)
	assert.NotEmpty(t, tbl.GetString("0", domain.ColumnEndTime))
	assert.Contains(t, flashMessages(sess.TakeFlashes()), service.MsgLoginToSave)

	files, err := f.results.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLabellingService_SubmitSavesForUser(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))

	res, err := f.svc.Submit(ctx, sess, "ada", "error_feedback", url.Values{
		domain.ErrorKeySnippet:     {"sorted()"},
		domain.ErrorKeyCategories:  {"Logic error", "Other"},
		domain.ErrorKeyDescription: {"needs a key"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Saved)
	assert.Equal(t, "run_a", res.Saved.File.RunID)
	assert.Equal(t, "ada", res.Saved.File.UserName)

	saved, err := f.results.Read(ctx, res.Saved.File.Name)
	require.NoError(t, err)
	v, ok := saved.Get("0", domain.ColumnErrorAnalysis)
	require.True(t, ok)
	entries, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "sorted()", entry[domain.ErrorKeySnippet])
	assert.Equal(t, []any{"Logic error", "Other"}, entry[domain.ErrorKeyCategories])
	assert.Equal(t, forms.QuestionHash("How do I sort a list?", "0"), entry[domain.ErrorKeyQuestionHash])

	view, err := f.svc.CurrentView(ctx, sess, "ada", nil)
	require.NoError(t, err)
	require.Len(t, view.PreviousErrors, 1)
	assert.Equal(t, []string{"Logic error", "Other"}, view.PreviousErrors[0].Categories)
}

func TestLabellingService_SubmitInvalidKeepsValues(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))

	values := url.Values{domain.ErrorKeySnippet: {"  "}, domain.ErrorKeyDescription: {"draft"}}
	_, err := f.svc.Submit(ctx, sess, "ada", "error_feedback", values)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, sess.Results().Count(domain.ColumnErrorAnalysis))

	view, err := f.svc.CurrentView(ctx, sess, "", &service.FormState{FormID: "error_feedback", Values: values, Err: err})
	require.NoError(t, err)

	var errorForm service.FormView
	for _, fv := range view.Forms {
		if fv.ID == "error_feedback" {
			errorForm = fv
		}
	}
	errs := map[string]string{}
	vals := map[string]any{}
	for _, field := range errorForm.Fields {
		errs[field.Name] = field.Error
		vals[field.Name] = field.Value
	}
	assert.NotEmpty(t, errs[domain.ErrorKeySnippet])
	assert.NotEmpty(t, errs[domain.ErrorKeyCategories])
	assert.Equal(t, "draft", vals[domain.ErrorKeyDescription])
}

func TestLabellingService_UnknownForm(t *testing.T) {
	f := newLabellingFixture(t)
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(context.Background(), sess, "run_a.json"))

	_, err := f.svc.Submit(context.Background(), sess, "", "nope", url.Values{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLabellingService_SavedResultsPromptAndLoad(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()

	previous := results.New("question", "predictions", "ground_truth", domain.ColumnLabelQuality)
	previous.AddRow("0", map[string]any{"question": "How do I sort a list?", domain.ColumnLabelQuality: "Poor"})
	previous.AddRow("1", map[string]any{"question": "How do I reverse a string?"})
	previous.AddRow("2", map[string]any{"question": "What is a goroutine?"})
	_, err := f.results.Save(ctx, "run_a", "ada", previous, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))

	anon, err := f.svc.CurrentView(ctx, sess, "", nil)
	require.NoError(t, err)
	assert.Nil(t, anon.SavePrompt, "anonymous users are never prompted")

	view, err := f.svc.CurrentView(ctx, sess, "ada", nil)
	require.NoError(t, err)
	require.NotNil(t, view.SavePrompt)
	assert.Equal(t, "20240101000000", view.SavePrompt.Timestamp)
	assert.Empty(t, view.Forms)

	require.NoError(t, f.svc.LoadSavedResults(ctx, sess, "ada"))
	assert.Equal(t, "Poor", sess.Results().GetString("0", domain.ColumnLabelQuality))

	view, err = f.svc.CurrentView(ctx, sess, "ada", nil)
	require.NoError(t, err)
	assert.Nil(t, view.SavePrompt)
	assert.Contains(t, flashMessages(view.Flashes), service.MsgResultsLoaded)
	assert.Equal(t, 1, view.Completed)
}

func TestLabellingService_DiscardSavedResults(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	_, err := f.results.Save(ctx, "run_a", "grace", results.New("question"), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))
	f.svc.DiscardSavedResults(sess, "grace")

	view, err := f.svc.CurrentView(ctx, sess, "grace", nil)
	require.NoError(t, err)
	assert.Nil(t, view.SavePrompt)
	assert.NotEmpty(t, view.Forms)
}

func TestLabellingService_NoSavedFilesWarnsOnce(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))

	view, err := f.svc.CurrentView(ctx, sess, "ada", nil)
	require.NoError(t, err)
	assert.Contains(t, flashMessages(view.Flashes), service.MsgNoSavedFiles)

	view, err = f.svc.CurrentView(ctx, sess, "ada", nil)
	require.NoError(t, err)
	assert.NotContains(t, flashMessages(view.Flashes), service.MsgNoSavedFiles)
}

func TestLabellingService_Export(t *testing.T) {
	f := newLabellingFixture(t)
	ctx := context.Background()
	sess := f.sessions.Get("")
	require.NoError(t, f.svc.SelectFile(ctx, sess, "run_a.json"))
	_, err := f.svc.Submit(ctx, sess, "", "quality_feedback", qualityValues("Good"))
	require.NoError(t, err)

	name, contentType, data, err := f.svc.Export(sess, "ada", service.ExportJSON)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, "___run_a___ada.json"))
	assert.Equal(t, "application/json", contentType)
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Good", decoded[domain.ColumnLabelQuality]["0"])

	name, contentType, data, err = f.svc.Export(sess, "ada", service.ExportCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".csv"))
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.HasPrefix(string(data), "row_id,question"))

	_, _, _, err = f.svc.Export(sess, "ada", "xml")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessionStore(t *testing.T) {
	store := service.NewSessionStore(time.Millisecond)

	a := store.Get("")
	assert.NotEmpty(t, a.ID)
	assert.Same(t, a, store.Get(a.ID))
	assert.NotSame(t, a, store.Get("unknown"))
	assert.Equal(t, 2, store.Len())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, store.EvictIdle())
	_, ok := store.Lookup(a.ID)
	assert.False(t, ok)

	assert.Zero(t, service.NewSessionStore(0).EvictIdle())
}
