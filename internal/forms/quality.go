package forms

import (
	"net/url"
	"strings"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
)

// QualityForm grades the model answer
type QualityForm struct{}

// NewQualityForm creates the answer quality form
func NewQualityForm() *QualityForm { return &QualityForm{} }

// ID returns the form identifier used in routes and results
func (QualityForm) ID() string { return "quality_feedback" }

// Title returns the form heading
func (QualityForm) Title() string { return "Quality Feedback" }

// SubmitLabel returns the submit button text
func (QualityForm) SubmitLabel() string { return "Submit feedback" }

// Fields prefills the quality slider, feedback and answer_is_better from row
func (QualityForm) Fields(row results.Row) []Field {
	answerIsBetter, _ := row.Get(domain.ColumnAnswerIsBetter)
	checked, _ := answerIsBetter.(bool)
	return []Field{
		{
			Name:     domain.ColumnLabelQuality,
			Label:    "General answer quality",
			Type:     FieldSlider,
			Options:  domain.QualityLabels,
			Required: true,
			Value:    row.String(domain.ColumnLabelQuality),
		},
		{
			Name:  domain.ColumnFeedback,
			Label: "Feedback (Optional)",
			Type:  FieldTextarea,
			Value: row.String(domain.ColumnFeedback),
		},
		{
			Name:  domain.ColumnAnswerIsBetter,
			Label: "Model answer is better than provided Ground Truth",
			Type:  FieldCheckbox,
			Value: checked,
		},
	}
}

// Parse requires a known quality label. Feedback is optional and an absent
// checkbox counts as false.
func (QualityForm) Parse(values url.Values) (Submission, error) {
	verr := &ValidationError{}

	quality := strings.TrimSpace(values.Get(domain.ColumnLabelQuality))
	switch {
	case quality == "":
		verr.add(domain.ColumnLabelQuality, "Select the answer quality")
	case !domain.IsQualityLabel(quality):
		verr.add(domain.ColumnLabelQuality, "Unknown quality label")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	return Submission{
		domain.ColumnLabelQuality:   quality,
		domain.ColumnFeedback:       values.Get(domain.ColumnFeedback),
		domain.ColumnAnswerIsBetter: isChecked(values.Get(domain.ColumnAnswerIsBetter)),
	}, nil
}

// Apply stores the submission and stamps end_time
func (QualityForm) Apply(tbl *results.Table, rowID string, sub Submission, now time.Time) error {
	for _, col := range []string{domain.ColumnLabelQuality, domain.ColumnFeedback, domain.ColumnAnswerIsBetter} {
		if err := tbl.Set(rowID, col, sub[col]); err != nil {
			return err
		}
	}
	return tbl.Set(rowID, domain.ColumnEndTime, Timestamp(now))
}
