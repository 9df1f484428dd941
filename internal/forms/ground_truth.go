package forms

import (
	"net/url"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
)

const fieldNotRelevant = "not_relevant"

// GroundTruthForm collects a synthetic ground truth for samples that have none
type GroundTruthForm struct {
	questionColumn    string
	predictionsColumn string
	groundTruthColumn string
}

// NewGroundTruthForm creates the form using the configured column names
func NewGroundTruthForm(questionColumn, predictionsColumn, groundTruthColumn string) *GroundTruthForm {
	return &GroundTruthForm{
		questionColumn:    questionColumn,
		predictionsColumn: predictionsColumn,
		groundTruthColumn: groundTruthColumn,
	}
}

// ID returns "ground_truth"
func (*GroundTruthForm) ID() string { return "ground_truth" }

// Title returns the form heading
func (*GroundTruthForm) Title() string { return "Ground Truth" }

// SubmitLabel returns the submit button text
func (*GroundTruthForm) SubmitLabel() string { return "Submit ground truth" }

// Visible is true when the sample has no ground truth
func (f *GroundTruthForm) Visible(row results.Row) bool {
	return !row.Has(f.groundTruthColumn)
}

// Fields shows the earlier synthetic values, or the original question and
// model answer when none were saved
func (f *GroundTruthForm) Fields(row results.Row) []Field {
	relevant := true
	if v, ok := row.Get(domain.ColumnSynQARelevance); ok {
		if b, isBool := v.(bool); isBool {
			relevant = b
		}
	}

	question := row.String(domain.ColumnSynCorrectedQuestion)
	if !row.Has(domain.ColumnSynCorrectedQuestion) {
		question = row.String(f.questionColumn)
	}
	answer := row.String(domain.ColumnSynGTAnswer)
	if !row.Has(domain.ColumnSynGTAnswer) {
		answer = row.String(f.predictionsColumn)
	}

	return []Field{
		{
			Name:  fieldNotRelevant,
			Label: "The question is not relevant",
			Type:  FieldCheckbox,
			Value: !relevant,
		},
		{
			Name:  domain.ColumnSynCorrectedQuestion,
			Label: "Rewrite the question (Optional)",
			Type:  FieldTextarea,
			Value: question,
		},
		{
			Name:  domain.ColumnSynGTAnswer,
			Label: "Provide Ground Truth (Optional)",
			Type:  FieldTextarea,
			Value: answer,
		},
	}
}

// Parse never fails; every field is optional
func (*GroundTruthForm) Parse(values url.Values) (Submission, error) {
	return Submission{
		domain.ColumnSynQARelevance:       !isChecked(values.Get(fieldNotRelevant)),
		domain.ColumnSynCorrectedQuestion: values.Get(domain.ColumnSynCorrectedQuestion),
		domain.ColumnSynGTAnswer:          values.Get(domain.ColumnSynGTAnswer),
	}, nil
}

// Apply writes the relevance flag, question and answer columns. end_time is
// left untouched.
func (*GroundTruthForm) Apply(tbl *results.Table, rowID string, sub Submission, _ time.Time) error {
	for _, col := range []string{domain.ColumnSynQARelevance, domain.ColumnSynCorrectedQuestion, domain.ColumnSynGTAnswer} {
		if err := tbl.Set(rowID, col, sub[col]); err != nil {
			return err
		}
	}
	return nil
}
