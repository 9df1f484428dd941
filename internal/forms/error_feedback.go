package forms

import (
	"net/url"
	"strings"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
)

// ErrorForm records feedback on one part of the model answer. Each submission
// appends an entry to the error_analysis list of the row.
type ErrorForm struct {
	questionColumn string
}

// NewErrorForm creates the form. questionColumn feeds the question hash.
func NewErrorForm(questionColumn string) *ErrorForm {
	return &ErrorForm{questionColumn: questionColumn}
}

// ID returns "error_feedback"
func (*ErrorForm) ID() string { return "error_feedback" }

// Title returns the form heading
func (*ErrorForm) Title() string { return "Add feedback on a part of the answer" }

// SubmitLabel returns the submit button text
func (*ErrorForm) SubmitLabel() string { return "Submit error category" }

// Fields are always blank; earlier entries are listed separately
func (*ErrorForm) Fields(row results.Row) []Field {
	return []Field{
		{
			Name:     domain.ErrorKeySnippet,
			Label:    "Part of the answer",
			Type:     FieldTextarea,
			Help:     "Enter the part of the answer that you want to provide feedback on.",
			Required: true,
			Value:    "",
		},
		{
			Name:     domain.ErrorKeyCategories,
			Label:    "Error Category",
			Type:     FieldMultiselect,
			Help:     domain.ErrorCategoriesMarkdown(),
			Options:  domain.ErrorCategoryLabels(),
			Required: true,
			Value:    []string{},
		},
		{
			Name:  domain.ErrorKeyDescription,
			Label: "(Optional) Error Description",
			Type:  FieldTextarea,
			Value: "",
		},
	}
}

// Parse requires a snippet and at least one known category
func (*ErrorForm) Parse(values url.Values) (Submission, error) {
	verr := &ValidationError{}

	snippet := values.Get(domain.ErrorKeySnippet)
	if strings.TrimSpace(snippet) == "" {
		verr.add(domain.ErrorKeySnippet, "Enter the part of the answer")
	}

	var categories []any
	for _, c := range values[domain.ErrorKeyCategories] {
		if !domain.IsErrorCategory(c) {
			verr.add(domain.ErrorKeyCategories, "Unknown error category: "+c)
			break
		}
		categories = append(categories, c)
	}
	if len(values[domain.ErrorKeyCategories]) == 0 {
		verr.add(domain.ErrorKeyCategories, "Select at least one error category")
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return Submission{
		domain.ErrorKeySnippet:     snippet,
		domain.ErrorKeyCategories:  categories,
		domain.ErrorKeyDescription: values.Get(domain.ErrorKeyDescription),
	}, nil
}

// Apply appends the entry with its question hash and stamps end_time
func (f *ErrorForm) Apply(tbl *results.Table, rowID string, sub Submission, now time.Time) error {
	entry := map[string]any{
		domain.ErrorKeySnippet:      sub[domain.ErrorKeySnippet],
		domain.ErrorKeyCategories:   sub[domain.ErrorKeyCategories],
		domain.ErrorKeyDescription:  sub[domain.ErrorKeyDescription],
		domain.ErrorKeyQuestionHash: QuestionHash(tbl.GetString(rowID, f.questionColumn), rowID),
	}
	if err := tbl.Append(rowID, domain.ColumnErrorAnalysis, entry); err != nil {
		return err
	}
	return tbl.Set(rowID, domain.ColumnEndTime, Timestamp(now))
}

// ErrorEntry is one earlier error feedback shown under the answer
type ErrorEntry struct {
	Snippet     string
	Categories  []string
	Description string
	// Raw is set for entries that are not objects
	Raw string
}

// PreviousErrors returns the error feedback already stored on row
func PreviousErrors(row results.Row) []ErrorEntry {
	v, ok := row.Get(domain.ColumnErrorAnalysis)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return []ErrorEntry{{Raw: results.FormatValue(v)}}
	}

	entries := make([]ErrorEntry, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			entries = append(entries, ErrorEntry{Raw: results.FormatValue(item)})
			continue
		}
		e := ErrorEntry{}
		e.Snippet, _ = m[domain.ErrorKeySnippet].(string)
		e.Description, _ = m[domain.ErrorKeyDescription].(string)
		if cats, ok := m[domain.ErrorKeyCategories].([]any); ok {
			for _, c := range cats {
				if s, ok := c.(string); ok {
					e.Categories = append(e.Categories, s)
				}
			}
		}
		entries = append(entries, e)
	}
	return entries
}
