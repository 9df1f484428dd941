package domain

import (
	"fmt"
	"strings"
)

// Result table columns written by the labelling forms. The names are part of
// the persisted file format and are shared with older result files.
const (
	ColumnStartTime = "start_time_ms"
	ColumnEndTime   = "end_time_ms"

	ColumnLabelQuality   = "label_quality"
	ColumnAnswerIsBetter = "answer_is_better"
	ColumnFeedback       = "feedback"

	ColumnSynQARelevance       = "syn_qa_relevance"
	ColumnSynCorrectedQuestion = "syn_corrected_question"
	ColumnSynGTAnswer          = "syn_gt_answer"

	ColumnErrorAnalysis = "error_analysis"

	// Columns added when result files are read back for analysis
	ColumnRunID    = "run_id"
	ColumnUserName = "user_name"
	ColumnScore    = "score"
)

// Keys of a single error_analysis entry
const (
	ErrorKeySnippet      = "snippet"
	ErrorKeyCategories   = "error"
	ErrorKeyDescription  = "description"
	ErrorKeyQuestionHash = "question_hash"
)

// Blob layout
const (
	ResultsFolder     = "labelling_results/"
	FileNameSeparator = "___"
	DatetimeLayout    = "20060102150405"
	UserConfigFile    = "config.yaml"
	DefaultRunID      = "labelling_results"
)

// AppTitle is shown in page headers
const AppTitle = "Labelling App"

// ErrorCategory is one selectable error class of the error feedback form
type ErrorCategory struct {
	ID          int
	Label       string
	Description string
}

// ErrorCategories lists the error classes in display order
var ErrorCategories = []ErrorCategory{
	{1, "Syntax error", "The code snippet contains a syntax error. This means there is a mistake in the structure or format of the code, making it impossible to execute."},
	{2, "Logic error", "The code snippet contains a logic error. This means the code runs, but it doesn't do what it's supposed to do because of incorrect logic."},
	{3, "Performance issue", "The code snippet has a performance issue. This means the code works, but it is not efficient and could be optimized to run faster or use fewer resources."},
	{4, "Hallucination", "The code snippet contains a hallucination. This means the code includes elements or concepts that don't exist or are completely irrelevant to the task."},
	{5, "Other", "The code snippet has an issue that doesn't fit into the other categories. This could be anything from missing functionality to incorrect usage of a function."},
}

// ErrorCategoryLabels returns the category labels in display order
func ErrorCategoryLabels() []string {
	labels := make([]string, len(ErrorCategories))
	for i, c := range ErrorCategories {
		labels[i] = c.Label
	}
	return labels
}

// ErrorCategoriesMarkdown renders the categories as a markdown bullet list
func ErrorCategoriesMarkdown() string {
	var b strings.Builder
	for i, c := range ErrorCategories {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- **%s**: %s", c.Label, c.Description)
	}
	return b.String()
}

// IsErrorCategory reports whether label is a known error category
func IsErrorCategory(label string) bool {
	for _, c := range ErrorCategories {
		if c.Label == label {
			return true
		}
	}
	return false
}

// QualityLabels are the answer quality grades, index is the grade value
var QualityLabels = []string{
	"Unusable",
	"Poor",
	"Average",
	"Good",
	"Very Good",
}

// QualityScore maps a quality label to a score in [0, 1).
// Unknown labels score 0, matching how older result files were analysed.
func QualityScore(label string) float64 {
	for i, l := range QualityLabels {
		if l == label {
			return float64(i) / float64(len(QualityLabels))
		}
	}
	return 0
}

// IsQualityLabel reports whether label is one of QualityLabels
func IsQualityLabel(label string) bool {
	for _, l := range QualityLabels {
		if l == label {
			return true
		}
	}
	return false
}

// UserScoreColumn is the per-user score column name in merged run tables
func UserScoreColumn(user string) string {
	return ColumnScore + "_" + user
}

// IsUserScoreColumn reports whether col holds one user's scores
func IsUserScoreColumn(col string) bool {
	return strings.HasPrefix(col, ColumnScore+"_")
}
