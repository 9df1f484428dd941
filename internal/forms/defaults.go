package forms

import "github.com/straye-as/labelling-app/internal/config"

// NewDefaultRegistry builds the standard forms (error feedback, quality,
// ground truth) followed by the custom forms
func NewDefaultRegistry(cfg *config.LabellingConfig, custom []FormSpec) (*Registry, error) {
	handlers := []Handler{
		NewErrorForm(cfg.QuestionColumn),
		NewQualityForm(),
		NewGroundTruthForm(cfg.QuestionColumn, cfg.PredictionsColumn, cfg.GroundTruthColumn),
	}
	for _, spec := range custom {
		handlers = append(handlers, NewCustomForm(spec))
	}
	return NewRegistry(handlers...)
}
