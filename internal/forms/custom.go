package forms

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/labelling-app/internal/results"
	"gopkg.in/yaml.v3"
)

// FieldSpec declares one input of a custom form
type FieldSpec struct {
	Name     string    `yaml:"name" validate:"required"`
	Label    string    `yaml:"label" validate:"required"`
	Type     FieldType `yaml:"type" validate:"required,oneof=text textarea select multiselect checkbox number slider"`
	Help     string    `yaml:"help"`
	Options  []string  `yaml:"options" validate:"required_if=Type select,required_if=Type multiselect"`
	Required bool      `yaml:"required"`
	Min      *float64  `yaml:"min"`
	Max      *float64  `yaml:"max"`
}

// FormSpec declares a configuration-driven form. Submitted values are stored
// as one object in the DataKey column.
type FormSpec struct {
	ID          string      `yaml:"id" validate:"required"`
	Title       string      `yaml:"title" validate:"required"`
	DataKey     string      `yaml:"dataKey" validate:"required"`
	SubmitLabel string      `yaml:"submitLabel"`
	Fields      []FieldSpec `yaml:"fields" validate:"required,min=1,dive"`
}

type formsFile struct {
	Forms []FormSpec `yaml:"forms" validate:"dive"`
}

var validate = validator.New()

// ParseSpecs reads custom form declarations from YAML
func ParseSpecs(data []byte) ([]FormSpec, error) {
	var file formsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse forms file: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid forms file: %w", err)
	}
	for _, spec := range file.Forms {
		seen := make(map[string]bool, len(spec.Fields))
		for _, f := range spec.Fields {
			if seen[f.Name] {
				return nil, fmt.Errorf("invalid forms file: form %s declares field %s twice", spec.ID, f.Name)
			}
			seen[f.Name] = true
		}
	}
	return file.Forms, nil
}

// LoadSpecs reads custom form declarations from a YAML file. An empty path
// yields no forms.
func LoadSpecs(path string) ([]FormSpec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read forms file: %w", err)
	}
	return ParseSpecs(data)
}

// CustomForm is a form built from a FormSpec
type CustomForm struct {
	spec FormSpec
}

// NewCustomForm wraps a loaded form spec
func NewCustomForm(spec FormSpec) *CustomForm {
	return &CustomForm{spec: spec}
}

// ID returns the configured form id
func (f *CustomForm) ID() string { return f.spec.ID }

// Title returns the configured heading
func (f *CustomForm) Title() string { return f.spec.Title }

// SubmitLabel returns the configured label, or "Submit"
func (f *CustomForm) SubmitLabel() string {
	if f.spec.SubmitLabel == "" {
		return "Submit"
	}
	return f.spec.SubmitLabel
}

// HasSavedData reports whether row holds a submission of this form
func (f *CustomForm) HasSavedData(row results.Row) bool {
	v, ok := row.Get(f.spec.DataKey)
	if !ok {
		return false
	}
	_, isObject := v.(map[string]any)
	return isObject
}

// Load returns the stored submission of row, or an empty map
func (f *CustomForm) Load(row results.Row) map[string]any {
	v, _ := row.Get(f.spec.DataKey)
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// Fields returns the configured fields prefilled from the saved submission
func (f *CustomForm) Fields(row results.Row) []Field {
	saved := f.Load(row)
	fields := make([]Field, len(f.spec.Fields))
	for i, fs := range f.spec.Fields {
		fields[i] = Field{
			Name:     fs.Name,
			Label:    fs.Label,
			Type:     fs.Type,
			Help:     fs.Help,
			Options:  fs.Options,
			Required: fs.Required,
			Min:      fs.Min,
			Max:      fs.Max,
			Value:    savedValue(fs, saved[fs.Name]),
		}
	}
	return fields
}

func savedValue(fs FieldSpec, v any) any {
	switch fs.Type {
	case FieldCheckbox:
		b, _ := v.(bool)
		return b
	case FieldMultiselect:
		var out []string
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
		}
		return out
	case FieldNumber, FieldSlider:
		if n, ok := results.ToFloat(v); ok {
			return n
		}
		if fs.Min != nil {
			return *fs.Min
		}
		return nil
	default:
		if v == nil {
			return ""
		}
		return results.FormatValue(v)
	}
}

// Parse validates each configured field against its type, options and bounds
func (f *CustomForm) Parse(values url.Values) (Submission, error) {
	verr := &ValidationError{}
	sub := Submission{}

	for _, fs := range f.spec.Fields {
		switch fs.Type {
		case FieldCheckbox:
			sub[fs.Name] = isChecked(values.Get(fs.Name))

		case FieldMultiselect:
			selected := values[fs.Name]
			if fs.Required && len(selected) == 0 {
				verr.add(fs.Name, "Select at least one option")
				continue
			}
			list := make([]any, 0, len(selected))
			for _, s := range selected {
				if !contains(fs.Options, s) {
					verr.add(fs.Name, "Unknown option: "+s)
					break
				}
				list = append(list, s)
			}
			sub[fs.Name] = list

		case FieldSelect:
			s := values.Get(fs.Name)
			if s == "" {
				if fs.Required {
					verr.add(fs.Name, "Select an option")
				}
				continue
			}
			if !contains(fs.Options, s) {
				verr.add(fs.Name, "Unknown option: "+s)
				continue
			}
			sub[fs.Name] = s

		case FieldNumber, FieldSlider:
			raw := strings.TrimSpace(values.Get(fs.Name))
			if raw == "" {
				if fs.Required {
					verr.add(fs.Name, "This field is required")
				}
				continue
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				verr.add(fs.Name, "Must be a number")
				continue
			}
			if fs.Min != nil && n < *fs.Min {
				verr.add(fs.Name, fmt.Sprintf("Must be at least %g", *fs.Min))
				continue
			}
			if fs.Max != nil && n > *fs.Max {
				verr.add(fs.Name, fmt.Sprintf("Must be at most %g", *fs.Max))
				continue
			}
			sub[fs.Name] = n

		default:
			s := values.Get(fs.Name)
			if fs.Required && strings.TrimSpace(s) == "" {
				verr.add(fs.Name, "This field is required")
				continue
			}
			sub[fs.Name] = s
		}
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return sub, nil
}

// Apply stores the whole submission as one object under the data key
func (f *CustomForm) Apply(tbl *results.Table, rowID string, sub Submission, _ time.Time) error {
	data := make(map[string]any, len(sub))
	for k, v := range sub {
		data[k] = v
	}
	return tbl.Set(rowID, f.spec.DataKey, data)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
