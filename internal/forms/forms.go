// Package forms defines the labelling forms shown next to each sample. Every
// form renders fields with defaults from the current result row, validates a
// posted submission, and writes it back into the results table.
package forms

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
)

// FieldType selects the input widget of a field
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldCheckbox    FieldType = "checkbox"
	FieldNumber      FieldType = "number"
	FieldSlider      FieldType = "slider"
)

// Field is one rendered input with its current value
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Help     string
	Options  []string
	Required bool
	Min      *float64
	Max      *float64
	// Value is a string, []string, bool or float64 depending on Type
	Value any
	Error string
}

// Submission holds the validated values of one posted form
type Submission map[string]any

// Handler is one labelling form
type Handler interface {
	ID() string
	Title() string
	SubmitLabel() string
	Fields(row results.Row) []Field
	Parse(values url.Values) (Submission, error)
	Apply(tbl *results.Table, rowID string, sub Submission, now time.Time) error
}

// Conditional is implemented by forms that are only shown for some rows
type Conditional interface {
	Visible(row results.Row) bool
}

// ValidationError carries per-field messages. It matches domain.ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidInput
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// QuestionHash identifies a question within a run. It is stored with each
// error feedback entry.
func QuestionHash(question, rowID string) string {
	h := fnv.New64a()
	h.Write([]byte(question))
	h.Write([]byte{0})
	h.Write([]byte(rowID))
	return strconv.FormatUint(h.Sum64(), 10)
}

// Timestamp formats now the way start and end times are stored
func Timestamp(now time.Time) string {
	return now.Format(domain.DatetimeLayout)
}

// Registry keeps forms in display order
type Registry struct {
	handlers []Handler
	byID     map[string]Handler
}

// NewRegistry builds a registry; form ids must be unique
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{byID: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		if _, dup := r.byID[h.ID()]; dup {
			return nil, fmt.Errorf("duplicate form id %q", h.ID())
		}
		r.byID[h.ID()] = h
		r.handlers = append(r.handlers, h)
	}
	return r, nil
}

// Get returns the form with id
func (r *Registry) Get(id string) (Handler, bool) {
	h, ok := r.byID[id]
	return h, ok
}

// All returns every form in display order
func (r *Registry) All() []Handler {
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Visible returns the forms shown for row, in display order
func (r *Registry) Visible(row results.Row) []Handler {
	var out []Handler
	for _, h := range r.handlers {
		if c, ok := h.(Conditional); ok && !c.Visible(row) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// WithErrors copies validation messages onto fields
func WithErrors(fields []Field, err error) []Field {
	verr, ok := err.(*ValidationError)
	if !ok {
		return fields
	}
	for i := range fields {
		if msg, ok := verr.Fields[fields[i].Name]; ok {
			fields[i].Error = msg
		}
	}
	return fields
}

// WithValues overlays posted values on fields so a rejected form keeps the input
func WithValues(fields []Field, values url.Values) []Field {
	for i := range fields {
		f := &fields[i]
		switch f.Type {
		case FieldCheckbox:
			f.Value = isChecked(values.Get(f.Name))
		case FieldMultiselect:
			f.Value = values[f.Name]
		default:
			f.Value = values.Get(f.Name)
		}
	}
	return fields
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Selected reports whether opt is part of the field value
func (f Field) Selected(opt string) bool {
	switch v := f.Value.(type) {
	case string:
		return v == opt
	case []string:
		for _, s := range v {
			if s == opt {
				return true
			}
		}
	case []any:
		for _, s := range v {
			if s == opt {
				return true
			}
		}
	}
	return false
}

// Checked reports whether a checkbox field is ticked
func (f Field) Checked() bool {
	b, _ := f.Value.(bool)
	return b
}

// Text returns the field value as text
func (f Field) Text() string {
	if f.Value == nil {
		return ""
	}
	return results.FormatValue(f.Value)
}
