package labtemplate

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

// FieldType is the input kind of a template field.
type FieldType int

const (
	TypeText FieldType = iota + 1
	TypeNumber
	TypeSelect
)

func (t FieldType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeNumber:
		return "number"
	case TypeSelect:
		return "select"
	default:
		return "unknown"
	}
}

// Field is one entry of a test template. The set of implementations is
// closed: TextField, NumberField and SelectField.
type Field interface {
	Label() string
	Type() FieldType
	isField()
}

// TextField accepts any non-empty value.
type TextField struct {
	Name string
	Unit string
}

// NumberField accepts a non-empty decimal value.
type NumberField struct {
	Name string
	Unit string
}

// SelectField accepts exactly one of Options.
type SelectField struct {
	Name    string
	Options []string
}

func (f TextField) Label() string   { return f.Name }
func (f NumberField) Label() string { return f.Name }
func (f SelectField) Label() string { return f.Name }

func (TextField) Type() FieldType   { return TypeText }
func (NumberField) Type() FieldType { return TypeNumber }
func (SelectField) Type() FieldType { return TypeSelect }

func (TextField) isField()   {}
func (NumberField) isField() {}
func (SelectField) isField() {}

// Template is the ordered field list for one lab test.
type Template struct {
	Name   string  `json:"name"`
	Fields []Field `json:"-"`
}

// FieldView is the wire shape of a field: {field, type, unit?, options?}.
type FieldView struct {
	Field   string   `json:"field"`
	Type    string   `json:"type"`
	Unit    string   `json:"unit,omitempty"`
	Options []string `json:"options,omitempty"`
}

// TemplateView is the wire shape of a template.
type TemplateView struct {
	Name   string      `json:"name"`
	Fields []FieldView `json:"fields"`
}

// View converts a field into its wire shape.
func View(f Field) FieldView {
	switch f := f.(type) {
	case TextField:
		return FieldView{Field: f.Name, Type: TypeText.String(), Unit: f.Unit}
	case NumberField:
		return FieldView{Field: f.Name, Type: TypeNumber.String(), Unit: f.Unit}
	case SelectField:
		return FieldView{Field: f.Name, Type: TypeSelect.String(), Options: append([]string(nil), f.Options...)}
	default:
		panic(fmt.Sprintf("labtemplate: unhandled field type %T", f))
	}
}

// View converts a template into its wire shape.
func (t Template) View() TemplateView {
	out := TemplateView{Name: t.Name, Fields: make([]FieldView, 0, len(t.Fields))}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, View(f))
	}
	return out
}

// Unit returns the display unit of f, or "" when it has none.
func Unit(f Field) string {
	switch f := f.(type) {
	case TextField:
		return f.Unit
	case NumberField:
		return f.Unit
	case SelectField:
		return ""
	default:
		panic(fmt.Sprintf("labtemplate: unhandled field type %T", f))
	}
}

// CheckValue reports the problem with value for field f, or nil when the
// value is acceptable. A blank value is always a problem.
func CheckValue(f Field, value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return errRequired
	}
	switch f := f.(type) {
	case TextField:
		return nil
	case NumberField:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return errNotNumber
		}
		return nil
	case SelectField:
		for _, o := range f.Options {
			if o == v {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(f.Options, ", "))
	default:
		panic(fmt.Sprintf("labtemplate: unhandled field type %T", f))
	}
}

var (
	errRequired  = errors.New("required")
	errNotNumber = errors.New("must be a number")
)

func cloneField(f Field) Field {
	if s, ok := f.(SelectField); ok {
		s.Options = append([]string(nil), s.Options...)
		return s
	}
	return f
}

func (t Template) clone() Template {
	fields := make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = cloneField(f)
	}
	return Template{Name: t.Name, Fields: fields}
}

// UnknownTestError is returned when a requested test has no template.
type UnknownTestError struct {
	Name string
}

func (e *UnknownTestError) Error() string {
	return "Unknown test: " + e.Name
}

func (e *UnknownTestError) Kind() apperr.Kind { return apperr.KindNotFound }
