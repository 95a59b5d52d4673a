package labtemplate

import (
	"strings"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

// Section is the group of inputs rendered for one requested test.
type Section struct {
	Test   string
	Fields []Field
}

// Form is the data-entry form for a referral. Unknown holds requested tests
// with no template; they are shown as markers and never required.
type Form struct {
	Sections []Section
	Unknown  []string
}

// BuildForm resolves each requested test against r. A test requested more
// than once yields a single section.
func (r *Registry) BuildForm(tests []string) Form {
	var f Form
	seen := make(map[string]bool, len(tests))
	for _, name := range tests {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		t, err := r.Resolve(name)
		if err != nil {
			f.Unknown = append(f.Unknown, name)
			continue
		}
		f.Sections = append(f.Sections, Section{Test: t.Name, Fields: t.Fields})
	}
	return f
}

// Keys lists every composite key the form expects, in render order.
func (f Form) Keys() []string {
	var keys []string
	for _, s := range f.Sections {
		for _, field := range s.Fields {
			keys = append(keys, Key(s.Test, field.Label()))
		}
	}
	return keys
}

// Validate checks entries against the form. Every field of every known
// section must carry an acceptable value and no key outside the form is
// accepted. All problems are reported together.
func (f Form) Validate(entries ResultEntry) error {
	ve := apperr.Validation("lab result entry is incomplete or invalid")
	expected := make(map[string]bool)

	for _, s := range f.Sections {
		for _, field := range s.Fields {
			key := Key(s.Test, field.Label())
			expected[key] = true
			if err := CheckValue(field, entries[key]); err != nil {
				ve.Add(key, err.Error())
			}
		}
	}
	for key := range entries {
		if !expected[key] {
			ve.Add(key, "not part of the requested tests")
		}
	}

	if ve.HasProblems() {
		return ve
	}
	return nil
}

// Result validates entries and returns the structured record with values
// trimmed.
func (f Form) Result(entries ResultEntry) (StructuredResult, error) {
	if len(f.Sections) == 0 {
		return nil, apperr.Validation("no known tests to record results for")
	}
	if err := f.Validate(entries); err != nil {
		return nil, err
	}
	trimmed := make(ResultEntry, len(entries))
	for k, v := range entries {
		trimmed[k] = strings.TrimSpace(v)
	}
	return BuildStructuredResult(trimmed), nil
}

// SectionView is the wire shape of a form section.
type SectionView struct {
	Test   string      `json:"test"`
	Fields []FieldView `json:"fields"`
}

// FormView is the wire shape of a form.
type FormView struct {
	Sections []SectionView `json:"sections"`
	Unknown  []string      `json:"unknownTests,omitempty"`
}

func (f Form) View() FormView {
	out := FormView{Sections: make([]SectionView, 0, len(f.Sections)), Unknown: f.Unknown}
	for _, s := range f.Sections {
		sv := SectionView{Test: s.Test, Fields: make([]FieldView, 0, len(s.Fields))}
		for _, field := range s.Fields {
			sv.Fields = append(sv.Fields, View(field))
		}
		out.Sections = append(out.Sections, sv)
	}
	return out
}
