package labtemplate

import (
	"fmt"
	"strings"
)

// Registry is an immutable, ordered set of test templates. Lookups return
// copies so callers cannot alter the registry.
type Registry struct {
	order  []string
	byName map[string]Template
}

// NewRegistry validates and indexes templates in the given order.
func NewRegistry(templates ...Template) (*Registry, error) {
	r := &Registry{byName: make(map[string]Template, len(templates))}
	for _, t := range templates {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("template name is required")
		}
		if strings.Contains(name, ".") {
			return nil, fmt.Errorf("template %q: name must not contain '.'", name)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("template %q registered twice", name)
		}
		if len(t.Fields) == 0 {
			return nil, fmt.Errorf("template %q has no fields", name)
		}
		seen := make(map[string]bool, len(t.Fields))
		for _, f := range t.Fields {
			label := f.Label()
			if label == "" || strings.Contains(label, ".") {
				return nil, fmt.Errorf("template %q: invalid field name %q", name, label)
			}
			if seen[label] {
				return nil, fmt.Errorf("template %q: duplicate field %q", name, label)
			}
			seen[label] = true
			if s, ok := f.(SelectField); ok && len(s.Options) == 0 {
				return nil, fmt.Errorf("template %q: select field %q has no options", name, label)
			}
		}
		t.Name = name
		r.order = append(r.order, name)
		r.byName[name] = t.clone()
	}
	return r, nil
}

func mustRegistry(templates ...Template) *Registry {
	r, err := NewRegistry(templates...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the template registered under name. Surrounding
// whitespace is ignored.
func (r *Registry) Resolve(name string) (Template, error) {
	name = strings.TrimSpace(name)
	t, ok := r.byName[name]
	if !ok {
		return Template{}, &UnknownTestError{Name: name}
	}
	return t.clone(), nil
}

// Has reports whether name resolves.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[strings.TrimSpace(name)]
	return ok
}

// Names lists test names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Search returns names containing q, case-insensitively, in registration
// order. An empty query returns every name.
func (r *Registry) Search(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return r.Names()
	}
	var out []string
	for _, name := range r.order {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	return out
}

// Templates returns every template in registration order.
func (r *Registry) Templates() []Template {
	out := make([]Template, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].clone())
	}
	return out
}

var defaultRegistry = mustRegistry(defaultTemplates()...)

// DefaultRegistry returns the built-in laboratory catalogue.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

var (
	posNeg   = []string{"Positive", "Negative"}
	posNegIn = []string{"Positive", "Negative", "Indeterminate"}
)

func defaultTemplates() []Template {
	return []Template{
		{Name: "Full Hemogram", Fields: []Field{
			NumberField{Name: "Hemoglobin", Unit: "g/dL"},
			NumberField{Name: "WBC Count", Unit: "x10^9/L"},
			NumberField{Name: "Platelets", Unit: "x10^9/L"},
		}},
		{Name: "Malaria Test", Fields: []Field{
			SelectField{Name: "Result", Options: posNeg},
			NumberField{Name: "Parasite Load", Unit: "parasites/μL"},
		}},
		{Name: "Blood Sugar", Fields: []Field{
			NumberField{Name: "Blood Sugar Level", Unit: "mmol/L"},
		}},
		{Name: "Urinalysis", Fields: []Field{
			TextField{Name: "Color"},
			NumberField{Name: "Specific Gravity"},
			TextField{Name: "Protein"},
		}},
		{Name: "TFT", Fields: []Field{
			NumberField{Name: "TSH", Unit: "μIU/mL"},
			NumberField{Name: "T3", Unit: "ng/dL"},
			NumberField{Name: "T4", Unit: "μg/dL"},
		}},
		{Name: "Liver Function Test", Fields: []Field{
			NumberField{Name: "ALT", Unit: "U/L"},
			NumberField{Name: "AST", Unit: "U/L"},
			NumberField{Name: "Bilirubin Total", Unit: "mg/dL"},
			NumberField{Name: "Bilirubin Direct", Unit: "mg/dL"},
		}},
		{Name: "Renal Profile", Fields: []Field{
			NumberField{Name: "Creatinine", Unit: "mg/dL"},
			NumberField{Name: "BUN", Unit: "mg/dL"},
			NumberField{Name: "Sodium", Unit: "mmol/L"},
			NumberField{Name: "Potassium", Unit: "mmol/L"},
		}},
		{Name: "Lipid Profile", Fields: []Field{
			NumberField{Name: "Total Cholesterol", Unit: "mg/dL"},
			NumberField{Name: "HDL", Unit: "mg/dL"},
			NumberField{Name: "LDL", Unit: "mg/dL"},
			NumberField{Name: "Triglycerides", Unit: "mg/dL"},
		}},
		{Name: "HIV Test", Fields: []Field{
			SelectField{Name: "Result", Options: posNegIn},
		}},
		{Name: "Pregnancy Test", Fields: []Field{
			SelectField{Name: "Result", Options: posNeg},
		}},
		{Name: "COVID-19 PCR", Fields: []Field{
			SelectField{Name: "Result", Options: posNeg},
			NumberField{Name: "Ct Value"},
		}},
		{Name: "Stool Microscopy", Fields: []Field{
			TextField{Name: "Consistency"},
			TextField{Name: "Parasites Seen"},
			SelectField{Name: "Occult Blood", Options: posNeg},
		}},
		{Name: "Electrolytes", Fields: []Field{
			NumberField{Name: "Sodium", Unit: "mmol/L"},
			NumberField{Name: "Potassium", Unit: "mmol/L"},
			NumberField{Name: "Chloride", Unit: "mmol/L"},
			NumberField{Name: "Bicarbonate", Unit: "mmol/L"},
		}},
		{Name: "Blood Grouping", Fields: []Field{
			SelectField{Name: "Blood Group", Options: []string{"A", "B", "AB", "O"}},
			SelectField{Name: "Rh Factor", Options: posNeg},
		}},
	}
}
