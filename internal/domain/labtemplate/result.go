package labtemplate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ResultEntry is the flat form input, keyed "<test>.<field>".
type ResultEntry map[string]string

// StructuredResult is the nested test -> field -> value record sent to the
// backend.
type StructuredResult map[string]map[string]string

// Key builds the composite entry key for a test field.
func Key(test, field string) string {
	return test + "." + field
}

// BuildStructuredResult groups entries by test name. Each key is split on
// its first '.'; keys without a separator are ignored.
func BuildStructuredResult(entries ResultEntry) StructuredResult {
	out := make(StructuredResult)
	for key, value := range entries {
		test, field, ok := strings.Cut(key, ".")
		if !ok {
			continue
		}
		fields, exists := out[test]
		if !exists {
			fields = make(map[string]string)
			out[test] = fields
		}
		fields[field] = value
	}
	return out
}

// Entries flattens r back into composite keys.
func (r StructuredResult) Entries() ResultEntry {
	out := make(ResultEntry)
	for test, fields := range r {
		for field, value := range fields {
			out[Key(test, field)] = value
		}
	}
	return out
}

// Tests lists the test names present in r, sorted.
func (r StructuredResult) Tests() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeRequestedTests accepts the requested-tests value as the backend
// may send it: a list of strings, a list of arbitrary JSON values or a
// single comma-delimited string. Elements are trimmed and empties dropped.
// Order and duplicates are preserved.
func NormalizeRequestedTests(raw interface{}) []string {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return []string{}
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case RequestedTests:
		parts = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	default:
		return []string{}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RequestedTests decodes either JSON shape of the requested-tests field and
// normalizes it.
type RequestedTests []string

func (t *RequestedTests) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode requested tests: %w", err)
	}
	switch raw.(type) {
	case nil, string, []interface{}:
	default:
		return fmt.Errorf("decode requested tests: unexpected JSON %s", string(data))
	}
	*t = NormalizeRequestedTests(raw)
	return nil
}

// Duplicates returns test names requested more than once, in first-seen
// order.
func Duplicates(tests []string) []string {
	count := make(map[string]int, len(tests))
	var dups []string
	for _, t := range tests {
		count[t]++
		if count[t] == 2 {
			dups = append(dups, t)
		}
	}
	return dups
}
