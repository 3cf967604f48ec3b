// Package visibility decides which fields are shown and which dependent
// values a reveal map clears when its controlling value changes.
package visibility

import (
	"sort"

	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/schema"
)

// IsVisible evaluates f.VisibleIf against the values of f's own section.
// Every condition must hold. A list expectation is a membership test; a
// scalar one is an equality test. When the controlling value is itself a
// list (multiselect), the condition holds if any selected value matches.
func IsVisible(f *schema.Field, values schema.SectionValues) bool {
	for ctrl, expected := range f.VisibleIf {
		if !matches(values[ctrl], expected) {
			return false
		}
	}
	return true
}

func matches(actual, expected any) bool {
	if list, ok := asList(actual); ok {
		for _, a := range list {
			if matches(a, expected) {
				return true
			}
		}
		return false
	}
	if set, ok := asList(expected); ok {
		for _, e := range set {
			if schema.Equal(actual, e) {
				return true
			}
		}
		return false
	}
	return schema.Equal(actual, expected)
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// VisibleFields returns the section's fields that are currently shown, in
// schema order.
func VisibleFields(sec *schema.Section, values schema.SectionValues) []*schema.Field {
	out := make([]*schema.Field, 0, len(sec.Fields))
	for _, f := range sec.Fields {
		if IsVisible(f, values) {
			out = append(out, f)
		}
	}
	return out
}

// RequiredVisibleIDs returns the ids of visible required fields.
func RequiredVisibleIDs(sec *schema.Section, values schema.SectionValues) []string {
	var ids []string
	for _, f := range VisibleFields(sec, values) {
		if f.Required {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// ActiveBranch picks the reveal key selected by value. For a list value it
// is the first element with a branch; for a scalar it is the value itself,
// whether or not a branch exists for it. ok is false when nothing is
// selected, in which case every branch is inactive.
func ActiveBranch(f *schema.Field, value any) (key string, ok bool) {
	if list, isList := asList(value); isList {
		for _, v := range list {
			s, scalar := schema.AsString(v)
			if !scalar {
				continue
			}
			if _, exists := f.Reveals[s]; exists {
				return s, true
			}
		}
		return "", false
	}
	if value == nil {
		return "", false
	}
	return schema.AsString(value)
}

// RevealClears lists the dependent field ids to reset when f takes value:
// every id named by a branch other than the active one, in branch order.
// An id shared with the active branch is still cleared.
func RevealClears(f *schema.Field, value any) []string {
	if len(f.Reveals) == 0 {
		return nil
	}
	active, hasActive := ActiveBranch(f, value)

	keys := make([]string, 0, len(f.Reveals))
	for k := range f.Reveals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ids []string
	for _, k := range keys {
		if hasActive && k == active {
			continue
		}
		ids = append(ids, f.Reveals[k]...)
	}
	return ids
}

// Writer is the state mutation the reveal side effect needs.
type Writer interface {
	PatchValue(sectionID, fieldID string, value any)
}

// ApplyReveals writes nil to every id RevealClears returns and reports them.
func ApplyReveals(w Writer, sectionID string, f *schema.Field, value any) []string {
	ids := RevealClears(f, value)
	for _, id := range ids {
		w.PatchValue(sectionID, id, nil)
	}
	if len(ids) > 0 {
		L_debug("visibility: reveal cleared", "section", sectionID, "field", f.ID, "cleared", ids)
	}
	return ids
}
