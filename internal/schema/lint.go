package schema

import (
	"fmt"
	"regexp"
	"sort"
)

// LintIssue is a structural problem found in a schema.
type LintIssue struct {
	Path    string // e.g. "sections/personal/fields/children/itemFields/childName"
	Message string
}

func (i LintIssue) String() string {
	return i.Path + ": " + i.Message
}

// Lint checks a schema for problems the loader tolerates but the form engine
// would trip over at runtime.
func Lint(s *Schema) []LintIssue {
	var issues []LintIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, LintIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if len(s.Sections) == 0 {
		add("sections", "schema has no sections")
	}

	seen := make(map[string]bool)
	for _, sec := range s.Sections {
		path := "sections/" + sec.ID
		if sec.ID == "" {
			add(path, "section has no id")
		}
		if seen[sec.ID] {
			add(path, "duplicate section id %q", sec.ID)
		}
		seen[sec.ID] = true

		ids := make(map[string]bool, len(sec.Fields))
		for _, f := range sec.Fields {
			ids[f.ID] = true
		}
		lintFields(sec.Fields, path, 1, add)

		for _, f := range sec.Fields {
			fpath := path + "/fields/" + f.ID
			for _, ctrl := range sortedKeys(f.VisibleIf) {
				if !ids[ctrl] {
					add(fpath, "visibleIf references unknown field %q", ctrl)
				}
			}
			for _, branch := range sortedKeys(f.Reveals) {
				for _, dep := range f.Reveals[branch] {
					if !ids[dep] {
						add(fpath, "reveals[%s] references unknown field %q", branch, dep)
					}
				}
			}
		}
	}
	return issues
}

func lintFields(fields []*Field, path string, depth int, add func(string, string, ...any)) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		fpath := path + "/fields/" + f.ID
		if depth > 1 {
			fpath = path + "/itemFields/" + f.ID
		}
		if f.ID == "" {
			add(fpath, "field has no id")
		}
		if seen[f.ID] {
			add(fpath, "duplicate field id %q", f.ID)
		}
		seen[f.ID] = true

		if !f.Type.Known() {
			add(fpath, "unknown field type %q", f.Type)
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				add(fpath, "invalid pattern: %v", err)
			}
		}
		if f.HasOptions() && len(f.Options) == 0 {
			add(fpath, "%s field has no options", f.Type)
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			add(fpath, "min %v is greater than max %v", *f.Min, *f.Max)
		}
		if f.Type == TypeRepeater {
			if len(f.ItemFields) == 0 {
				add(fpath, "repeater has no itemFields")
			}
			if !WithinDepth(depth) {
				add(fpath, "repeater nesting exceeds depth %d", MaxDepth)
				continue
			}
			lintFields(f.ItemFields, fpath, depth+1, add)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
