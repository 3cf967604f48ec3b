package schema

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// IsEmpty reports whether v counts as "no answer": nil, "", or an empty
// slice or map of any element type.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// AsString returns the string form of a scalar value.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := AsFloat(t)
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// AsFloat converts numeric values and numeric strings.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// AsBool interprets v as a yes/no answer.
func AsBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "on", "1":
			return true
		}
		return false
	}
	if f, ok := AsFloat(v); ok {
		return f != 0
	}
	return !IsEmpty(v)
}

// AsStrings returns a list value as strings, skipping non-scalar entries.
// A single scalar becomes a one-element list.
func AsStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := AsString(e); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := AsString(v); ok {
		return []string{s}
	}
	return nil
}

// AsItems returns a repeater value as a list of item maps. Entries that are
// not maps are skipped.
func AsItems(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []SectionValues:
		out := make([]map[string]any, len(t))
		for i, it := range t {
			out[i] = it
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, e := range t {
			switch m := e.(type) {
			case map[string]any:
				out = append(out, m)
			case SectionValues:
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// AsFiles returns the file descriptors held by a file field value, accepting
// both typed descriptors and their decoded JSON form.
func AsFiles(v any) []FileDescriptor {
	switch t := v.(type) {
	case nil:
		return nil
	case FileDescriptor:
		return []FileDescriptor{t}
	case *FileDescriptor:
		if t == nil {
			return nil
		}
		return []FileDescriptor{*t}
	case []FileDescriptor:
		return append([]FileDescriptor(nil), t...)
	case map[string]any:
		return []FileDescriptor{fileFromMap(t)}
	case []any:
		out := make([]FileDescriptor, 0, len(t))
		for _, e := range t {
			out = append(out, AsFiles(e)...)
		}
		return out
	}
	return nil
}

func fileFromMap(m map[string]any) FileDescriptor {
	fd := FileDescriptor{}
	fd.ID, _ = m["id"].(string)
	fd.URL, _ = m["url"].(string)
	fd.Filename, _ = m["filename"].(string)
	fd.Type, _ = m["type"].(string)
	fd.Description, _ = m["description"].(string)
	fd.Date, _ = m["date"].(string)
	if size, ok := AsFloat(m["size"]); ok {
		fd.Size = int64(size)
	}
	if at, ok := m["uploadedAt"].(string); ok {
		fd.UploadedAt, _ = time.Parse(time.RFC3339, at)
	}
	return fd
}

// Equal compares two values the way a visibleIf condition does: numbers by
// value regardless of their Go type, everything else structurally.
func Equal(a, b any) bool {
	if isNumeric(a) && isNumeric(b) {
		fa, _ := AsFloat(a)
		fb, _ := AsFloat(b)
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// Clone returns a deep copy of the form value.
func (fv FormValue) Clone() FormValue {
	out := make(FormValue, len(fv))
	for id, sv := range fv {
		out[id] = sv.Clone()
	}
	return out
}

// Clone returns a deep copy of the section values.
func (sv SectionValues) Clone() SectionValues {
	if sv == nil {
		return SectionValues{}
	}
	out := make(SectionValues, len(sv))
	for k, v := range sv {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies the container types a form value can hold.
func CloneValue(v any) any {
	if v == nil || isNilContainer(v) {
		return v
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case SectionValues:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		return append(make([]string, 0, len(t)), t...)
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e).(map[string]any)
		}
		return out
	case []FileDescriptor:
		return append(make([]FileDescriptor, 0, len(t)), t...)
	}
	return v
}

func isNilContainer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer:
		return rv.IsNil()
	}
	return false
}
