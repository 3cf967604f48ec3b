package validation

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes carried by FieldError.Code.
const (
	CodeRequired      = "required"
	CodeInvalidFormat = "invalid_format"
	CodePattern       = "pattern"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeDateRange     = "date_range"
	CodeInvalidEnum   = "invalid_enum"
	CodeFileTooLarge  = "file_too_large"
	CodeFileType      = "file_type"
)

// FieldError is one failed check on one field.
type FieldError struct {
	FieldID   string // repeater items use "children[0].childName"
	SectionID string
	Code      string
	Message   string
}

func (e FieldError) Error() string {
	if e.SectionID == "" {
		return fmt.Sprintf("%s: %s", e.FieldID, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.SectionID, e.FieldID, e.Message)
}

// Issues is a list of field errors that implements error.
type Issues []FieldError

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(iss[i].Error())
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// AsIssues extracts Issues from an error chain.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Result is the outcome of validating a field or a section.
type Result struct {
	Valid  bool
	Errors []FieldError
}

func ok() Result { return Result{Valid: true} }

func (r *Result) add(errs ...FieldError) {
	r.Errors = append(r.Errors, errs...)
	r.Valid = len(r.Errors) == 0
}

// Err returns the errors as Issues, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return Issues(r.Errors)
}

// ByField groups messages by field id, keeping check order.
func (r Result) ByField() map[string][]string {
	out := make(map[string][]string)
	for _, e := range r.Errors {
		out[e.FieldID] = append(out[e.FieldID], e.Message)
	}
	return out
}

// First returns the first message for a field id, or "".
func (r Result) First(fieldID string) string {
	for _, e := range r.Errors {
		if e.FieldID == fieldID {
			return e.Message
		}
	}
	return ""
}
