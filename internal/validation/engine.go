// Package validation checks form values against their field definitions.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/metrics"
	"github.com/roelfdiedericks/gointake/internal/schema"
)

// DefaultMaxFileSizeMB caps each uploaded file when nothing else is configured.
const DefaultMaxFileSizeMB = 25

// DefaultAccept is used for file fields that declare no accept list.
var DefaultAccept = []string{".pdf", ".doc", ".docx", ".png", ".jpg", ".jpeg"}

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	telRe   = regexp.MustCompile(`^\+?[0-9\-\(\)\s]{7,}$`)
	monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

// Engine validates fields. The zero value is not usable; use New.
type Engine struct {
	MaxFileSizeMB int
	Now           func() time.Time
	Metrics       *metrics.Manager

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// New returns an engine with the default file size cap and the wall clock.
func New() *Engine {
	return &Engine{
		MaxFileSizeMB: DefaultMaxFileSizeMB,
		Now:           time.Now,
		patterns:      make(map[string]*regexp.Regexp),
	}
}

// ValidateField runs every applicable check on one value. The returned
// errors have an empty SectionID.
func (e *Engine) ValidateField(f *schema.Field, value any) Result {
	r := ok()
	r.add(e.check(f, value, f.ID, 1)...)
	return r
}

// ValidateSection validates each field against its value in values and tags
// every error with sectionID. Callers pass only the fields that are visible.
func (e *Engine) ValidateSection(fields []*schema.Field, values schema.SectionValues, sectionID string) Result {
	r := ok()
	for _, f := range fields {
		errs := e.check(f, values[f.ID], f.ID, 1)
		for i := range errs {
			errs[i].SectionID = sectionID
		}
		r.add(errs...)
	}

	if r.Valid {
		e.Metrics.RecordSuccess("validation", "section")
	} else {
		e.Metrics.RecordFailure("validation", "section", sectionID)
		L_debug("validation: section invalid", "section", sectionID, "errors", len(r.Errors))
	}
	return r
}

func (e *Engine) check(f *schema.Field, value any, id string, depth int) []FieldError {
	var errs []FieldError
	fail := func(code, format string, args ...any) {
		errs = append(errs, FieldError{FieldID: id, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	empty := schema.IsEmpty(value)
	if f.Required && empty {
		fail(CodeRequired, "%s is required", f.Label)
	}
	if empty {
		return errs
	}

	switch f.Type {
	case schema.TypeEmail:
		if s, _ := schema.AsString(value); !emailRe.MatchString(s) {
			fail(CodeInvalidFormat, "Please enter a valid email address")
		}

	case schema.TypeTel:
		if s, _ := schema.AsString(value); !telRe.MatchString(s) {
			fail(CodeInvalidFormat, "Please enter a valid phone number")
		}

	case schema.TypeDate:
		errs = append(errs, e.checkDate(f, value, id)...)

	case schema.TypeMonth:
		if s, _ := schema.AsString(value); !monthRe.MatchString(s) {
			fail(CodeInvalidFormat, "Please enter a valid month (YYYY-MM)")
		}

	case schema.TypeNumber:
		n, isNum := schema.AsFloat(value)
		if !isNum {
			fail(CodeInvalidFormat, "Please enter a valid number")
			break
		}
		if f.Min != nil && n < *f.Min {
			fail(CodeTooSmall, "Value must be at least %s", formatNumber(*f.Min))
		}
		if f.Max != nil && n > *f.Max {
			fail(CodeTooBig, "Value must be no more than %s", formatNumber(*f.Max))
		}

	case schema.TypeSelect, schema.TypeRadio:
		if len(f.Options) > 0 {
			if s, _ := schema.AsString(value); !contains(f.Options, s) {
				fail(CodeInvalidEnum, "Please select a valid option")
			}
		}

	case schema.TypeMultiselect:
		if len(f.Options) > 0 {
			for _, s := range schema.AsStrings(value) {
				if !contains(f.Options, s) {
					fail(CodeInvalidEnum, "%q is not a valid option", s)
				}
			}
		}

	case schema.TypeFile:
		errs = append(errs, e.checkFiles(f, value, id)...)

	case schema.TypeRepeater:
		if !schema.WithinDepth(depth) {
			break
		}
		for i, item := range schema.AsItems(value) {
			for _, it := range f.ItemFields {
				itemID := fmt.Sprintf("%s[%d].%s", id, i, it.ID)
				errs = append(errs, e.check(it, item[it.ID], itemID, depth+1)...)
			}
		}
	}

	if f.Pattern != "" {
		if s, scalar := schema.AsString(value); scalar {
			re, err := e.pattern(f.Pattern)
			if err != nil {
				L_warn("validation: bad pattern", "field", f.ID, "pattern", f.Pattern, "error", err)
			} else if !re.MatchString(s) {
				fail(CodePattern, "Please enter a valid format")
			}
		}
	}

	return errs
}

func (e *Engine) checkDate(f *schema.Field, value any, id string) []FieldError {
	s, _ := schema.AsString(value)
	d, err := parseDate(s)
	if err != nil {
		return []FieldError{{FieldID: id, Code: CodeInvalidFormat, Message: "Please enter a valid date (YYYY-MM-DD)"}}
	}

	var errs []FieldError
	if f.MinDate != "" {
		if bound, label, ok := e.bound(f.MinDate); ok && d.Before(bound) {
			msg := "Date must be in the future"
			if label != schema.DateToday {
				msg = "Date must be on or after " + label
			}
			errs = append(errs, FieldError{FieldID: id, Code: CodeDateRange, Message: msg})
		}
	}
	if f.MaxDate != "" {
		if bound, label, ok := e.bound(f.MaxDate); ok && d.After(bound) {
			msg := "Date cannot be in the future"
			if label != schema.DateToday {
				msg = "Date must be on or before " + label
			}
			errs = append(errs, FieldError{FieldID: id, Code: CodeDateRange, Message: msg})
		}
	}
	return errs
}

// bound resolves a minDate/maxDate attribute to local midnight.
func (e *Engine) bound(attr string) (time.Time, string, bool) {
	if attr == schema.DateToday {
		return midnight(e.now()), attr, true
	}
	d, err := parseDate(attr)
	if err != nil {
		return time.Time{}, attr, false
	}
	return d, attr, true
}

func (e *Engine) checkFiles(f *schema.Field, value any, id string) []FieldError {
	accept := f.Accept
	if len(accept) == 0 {
		accept = DefaultAccept
	}
	maxMB := e.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = DefaultMaxFileSizeMB
	}

	var errs []FieldError
	for _, fd := range schema.AsFiles(value) {
		if msg, code := CheckFile(fd.Filename, fd.Size, accept, maxMB); msg != "" {
			errs = append(errs, FieldError{FieldID: id, Code: code, Message: msg})
		}
	}
	return errs
}

// CheckFile applies the size cap, then the extension allow-list, and returns
// the first violation's message and code.
func CheckFile(name string, size int64, accept []string, maxMB int) (string, string) {
	if size > int64(maxMB)*1024*1024 {
		return fmt.Sprintf("%s: File size exceeds %dMB limit", name, maxMB), CodeFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range accept {
		if strings.ToLower(a) == ext {
			return "", ""
		}
	}
	return fmt.Sprintf("%s: File type not allowed", name), CodeFileType
}

func (e *Engine) pattern(p string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.patterns[p]; ok {
		return re, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	if e.patterns == nil {
		e.patterns = make(map[string]*regexp.Regexp)
	}
	e.patterns[p] = re
	return re, nil
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return midnight(t.In(time.Local)), nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
