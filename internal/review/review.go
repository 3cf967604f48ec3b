// Package review projects the form value against the schema into a
// printable summary and gates submission on completeness.
package review

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/stepper"
	"github.com/roelfdiedericks/gointake/internal/visibility"
)

// NotProvided is rendered for any empty value.
const NotProvided = "Not provided"

// ErrIncomplete is returned by Submit while a visible required field is empty.
var ErrIncomplete = errors.New("form is incomplete")

// Store is the part of the form state the compiler reads and clears.
type Store interface {
	GetAllValues() schema.FormValue
	ClearDraft()
}

// Row is one answered or missing field in a Summary.
type Row struct {
	FieldID string
	Label   string
	Value   string
	Missing bool
}

// SectionSummary lists the rows of one section.
type SectionSummary struct {
	ID       string
	Title    string
	Complete bool
	Rows     []Row
}

// Summary is the whole review.
type Summary struct {
	Title       string
	GeneratedAt time.Time
	Complete    bool
	Sections    []SectionSummary
}

// Submission is the result of a successful Submit.
type Submission struct {
	Reference   string
	SubmittedAt time.Time
	Value       schema.FormValue
}

// Compiler reads the store on every call; it keeps no copy of the value.
type Compiler struct {
	schema *schema.Schema
	store  Store
	nav    stepper.Navigator

	Now func() time.Time
}

// New returns a compiler. nav may be nil when no routing is needed.
func New(s *schema.Schema, store Store, nav stepper.Navigator) *Compiler {
	return &Compiler{schema: s, store: store, nav: nav, Now: time.Now}
}

// CompletedFields returns the visible fields of sec that hold a value.
func (c *Compiler) CompletedFields(sec *schema.Section) []*schema.Field {
	return completed(sec, c.store.GetAllValues()[sec.ID])
}

// IncompleteFields returns the visible required fields of sec that are empty.
func (c *Compiler) IncompleteFields(sec *schema.Section) []*schema.Field {
	return incomplete(sec, c.store.GetAllValues()[sec.ID])
}

// IsSectionComplete reports whether no visible required field is empty.
func (c *Compiler) IsSectionComplete(sec *schema.Section) bool {
	return len(c.IncompleteFields(sec)) == 0
}

// IsFormComplete reports whether every section is complete.
func (c *Compiler) IsFormComplete() bool {
	fv := c.store.GetAllValues()
	for i := range c.schema.Sections {
		sec := &c.schema.Sections[i]
		if len(incomplete(sec, fv[sec.ID])) > 0 {
			return false
		}
	}
	return true
}

// FormatFieldValue renders the stored value of one field for display.
func (c *Compiler) FormatFieldValue(sectionID string, f *schema.Field) string {
	return FormatValue(f, c.store.GetAllValues()[sectionID][f.ID])
}

// Summary compiles every section from one snapshot of the store.
func (c *Compiler) Summary() Summary {
	fv := c.store.GetAllValues()
	sum := Summary{Title: c.schema.Title, GeneratedAt: c.now(), Complete: true}

	for i := range c.schema.Sections {
		sec := &c.schema.Sections[i]
		sv := fv[sec.ID]
		ss := SectionSummary{ID: sec.ID, Title: sec.Title}

		for _, f := range visibility.VisibleFields(sec, sv) {
			v := sv[f.ID]
			switch {
			case !schema.IsEmpty(v):
				ss.Rows = append(ss.Rows, Row{FieldID: f.ID, Label: f.Label, Value: FormatValue(f, v)})
			case f.Required:
				ss.Rows = append(ss.Rows, Row{FieldID: f.ID, Label: f.Label, Value: NotProvided, Missing: true})
			}
		}
		ss.Complete = len(incomplete(sec, sv)) == 0
		if !ss.Complete {
			sum.Complete = false
		}
		sum.Sections = append(sum.Sections, ss)
	}
	return sum
}

// Missing returns "Section: Label" for every row still required.
func (s Summary) Missing() []string {
	var out []string
	for _, sec := range s.Sections {
		for _, r := range sec.Rows {
			if r.Missing {
				out = append(out, sec.Title+": "+r.Label)
			}
		}
	}
	return out
}

// Submit clears the draft and routes to the success destination once the
// form is complete.
func (c *Compiler) Submit(ctx context.Context) (*Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := c.Summary()
	if !sum.Complete {
		missing := sum.Missing()
		L_info("review: submit refused", "missing", len(missing))
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	now := c.now()
	sub := &Submission{
		Reference:   Reference(now),
		SubmittedAt: now,
		Value:       c.store.GetAllValues(),
	}
	c.store.ClearDraft()
	L_info("review: submitted", "reference", sub.Reference)

	if c.nav != nil {
		if err := c.nav.Navigate(stepper.DestSuccess); err != nil {
			return sub, fmt.Errorf("navigate to %s: %w", stepper.DestSuccess, err)
		}
	}
	return sub, nil
}

// Reference builds a submission reference: LS-<base36 millis>-<4 base36 chars>.
func Reference(at time.Time) string {
	const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = digits[rand.IntN(len(digits))]
	}
	return "LS-" + strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36)) + "-" + string(suffix)
}

// FormatValue renders one value according to its field type.
func FormatValue(f *schema.Field, v any) string {
	if schema.IsEmpty(v) {
		return NotProvided
	}

	switch f.Type {
	case schema.TypeCheckbox, schema.TypeToggle:
		if schema.AsBool(v) {
			return "Yes"
		}
		return "No"

	case schema.TypeMultiselect:
		return strings.Join(schema.AsStrings(v), ", ")

	case schema.TypeFile:
		files := schema.AsFiles(v)
		if !f.Multiple && len(files) == 1 {
			if files[0].Filename == "" {
				return "File uploaded"
			}
			return files[0].Filename
		}
		names := make([]string, 0, len(files))
		for _, fd := range files {
			name := fd.Filename
			if name == "" {
				name = "Uploaded file"
			}
			names = append(names, name)
		}
		if len(names) == 0 {
			return "File uploaded"
		}
		return strings.Join(names, ", ")

	case schema.TypeRepeater:
		items := schema.AsItems(v)
		parts := make([]string, 0, len(items))
		for i, item := range items {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, firstItemValue(f, item)))
		}
		return strings.Join(parts, "; ")

	case schema.TypeDate:
		s, _ := schema.AsString(v)
		if d, err := time.Parse("2006-01-02", s); err == nil {
			return d.Format("1/2/2006")
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format("1/2/2006")
		}
		return s
	}

	if s, ok := schema.AsString(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

// firstItemValue is the value of the first declared item field, rendered
// with that field's own formatting.
func firstItemValue(f *schema.Field, item map[string]any) string {
	if len(f.ItemFields) > 0 {
		first := f.ItemFields[0]
		return FormatValue(first, item[first.ID])
	}
	for _, v := range item {
		if s, ok := schema.AsString(v); ok {
			return s
		}
	}
	return NotProvided
}

func completed(sec *schema.Section, sv schema.SectionValues) []*schema.Field {
	var out []*schema.Field
	for _, f := range visibility.VisibleFields(sec, sv) {
		if !schema.IsEmpty(sv[f.ID]) {
			out = append(out, f)
		}
	}
	return out
}

func incomplete(sec *schema.Section, sv schema.SectionValues) []*schema.Field {
	var out []*schema.Field
	for _, f := range visibility.VisibleFields(sec, sv) {
		if f.Required && schema.IsEmpty(sv[f.ID]) {
			out = append(out, f)
		}
	}
	return out
}

func (c *Compiler) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
