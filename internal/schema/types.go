// Package schema defines the intake schema model (sections, fields and the
// form value shape) and loads it from JSON or YAML sources.
package schema

import "time"

// FieldType discriminates the field variants.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeEmail       FieldType = "email"
	TypeTel         FieldType = "tel"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeMonth       FieldType = "month"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeRadio       FieldType = "radio"
	TypeCheckbox    FieldType = "checkbox"
	TypeToggle      FieldType = "toggle"
	TypeFile        FieldType = "file"
	TypeRepeater    FieldType = "repeater"
)

// FieldTypes lists every supported type.
var FieldTypes = []FieldType{
	TypeText, TypeTextarea, TypeEmail, TypeTel, TypeNumber, TypeDate, TypeMonth,
	TypeSelect, TypeMultiselect, TypeRadio, TypeCheckbox, TypeToggle, TypeFile, TypeRepeater,
}

// Known reports whether t is one of FieldTypes.
func (t FieldType) Known() bool {
	for _, k := range FieldTypes {
		if k == t {
			return true
		}
	}
	return false
}

// MaxDepth bounds repeater nesting (a repeater inside a repeater inside a repeater).
const MaxDepth = 3

// WithinDepth reports whether a repeater declared in a field list at depth
// may hold items. Section fields are depth 1.
func WithinDepth(depth int) bool { return depth <= MaxDepth }

// DateToday is the minDate/maxDate keyword for the current day.
const DateToday = "today"

// Schema is the root of an intake definition. Immutable once loaded.
type Schema struct {
	Title       string    `json:"title"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections"`
	UI          UIConfig  `json:"ui"`
}

// UIConfig holds presentation flags.
type UIConfig struct {
	Progress         bool            `json:"progress"`
	Autosave         bool            `json:"autosave"`
	AllowDraftResume bool            `json:"allowDraftResume"` // default true
	FileConstraints  FileConstraints `json:"fileConstraints"`
}

type FileConstraints struct {
	MaxSizeMB int `json:"maxSizeMB"`
	MaxFiles  int `json:"maxFiles"`
}

// Section is one step of the intake.
type Section struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Fields []*Field `json:"fields"`
}

// Field is one schema-declared input. Which attributes apply depends on Type.
type Field struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`

	Pattern string   `json:"pattern,omitempty"`
	Options []string `json:"options,omitempty"`

	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	MinDate string `json:"minDate,omitempty"`
	MaxDate string `json:"maxDate,omitempty"`

	Accept   []string `json:"accept,omitempty"`
	Multiple bool     `json:"multiple,omitempty"`
	FileMeta []string `json:"fileMeta,omitempty"`

	ItemFields []*Field `json:"itemFields,omitempty"`

	// VisibleIf maps a controlling field id (same section) to an expected
	// value or a list of accepted values. All entries must match.
	VisibleIf map[string]any `json:"visibleIf,omitempty"`

	// Reveals maps a trigger value to the dependent field ids that are
	// cleared when a different branch becomes active.
	Reveals map[string][]string `json:"reveals,omitempty"`
}

// IsBoolean reports whether the field holds a bool.
func (f *Field) IsBoolean() bool {
	return f.Type == TypeCheckbox || f.Type == TypeToggle
}

// IsTextual reports whether the field holds free text.
func (f *Field) IsTextual() bool {
	switch f.Type {
	case TypeText, TypeTextarea, TypeEmail, TypeTel, TypeDate, TypeMonth:
		return true
	}
	return false
}

// HasOptions reports whether the field chooses from Options.
func (f *Field) HasOptions() bool {
	return f.Type == TypeSelect || f.Type == TypeRadio || f.Type == TypeMultiselect
}

// ItemField returns the repeater item field with the given id.
func (f *Field) ItemField(id string) *Field {
	for _, it := range f.ItemFields {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Field returns the field with the given id, or nil.
func (s *Section) Field(id string) *Field {
	for _, f := range s.Fields {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// SectionValues maps field id to value for one section.
type SectionValues map[string]any

// FormValue maps section id to its values.
type FormValue map[string]SectionValues

// FileDescriptor describes an uploaded file as stored in the form value.
type FileDescriptor struct {
	ID          string    `json:"id,omitempty"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	Type        string    `json:"type"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date,omitempty"`
}
