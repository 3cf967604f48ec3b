// Package field turns schema field definitions into controls that hold one
// value, accept user input and report changes. Controls do not decide
// visibility and do not persist anything.
package field

import (
	"errors"
	"fmt"

	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/upload"
)

// ChangeFunc receives a control's new value.
type ChangeFunc func(value any)

// Control binds one field definition to one value.
type Control interface {
	Field() *schema.Field
	// WriteValue replaces the value from outside without emitting a change.
	WriteValue(v any)
	Value() any
	OnChange(fn ChangeFunc)
	SetDisabled(disabled bool)
	Disabled() bool
	Touched() bool
	MarkTouched()
}

// Options carries the collaborators some controls need.
type Options struct {
	Uploads *upload.Service // required by file controls
	Slots   *upload.Slots   // shared so a re-attach cancels the running upload

	depth      int
	slotPrefix string // path of the enclosing repeater item, e.g. "children[1]."
}

// New builds the control for f's type.
func New(f *schema.Field, opts Options) (Control, error) {
	if opts.depth == 0 {
		opts.depth = 1
	}
	b := base{field: f}

	switch f.Type {
	case schema.TypeText, schema.TypeTextarea, schema.TypeEmail, schema.TypeTel,
		schema.TypeDate, schema.TypeMonth:
		return &TextControl{base: b}, nil
	case schema.TypeNumber:
		return &NumberControl{base: b}, nil
	case schema.TypeSelect, schema.TypeRadio:
		return &ChoiceControl{base: b}, nil
	case schema.TypeMultiselect:
		return &MultiSelectControl{base: b, selected: []string{}}, nil
	case schema.TypeCheckbox:
		return &CheckboxControl{base: b}, nil
	case schema.TypeToggle:
		return &ToggleControl{base: b}, nil
	case schema.TypeFile:
		if opts.Uploads == nil {
			return nil, fmt.Errorf("field %s: file control needs an upload service", f.ID)
		}
		if opts.Slots == nil {
			opts.Slots = &upload.Slots{}
		}
		return &FileControl{base: b, uploads: opts.Uploads, slots: opts.Slots, slot: opts.slotPrefix + f.ID}, nil
	case schema.TypeRepeater:
		if !schema.WithinDepth(opts.depth) {
			return nil, fmt.Errorf("field %s: repeater nesting deeper than %d", f.ID, schema.MaxDepth)
		}
		return &RepeaterControl{base: b, opts: opts, items: []map[string]any{}}, nil
	}
	return nil, fmt.Errorf("field %s: unsupported type %q", f.ID, f.Type)
}

// DefaultValue is the value a fresh repeater item starts with for f.
func DefaultValue(f *schema.Field) any {
	switch f.Type {
	case schema.TypeCheckbox, schema.TypeToggle:
		return false
	case schema.TypeMultiselect:
		return []string{}
	case schema.TypeRepeater:
		return []any{}
	case schema.TypeNumber:
		return nil
	}
	return ""
}

type base struct {
	field    *schema.Field
	onChange ChangeFunc
	disabled bool
	touched  bool
}

func (b *base) Field() *schema.Field      { return b.field }
func (b *base) OnChange(fn ChangeFunc)    { b.onChange = fn }
func (b *base) SetDisabled(disabled bool) { b.disabled = disabled }
func (b *base) Disabled() bool            { return b.disabled }
func (b *base) Touched() bool             { return b.touched }
func (b *base) MarkTouched()              { b.touched = true }

func (b *base) emit(v any) {
	b.touched = true
	if b.onChange != nil {
		b.onChange(v)
	}
}

// ErrDisabled is returned by input methods of a disabled control.
var ErrDisabled = errors.New("control is disabled")
