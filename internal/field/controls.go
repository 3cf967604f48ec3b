package field

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roelfdiedericks/gointake/internal/schema"
)

// TextControl serves text, textarea, email, tel, date and month fields.
type TextControl struct {
	base
	value string
}

func (c *TextControl) WriteValue(v any) {
	c.value, _ = schema.AsString(v)
}

func (c *TextControl) Value() any { return c.value }

// Input sets the text and emits it.
func (c *TextControl) Input(s string) error {
	if c.disabled {
		return ErrDisabled
	}
	c.value = s
	c.emit(s)
	return nil
}

// NumberControl holds a float64, or nil when blank. Text that does not parse
// is kept as entered so validation can report it.
type NumberControl struct {
	base
	value any
}

func (c *NumberControl) WriteValue(v any) {
	if v == nil {
		c.value = nil
		return
	}
	if f, ok := schema.AsFloat(v); ok {
		c.value = f
		return
	}
	c.value = v
}

func (c *NumberControl) Value() any { return c.value }

// Text renders the value for editing.
func (c *NumberControl) Text() string {
	if c.value == nil {
		return ""
	}
	s, _ := schema.AsString(c.value)
	return s
}

// Input parses s and emits the number.
func (c *NumberControl) Input(s string) error {
	if c.disabled {
		return ErrDisabled
	}
	s = strings.TrimSpace(s)
	switch f, err := strconv.ParseFloat(s, 64); {
	case s == "":
		c.value = nil
	case err != nil:
		c.value = s
	default:
		c.value = f
	}
	c.emit(c.value)
	return nil
}

// ChoiceControl serves select and radio fields.
type ChoiceControl struct {
	base
	value string
}

func (c *ChoiceControl) WriteValue(v any) {
	c.value, _ = schema.AsString(v)
}

func (c *ChoiceControl) Value() any { return c.value }

// Choose selects one option, or clears the choice with "".
func (c *ChoiceControl) Choose(option string) error {
	if c.disabled {
		return ErrDisabled
	}
	if option != "" && !hasOption(c.field, option) {
		return fmt.Errorf("%q is not an option of %s", option, c.field.ID)
	}
	c.value = option
	c.emit(option)
	return nil
}

// MultiSelectControl holds an ordered set of options.
type MultiSelectControl struct {
	base
	selected []string
}

func (c *MultiSelectControl) WriteValue(v any) {
	c.selected = dedupe(schema.AsStrings(v))
}

func (c *MultiSelectControl) Value() any {
	return append(make([]string, 0, len(c.selected)), c.selected...)
}

// IsSelected reports whether option is checked.
func (c *MultiSelectControl) IsSelected(option string) bool {
	for _, s := range c.selected {
		if s == option {
			return true
		}
	}
	return false
}

// Toggle appends option when checked and removes it when unchecked.
func (c *MultiSelectControl) Toggle(option string, checked bool) error {
	if c.disabled {
		return ErrDisabled
	}
	if !hasOption(c.field, option) {
		return fmt.Errorf("%q is not an option of %s", option, c.field.ID)
	}
	if checked {
		if !c.IsSelected(option) {
			c.selected = append(c.selected, option)
		}
	} else {
		out := c.selected[:0]
		for _, s := range c.selected {
			if s != option {
				out = append(out, s)
			}
		}
		c.selected = out
	}
	c.emit(c.Value())
	return nil
}

// Set replaces the selection, keeping existing entries in place and
// appending new ones in the given order.
func (c *MultiSelectControl) Set(options []string) error {
	if c.disabled {
		return ErrDisabled
	}
	want := make(map[string]bool, len(options))
	for _, o := range options {
		want[o] = true
	}
	var next []string
	for _, s := range c.selected {
		if want[s] {
			next = append(next, s)
			delete(want, s)
		}
	}
	for _, o := range options {
		if want[o] {
			next = append(next, o)
			delete(want, o)
		}
	}
	c.selected = append([]string{}, next...)
	c.emit(c.Value())
	return nil
}

// CheckboxControl holds a bool.
type CheckboxControl struct {
	base
	value bool
}

func (c *CheckboxControl) WriteValue(v any) { c.value = v != nil && schema.AsBool(v) }
func (c *CheckboxControl) Value() any       { return c.value }

// Set checks or unchecks the box.
func (c *CheckboxControl) Set(checked bool) error {
	if c.disabled {
		return ErrDisabled
	}
	c.value = checked
	c.emit(checked)
	return nil
}

// ToggleControl holds a bool flipped by Click.
type ToggleControl struct {
	base
	value bool
}

func (c *ToggleControl) WriteValue(v any) { c.value = v != nil && schema.AsBool(v) }
func (c *ToggleControl) Value() any       { return c.value }

// Click inverts the value.
func (c *ToggleControl) Click() error {
	return c.Set(!c.value)
}

// Set assigns the value directly.
func (c *ToggleControl) Set(on bool) error {
	if c.disabled {
		return ErrDisabled
	}
	c.value = on
	c.emit(on)
	return nil
}

func hasOption(f *schema.Field, option string) bool {
	for _, o := range f.Options {
		if o == option {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
