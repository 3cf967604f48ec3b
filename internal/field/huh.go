package field

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/huh"

	"github.com/roelfdiedericks/gointake/internal/schema"
)

// ErrSubFlow is returned by Bind for controls that need more than one huh
// field (files and repeaters). The terminal front end drives those itself.
var ErrSubFlow = errors.New("control needs a dedicated flow")

// ValidateFunc checks a candidate value while the user edits it.
type ValidateFunc func(f *schema.Field, v any) error

// Binding copies an edited huh value back into its control.
type Binding struct {
	Name    string
	control Control
	apply   func() error
}

// Control returns the bound control.
func (b *Binding) Control() Control { return b.control }

// Apply pushes the edited value into the control, which emits a change
// when the value differs.
func (b *Binding) Apply() error {
	if b.control.Disabled() {
		return nil
	}
	if err := b.apply(); err != nil {
		return fmt.Errorf("field %s: %w", b.Name, err)
	}
	return nil
}

// Bind renders c as a huh field. validate may be nil.
func Bind(c Control, validate ValidateFunc) (huh.Field, *Binding, error) {
	f := c.Field()
	title := f.Label
	if f.Required {
		title += " *"
	}
	b := &Binding{Name: f.ID, control: c}

	check := func(v any) error {
		if validate == nil {
			return nil
		}
		return validate(f, v)
	}

	var field huh.Field

	switch ctrl := c.(type) {
	case *TextControl:
		val := ctrl.value
		b.apply = func() error {
			if val == ctrl.value {
				return nil
			}
			return ctrl.Input(val)
		}
		if f.Type == schema.TypeTextarea {
			field = huh.NewText().Key(f.ID).Title(title).Value(&val).
				Validate(func(s string) error { return check(s) })
			break
		}
		field = huh.NewInput().Key(f.ID).Title(title).Description(hint(f)).Value(&val).
			Validate(func(s string) error { return check(s) })

	case *NumberControl:
		val := ctrl.Text()
		b.apply = func() error {
			if val == ctrl.Text() {
				return nil
			}
			return ctrl.Input(val)
		}
		field = huh.NewInput().Key(f.ID).Title(title).Description(hint(f)).Value(&val).
			Validate(func(s string) error {
				if s == "" {
					return check(nil)
				}
				return check(s)
			})

	case *ChoiceControl:
		val := ctrl.value
		b.apply = func() error {
			if val == ctrl.value {
				return nil
			}
			return ctrl.Choose(val)
		}
		options := make([]huh.Option[string], 0, len(f.Options)+1)
		if !f.Required {
			options = append(options, huh.NewOption("(none)", ""))
		}
		for _, o := range f.Options {
			options = append(options, huh.NewOption(o, o))
		}
		sel := huh.NewSelect[string]().Key(f.ID).Title(title).Options(options...).Value(&val).
			Validate(func(s string) error { return check(s) })
		if f.Type == schema.TypeRadio {
			sel = sel.Inline(true)
		}
		field = sel

	case *MultiSelectControl:
		vals := ctrl.Value().([]string)
		b.apply = func() error {
			if slices.Equal(vals, ctrl.selected) {
				return nil
			}
			return ctrl.Set(vals)
		}
		options := make([]huh.Option[string], len(f.Options))
		for i, o := range f.Options {
			options[i] = huh.NewOption(o, o)
		}
		field = huh.NewMultiSelect[string]().Key(f.ID).Title(title).Options(options...).Value(&vals).
			Validate(func(s []string) error { return check(s) })

	case *CheckboxControl:
		val := ctrl.value
		b.apply = func() error {
			if val == ctrl.value {
				return nil
			}
			return ctrl.Set(val)
		}
		field = huh.NewConfirm().Key(f.ID).Title(title).Affirmative("Yes").Negative("No").Value(&val).
			Validate(func(v bool) error {
				if !v {
					return check(nil)
				}
				return nil
			})

	case *ToggleControl:
		val := ctrl.value
		b.apply = func() error {
			if val == ctrl.value {
				return nil
			}
			return ctrl.Click()
		}
		field = huh.NewConfirm().Key(f.ID).Title(title).Affirmative("On").Negative("Off").Value(&val)

	case *FileControl, *RepeaterControl:
		return nil, nil, ErrSubFlow

	default:
		return nil, nil, fmt.Errorf("field %s: no binding for %T", f.ID, c)
	}

	return field, b, nil
}

func hint(f *schema.Field) string {
	switch f.Type {
	case schema.TypeDate:
		return "YYYY-MM-DD"
	case schema.TypeMonth:
		return "YYYY-MM"
	case schema.TypeEmail:
		return "name@example.com"
	case schema.TypeNumber:
		switch {
		case f.Min != nil && f.Max != nil:
			return fmt.Sprintf("%g to %g", *f.Min, *f.Max)
		case f.Min != nil:
			return fmt.Sprintf("at least %g", *f.Min)
		case f.Max != nil:
			return fmt.Sprintf("at most %g", *f.Max)
		}
	}
	return ""
}
