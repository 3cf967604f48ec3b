// Package stepper walks an intake section by section, gating forward moves
// on validation of the visible fields.
package stepper

import (
	"errors"
	"fmt"

	"github.com/roelfdiedericks/gointake/internal/field"
	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/state"
	"github.com/roelfdiedericks/gointake/internal/validation"
	"github.com/roelfdiedericks/gointake/internal/visibility"
)

// Destination is a named route outside the stepper.
type Destination string

const (
	DestIntake  Destination = "intake"
	DestReview  Destination = "intake-review"
	DestSuccess Destination = "success"
)

// Navigator moves the front end to a destination.
type Navigator interface {
	Navigate(dest Destination) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(dest Destination) error

func (f NavigatorFunc) Navigate(dest Destination) error { return f(dest) }

var (
	ErrNoSchema       = errors.New("stepper: no schema loaded")
	ErrNoSections     = errors.New("stepper: schema has no sections")
	ErrFirstSection   = errors.New("stepper: already at the first section")
	ErrLastSection    = errors.New("stepper: already at the last section")
	ErrUnknownSection = errors.New("stepper: unknown section")
)

// Stepper is the orchestrator of one intake session. It is driven from a
// single goroutine.
type Stepper struct {
	schema *schema.Schema
	store  *state.Store
	engine *validation.Engine
	nav    Navigator
	opts   field.Options

	index        int
	controls     map[string]map[string]field.Control
	hasDraft     bool
	draftResumed bool
	lastResult   validation.Result
}

// New builds per-section controls from the store's current values. Whether
// a draft banner is due is decided here, from the store's draft at mount.
func New(s *schema.Schema, store *state.Store, engine *validation.Engine, nav Navigator, opts field.Options) (*Stepper, error) {
	if s == nil {
		return nil, ErrNoSchema
	}
	if len(s.Sections) == 0 {
		return nil, ErrNoSections
	}
	st := &Stepper{
		schema:     s,
		store:      store,
		engine:     engine,
		nav:        nav,
		opts:       opts,
		hasDraft:   store.HasDraft(),
		lastResult: validation.Result{Valid: true},
	}
	if err := st.initControls(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *Stepper) initControls() error {
	st.controls = make(map[string]map[string]field.Control, len(st.schema.Sections))
	for i := range st.schema.Sections {
		sec := &st.schema.Sections[i]
		ctrls := make(map[string]field.Control, len(sec.Fields))
		for _, f := range sec.Fields {
			c, err := field.New(f, st.opts)
			if err != nil {
				return fmt.Errorf("section %s: %w", sec.ID, err)
			}
			c.WriteValue(st.store.GetValue(sec.ID, f.ID))
			sectionID, fieldID := sec.ID, f.ID
			c.OnChange(func(v any) {
				st.OnFieldChange(sectionID, fieldID, v)
			})
			ctrls[f.ID] = c
		}
		st.controls[sec.ID] = ctrls
	}
	return nil
}

// Schema returns the schema being walked.
func (st *Stepper) Schema() *schema.Schema { return st.schema }

// Index is the current section index.
func (st *Stepper) Index() int { return st.index }

// Section is the current section.
func (st *Stepper) Section() *schema.Section { return &st.schema.Sections[st.index] }

func (st *Stepper) IsFirst() bool { return st.index == 0 }
func (st *Stepper) IsLast() bool  { return st.index == len(st.schema.Sections)-1 }

// OnFieldChange stores a new value, syncs its control and applies the
// field's reveal map.
func (st *Stepper) OnFieldChange(sectionID, fieldID string, value any) {
	st.store.PatchValue(sectionID, fieldID, value)
	if c := st.Control(sectionID, fieldID); c != nil {
		c.WriteValue(value)
	}

	sec := st.schema.SectionByID(sectionID)
	if sec == nil {
		return
	}
	if f := sec.Field(fieldID); f != nil && len(f.Reveals) > 0 {
		visibility.ApplyReveals(revealWriter{st}, sectionID, f, value)
	}
}

// revealWriter clears a dependent value in the store and its control.
type revealWriter struct{ st *Stepper }

func (w revealWriter) PatchValue(sectionID, fieldID string, value any) {
	w.st.store.PatchValue(sectionID, fieldID, value)
	if c := w.st.Control(sectionID, fieldID); c != nil {
		c.WriteValue(value)
	}
}

// Control returns the working control of a field, nil if unknown.
func (st *Stepper) Control(sectionID, fieldID string) field.Control {
	return st.controls[sectionID][fieldID]
}

// VisibleFields lists the fields of sectionID shown for the current values.
func (st *Stepper) VisibleFields(sectionID string) []*schema.Field {
	sec := st.schema.SectionByID(sectionID)
	if sec == nil {
		return nil
	}
	return visibility.VisibleFields(sec, st.store.GetSectionValue(sectionID))
}

// VisibleControls is VisibleFields mapped to controls, in schema order.
func (st *Stepper) VisibleControls(sectionID string) []field.Control {
	fields := st.VisibleFields(sectionID)
	out := make([]field.Control, 0, len(fields))
	for _, f := range fields {
		out = append(out, st.controls[sectionID][f.ID])
	}
	return out
}

// ValidateSection validates the visible fields of sectionID. On failure
// every control of the section is marked touched.
func (st *Stepper) ValidateSection(sectionID string) validation.Result {
	sec := st.schema.SectionByID(sectionID)
	if sec == nil {
		return validation.Result{Valid: false}
	}
	values := st.store.GetSectionValue(sectionID)
	r := st.engine.ValidateSection(visibility.VisibleFields(sec, values), values, sectionID)
	st.lastResult = r
	if !r.Valid {
		for _, c := range st.controls[sectionID] {
			c.MarkTouched()
		}
		L_debug("stepper: section invalid", "section", sectionID, "errors", len(r.Errors))
	}
	return r
}

// Errors is the result of the last validation.
func (st *Stepper) Errors() validation.Result { return st.lastResult }

// Next validates the current section and advances. It returns the
// validation Issues when the section is invalid.
func (st *Stepper) Next() error {
	if err := st.ValidateSection(st.Section().ID).Err(); err != nil {
		return err
	}
	if st.IsLast() {
		return ErrLastSection
	}
	st.index++
	L_debug("stepper: next", "section", st.Section().ID, "index", st.index)
	return nil
}

// Previous moves back one section without validating.
func (st *Stepper) Previous() error {
	if st.IsFirst() {
		return ErrFirstSection
	}
	st.index--
	st.lastResult = validation.Result{Valid: true}
	return nil
}

// GoTo jumps to a section. Moving back is always allowed; moving forward
// requires every section before the target to validate, and stops at the
// first one that does not.
func (st *Stepper) GoTo(sectionID string) error {
	target := -1
	for i := range st.schema.Sections {
		if st.schema.Sections[i].ID == sectionID {
			target = i
			break
		}
	}
	if target < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	for i := st.index; i < target; i++ {
		if err := st.ValidateSection(st.schema.Sections[i].ID).Err(); err != nil {
			st.index = i
			return err
		}
	}
	st.index = target
	return nil
}

// GoToReview validates every section in order and navigates to the review
// when all pass. On the first invalid section it stops there.
func (st *Stepper) GoToReview() error {
	for i := range st.schema.Sections {
		if err := st.ValidateSection(st.schema.Sections[i].ID).Err(); err != nil {
			st.index = i
			L_info("stepper: review blocked", "section", st.schema.Sections[i].ID)
			return err
		}
	}
	return st.nav.Navigate(DestReview)
}

// SectionCompletion is the share of visible required fields answered.
func (st *Stepper) SectionCompletion(sectionID string) int {
	sec := st.schema.SectionByID(sectionID)
	if sec == nil {
		return 0
	}
	ids := visibility.RequiredVisibleIDs(sec, st.store.GetSectionValue(sectionID))
	return st.store.SectionCompletion(sectionID, ids)
}

// Completion is the store's coarse completion.
func (st *Stepper) Completion() int { return st.store.Completion() }

// ShowDraftBanner reports whether a draft existed at mount and has been
// neither resumed nor dismissed.
func (st *Stepper) ShowDraftBanner() bool {
	return st.hasDraft && !st.draftResumed
}

// ResumeDraft hides the banner. The draft is already the live state.
func (st *Stepper) ResumeDraft() {
	st.draftResumed = true
	L_info("stepper: draft resumed")
}

// DismissDraft discards the draft, empties the form and rebuilds the
// controls from the empty state.
func (st *Stepper) DismissDraft() error {
	st.store.ClearDraft()
	st.store.ResetForm()
	st.hasDraft = false
	st.draftResumed = false
	st.index = 0
	st.lastResult = validation.Result{Valid: true}
	L_info("stepper: draft dismissed")
	return st.initControls()
}
