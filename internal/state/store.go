// Package state holds the form value of one intake session, computes
// completion and autosaves a draft after a quiet period.
package state

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/roelfdiedericks/gointake/internal/bus"
	"github.com/roelfdiedericks/gointake/internal/draft"
	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/metrics"
	"github.com/roelfdiedericks/gointake/internal/schema"
)

// DefaultDelay is the autosave debounce window.
const DefaultDelay = 2000 * time.Millisecond

// Bus topics published after each commit.
const (
	TopicValue      = "state.value"      // ValueChange
	TopicCompletion = "state.completion" // int
	TopicAutosave   = "state.autosave"   // AutosaveStatus
)

// ValueChange is the payload of TopicValue. Reset is set by ResetForm, in
// which case the ids are empty.
type ValueChange struct {
	SectionID string
	FieldID   string
	Value     any
	Reset     bool
}

// Options configures a Store.
type Options struct {
	KV              draft.KV // nil keeps everything in memory
	Key             string   // default draft.DefaultKey
	Delay           time.Duration
	DisableAutosave bool
	Clock           Clock
	Bus             *bus.Bus
	Metrics         *metrics.Manager
}

// Store is the single owner of the form value. All mutation goes through
// PatchValue and ResetForm. Reads return copies.
type Store struct {
	kv      draft.KV
	key     string
	delay   time.Duration
	enabled bool
	clock   Clock
	bus     *bus.Bus
	metrics *metrics.Manager

	mu         sync.Mutex
	value      schema.FormValue
	completion int
	status     AutosaveStatus
	lastErr    *AutosaveError
	timer      Timer
	gen        uint64 // bumped on every change; a timer only saves its own generation
	saved      uint64 // generation of the last successful write
	restored   time.Time
	closed     bool

	writeMu sync.Mutex
}

// New builds a store and restores the persisted draft. A corrupt draft is
// removed and the form starts empty.
func New(opts Options) *Store {
	s := &Store{
		kv:      opts.KV,
		key:     opts.Key,
		delay:   opts.Delay,
		enabled: !opts.DisableAutosave && opts.KV != nil,
		clock:   opts.Clock,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		value:   schema.FormValue{},
		status:  AutosaveStatus{Status: StatusIdle},
	}
	if s.key == "" {
		s.key = draft.DefaultKey
	}
	if s.delay <= 0 {
		s.delay = DefaultDelay
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.bus == nil {
		s.bus = bus.New()
	}

	s.restore()
	return s
}

func (s *Store) restore() {
	if s.kv == nil {
		return
	}
	d, err := draft.Load(s.kv, s.key)
	var pe *draft.ParseError
	switch {
	case err == nil:
		s.value = d.Value
		s.restored = d.SavedAt()
		s.completion = coarseCompletion(s.value)
		L_info("state: draft restored", "key", s.key, "sections", len(s.value), "savedAt", d.Timestamp)
	case errors.Is(err, draft.ErrNotFound):
		L_debug("state: no draft", "key", s.key)
	case errors.As(err, &pe):
		L_warn("state: discarding corrupt draft", "key", s.key, "error", err)
		if rmErr := s.kv.Remove(s.key); rmErr != nil {
			L_error("state: failed to remove corrupt draft", "key", s.key, "error", rmErr)
		}
	default:
		L_warn("state: draft unreadable, starting empty", "key", s.key, "error", err)
	}
}

// Bus returns the bus the store publishes on.
func (s *Store) Bus() *bus.Bus { return s.bus }

// Subscribe is shorthand for Bus().Subscribe.
func (s *Store) Subscribe(topic string, handler bus.EventHandler) bus.SubscriptionID {
	return s.bus.Subscribe(topic, handler)
}

// PatchValue replaces one leaf value, recomputes completion and restarts
// the autosave window.
func (s *Store) PatchValue(sectionID, fieldID string, value any) {
	s.mu.Lock()
	sv := s.value[sectionID]
	if sv == nil {
		sv = schema.SectionValues{}
		s.value[sectionID] = sv
	}
	sv[fieldID] = schema.CloneValue(value)
	s.completion = coarseCompletion(s.value)
	completion := s.completion
	s.scheduleLocked()
	s.mu.Unlock()

	s.metrics.IncrementCounter("state", "patch")
	L_trace("state: patch", "section", sectionID, "field", fieldID)
	s.bus.Publish(TopicValue, ValueChange{SectionID: sectionID, FieldID: fieldID, Value: schema.CloneValue(value)})
	s.bus.Publish(TopicCompletion, completion)
}

// GetValue returns a copy of one value, nil when unset.
func (s *Store) GetValue(sectionID, fieldID string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.CloneValue(s.value[sectionID][fieldID])
}

// GetSectionValue returns a copy of one section's values, never nil.
func (s *Store) GetSectionValue(sectionID string) schema.SectionValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value[sectionID].Clone()
}

// GetAllValues returns a copy of the whole form value.
func (s *Store) GetAllValues() schema.FormValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value.Clone()
}

// ResetForm clears every value and the persisted draft. Pending autosaves
// are cancelled.
func (s *Store) ResetForm() {
	s.mu.Lock()
	s.value = schema.FormValue{}
	s.completion = 0
	s.stopTimerLocked()
	s.gen++
	s.restored = time.Time{}
	s.status = AutosaveStatus{Status: StatusIdle}
	s.lastErr = nil
	s.mu.Unlock()

	s.ClearDraft()
	L_info("state: form reset")
	s.bus.Publish(TopicValue, ValueChange{Reset: true})
	s.bus.Publish(TopicCompletion, 0)
	s.bus.Publish(TopicAutosave, AutosaveStatus{Status: StatusIdle})
}

// ClearDraft removes the persisted draft, leaving the in-memory value.
func (s *Store) ClearDraft() {
	if s.kv == nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.kv.Remove(s.key); err != nil {
		L_warn("state: failed to clear draft", "key", s.key, "error", err)
	}
}

// HasDraft reports whether a draft is currently persisted.
func (s *Store) HasDraft() bool {
	if s.kv == nil {
		return false
	}
	_, err := s.kv.Get(s.key)
	return err == nil
}

// RestoredAt is the timestamp of the draft loaded by New, zero if none.
func (s *Store) RestoredAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

// Completion is the share of present sections holding at least one
// non-empty value, 0-100.
func (s *Store) Completion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion
}

// SectionCompletion is the share of requiredIDs holding a non-empty value
// in sectionID, 0-100. An empty list is complete.
func (s *Store) SectionCompletion(sectionID string, requiredIDs []string) int {
	if len(requiredIDs) == 0 {
		return 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sv := s.value[sectionID]
	filled := 0
	for _, id := range requiredIDs {
		if !schema.IsEmpty(sv[id]) {
			filled++
		}
	}
	return percent(filled, len(requiredIDs))
}

// AutosaveStatus returns the current save state.
func (s *Store) AutosaveStatus() AutosaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the most recent autosave failure, nil after a success.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return nil
	}
	return s.lastErr
}

// Flush writes a pending draft immediately.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopTimerLocked()
	gen := s.gen
	s.mu.Unlock()
	return s.save(gen)
}

// Close stops the autosave timer. A pending draft is not written; call
// Flush first to keep it.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.closed = true
}

func (s *Store) scheduleLocked() {
	s.gen++
	if !s.enabled || s.closed {
		return
	}
	s.stopTimerLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() {
		s.mu.Lock()
		current := gen == s.gen && !s.closed
		if current {
			s.timer = nil
		}
		s.mu.Unlock()
		if current {
			s.save(gen)
		}
	})
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// save persists the value as of generation gen. Writes are serialized. A
// write older than the last successful one, or overtaken by a later change
// or reset, is skipped.
func (s *Store) save(gen uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if gen <= s.saved || gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.value.Clone()
	s.status = AutosaveStatus{Status: StatusSaving}
	s.mu.Unlock()
	s.bus.Publish(TopicAutosave, AutosaveStatus{Status: StatusSaving})

	start := time.Now()
	err := draft.Save(s.kv, s.key, draft.New(snapshot, s.clock.Now()))
	s.metrics.RecordDuration("autosave", "write", time.Since(start))

	s.mu.Lock()
	if err != nil {
		s.lastErr = &AutosaveError{Err: err}
		s.status = AutosaveStatus{Status: StatusError, Reason: err.Error()}
	} else {
		s.saved = gen
		s.lastErr = nil
		s.status = AutosaveStatus{Status: StatusSaved, At: s.clock.Now()}
	}
	status := s.status
	s.mu.Unlock()

	if err != nil {
		s.metrics.RecordFailure("autosave", "write", err.Error())
		L_warn("state: autosave failed", "key", s.key, "error", err)
		s.bus.Publish(TopicAutosave, status)
		return &AutosaveError{Err: err}
	}
	s.metrics.RecordSuccess("autosave", "write")
	L_debug("state: autosave written", "key", s.key)
	s.bus.Publish(TopicAutosave, status)
	return nil
}

func coarseCompletion(fv schema.FormValue) int {
	if len(fv) == 0 {
		return 0
	}
	done := 0
	for _, sv := range fv {
		for _, v := range sv {
			if !schema.IsEmpty(v) {
				done++
				break
			}
		}
	}
	return percent(done, len(fv))
}

func percent(n, total int) int {
	return int(math.Round(float64(n) / float64(total) * 100))
}
