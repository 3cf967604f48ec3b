package upload

import (
	"context"
	"sync"
)

// Slots tracks the in-flight upload of each slot (typically a field id).
// Beginning a new upload in a slot cancels the previous one so its late
// progress cannot overwrite newer state.
type Slots struct {
	mu     sync.Mutex
	active map[string]slot
	next   uint64
}

type slot struct {
	id     uint64
	cancel context.CancelFunc
}

// Begin cancels any upload running in key and returns a context for the
// new one plus a done func that releases the slot.
func (s *Slots) Begin(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.active == nil {
		s.active = make(map[string]slot)
	}
	if prev, ok := s.active[key]; ok {
		prev.cancel()
	}
	s.next++
	id := s.next
	s.active[key] = slot{id: id, cancel: cancel}
	s.mu.Unlock()

	done := func() {
		s.mu.Lock()
		if cur, ok := s.active[key]; ok && cur.id == id {
			delete(s.active, key)
		}
		s.mu.Unlock()
		cancel()
	}
	return ctx, done
}

// Active reports whether key has an upload in flight.
func (s *Slots) Active(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[key]
	return ok
}

// CancelAll stops every in-flight upload.
func (s *Slots) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sl := range s.active {
		sl.cancel()
		delete(s.active, key)
	}
}
