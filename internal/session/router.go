package session

import (
	"sync"

	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/stepper"
)

// Router is the default navigator: it remembers the last destination and
// tells an optional listener about each change.
type Router struct {
	mu       sync.Mutex
	current  stepper.Destination
	history  []stepper.Destination
	listener func(stepper.Destination)
}

// NewRouter starts at the intake destination.
func NewRouter() *Router {
	return &Router{current: stepper.DestIntake}
}

// Navigate records dest and notifies the listener outside the lock.
func (r *Router) Navigate(dest stepper.Destination) error {
	r.mu.Lock()
	r.current = dest
	r.history = append(r.history, dest)
	listener := r.listener
	r.mu.Unlock()

	L_debug("session: navigate", "dest", dest)
	if listener != nil {
		listener(dest)
	}
	return nil
}

// Current returns the last destination.
func (r *Router) Current() stepper.Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns every destination navigated to, oldest first.
func (r *Router) History() []stepper.Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stepper.Destination(nil), r.history...)
}

// OnNavigate replaces the listener.
func (r *Router) OnNavigate(fn func(stepper.Destination)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}
