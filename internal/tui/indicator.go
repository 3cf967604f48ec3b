package tui

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/roelfdiedericks/gointake/internal/bus"
	"github.com/roelfdiedericks/gointake/internal/state"
)

// Indicator follows the store's autosave and completion events so the
// frame can show them. Events arrive on the autosave timer goroutine.
type Indicator struct {
	mu         sync.Mutex
	status     state.AutosaveStatus
	completion int
	showBar    bool
	bar        progress.Model

	subs []bus.SubscriptionID
	b    *bus.Bus
}

// NewIndicator subscribes to store. showBar adds a completion bar.
func NewIndicator(store *state.Store, showBar bool) *Indicator {
	ind := &Indicator{
		status:     store.AutosaveStatus(),
		completion: store.Completion(),
		showBar:    showBar,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(24), progress.WithoutPercentage()),
		b:          store.Bus(),
	}
	ind.subs = append(ind.subs,
		store.Subscribe(state.TopicAutosave, func(e bus.Event) {
			if st, ok := e.Data.(state.AutosaveStatus); ok {
				ind.mu.Lock()
				ind.status = st
				ind.mu.Unlock()
			}
		}),
		store.Subscribe(state.TopicCompletion, func(e bus.Event) {
			if pct, ok := e.Data.(int); ok {
				ind.mu.Lock()
				ind.completion = pct
				ind.mu.Unlock()
			}
		}),
	)
	return ind
}

// Close drops the subscriptions.
func (ind *Indicator) Close() {
	for _, id := range ind.subs {
		ind.b.Unsubscribe(id)
	}
	ind.subs = nil
}

// Autosave renders the save state, empty while idle.
func (ind *Indicator) Autosave() string {
	ind.mu.Lock()
	st := ind.status
	ind.mu.Unlock()

	switch st.Status {
	case state.StatusSaving:
		return warningStyle.Render("Saving…")
	case state.StatusSaved:
		return successStyle.Render("Saved " + st.At.Format("15:04:05"))
	case state.StatusError:
		return errorStyle.Render("Autosave failed: " + st.Reason)
	}
	return ""
}

// Completion is the last completion percentage seen.
func (ind *Indicator) Completion() int {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.completion
}

// Line is the status bar text.
func (ind *Indicator) Line() string {
	pct := ind.Completion()
	line := fmt.Sprintf("%d%% complete", pct)
	if ind.showBar {
		line = ind.bar.ViewAs(float64(pct)/100) + " " + line
	}
	if saved := ind.Autosave(); saved != "" {
		line += "  " + saved
	}
	return line
}
