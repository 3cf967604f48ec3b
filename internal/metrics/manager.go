// Package metrics records in-process counters, timings and success/failure
// rates for autosave, validation and uploads.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Manager holds the metrics of one session, keyed by "topic/function".
// A nil *Manager is valid and records nothing.
type Manager struct {
	mu       sync.RWMutex
	timings  map[string]*timing
	counters map[string]*counter
	outcomes map[string]*outcome
}

// New creates an empty metrics manager.
func New() *Manager {
	return &Manager{
		timings:  make(map[string]*timing),
		counters: make(map[string]*counter),
		outcomes: make(map[string]*outcome),
	}
}

func path(topic, function string) string {
	if function == "" {
		return topic
	}
	return topic + "/" + function
}

// lookup returns the metric at key, creating it on first use.
func lookup[T any](mu *sync.RWMutex, table map[string]*T, key string) *T {
	mu.RLock()
	v, ok := table[key]
	mu.RUnlock()
	if ok {
		return v
	}
	mu.Lock()
	defer mu.Unlock()
	if v, ok = table[key]; !ok {
		v = new(T)
		table[key] = v
	}
	return v
}

// RecordDuration adds one observation to a timing.
func (m *Manager) RecordDuration(topic, function string, d time.Duration) {
	if m == nil {
		return
	}
	lookup(&m.mu, m.timings, path(topic, function)).observe(d)
}

// IncrementCounter adds one to a counter.
func (m *Manager) IncrementCounter(topic, function string) {
	m.AddCounter(topic, function, 1)
}

func (m *Manager) AddCounter(topic, function string, delta int64) {
	if m == nil {
		return
	}
	lookup(&m.mu, m.counters, path(topic, function)).n.Add(delta)
}

func (m *Manager) RecordSuccess(topic, function string) {
	if m == nil {
		return
	}
	lookup(&m.mu, m.outcomes, path(topic, function)).record(true, "")
}

// RecordFailure counts a failure; a non-empty reason is tallied separately.
func (m *Manager) RecordFailure(topic, function, reason string) {
	if m == nil {
		return
	}
	lookup(&m.mu, m.outcomes, path(topic, function)).record(false, reason)
}

// Snapshot returns every metric keyed by path.
func (m *Manager) Snapshot() map[string]Entry {
	out := make(map[string]Entry)
	if m == nil {
		return out
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for p, t := range m.timings {
		out[p] = Entry{Path: p, Kind: KindTiming, Data: t.snapshot()}
	}
	for p, c := range m.counters {
		out[p] = Entry{Path: p, Kind: KindCounter, Data: CounterSnapshot{Value: c.n.Load()}}
	}
	for p, o := range m.outcomes {
		out[p] = Entry{Path: p, Kind: KindOutcome, Data: o.snapshot()}
	}
	return out
}

// Paths returns the sorted metric paths.
func (m *Manager) Paths() []string {
	snap := m.Snapshot()
	out := make([]string, 0, len(snap))
	for p := range snap {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
