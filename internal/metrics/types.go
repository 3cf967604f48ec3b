package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind names the shape of a metric's snapshot data.
type Kind string

const (
	KindTiming  Kind = "timing"
	KindCounter Kind = "counter"
	KindOutcome Kind = "outcome"
)

// Entry is a point-in-time view of one metric.
type Entry struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	Data any    `json:"data"`
}

type TimingSnapshot struct {
	Count  int64   `json:"count"`
	AvgMs  float64 `json:"avg_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	LastMs float64 `json:"last_ms"`
}

type CounterSnapshot struct {
	Value int64 `json:"value"`
}

// OutcomeSnapshot counts successes and failures, with failures by reason.
type OutcomeSnapshot struct {
	Success     int64            `json:"success"`
	Failures    int64            `json:"failures"`
	SuccessRate float64          `json:"success_rate"`
	Reasons     map[string]int64 `json:"reasons,omitempty"`
}

type timing struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
	last  time.Duration
}

func (t *timing) observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.count++
	t.total += d
	t.last = d
}

func (t *timing) snapshot() TimingSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := TimingSnapshot{Count: t.count, MinMs: ms(t.min), MaxMs: ms(t.max), LastMs: ms(t.last)}
	if t.count > 0 {
		s.AvgMs = ms(t.total) / float64(t.count)
	}
	return s
}

type counter struct {
	n atomic.Int64
}

type outcome struct {
	mu      sync.Mutex
	ok      int64
	failed  int64
	reasons map[string]int64
}

func (o *outcome) record(success bool, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if success {
		o.ok++
		return
	}
	o.failed++
	if reason != "" {
		if o.reasons == nil {
			o.reasons = make(map[string]int64)
		}
		o.reasons[reason]++
	}
}

func (o *outcome) snapshot() OutcomeSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := OutcomeSnapshot{Success: o.ok, Failures: o.failed}
	if total := o.ok + o.failed; total > 0 {
		s.SuccessRate = float64(o.ok) / float64(total) * 100
	}
	if len(o.reasons) > 0 {
		s.Reasons = make(map[string]int64, len(o.reasons))
		for k, v := range o.reasons {
			s.Reasons[k] = v
		}
	}
	return s
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
