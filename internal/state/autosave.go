package state

import (
	"fmt"
	"time"
)

// Status is the autosave lifecycle state.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// AutosaveStatus is the current save state. At is set for saved, Reason for
// error.
type AutosaveStatus struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

func (s AutosaveStatus) String() string {
	switch s.Status {
	case StatusSaved:
		return "saved at " + s.At.Format("15:04:05")
	case StatusError:
		return "error: " + s.Reason
	}
	return string(s.Status)
}

// AutosaveError wraps a draft write failure. The in-memory value is kept and
// the next change schedules another attempt.
type AutosaveError struct {
	Err error
}

func (e *AutosaveError) Error() string {
	return fmt.Sprintf("autosave failed: %v", e.Err)
}

func (e *AutosaveError) Unwrap() error { return e.Err }
