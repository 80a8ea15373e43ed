package pending

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type State string

const (
	StatePending State = "pending"
	StateSynced  State = "synced"
	StateFailed  State = "error"
)

// Status is the sync state of a local report. It can only be built through
// Pending, Synced and Failed; the zero value is Pending.
type Status struct {
	state     State
	lastError string
	retryable bool
}

func Pending() Status {
	return Status{state: StatePending}
}

func Synced() Status {
	return Status{state: StateSynced}
}

func Failed(message string, retryable bool) Status {
	return Status{state: StateFailed, lastError: message, retryable: retryable}
}

func (s Status) State() State {
	if s.state == "" {
		return StatePending
	}
	return s.state
}

func (s Status) IsPending() bool { return s.State() == StatePending }
func (s Status) IsSynced() bool  { return s.State() == StateSynced }
func (s Status) IsFailed() bool  { return s.State() == StateFailed }

// LastError is empty unless the status is Failed.
func (s Status) LastError() string { return s.lastError }

// Retryable is only meaningful for Failed.
func (s Status) Retryable() bool { return s.retryable }

func (s Status) String() string {
	if s.IsFailed() {
		return fmt.Sprintf("%s: %s", s.State(), s.lastError)
	}
	return string(s.State())
}

// CanTransition reports whether a record in s may move to next. Synced is
// final; only a repeated Synced is accepted.
func (s Status) CanTransition(next Status) bool {
	if s.IsSynced() {
		return next.IsSynced()
	}
	return !next.IsPending() || s.IsPending()
}

type statusJSON struct {
	State     State  `json:"state"`
	LastError string `json:"last_error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{
		State:     s.State(),
		LastError: s.lastError,
		Retryable: s.retryable,
	})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var v statusJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.State {
	case StatePending, "":
		*s = Pending()
	case StateSynced:
		*s = Synced()
	case StateFailed:
		*s = Failed(v.LastError, v.Retryable)
	default:
		return fmt.Errorf("unknown report state %q", v.State)
	}
	return nil
}
