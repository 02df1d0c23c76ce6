// Package run owns the lifecycle of the active simulation run: its
// observable state, the status poller, and the start/stop/reset
// orchestration that drives them.
package run

import (
	"encoding/json"
	"errors"
	"strings"

	"smcbot-tui/internal/validate"
)

type Status int

const (
	Idle Status = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further progress can follow.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// HasResult reports whether the status carries a result payload.
func (s Status) HasResult() bool {
	return s == Completed || s == Cancelled
}

// ParseStatus maps a backend status string. Anything not recognised as
// terminal, such as "queued" or "starting", counts as Running.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "succeeded", "success", "done":
		return Completed
	case "cancelled", "canceled":
		return Cancelled
	case "failed", "error":
		return Failed
	default:
		return Running
	}
}

// View is the read-only run state handed to presentation.
type View struct {
	RunID    string
	Status   Status
	Progress float64
	Message  string
	// Result is set only when Status is Completed or Cancelled.
	Result map[string]any
	// Running is true from the moment a start is requested until the run
	// settles, fails to start, or the poller gives up.
	Running bool
	// ConfigLocked disables config editing while Running.
	ConfigLocked bool
}

// Settled reports whether the run reached a terminal status.
func (v View) Settled() bool {
	return v.Status.Terminal()
}

var (
	ErrInvalidConfig = errors.New("invalid run configuration")
	ErrNoActiveRun   = errors.New("no active run")
)

// ErrSuperseded is returned by a Start overtaken by a later Start or Reset.
var ErrSuperseded = errors.New("run start superseded")

// ValidationError lists the fields that blocked a Start.
type ValidationError struct {
	Fields validate.FieldErrors
}

func (e *ValidationError) Error() string {
	return ErrInvalidConfig.Error() + ": " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// cloneMap deep-copies a JSON-shaped map. Nil stays nil.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	blob, err := json.Marshal(src)
	if err != nil {
		return shallowCopy(src)
	}
	var out map[string]any
	if err := json.Unmarshal(blob, &out); err != nil {
		return shallowCopy(src)
	}
	return out
}

func shallowCopy(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
