package run

import (
	"sync"

	"smcbot-tui/internal/watch"
)

type flags struct {
	running bool
	locked  bool
}

// Store holds the run view. Readers take snapshots and subscribe to
// changes; only the Poller and Orchestrator in this package write to it.
// Every write naming a run is ignored unless that run is still current.
type Store struct {
	mu      sync.Mutex
	view    View
	changes watch.Notifier
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the view; the result map is not shared.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.Result = cloneMap(s.view.Result)
	return v
}

func (s *Store) Subscribe() (<-chan struct{}, func()) {
	return s.changes.Subscribe()
}

func (s *Store) update(fn func(v *View) bool) bool {
	s.mu.Lock()
	changed := fn(&s.view)
	s.mu.Unlock()
	if changed {
		s.changes.Notify()
	}
	return changed
}

// lockFlags marks a start as underway and returns the flags it replaced.
func (s *Store) lockFlags() flags {
	var prev flags
	s.update(func(v *View) bool {
		prev = flags{running: v.Running, locked: v.ConfigLocked}
		v.Running = true
		v.ConfigLocked = true
		return prev != flags{running: true, locked: true}
	})
	return prev
}

func (s *Store) restoreFlags(f flags) {
	s.update(func(v *View) bool {
		if v.Running == f.running && v.ConfigLocked == f.locked {
			return false
		}
		v.Running = f.running
		v.ConfigLocked = f.locked
		return true
	})
}

// begin makes runID current with a fresh Running status.
func (s *Store) begin(runID string) {
	s.update(func(v *View) bool {
		*v = View{
			RunID:        runID,
			Status:       Running,
			Running:      true,
			ConfigLocked: true,
		}
		return true
	})
}

// progress applies a non-terminal poll result. It reports false when runID
// is no longer the running run, which ends the poll session.
func (s *Store) progress(runID string, progress float64, message string) bool {
	current := false
	s.update(func(v *View) bool {
		if v.RunID != runID || v.Status != Running {
			return false
		}
		current = true
		if v.Progress == progress && v.Message == message {
			return false
		}
		v.Progress = progress
		v.Message = message
		return true
	})
	return current
}

// settle commits a terminal status together with its result in one write.
// Status only moves forward from Running.
func (s *Store) settle(runID string, status Status, progress float64, message string, result map[string]any) bool {
	return s.update(func(v *View) bool {
		if v.RunID != runID || v.Status != Running || !status.Terminal() {
			return false
		}
		v.Status = status
		v.Progress = progress
		v.Message = message
		if status.HasResult() {
			v.Result = cloneMap(result)
		} else {
			v.Result = nil
		}
		v.Running = false
		v.ConfigLocked = false
		return true
	})
}

// release clears the flags of runID without touching its status.
func (s *Store) release(runID string) bool {
	return s.update(func(v *View) bool {
		if v.RunID != runID || (!v.Running && !v.ConfigLocked) {
			return false
		}
		v.Running = false
		v.ConfigLocked = false
		return true
	})
}

func (s *Store) reset() {
	s.update(func(v *View) bool {
		*v = View{}
		return true
	})
}
