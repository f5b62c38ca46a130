// Package indicator keeps the state of the failed units indicator and
// reconciles it with the service manager.
//
// # State
//
// [State] holds two values: whether the last poll failed (stale) and the
// failed units reported by the last successful poll. The visual signal is
// derived from them on read, see [Classify].
//
// A failed poll marks the state stale but keeps the units from the last
// successful poll, so that they remain visible while the manager is
// unreachable.
package indicator

import (
	"slices"
	"sync"

	"github.com/shelepuginivan/systemd-status/internal/systemd"
)

// Signal is the visual signal of the indicator.
type Signal string

// Indicator signals. Values are used as icon names.
const (
	// The last poll failed or no poll has completed yet.
	SignalStale Signal = "stale"

	// No failed units.
	SignalOK Signal = "ok"

	// At least one unit failed.
	SignalErr Signal = "err"
)

// Classify derives the visual signal from the raw state.
func Classify(stale bool, failed []systemd.Unit) Signal {
	if stale {
		return SignalStale
	}

	if len(failed) == 0 {
		return SignalOK
	}

	return SignalErr
}

// Snapshot is a point-in-time copy of [State].
type Snapshot struct {
	// Whether the last poll failed or no poll has completed yet.
	Stale bool

	// Failed units reported by the last successful poll.
	FailedUnits []systemd.Unit
}

// Signal returns the visual signal of the snapshot.
func (s Snapshot) Signal() Signal {
	return Classify(s.Stale, s.FailedUnits)
}

// MenuEntries returns names of failed units in stored order.
func (s Snapshot) MenuEntries() []string {
	entries := make([]string, len(s.FailedUnits))

	for idx, unit := range s.FailedUnits {
		entries[idx] = unit.Name
	}

	return entries
}

// State is the indicator state shared between the poll loop and the
// presentation layer. It is safe for concurrent use.
//
// The zero value is not usable, use [NewState].
type State struct {
	mu        sync.Mutex
	snapshot  Snapshot
	listeners []func()
}

// NewState returns a stale [State] with no failed units.
func NewState() *State {
	return &State{
		snapshot: Snapshot{
			Stale:       true,
			FailedUnits: []systemd.Unit{},
		},
	}
}

// OnUpdate registers callback that runs after every update of the state.
//
// Callbacks run on the updating goroutine after the lock is released, so they
// may read the state.
func (s *State) OnUpdate(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, callback)
}

// ApplySnapshot records the result of a successful poll: failed units are
// replaced with units and the state is no longer stale.
func (s *State) ApplySnapshot(units []systemd.Unit) {
	failed := slices.Clone(units)
	if failed == nil {
		failed = []systemd.Unit{}
	}

	s.update(func(snapshot *Snapshot) {
		snapshot.FailedUnits = failed
		snapshot.Stale = false
	})
}

// MarkStale records a failed poll. Failed units are left untouched.
func (s *State) MarkStale() {
	s.update(func(snapshot *Snapshot) {
		snapshot.Stale = true
	})
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Stale:       s.snapshot.Stale,
		FailedUnits: slices.Clone(s.snapshot.FailedUnits),
	}
}

// IconName returns name of the icon that represents the current state: one
// of "stale", "ok", or "err".
func (s *State) IconName() string {
	return string(s.Snapshot().Signal())
}

// MenuEntries returns names of the failed units, in the order they were
// reported by the last successful poll.
func (s *State) MenuEntries() []string {
	return s.Snapshot().MenuEntries()
}

// update applies fn under the lock and notifies listeners afterwards.
func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, listener := range listeners {
		listener()
	}
}
