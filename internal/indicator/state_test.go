package indicator

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelepuginivan/systemd-status/internal/systemd"
)

func units(names ...string) []systemd.Unit {
	result := make([]systemd.Unit, 0, len(names))

	for _, name := range names {
		result = append(result, systemd.Unit{
			Name:        name,
			LoadState:   "loaded",
			ActiveState: "failed",
			SubState:    "failed",
		})
	}

	return result
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		stale  bool
		failed []systemd.Unit
		want   Signal
	}{
		{name: "fresh empty", stale: false, failed: nil, want: SignalOK},
		{name: "fresh non-empty", stale: false, failed: units("foo.service"), want: SignalErr},
		{name: "stale empty", stale: true, failed: nil, want: SignalStale},
		{name: "stale non-empty", stale: true, failed: units("foo.service", "bar.service"), want: SignalStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.stale, tt.failed))
		})
	}
}

func TestNewState_IsStale(t *testing.T) {
	s := NewState()

	snapshot := s.Snapshot()
	assert.True(t, snapshot.Stale)
	assert.Empty(t, snapshot.FailedUnits)
	assert.Equal(t, "stale", s.IconName())
	assert.Empty(t, s.MenuEntries())
}

func TestApplySnapshot_MenuEntriesFollowInputOrder(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(units("c.service", "a.service", "b.socket"))

	assert.Equal(t, []string{"c.service", "a.service", "b.socket"}, s.MenuEntries())
	assert.Equal(t, "err", s.IconName())
}

func TestApplySnapshot_Empty(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(nil)

	assert.Equal(t, "ok", s.IconName())
	assert.Empty(t, s.MenuEntries())
	assert.NotNil(t, s.Snapshot().FailedUnits)
}

func TestApplySnapshot_Idempotent(t *testing.T) {
	s := NewState()

	s.ApplySnapshot(units("foo.service", "bar.service"))
	icon, entries := s.IconName(), s.MenuEntries()

	s.ApplySnapshot(units("foo.service", "bar.service"))
	assert.Equal(t, icon, s.IconName())
	assert.Equal(t, entries, s.MenuEntries())
}

func TestMarkStale_KeepsFailedUnits(t *testing.T) {
	s := NewState()

	s.ApplySnapshot(units("foo.service"))
	before := s.Snapshot()

	s.MarkStale()
	after := s.Snapshot()

	assert.True(t, after.Stale)
	assert.Equal(t, before.FailedUnits, after.FailedUnits)
	assert.Equal(t, "stale", s.IconName())
	assert.Equal(t, []string{"foo.service"}, s.MenuEntries())
}

func TestMarkStale_ThenRecover(t *testing.T) {
	s := NewState()

	s.ApplySnapshot(units("foo.service"))
	s.MarkStale()
	s.ApplySnapshot(nil)

	assert.Equal(t, "ok", s.IconName())
	assert.Empty(t, s.MenuEntries())
}

func TestApplySnapshot_CopiesInput(t *testing.T) {
	s := NewState()

	input := units("foo.service")
	s.ApplySnapshot(input)
	input[0].Name = "mutated.service"

	assert.Equal(t, []string{"foo.service"}, s.MenuEntries())

	snapshot := s.Snapshot()
	snapshot.FailedUnits[0].Name = "mutated.service"

	assert.Equal(t, []string{"foo.service"}, s.MenuEntries())
}

func TestOnUpdate(t *testing.T) {
	s := NewState()

	var calls atomic.Int32
	var seen []Signal

	s.OnUpdate(func() {
		calls.Add(1)
		// Listeners run outside the lock and may read the state.
		seen = append(seen, s.Snapshot().Signal())
	})

	s.ApplySnapshot(units("foo.service"))
	s.MarkStale()
	s.ApplySnapshot(nil)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []Signal{SignalErr, SignalStale, SignalOK}, seen)
}

func TestState_ConcurrentReaders(t *testing.T) {
	s := NewState()

	a := units("a.service")
	b := units("b.service", "c.service")

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				snapshot := s.Snapshot()
				if snapshot.Stale {
					continue
				}

				// A fresh snapshot is always one of the applied sets, never a
				// mix of them.
				entries := snapshot.MenuEntries()
				if len(entries) == 1 {
					assert.Equal(t, []string{"a.service"}, entries)
				} else {
					assert.Equal(t, []string{"b.service", "c.service"}, entries)
				}
			}
		}()
	}

	for idx := range 1000 {
		switch idx % 3 {
		case 0:
			s.ApplySnapshot(a)
		case 1:
			s.ApplySnapshot(b)
		default:
			s.MarkStale()
		}
	}

	close(stop)
	wg.Wait()
}
