// Package systemd queries the systemd service manager over D-Bus.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	ManagerDestination = "org.freedesktop.systemd1"
	ManagerPath        = "/org/freedesktop/systemd1"
	ManagerInterface   = "org.freedesktop.systemd1.Manager"
)

// StateFailed is the active state of units that failed.
const StateFailed = "failed"

// DefaultTimeout bounds a single call to the manager.
const DefaultTimeout = time.Second

// ErrInvalidReply is returned when the manager replies with a body that does
// not match its interface.
var ErrInvalidReply = errors.New("invalid reply")

// Caller performs method calls on a D-Bus object. It is satisfied by
// [dbus.BusObject].
type Caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Manager is a client of org.freedesktop.systemd1.Manager.
type Manager struct {
	object  Caller
	timeout time.Duration
}

// NewManager returns a [Manager] that talks to the service manager on conn.
//
// conn is usually the system bus, or the session bus for the user manager.
func NewManager(conn *dbus.Conn) *Manager {
	return NewManagerWithCaller(conn.Object(ManagerDestination, ManagerPath), DefaultTimeout)
}

// NewManagerWithCaller returns a [Manager] that sends calls to object. Each
// call is bounded by timeout; non-positive timeout means [DefaultTimeout].
func NewManagerWithCaller(object Caller, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Manager{
		object:  object,
		timeout: timeout,
	}
}

// ListFailedUnits returns units whose active state is "failed", in the order
// reported by the manager.
func (m *Manager) ListFailedUnits(ctx context.Context) ([]Unit, error) {
	return m.ListUnitsFiltered(ctx, []string{StateFailed})
}

// ListUnitsFiltered returns units in any of the given states.
//
// The call is performed once. Transport failures, remote errors, and malformed
// replies are returned to the caller, which decides whether to try again.
func (m *Manager) ListUnitsFiltered(ctx context.Context, states []string) ([]Unit, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	call := m.object.CallWithContext(ctx, ManagerInterface+".ListUnitsFiltered", 0, states)
	if call.Err != nil {
		return nil, fmt.Errorf("systemd: list units: %w", call.Err)
	}

	if len(call.Body) != 1 {
		return nil, fmt.Errorf("systemd: list units: %w: expected 1 value, got %d", ErrInvalidReply, len(call.Body))
	}

	units, err := NewUnitsFromDBus(call.Body[0])
	if err != nil {
		return nil, fmt.Errorf("systemd: list units: %w", err)
	}

	return units, nil
}
