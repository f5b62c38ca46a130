package systemd

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// unitFields is the arity of a unit struct in a ListUnits reply.
const unitFields = 10

// Unit is a snapshot of a single unit as reported by the service manager.
//
// Field order matches the (ssssssouso) struct returned by
// org.freedesktop.systemd1.Manager.ListUnits and its variants.
type Unit struct {
	// Primary unit name, e.g. "foo.service".
	Name string

	// Human-readable description.
	Description string

	// Load state, e.g. "loaded" or "not-found".
	LoadState string

	// Active state, e.g. "active" or "failed".
	ActiveState string

	// Sub state, e.g. "running" or "dead".
	SubState string

	// Unit that this unit follows in state, empty if none.
	Following string

	// Object path of the unit.
	Path dbus.ObjectPath

	// Queued job ID, 0 if no job is queued.
	JobID uint32

	// Type of the queued job, empty if no job is queued.
	JobType string

	// Object path of the queued job, "/" if no job is queued.
	JobPath dbus.ObjectPath
}

// NewUnitFromDBus returns a [Unit] decoded from a D-Bus struct.
//
// Format of data is as follows
//
//	[<name>, <description>, <load>, <active>, <sub>, <following>, <path>, <job id>, <job type>, <job path>]
//
// Decoding is positional, the field order is part of the manager's interface.
func NewUnitFromDBus(data any) (Unit, error) {
	fields, ok := data.([]any)
	if !ok || len(fields) != unitFields {
		return Unit{}, fmt.Errorf("%w: expected a struct of %d fields", ErrInvalidReply, unitFields)
	}

	var (
		unit Unit
		err  error
	)

	text := []*string{
		&unit.Name,
		&unit.Description,
		&unit.LoadState,
		&unit.ActiveState,
		&unit.SubState,
		&unit.Following,
	}

	for idx, dst := range text {
		if *dst, err = field[string](fields, idx); err != nil {
			return Unit{}, err
		}
	}

	if unit.Path, err = field[dbus.ObjectPath](fields, 6); err != nil {
		return Unit{}, err
	}

	if unit.JobID, err = field[uint32](fields, 7); err != nil {
		return Unit{}, err
	}

	if unit.JobType, err = field[string](fields, 8); err != nil {
		return Unit{}, err
	}

	if unit.JobPath, err = field[dbus.ObjectPath](fields, 9); err != nil {
		return Unit{}, err
	}

	return unit, nil
}

// NewUnitsFromDBus decodes the array of unit structs returned by ListUnits.
func NewUnitsFromDBus(data any) ([]Unit, error) {
	items, ok := data.([][]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an array of structs, got %T", ErrInvalidReply, data)
	}

	units := make([]Unit, 0, len(items))

	for idx, item := range items {
		unit, err := NewUnitFromDBus(item)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", idx, err)
		}

		units = append(units, unit)
	}

	return units, nil
}

func field[T any](fields []any, idx int) (T, error) {
	value, ok := fields[idx].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: field %d: expected %T, got %T", ErrInvalidReply, idx, zero, fields[idx])
	}

	return value, nil
}
