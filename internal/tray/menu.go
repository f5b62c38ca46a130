package tray

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const (
	MenuInterface = "com.canonical.dbusmenu"
	MenuPath      = "/MenuBar"
)

// MenuVersion is the implemented version of com.canonical.dbusmenu.
const MenuVersion uint32 = 3

// Menu implements the com.canonical.dbusmenu interface for [Item]. Its layout
// is a flat list of labels built from the source on every request.
type Menu struct {
	conn     *dbus.Conn
	source   Source
	mu       sync.Mutex
	revision uint32
	exported bool
}

func newMenu(conn *dbus.Conn, source Source) *Menu {
	return &Menu{
		conn:   conn,
		source: source,
	}
}

// Layout returns the current revision and the layout built from the source.
func (m *Menu) Layout() (uint32, *LayoutNode) {
	m.mu.Lock()
	revision := m.revision
	m.mu.Unlock()

	return revision, NewLayout(m.source.Snapshot().MenuEntries())
}

// export exports the menu and its properties on the bus.
func (m *Menu) export(iconThemePath string) error {
	if err := m.conn.Export(menuMethods{menu: m}, MenuPath, MenuInterface); err != nil {
		return fmt.Errorf("failed to export %s: %w", MenuInterface, err)
	}

	themePath := []string{}
	if iconThemePath != "" {
		themePath = append(themePath, iconThemePath)
	}

	_, err := prop.Export(m.conn, MenuPath, prop.Map{
		MenuInterface: map[string]*prop.Prop{
			"Version":       constProp(MenuVersion),
			"TextDirection": constProp("ltr"),
			"Status":        constProp("normal"),
			"IconThemePath": constProp(themePath),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to export menu properties: %w", err)
	}

	m.mu.Lock()
	m.exported = true
	m.mu.Unlock()

	return nil
}

// refresh bumps the layout revision and notifies the host that the whole
// layout was updated.
func (m *Menu) refresh() {
	m.mu.Lock()
	m.revision++
	revision := m.revision
	exported := m.exported
	m.mu.Unlock()

	if !exported {
		return
	}

	_ = m.conn.Emit(MenuPath, MenuInterface+".LayoutUpdated", revision, RootID)
}

func (m *Menu) unexport() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exported {
		return nil
	}

	m.exported = false

	return errors.Join(
		m.conn.Export(nil, MenuPath, MenuInterface),
		m.conn.Export(nil, MenuPath, "org.freedesktop.DBus.Properties"),
	)
}

// menuEvent is the D-Bus representation of a single event of EventGroup,
// (isvu).
type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// menuMethods implements methods of com.canonical.dbusmenu.
type menuMethods struct {
	menu *Menu
}

// GetLayout provides the layout and properties that are attached to the
// entries that are in the layout.
//
// recursionDepth of -1 delivers all items, 0 disables recursion. Empty
// propertyNames means all properties.
func (mm menuMethods) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, layout, *dbus.Error) {
	revision, root := mm.menu.Layout()

	node := root.Find(parentID)
	if node == nil {
		return 0, layout{}, unknownNode(parentID)
	}

	return revision, node.toDBus(recursionDepth, propertyNames), nil
}

// GetGroupProperties returns properties of the nodes with the given IDs.
// Unknown IDs are skipped. Empty ids means all nodes.
func (mm menuMethods) GetGroupProperties(ids []int32, propertyNames []string) ([]nodeProperties, *dbus.Error) {
	_, root := mm.menu.Layout()

	if len(ids) == 0 {
		ids = append(ids, root.ID)
		for _, child := range root.Children {
			ids = append(ids, child.ID)
		}
	}

	result := make([]nodeProperties, 0, len(ids))

	for _, id := range ids {
		node := root.Find(id)
		if node == nil {
			continue
		}

		result = append(result, nodeProperties{
			ID:         node.ID,
			Properties: node.properties(propertyNames),
		})
	}

	return result, nil
}

// GetProperty returns a single property of a node.
func (mm menuMethods) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	_, root := mm.menu.Layout()

	node := root.Find(id)
	if node == nil {
		return dbus.Variant{}, unknownNode(id)
	}

	value, ok := node.Properties[name]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("node %d has no property %s", id, name))
	}

	return dbus.MakeVariant(value), nil
}

// Event is sent by the host when an event happens to a node. Menu entries are
// labels, so events are accepted and ignored.
func (mm menuMethods) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	return nil
}

// EventGroup is the batched version of Event. It returns IDs of nodes that
// were not found.
func (mm menuMethods) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	_, root := mm.menu.Layout()

	notFound := []int32{}

	for _, event := range events {
		if root.Find(event.ID) == nil {
			notFound = append(notFound, event.ID)
		}
	}

	return notFound, nil
}

// AboutToShow is called by the host before the node is shown. The layout is
// always built from the current state, so no update is needed.
func (mm menuMethods) AboutToShow(id int32) (bool, *dbus.Error) {
	return false, nil
}

// AboutToShowGroup is the batched version of AboutToShow. It returns IDs of
// nodes that need an update and IDs of nodes that were not found.
func (mm menuMethods) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	_, root := mm.menu.Layout()

	notFound := []int32{}

	for _, id := range ids {
		if root.Find(id) == nil {
			notFound = append(notFound, id)
		}
	}

	return []int32{}, notFound, nil
}

func unknownNode(id int32) *dbus.Error {
	return dbus.NewError("com.canonical.dbusmenu.Error.UnknownNode", []any{fmt.Sprintf("unknown node %d", id)})
}
