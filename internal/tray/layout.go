package tray

import (
	"slices"

	"github.com/godbus/dbus/v5"
)

// RootID is the ID of the root layout node.
const RootID int32 = 0

// LayoutNode is a node of the menu layout.
type LayoutNode struct {
	ID         int32
	Properties map[string]any
	Children   []*LayoutNode
}

// layout is the D-Bus representation of [LayoutNode], (ia{sv}av).
type layout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// nodeProperties is the D-Bus representation of properties of a single node,
// (ia{sv}).
type nodeProperties struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// NewLayout returns menu layout with one label per entry. Children IDs start
// at 1 and follow the order of entries.
func NewLayout(entries []string) *LayoutNode {
	root := &LayoutNode{
		ID: RootID,
		Properties: map[string]any{
			"children-display": "submenu",
		},
		Children: make([]*LayoutNode, 0, len(entries)),
	}

	for idx, label := range entries {
		root.Children = append(root.Children, &LayoutNode{
			ID: int32(idx + 1),
			Properties: map[string]any{
				"label":   label,
				"enabled": true,
				"visible": true,
			},
			Children: []*LayoutNode{},
		})
	}

	return root
}

// Find returns node with the given ID, or nil if there is none.
func (n *LayoutNode) Find(id int32) *LayoutNode {
	if n.ID == id {
		return n
	}

	for _, child := range n.Children {
		if node := child.Find(id); node != nil {
			return node
		}
	}

	return nil
}

// properties returns properties of the node as variants. If names is empty,
// all properties are returned.
func (n *LayoutNode) properties(names []string) map[string]dbus.Variant {
	props := make(map[string]dbus.Variant, len(n.Properties))

	for key, value := range n.Properties {
		if len(names) > 0 && !slices.Contains(names, key) {
			continue
		}

		props[key] = dbus.MakeVariant(value)
	}

	return props
}

// toDBus returns D-Bus representation of the node.
//
// depth limits the number of levels below the node:
//   - -1: deliver all levels.
//   - 0: no children.
func (n *LayoutNode) toDBus(depth int32, names []string) layout {
	l := layout{
		ID:         n.ID,
		Properties: n.properties(names),
		Children:   []dbus.Variant{},
	}

	if depth == 0 {
		return l
	}

	next := depth - 1
	if depth < 0 {
		next = -1
	}

	for _, child := range n.Children {
		l.Children = append(l.Children, dbus.MakeVariant(child.toDBus(next, names)))
	}

	return l
}
