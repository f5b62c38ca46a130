package tray

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/shelepuginivan/systemd-status/internal/indicator"
)

const (
	StatusNotifierItemInterface = "org.kde.StatusNotifierItem"
	StatusNotifierItemPath      = "/StatusNotifierItem"
)

// DefaultID is the application identifier reported by the item.
const DefaultID = "io.github.shelepuginivan.systemd-status"

type ItemCategory string

// The item describes services of the system not seen as a stand alone
// application by the user.
const ItemCategorySystemServices ItemCategory = "SystemServices"

type ItemStatus string

// StatusNotifierItem statuses.
const (
	// The item is active and should be shown to the user.
	ItemStatusActive ItemStatus = "Active"

	// The item carries important information for the user. Visualizations
	// should emphasize it.
	ItemStatusNeedsAttention ItemStatus = "NeedsAttention"
)

// Source provides the state represented by the item. It is implemented by
// [indicator.State].
type Source interface {
	Snapshot() indicator.Snapshot
}

// Options configure [Item].
type Options struct {
	// Unique identifier of the application. Defaults to [DefaultID].
	ID string

	// Name that describes the application. Defaults to ID.
	Title string

	// Directory with icons named after indicator signals ("ok.png",
	// "stale.png", "err.png").
	IconThemePath string

	// IconPath resolves an icon name to the file decoded into pixmaps for
	// hosts that ignore IconThemePath. Pixmaps are not sent if IconPath is
	// nil.
	IconPath func(name string) (string, error)

	// Logger for registration events. Defaults to [slog.Default].
	Logger *slog.Logger
}

// Item exports the indicator state as [StatusNotifierItem] on D-Bus.
//
// Icon name of the item is the signal of the current snapshot, its menu lists
// names of the failed units.
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierItem/
type Item struct {
	conn    *dbus.Conn
	source  Source
	opts    Options
	name    string
	menu    *Menu
	props   *prop.Properties
	pixmaps map[indicator.Signal]*Icon
	signals chan *dbus.Signal
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewItem returns a new [Item] for source. The item is not visible until
// [Item.Listen] is called.
func NewItem(conn *dbus.Conn, source Source, opts Options) *Item {
	if opts.ID == "" {
		opts.ID = DefaultID
	}
	if opts.Title == "" {
		opts.Title = opts.ID
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Item{
		conn:    conn,
		source:  source,
		opts:    opts,
		name:    fmt.Sprintf("%s-%d-1", StatusNotifierItemInterface, os.Getpid()),
		menu:    newMenu(conn, source),
		pixmaps: make(map[indicator.Signal]*Icon),
		signals: make(chan *dbus.Signal, 16),
		logger:  opts.Logger,
	}
}

// Name returns the bus name of the item.
func (item *Item) Name() string {
	return item.name
}

// Listen requests name of the item on D-Bus, exports the item and its menu,
// and registers the item in StatusNotifierWatcher.
//
// A missing watcher is not an error: the item is registered as soon as a
// watcher appears on the bus.
//
// If Listen is called after [Item.Close], an error is returned.
func (item *Item) Listen() error {
	item.mu.Lock()
	defer item.mu.Unlock()

	if item.closed {
		return fmt.Errorf("listen: item is closed")
	}

	item.loadPixmaps()

	reply, err := item.conn.RequestName(item.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("listen: failed to request name %s: %w", item.name, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("listen: name %s already taken", item.name)
	}

	if err := item.conn.Export(itemMethods{}, StatusNotifierItemPath, StatusNotifierItemInterface); err != nil {
		return fmt.Errorf("listen: failed to export %s: %w", StatusNotifierItemInterface, err)
	}

	if err := item.exportProperties(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := item.menu.export(item.opts.IconThemePath); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := item.subscribe(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := item.register(); err != nil {
		item.logger.Warn("StatusNotifierWatcher is not available, waiting for it to appear", "error", err)
	}

	return nil
}

// Refresh publishes the current snapshot of the source: it updates item
// properties, notifies hosts about the new icon, status, and tooltip, and
// invalidates the menu layout.
//
// Refresh is a no-op before [Item.Listen] and after [Item.Close].
func (item *Item) Refresh() {
	item.mu.Lock()
	defer item.mu.Unlock()

	if item.props == nil || item.closed {
		return
	}

	snapshot := item.source.Snapshot()
	signal := snapshot.Signal()

	item.props.SetMust(StatusNotifierItemInterface, "IconName", string(signal))
	item.props.SetMust(StatusNotifierItemInterface, "IconPixmap", item.pixmaps[signal].toDBus())
	item.props.SetMust(StatusNotifierItemInterface, "Status", string(statusOf(signal)))
	item.props.SetMust(StatusNotifierItemInterface, "ToolTip", item.tooltip(snapshot))

	for _, member := range []string{"NewIcon", "NewAttentionIcon", "NewToolTip"} {
		item.emit(member)
	}

	item.emit("NewStatus", string(statusOf(signal)))

	item.menu.refresh()
}

// Close unexports the item and its menu, releases the bus name, and
// unsubscribes from signals.
//
// Item cannot be reused after Close was called.
func (item *Item) Close() error {
	item.mu.Lock()
	defer item.mu.Unlock()

	if item.closed {
		return nil
	}

	item.closed = true

	var errs []error

	if item.props != nil {
		if err := item.unsubscribe(); err != nil {
			errs = append(errs, err)
		}

		errs = append(errs,
			item.conn.Export(nil, StatusNotifierItemPath, StatusNotifierItemInterface),
			item.conn.Export(nil, StatusNotifierItemPath, "org.freedesktop.DBus.Properties"),
			item.menu.unexport(),
		)
	}

	if _, err := item.conn.ReleaseName(item.name); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// loadPixmaps decodes icons resolved by IconPath. Hosts that ignore
// IconThemePath fall back to pixmaps.
func (item *Item) loadPixmaps() {
	if item.opts.IconPath == nil {
		return
	}

	for _, signal := range []indicator.Signal{indicator.SignalOK, indicator.SignalStale, indicator.SignalErr} {
		path, err := item.opts.IconPath(string(signal))
		if err != nil {
			item.logger.Debug("Icon is not available", "icon", signal, "error", err)
			continue
		}

		icon, err := NewIconFromFile(path)
		if err != nil {
			item.logger.Debug("Icon pixmap is not available", "icon", signal, "error", err)
			continue
		}

		item.pixmaps[signal] = icon
	}
}

func (item *Item) exportProperties() error {
	snapshot := item.source.Snapshot()
	signal := snapshot.Signal()

	props, err := prop.Export(item.conn, StatusNotifierItemPath, prop.Map{
		StatusNotifierItemInterface: map[string]*prop.Prop{
			"Category":            constProp(string(ItemCategorySystemServices)),
			"Id":                  constProp(item.opts.ID),
			"Title":               constProp(item.opts.Title),
			"Status":              varProp(string(statusOf(signal))),
			"WindowId":            constProp(int32(0)),
			"IconThemePath":       constProp(item.opts.IconThemePath),
			"IconName":            varProp(string(signal)),
			"IconPixmap":          varProp(item.pixmaps[signal].toDBus()),
			"OverlayIconName":     constProp(""),
			"OverlayIconPixmap":   constProp([]pixmap{}),
			"AttentionIconName":   constProp(string(indicator.SignalErr)),
			"AttentionIconPixmap": constProp(item.pixmaps[indicator.SignalErr].toDBus()),
			"AttentionMovieName":  constProp(""),
			"ToolTip":             varProp(item.tooltip(snapshot)),
			"ItemIsMenu":          constProp(true),
			"Menu":                constProp(dbus.ObjectPath(MenuPath)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to export properties: %w", err)
	}

	item.props = props

	return nil
}

func (item *Item) emit(member string, values ...any) {
	err := item.conn.Emit(StatusNotifierItemPath, StatusNotifierItemInterface+"."+member, values...)
	if err != nil {
		item.logger.Debug("Failed to emit signal", "signal", member, "error", err)
	}
}

// tooltip is the D-Bus representation of the item tooltip, (sa(iiay)ss).
type tooltip struct {
	IconName    string
	IconPixmap  []pixmap
	Title       string
	Description string
}

func (item *Item) tooltip(snapshot indicator.Snapshot) tooltip {
	t := tooltip{
		IconName:   string(snapshot.Signal()),
		IconPixmap: []pixmap{},
		Title:      item.opts.Title,
	}

	switch snapshot.Signal() {
	case indicator.SignalStale:
		t.Description = "Service manager is unreachable"
		if n := len(snapshot.FailedUnits); n > 0 {
			t.Description += fmt.Sprintf(", last known failed units: %d", n)
		}
	case indicator.SignalOK:
		t.Description = "No failed units"
	case indicator.SignalErr:
		t.Description = fmt.Sprintf("Failed units: %d", len(snapshot.FailedUnits))
	}

	return t
}

func statusOf(signal indicator.Signal) ItemStatus {
	if signal == indicator.SignalErr {
		return ItemStatusNeedsAttention
	}

	return ItemStatusActive
}

func constProp(value any) *prop.Prop {
	return &prop.Prop{
		Value:    value,
		Writable: false,
		Emit:     prop.EmitConst,
	}
}

func varProp(value any) *prop.Prop {
	return &prop.Prop{
		Value:    value,
		Writable: false,
		Emit:     prop.EmitTrue,
	}
}

// itemMethods implements methods of org.kde.StatusNotifierItem. The item has
// no actions, all interaction happens through its menu.
type itemMethods struct{}

func (itemMethods) ContextMenu(x, y int32) *dbus.Error {
	return nil
}

func (itemMethods) Activate(x, y int32) *dbus.Error {
	return nil
}

func (itemMethods) SecondaryActivate(x, y int32) *dbus.Error {
	return nil
}

func (itemMethods) Scroll(delta int32, orientation string) *dbus.Error {
	return nil
}
