package tray

import (
	"github.com/godbus/dbus/v5"
)

const (
	StatusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	StatusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

// register registers the item in StatusNotifierWatcher.
func (item *Item) register() error {
	return item.conn.Object(
		StatusNotifierWatcherInterface,
		StatusNotifierWatcherPath,
	).Call(StatusNotifierWatcherInterface+".RegisterStatusNotifierItem", 0, item.name).Err
}

// subscribe watches for owner changes of the StatusNotifierWatcher name.
//
// Whenever the watcher is (re)started, D-Bus sends NameOwnerChanged signal
// with non-empty NewOwner argument. In this case, the item must be registered
// again, since the new watcher does not know about it.
func (item *Item) subscribe() error {
	if err := item.conn.AddMatchSignal(watcherOwnerMatch()...); err != nil {
		return err
	}

	item.conn.Signal(item.signals)

	go func() {
		for signal := range item.signals {
			if isWatcherStarted(signal) {
				item.handleWatcherStarted()
			}
		}
	}()

	return nil
}

// unsubscribe stops watching for StatusNotifierWatcher.
func (item *Item) unsubscribe() error {
	err := item.conn.RemoveMatchSignal(watcherOwnerMatch()...)

	item.conn.RemoveSignal(item.signals)
	close(item.signals)

	return err
}

func (item *Item) handleWatcherStarted() {
	item.mu.Lock()
	defer item.mu.Unlock()

	if item.closed {
		return
	}

	if err := item.register(); err != nil {
		item.logger.Warn("Failed to register in StatusNotifierWatcher", "error", err)
		return
	}

	item.logger.Info("Registered in StatusNotifierWatcher", "name", item.name)
}

func watcherOwnerMatch() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, StatusNotifierWatcherInterface),
	}
}

// isWatcherStarted reports whether signal announces a new owner of the
// StatusNotifierWatcher name.
func isWatcherStarted(signal *dbus.Signal) bool {
	if signal.Name != "org.freedesktop.DBus.NameOwnerChanged" {
		return false
	}

	if len(signal.Body) < 3 {
		return false
	}

	name, ok := signal.Body[0].(string)
	if !ok || name != StatusNotifierWatcherInterface {
		return false
	}

	newOwner, ok := signal.Body[2].(string)
	if !ok {
		return false
	}

	return newOwner != ""
}
