// Package tray exports the indicator state as a system tray item. It
// implements the item side of the [StatusNotifierItem] protocol.
//
// # Usage
//
// The tray consists of [Item] and its [Menu]:
//   - [Item] is the application running in the system tray. Its icon name is
//     the signal of the indicator state ("stale", "ok", or "err"), resolved by
//     the host in the icon theme path.
//   - [Menu] lists names of the failed units as labels.
//
// Both read the state through [Source] on every request. [Item.Refresh] must
// be called whenever the state changes, so that hosts reload the item.
//
// In addition to the base protocol, package tray implements
// com.canonical.dbusmenu, providing support for the item menu.
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package tray
