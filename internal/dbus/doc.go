// Package dbus implements the org.freedesktop.Notifications D-Bus interface.
// Server claims the bus name and forwards Notify and CloseNotification calls to a
// Handler; Monitor mirrors calls addressed to another daemon.
package dbus
