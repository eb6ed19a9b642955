// Package daemon connects the outside world to the toast stack.
// It bridges org.freedesktop.Notifications onto the stack, destroys closed toasts
// after the exit delay, and raises toasts about toastd's own events.
package daemon
