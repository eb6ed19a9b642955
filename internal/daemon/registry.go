package daemon

import (
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/dbus"
)

// Entry tracks one toast raised over D-Bus.
type Entry struct {
	ToastID   string           // The stack's toast id
	DBusID    uint32           // The id returned to the sender
	StackTag  string           // Tag shared by notifications that replace each other
	Reason    dbus.CloseReason // Why the toast is closing; zero while open
	CreatedAt time.Time
}

// Registry maps D-Bus notification ids to toast ids and remembers why each
// toast was closed until it is destroyed.
type Registry struct {
	mu sync.RWMutex

	byToastID map[string]*Entry
	byDBusID  map[uint32]string
	byTag     map[string]string // stack tag -> toast id
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byToastID: make(map[string]*Entry),
		byDBusID:  make(map[uint32]string),
		byTag:     make(map[string]string),
	}
}

// Register records a toast raised for a D-Bus id. A toast that is already
// registered is rebound to the new D-Bus id.
func (r *Registry) Register(toastID string, dbusID uint32, tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byToastID[toastID]; ok {
		delete(r.byDBusID, old.DBusID)
		if old.StackTag != "" && old.StackTag != tag {
			delete(r.byTag, old.StackTag)
		}
	}
	if prev, ok := r.byDBusID[dbusID]; ok && prev != toastID {
		delete(r.byToastID, prev)
	}

	r.byToastID[toastID] = &Entry{
		ToastID:   toastID,
		DBusID:    dbusID,
		StackTag:  tag,
		CreatedAt: time.Now(),
	}
	r.byDBusID[dbusID] = toastID
	if tag != "" {
		r.byTag[tag] = toastID
	}
}

// ToastID returns the open toast raised for a D-Bus id.
// Toasts that are closing are not returned.
func (r *Registry) ToastID(dbusID uint32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.openLocked(r.byDBusID[dbusID])
}

// ToastIDByTag returns the open toast carrying a stack tag.
func (r *Registry) ToastIDByTag(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.openLocked(r.byTag[tag])
}

func (r *Registry) openLocked(toastID string) (string, bool) {
	e, ok := r.byToastID[toastID]
	if !ok || e.Reason != 0 {
		return "", false
	}
	return toastID, true
}

// DBusID returns the D-Bus id of a toast.
func (r *Registry) DBusID(toastID string) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byToastID[toastID]
	if !ok {
		return 0, false
	}
	return e.DBusID, true
}

// SetReason records why a toast is closing. The first reason recorded wins.
func (r *Registry) SetReason(toastID string, reason dbus.CloseReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byToastID[toastID]; ok && e.Reason == 0 {
		e.Reason = reason
	}
}

// Remove forgets a toast and returns its entry. Toasts closed without a recorded
// reason report dismissed.
func (r *Registry) Remove(toastID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byToastID[toastID]
	if !ok {
		return Entry{}, false
	}
	delete(r.byToastID, toastID)
	if r.byDBusID[e.DBusID] == toastID {
		delete(r.byDBusID, e.DBusID)
	}
	if e.StackTag != "" && r.byTag[e.StackTag] == toastID {
		delete(r.byTag, e.StackTag)
	}
	if e.Reason == 0 {
		e.Reason = dbus.CloseReasonDismissed
	}
	return *e, true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToastID)
}
