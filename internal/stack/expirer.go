package stack

import (
	"sync"
	"time"
)

// Expirer layers auto-dismiss on top of a Manager: it hides a toast once its
// duration elapses. The manager itself never expires anything.
type Expirer struct {
	m      *Manager
	remove func()

	mu       sync.Mutex
	timers   map[string]*time.Timer
	onExpire func(id string)
}

// NewExpirer creates an Expirer for m. Timers of toasts that leave the stack are
// cancelled automatically.
func NewExpirer(m *Manager) *Expirer {
	e := &Expirer{
		m:      m,
		timers: make(map[string]*time.Timer),
	}
	e.remove = m.Observe(e.observe)
	return e
}

func (e *Expirer) observe(ev Event) {
	// A superseding show reuses the id and schedules its own timer.
	if ev.Kind == EventDestroyed || ev.Kind == EventEvicted {
		e.Cancel(ev.ID)
	}
}

// After hides id once d has elapsed, replacing any earlier timer for it.
// A non-positive d only cancels.
func (e *Expirer) After(id string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
	if d <= 0 {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		e.mu.Lock()
		current := e.timers[id] == t
		if current {
			delete(e.timers, id)
		}
		e.mu.Unlock()

		if !current {
			return
		}
		if onExpire := e.expireHook(); onExpire != nil {
			onExpire(id)
		}
		e.m.Hide(id)
	})
	e.timers[id] = t
}

// OnExpire sets a function called with the id just before an expiry hides it.
func (e *Expirer) OnExpire(fn func(id string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onExpire = fn
}

func (e *Expirer) expireHook() func(string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.onExpire
}

// Cancel stops the timer for id, if any.
func (e *Expirer) Cancel(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
}

// Pending returns the number of armed timers.
func (e *Expirer) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// Stop cancels every timer and detaches from the manager.
func (e *Expirer) Stop() {
	e.remove()

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}
