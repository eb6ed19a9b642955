package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/stack"
)

// Reaper destroys closed toasts once their exit transition would have finished.
// It stands in for an animating renderer in headless mode.
type Reaper struct {
	logger *slog.Logger
	remove func()

	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

// NewReaper starts destroying toasts hidden on m after delay. A zero delay destroys
// them at the next frame.
func NewReaper(m *stack.Manager, delay time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reaper{
		logger: logger,
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
	r.remove = m.Observe(r.observe)
	return r
}

func (r *Reaper) observe(ev stack.Event) {
	switch {
	case ev.Kind == stack.EventHidden:
		r.schedule(ev.ID, ev.Toast.OnDestroy)
	case ev.Kind.Removal():
		r.cancel(ev.ID)
	}
}

func (r *Reaper) schedule(id string, destroy func()) {
	if destroy == nil {
		return
	}
	r.mu.Lock()
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	delay := r.delay
	if delay <= 0 {
		r.mu.Unlock()
		destroy()
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		r.mu.Lock()
		current := r.timers[id] == t
		if current {
			delete(r.timers, id)
		}
		r.mu.Unlock()
		if current {
			destroy()
		}
	})
	r.timers[id] = t
	r.mu.Unlock()

	r.logger.Debug("reaping toast", "id", id, "delay", delay)
}

func (r *Reaper) cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
}

// SetDelay changes the exit delay for toasts hidden from now on.
func (r *Reaper) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// Pending returns the number of toasts waiting to be destroyed.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop detaches from the manager and drops pending timers.
func (r *Reaper) Stop() {
	r.remove()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
