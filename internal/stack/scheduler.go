package stack

import (
	"context"
	"sync"
	"time"
)

// Scheduler decides when queued mutations are applied.
// Schedule is called at most once per frame: the manager does not request another
// frame until the previous flush has run.
type Scheduler interface {
	Schedule(flush func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(flush func())

// Schedule calls f(flush).
func (f SchedulerFunc) Schedule(flush func()) { f(flush) }

// Immediate flushes synchronously on the calling goroutine.
var Immediate Scheduler = SchedulerFunc(func(flush func()) { flush() })

// Ticker coalesces frame requests onto a fixed frame interval.
// Every request made during one interval is served by a single flush.
type Ticker struct {
	interval time.Duration

	mu      sync.Mutex
	pending []func()
	timer   *time.Timer
	stopped bool
}

// NewTicker creates a Ticker that stops when ctx is done.
// Once stopped, requests flush immediately so queued mutations are never stranded.
func NewTicker(ctx context.Context, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	t := &Ticker{interval: interval}
	go func() {
		<-ctx.Done()
		t.Stop()
	}()
	return t
}

// Schedule queues flush for the next tick.
func (t *Ticker) Schedule(flush func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		flush()
		return
	}
	t.pending = append(t.pending, flush)
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval, t.fire)
	}
	t.mu.Unlock()
}

func (t *Ticker) fire() {
	t.mu.Lock()
	flushes := t.pending
	t.pending = nil
	t.timer = nil
	t.mu.Unlock()

	for _, flush := range flushes {
		flush()
	}
}

// Stop cancels the pending tick and runs whatever it would have flushed.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	flushes := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, flush := range flushes {
		flush()
	}
}
