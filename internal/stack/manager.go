package stack

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// HideAllMode selects how HideAll removes toasts.
type HideAllMode string

const (
	// HideAllDeferred closes every toast and leaves removal to per-toast destroys.
	HideAllDeferred HideAllMode = "deferred"
	// HideAllImmediate removes every toast at once.
	HideAllImmediate HideAllMode = "immediate"
)

// ErrInvalidHideAllMode is returned when parsing an unknown hide-all mode.
var ErrInvalidHideAllMode = errors.New("hide_all must be deferred or immediate")

// ParseHideAllMode validates a hide-all mode name. Empty means deferred.
func ParseHideAllMode(s string) (HideAllMode, error) {
	switch HideAllMode(strings.ToLower(s)) {
	case "", HideAllDeferred:
		return HideAllDeferred, nil
	case HideAllImmediate:
		return HideAllImmediate, nil
	}
	return HideAllDeferred, fmt.Errorf("%w: %q", ErrInvalidHideAllMode, s)
}

// Config configures a Manager.
type Config struct {
	// Scheduler requests frames. Nil means the owner calls Flush.
	Scheduler Scheduler
	// HideAll selects the hide-all behaviour. Empty means deferred.
	HideAll HideAllMode
	// HistoryLimit caps history length. Zero means unlimited.
	HistoryLimit int
	// NewID generates ids for toasts shown without one. Defaults to model.NewID.
	NewID func() string
	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

type mutationKind int

const (
	opShow mutationKind = iota
	opUpdate
	opHide
	opDestroy
	opHideAll
	opToggle
	opSwitchUnfolded
	opSetUnfolded
)

// mutation is one queued operation. gen pins hide and destroy requests to a
// specific record; zero matches whatever record currently holds the id.
type mutation struct {
	kind    mutationKind
	id      string
	gen     uint64
	toast   model.Toast
	content any
	opts    *model.Options
	flag    bool
}

type delivery struct {
	closers   []closer
	events    []Event
	observers []observerEntry
}

type observerEntry struct {
	id int
	fn Observer
}

// Manager owns the toast stack. All mutations are queued in submission order and
// applied together at the next frame; reads see committed state only.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	logger *slog.Logger

	scheduler    Scheduler
	hideAll      HideAllMode
	historyLimit int
	newID        func() string
	now          func() time.Time

	// Committed state
	foreground  Slot
	history     []model.Toast
	generations map[string]uint64 // id -> generation of the tracked record
	unfolded    bool
	visible     bool
	version     uint64

	pending        []mutation
	frameRequested bool

	// Callbacks of committed frames, delivered in commit order by one flusher.
	deliveries []delivery
	delivering bool

	subscribers  []chan Snapshot
	observers    []observerEntry
	nextObserver int
	closed       bool

	seq    atomic.Uint64
	panics atomic.Uint64
}

// NewManager creates an empty, visible, folded stack.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HideAll == "" {
		cfg.HideAll = HideAllDeferred
	}
	if cfg.NewID == nil {
		cfg.NewID = model.NewID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		logger:       logger,
		scheduler:    cfg.Scheduler,
		hideAll:      cfg.HideAll,
		historyLimit: cfg.HistoryLimit,
		newID:        cfg.NewID,
		now:          cfg.Now,
		generations:  make(map[string]uint64),
		visible:      true,
	}
}

// Show queues a new toast and returns its id. The toast becomes the foreground at
// the next frame; the previous foreground moves to the front of history.
// A tracked toast with the same id is superseded: it is destroyed first.
func (m *Manager) Show(content any, opts *model.Options) string {
	var o model.Options
	if opts != nil {
		o = opts.Clone()
	}
	id := o.ID
	if id == "" {
		id = m.newID()
	}
	o.ID = id
	gen := m.seq.Add(1)
	now := m.now()

	t := model.Toast{
		ID:        id,
		Content:   content,
		Open:      true,
		Options:   o,
		CreatedAt: now,
		UpdatedAt: now,
		OnHide:    func() { m.enqueue(mutation{kind: opHide, id: id, gen: gen}) },
		OnDestroy: func() { m.enqueue(mutation{kind: opDestroy, id: id, gen: gen}) },
	}
	m.enqueue(mutation{kind: opShow, id: id, gen: gen, toast: t})
	return id
}

// Update patches a toast's content and options. Nil content and absent option
// fields keep their current values. Unknown ids are ignored.
func (m *Manager) Update(id string, content any, opts *model.Options) {
	var patch *model.Options
	if opts != nil {
		c := opts.Clone()
		patch = &c
	}
	m.enqueue(mutation{kind: opUpdate, id: id, content: content, opts: patch})
}

// Hide closes a toast without removing it. Renderers destroy it once their exit
// transition is done.
func (m *Manager) Hide(id string) {
	m.enqueue(mutation{kind: opHide, id: id})
}

// Destroy removes a toast from tracking and fires its close callback.
func (m *Manager) Destroy(id string) {
	m.enqueue(mutation{kind: opDestroy, id: id})
}

// HideAll closes every toast and folds the stack.
func (m *Manager) HideAll() {
	m.enqueue(mutation{kind: opHideAll})
}

// Toggle shows or hides the whole stack.
func (m *Manager) Toggle(visible bool) {
	m.enqueue(mutation{kind: opToggle, flag: visible})
}

// SwitchUnfolded flips between the folded and unfolded view.
func (m *Manager) SwitchUnfolded() {
	m.enqueue(mutation{kind: opSwitchUnfolded})
}

// SetUnfolded sets the view mode.
func (m *Manager) SetUnfolded(unfolded bool) {
	m.enqueue(mutation{kind: opSetUnfolded, flag: unfolded})
}

func (m *Manager) enqueue(mut mutation) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("stack closed, dropping mutation", "id", mut.id)
		return
	}
	m.pending = append(m.pending, mut)
	sched := m.requestFrameLocked()
	m.mu.Unlock()

	if sched != nil {
		sched.Schedule(m.Flush)
	}
}

// requestFrameLocked marks a frame as requested and returns the scheduler to ask,
// or nil when a frame is already pending or there is no scheduler.
func (m *Manager) requestFrameLocked() Scheduler {
	if m.frameRequested || m.scheduler == nil || len(m.pending) == 0 {
		return nil
	}
	m.frameRequested = true
	return m.scheduler
}

// SetScheduler replaces the frame scheduler. Pending mutations request a frame
// from the new scheduler.
func (m *Manager) SetScheduler(s Scheduler) {
	m.mu.Lock()
	m.scheduler = s
	m.frameRequested = false
	sched := m.requestFrameLocked()
	m.mu.Unlock()

	if sched != nil {
		sched.Schedule(m.Flush)
	}
}

// Reconfigure changes the hide-all mode and history limit.
// A lower history limit takes effect at the next demotion.
func (m *Manager) Reconfigure(mode HideAllMode, historyLimit int) {
	if mode == "" {
		mode = HideAllDeferred
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideAll = mode
	m.historyLimit = historyLimit
}

// frame collects the side effects of one flush, run after the lock is released.
type frame struct {
	changed bool
	events  []Event
	closers []closer
}

type closer struct {
	id string
	fn func()
}

func (f *frame) emit(kind EventKind, t model.Toast) {
	f.changed = true
	f.events = append(f.events, Event{Kind: kind, ID: t.ID, Toast: t.Clone()})
}

func (f *frame) viewChanged() {
	f.changed = true
	f.events = append(f.events, Event{Kind: EventViewChanged})
}

func (f *frame) close(t model.Toast) {
	if t.Options.OnClose != nil {
		f.closers = append(f.closers, closer{id: t.ID, fn: t.Options.OnClose})
	}
}

// Flush applies every queued mutation in submission order, publishes the new
// snapshot if anything changed, then runs close callbacks and observers.
// When another flush is already delivering, this frame's callbacks are left to
// it and Flush returns once the state is committed.
func (m *Manager) Flush() {
	m.mu.Lock()
	m.frameRequested = false
	batch := m.pending
	m.pending = nil
	if len(batch) == 0 || m.closed {
		m.mu.Unlock()
		return
	}

	var f frame
	for _, mut := range batch {
		m.applyLocked(&f, mut)
		m.normalizeLocked(&f)
	}
	if f.changed {
		m.version++
		m.publishLocked(m.snapshotLocked())
	}
	if len(f.closers) > 0 || len(f.events) > 0 {
		m.deliveries = append(m.deliveries, delivery{
			closers:   f.closers,
			events:    f.events,
			observers: slices.Clone(m.observers),
		})
	}
	if m.delivering {
		m.mu.Unlock()
		return
	}
	m.delivering = true
	m.mu.Unlock()

	m.deliver()
}

// deliver runs queued frame callbacks until the queue drains. Frames committed
// by concurrent or reentrant flushes are picked up here in commit order.
func (m *Manager) deliver() {
	for {
		m.mu.Lock()
		if len(m.deliveries) == 0 {
			m.delivering = false
			m.mu.Unlock()
			return
		}
		d := m.deliveries[0]
		m.deliveries = m.deliveries[1:]
		m.mu.Unlock()

		for _, c := range d.closers {
			m.safeCall("on_close", c.id, c.fn)
		}
		for _, ev := range d.events {
			for _, obs := range d.observers {
				m.safeCall("observer", ev.ID, func() { obs.fn(ev) })
			}
		}
	}
}

func (m *Manager) applyLocked(f *frame, mut mutation) {
	switch mut.kind {
	case opShow:
		m.applyShowLocked(f, mut)
	case opUpdate:
		m.applyUpdateLocked(f, mut)
	case opHide:
		m.applyHideLocked(f, mut)
	case opDestroy:
		m.applyDestroyLocked(f, mut)
	case opHideAll:
		m.applyHideAllLocked(f)
	case opToggle:
		if m.visible != mut.flag {
			m.visible = mut.flag
			f.viewChanged()
		}
	case opSwitchUnfolded:
		m.setUnfoldedLocked(f, !m.unfolded)
	case opSetUnfolded:
		m.setUnfoldedLocked(f, mut.flag)
	}
}

func (m *Manager) applyShowLocked(f *frame, mut mutation) {
	if prev, ok := m.removeLocked(mut.id); ok {
		f.emit(EventSuperseded, prev)
		f.close(prev)
	}
	if cur, ok := m.foreground.Get(); ok {
		m.history = slices.Insert(m.history, 0, cur)
		m.evictLocked(f)
	}
	m.foreground = Occupied(mut.toast)
	m.generations[mut.id] = mut.gen
	f.emit(EventShown, mut.toast)
}

func (m *Manager) evictLocked(f *frame) {
	if m.historyLimit <= 0 || len(m.history) <= m.historyLimit {
		return
	}
	evicted := slices.Clone(m.history[m.historyLimit:])
	m.history = slices.Clip(m.history[:m.historyLimit])
	for _, t := range evicted {
		delete(m.generations, t.ID)
		f.emit(EventEvicted, t)
		f.close(t)
	}
}

func (m *Manager) applyUpdateLocked(f *frame, mut mutation) {
	t := m.lookupLocked(mut.id)
	if t == nil {
		m.logger.Debug("update of unknown toast ignored", "id", mut.id)
		return
	}
	changed := false
	if mut.content != nil && !reflect.DeepEqual(t.Content, mut.content) {
		t.Content = mut.content
		changed = true
	}
	if merged, ok := t.Options.Merge(mut.opts); ok {
		t.Options = merged
		changed = true
	}
	if !changed {
		return
	}
	t.UpdatedAt = m.now()
	f.emit(EventUpdated, *t)
}

func (m *Manager) applyHideLocked(f *frame, mut mutation) {
	if !m.matchesLocked(mut) {
		m.logger.Debug("hide of unknown toast ignored", "id", mut.id)
		return
	}
	t := m.lookupLocked(mut.id)
	if !t.Open {
		return
	}
	t.Open = false
	f.emit(EventHidden, *t)
}

func (m *Manager) applyDestroyLocked(f *frame, mut mutation) {
	if !m.matchesLocked(mut) {
		m.logger.Debug("destroy of unknown toast ignored", "id", mut.id)
		return
	}
	t, _ := m.removeLocked(mut.id)
	f.emit(EventDestroyed, t)
	f.close(t)
}

func (m *Manager) applyHideAllLocked(f *frame) {
	if m.hideAll == HideAllImmediate {
		all := m.toastsLocked()
		m.foreground = Slot{}
		m.history = nil
		clear(m.generations)
		for _, t := range all {
			f.emit(EventDestroyed, t)
			f.close(t)
		}
		if len(all) > 0 {
			f.events = append(f.events, Event{Kind: EventCleared})
		}
	} else {
		if m.foreground.occupied && m.foreground.toast.Open {
			m.foreground.toast.Open = false
			f.emit(EventHidden, m.foreground.toast)
		}
		for i := range m.history {
			if m.history[i].Open {
				m.history[i].Open = false
				f.emit(EventHidden, m.history[i])
			}
		}
	}
	if m.unfolded {
		m.unfolded = false
		f.viewChanged()
	}
}

func (m *Manager) setUnfoldedLocked(f *frame, unfolded bool) {
	if unfolded == m.unfolded {
		return
	}
	if unfolded && m.emptyLocked() {
		return
	}
	m.unfolded = unfolded
	f.viewChanged()
}

// normalizeLocked folds an empty stack. Runs after every applied mutation.
func (m *Manager) normalizeLocked(f *frame) {
	if m.unfolded && m.emptyLocked() {
		m.unfolded = false
		f.viewChanged()
	}
}

// matchesLocked reports whether mut targets a tracked record, honouring its generation.
func (m *Manager) matchesLocked(mut mutation) bool {
	gen, ok := m.generations[mut.id]
	if !ok {
		return false
	}
	return mut.gen == 0 || mut.gen == gen
}

func (m *Manager) lookupLocked(id string) *model.Toast {
	if m.foreground.Has(id) {
		return &m.foreground.toast
	}
	for i := range m.history {
		if m.history[i].ID == id {
			return &m.history[i]
		}
	}
	return nil
}

func (m *Manager) removeLocked(id string) (model.Toast, bool) {
	if m.foreground.Has(id) {
		t := m.foreground.toast
		m.foreground = Slot{}
		delete(m.generations, id)
		return t, true
	}
	for i := range m.history {
		if m.history[i].ID == id {
			t := m.history[i]
			m.history = slices.Delete(m.history, i, i+1)
			delete(m.generations, id)
			return t, true
		}
	}
	return model.Toast{}, false
}

func (m *Manager) emptyLocked() bool {
	return m.foreground.Empty() && len(m.history) == 0
}

func (m *Manager) toastsLocked() []model.Toast {
	out := make([]model.Toast, 0, len(m.history)+1)
	if t, ok := m.foreground.Get(); ok {
		out = append(out, t)
	}
	return append(out, m.history...)
}

func (m *Manager) safeCall(what, id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.panics.Add(1)
			m.logger.Error("callback panicked", "callback", what, "id", id, "panic", r)
		}
	}()
	fn()
}

// CallbackPanics returns how many caller callbacks have panicked.
func (m *Manager) CallbackPanics() uint64 {
	return m.panics.Load()
}

// Get returns a copy of the tracked toast with the given id.
func (m *Manager) Get(id string) (model.Toast, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.lookupLocked(id); t != nil {
		return t.Clone(), true
	}
	return model.Toast{}, false
}

// IsOpen reports whether id is tracked and not closed.
func (m *Manager) IsOpen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.lookupLocked(id)
	return t != nil && t.Open
}

// Pending returns the number of queued mutations awaiting a frame.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Snapshot returns a copy of the committed state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:  m.version,
		History:  make([]model.Toast, len(m.history)),
		Unfolded: m.unfolded,
		Visible:  m.visible,
	}
	if t, ok := m.foreground.Get(); ok {
		s.Foreground = Occupied(t.Clone())
	}
	for i, t := range m.history {
		s.History[i] = t.Clone()
	}
	return s
}

// Subscribe returns a channel carrying the latest snapshot after every frame that
// changed state. The current snapshot is delivered immediately. Slow readers only
// ever see the newest snapshot.
func (m *Manager) Subscribe() <-chan Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if m.closed {
		close(ch)
		return ch
	}
	ch <- m.snapshotLocked()
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Manager) Unsubscribe(ch <-chan Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = slices.Delete(m.subscribers, i, i+1)
			close(sub)
			return
		}
	}
}

func (m *Manager) publishLocked(s Snapshot) {
	for _, ch := range m.subscribers {
		select {
		case ch <- s:
			continue
		default:
		}
		// Replace the stale snapshot
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Observe registers fn to receive events after each frame. Events arrive in
// commit order across frames, one at a time, even with concurrent flushes.
// The returned function removes the observer.
func (m *Manager) Observe(fn Observer) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextObserver++
	id := m.nextObserver
	m.observers = append(m.observers, observerEntry{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.observers = slices.DeleteFunc(m.observers, func(e observerEntry) bool { return e.id == id })
	}
}

// Close drops pending mutations and closes all subscriber channels.
// Further mutations are ignored.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.pending = nil
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
	return nil
}
