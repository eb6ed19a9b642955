package stack

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager returns a manager flushed by hand with ids x1, x2, ...
func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	var n int
	cfg.NewID = func() string {
		n++
		return fmt.Sprintf("x%d", n)
	}
	cfg.Now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	m := NewManager(cfg, quietLogger())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func foreground(t *testing.T, s Snapshot) model.Toast {
	t.Helper()
	fg, ok := s.Foreground.Get()
	require.True(t, ok, "foreground should be occupied")
	return fg
}

func historyContent(s Snapshot) []any {
	out := make([]any, 0, len(s.History))
	for _, t := range s.History {
		out = append(out, t.Content)
	}
	return out
}

// assertInvariants checks the structural invariants that must hold in every state.
func assertInvariants(t *testing.T, s Snapshot) {
	t.Helper()
	seen := make(map[string]bool)
	for _, id := range s.IDs() {
		assert.False(t, seen[id], "id %s tracked twice", id)
		seen[id] = true
	}
	if s.Empty() {
		assert.False(t, s.Unfolded, "empty stack must be folded")
	}
}

func TestShowIsDeferredUntilFlush(t *testing.T) {
	m := newTestManager(t, Config{})

	id := m.Show("A", nil)

	assert.Equal(t, "x1", id)
	assert.Equal(t, 1, m.Pending())
	assert.False(t, m.IsOpen(id))
	_, ok := m.Get(id)
	assert.False(t, ok)

	m.Flush()

	assert.Equal(t, 0, m.Pending())
	assert.True(t, m.IsOpen(id))
	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, "A", got.Content)
}

func TestShowTwoToasts(t *testing.T) {
	m := newTestManager(t, Config{})

	x1 := m.Show("A", nil)
	x2 := m.Show("B", nil)
	require.NotEqual(t, x1, x2)

	m.Flush()
	s := m.Snapshot()

	assert.Equal(t, "B", foreground(t, s).Content)
	assert.Equal(t, []any{"A"}, historyContent(s))
	assertInvariants(t, s)
}

func TestSingleForegroundAndHistoryOrdering(t *testing.T) {
	m := newTestManager(t, Config{})

	m.Show("A", nil)
	m.Flush()
	m.Show("B", nil)
	m.Flush()
	m.Show("C", nil)
	m.Flush()

	s := m.Snapshot()
	assert.Equal(t, "C", foreground(t, s).Content)
	assert.Equal(t, []any{"B", "A"}, historyContent(s))
	assertInvariants(t, s)
}

func TestShowBatchedInOneFrame(t *testing.T) {
	m := newTestManager(t, Config{})

	for _, c := range []string{"A", "B", "C", "D"} {
		m.Show(c, nil)
	}
	m.Flush()

	s := m.Snapshot()
	assert.Equal(t, "D", foreground(t, s).Content)
	assert.Equal(t, []any{"C", "B", "A"}, historyContent(s))
	assert.Equal(t, uint64(1), s.Version, "one frame, one version")
}

func TestShowWithExplicitID(t *testing.T) {
	m := newTestManager(t, Config{})

	id := m.Show("A", &model.Options{ID: "mine"})
	m.Flush()

	assert.Equal(t, "mine", id)
	got, ok := m.Get("mine")
	require.True(t, ok)
	assert.Equal(t, "mine", got.Options.ID)
}

func TestShowCopiesOptions(t *testing.T) {
	m := newTestManager(t, Config{})
	opts := &model.Options{Hints: map[string]any{"k": "v"}}

	id := m.Show("A", opts)
	opts.Hints["k"] = "mutated"
	m.Flush()

	got, _ := m.Get(id)
	assert.Equal(t, "v", got.Options.Hint("k"))
}

func TestShowSameIDSupersedes(t *testing.T) {
	var closed []string
	m := newTestManager(t, Config{})

	m.Show("A", &model.Options{ID: "dup", OnClose: func() { closed = append(closed, "A") }})
	m.Flush()
	m.Show("B", nil)
	m.Flush()
	m.Show("A2", &model.Options{ID: "dup"})
	m.Flush()

	s := m.Snapshot()
	assert.Equal(t, "A2", foreground(t, s).Content)
	assert.Equal(t, []any{"B"}, historyContent(s))
	assert.Equal(t, []string{"A"}, closed)
	assertInvariants(t, s)
}

func TestShowSameIDSupersedesForeground(t *testing.T) {
	m := newTestManager(t, Config{})

	m.Show("A", &model.Options{ID: "dup"})
	m.Show("A2", &model.Options{ID: "dup"})
	m.Flush()

	s := m.Snapshot()
	assert.Equal(t, "A2", foreground(t, s).Content)
	assert.Empty(t, s.History)
}

func TestStaleCallbacksDoNotTouchSupersedingToast(t *testing.T) {
	m := newTestManager(t, Config{})

	m.Show("old", &model.Options{ID: "dup"})
	m.Flush()
	old, _ := m.Get("dup")

	m.Show("new", &model.Options{ID: "dup"})
	m.Flush()

	old.OnHide()
	old.OnDestroy()
	m.Flush()

	got, ok := m.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "new", got.Content)
	assert.True(t, got.Open)
}

func TestUpdateEmptyIsNoop(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", &model.Options{Icon: model.Ptr("info")})
	m.Flush()
	before := m.Snapshot()

	m.Update(id, nil, &model.Options{})
	m.Flush()

	after := m.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	got, _ := m.Get(id)
	assert.Equal(t, "A", got.Content)
	assert.Equal(t, "info", got.Options.IconOr(""))
}

func TestUpdatePartialMerge(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", &model.Options{
		Icon:      model.Ptr("info"),
		Placement: model.Ptr(model.PlacementTop),
		Type:      model.Ptr(model.TypeSuccess),
	})
	m.Flush()

	m.Update(id, nil, &model.Options{Icon: model.Ptr("warn")})
	m.Flush()

	got, _ := m.Get(id)
	assert.Equal(t, "A", got.Content)
	assert.Equal(t, "warn", got.Options.IconOr(""))
	assert.Equal(t, model.PlacementTop, got.Options.PlacementOr(model.PlacementBottom))
	assert.Equal(t, model.TypeSuccess, got.Options.TypeOr(""))
	assert.True(t, got.Open)
}

func TestUpdateContentOnly(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", &model.Options{Icon: model.Ptr("info")})
	m.Flush()

	m.Update(id, "A!", nil)
	m.Flush()

	got, _ := m.Get(id)
	assert.Equal(t, "A!", got.Content)
	assert.Equal(t, "info", got.Options.IconOr(""))
}

func TestUpdateHistoryEntry(t *testing.T) {
	m := newTestManager(t, Config{})
	x1 := m.Show("A", nil)
	m.Show("B", nil)
	m.Flush()

	m.Update(x1, "A updated", nil)
	m.Flush()

	s := m.Snapshot()
	assert.Equal(t, "B", foreground(t, s).Content)
	assert.Equal(t, []any{"A updated"}, historyContent(s))
}

func TestUpdateMissingIsNoop(t *testing.T) {
	m := newTestManager(t, Config{})
	m.Show("A", nil)
	m.Flush()
	before := m.Snapshot()

	m.Update("missing-id", "C", &model.Options{})
	m.Flush()

	after := m.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.IDs(), after.IDs())
	assert.Equal(t, "A", foreground(t, after).Content)
	_, ok := m.Get("missing-id")
	assert.False(t, ok)
}

func TestShowThenUpdateBeforeFlushAppliesInOrder(t *testing.T) {
	m := newTestManager(t, Config{})

	id := m.Show("A", nil)
	m.Update(id, "A updated", &model.Options{Icon: model.Ptr("star")})
	m.Hide(id)
	m.Flush()

	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, "A updated", got.Content)
	assert.Equal(t, "star", got.Options.IconOr(""))
	assert.False(t, got.Open)
}

func TestUpdateBeforeShowIsNoop(t *testing.T) {
	m := newTestManager(t, Config{})

	m.Update("x1", "early", nil)
	id := m.Show("A", nil)
	m.Flush()

	got, _ := m.Get(id)
	assert.Equal(t, "A", got.Content)
}

func TestHideKeepsToastUntilDestroyed(t *testing.T) {
	m := newTestManager(t, Config{})
	x1 := m.Show("A", nil)
	m.Show("B", nil)
	m.Flush()

	m.Hide(x1)
	m.Flush()

	s := m.Snapshot()
	require.Len(t, s.History, 1)
	assert.False(t, s.History[0].Open)
	assert.False(t, m.IsOpen(x1))

	s.History[0].OnDestroy()
	m.Flush()

	s = m.Snapshot()
	assert.Empty(t, s.History)
	_, ok := m.Get(x1)
	assert.False(t, ok)
}

func TestHideTwiceIsNoop(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", nil)
	m.Flush()
	m.Hide(id)
	m.Flush()
	v := m.Snapshot().Version

	m.Hide(id)
	m.Hide("unknown")
	m.Flush()

	assert.Equal(t, v, m.Snapshot().Version)
}

func TestBoundOnHide(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", nil)
	m.Flush()

	fg := foreground(t, m.Snapshot())
	fg.OnHide()
	m.Flush()

	assert.False(t, m.IsOpen(id))
}

func TestDestroyForegroundEmptiesSlot(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", nil)
	m.Flush()

	m.Destroy(id)
	m.Flush()

	s := m.Snapshot()
	assert.True(t, s.Foreground.Empty())
	assert.True(t, s.Empty())
}

func TestDestroyFiresOnCloseExactlyOnce(t *testing.T) {
	calls := 0
	m := newTestManager(t, Config{})
	id := m.Show("A", &model.Options{OnClose: func() { calls++ }})
	m.Flush()

	fg := foreground(t, m.Snapshot())
	fg.OnDestroy()
	fg.OnDestroy()
	m.Destroy(id)
	m.Flush()

	assert.Equal(t, 1, calls)
}

func TestDestroyForegroundDoesNotPromoteHistory(t *testing.T) {
	m := newTestManager(t, Config{})
	m.Show("A", nil)
	x2 := m.Show("B", nil)
	m.Flush()

	m.Destroy(x2)
	m.Flush()

	s := m.Snapshot()
	assert.True(t, s.Foreground.Empty())
	assert.Equal(t, []any{"A"}, historyContent(s))
	p, ok := s.Prominent()
	require.True(t, ok)
	assert.Equal(t, "A", p.Content)

	// The next show goes straight to the empty foreground
	m.Show("C", nil)
	m.Flush()
	s = m.Snapshot()
	assert.Equal(t, "C", foreground(t, s).Content)
	assert.Equal(t, []any{"A"}, historyContent(s))
}

func TestUnfoldAutoCollapse(t *testing.T) {
	m := newTestManager(t, Config{})
	x1 := m.Show("A", nil)
	x2 := m.Show("B", nil)
	m.SwitchUnfolded()
	m.Flush()
	require.True(t, m.Snapshot().Unfolded)

	m.Destroy(x2)
	m.Flush()
	assert.True(t, m.Snapshot().Unfolded, "still one toast left")

	m.Destroy(x1)
	m.Flush()
	assert.False(t, m.Snapshot().Unfolded)
}

func TestUnfoldCollapseWithinFrame(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", nil)
	m.Flush()

	ch := m.Subscribe()
	<-ch

	m.SetUnfolded(true)
	m.Destroy(id)
	m.Flush()

	s := <-ch
	assert.True(t, s.Empty())
	assert.False(t, s.Unfolded)
}

func TestCannotUnfoldEmptyStack(t *testing.T) {
	m := newTestManager(t, Config{})

	m.SwitchUnfolded()
	m.SetUnfolded(true)
	m.Flush()

	s := m.Snapshot()
	assert.False(t, s.Unfolded)
	assert.Equal(t, uint64(0), s.Version)
}

func TestSwitchUnfoldedFlips(t *testing.T) {
	m := newTestManager(t, Config{})
	m.Show("A", nil)
	m.SwitchUnfolded()
	m.Flush()
	assert.True(t, m.Snapshot().Unfolded)

	m.SwitchUnfolded()
	m.Flush()
	assert.False(t, m.Snapshot().Unfolded)
}

func TestToggleVisible(t *testing.T) {
	m := newTestManager(t, Config{})
	assert.True(t, m.Snapshot().Visible)

	m.Toggle(false)
	m.Flush()
	assert.False(t, m.Snapshot().Visible)

	v := m.Snapshot().Version
	m.Toggle(false)
	m.Flush()
	assert.Equal(t, v, m.Snapshot().Version)

	m.Toggle(true)
	m.Flush()
	assert.True(t, m.Snapshot().Visible)
}

func TestHideAllDeferred(t *testing.T) {
	m := newTestManager(t, Config{})
	m.Show("A", nil)
	m.Show("B", nil)
	m.Show("C", nil)
	m.SetUnfolded(true)
	m.Flush()

	m.HideAll()
	m.Flush()

	s := m.Snapshot()
	assert.False(t, s.Unfolded)
	assert.Equal(t, 3, s.Len(), "lists are not cleared until destroy")
	for _, tt := range s.Toasts() {
		assert.False(t, tt.Open)
	}

	// Renderer finishes exit transitions
	for _, tt := range s.Toasts() {
		tt.OnDestroy()
	}
	m.Flush()

	s = m.Snapshot()
	assert.True(t, s.Foreground.Empty())
	assert.Empty(t, s.History)
}

func TestHideAllImmediate(t *testing.T) {
	var closed []string
	m := newTestManager(t, Config{HideAll: HideAllImmediate})
	for _, c := range []string{"A", "B"} {
		c := c
		m.Show(c, &model.Options{OnClose: func() { closed = append(closed, c) }})
	}
	m.SetUnfolded(true)
	m.Flush()

	m.HideAll()
	m.Flush()

	s := m.Snapshot()
	assert.True(t, s.Empty())
	assert.False(t, s.Unfolded)
	assert.ElementsMatch(t, []string{"A", "B"}, closed)
}

func TestHistoryLimitEvictsOldest(t *testing.T) {
	var closed []string
	m := newTestManager(t, Config{HistoryLimit: 2})
	for _, c := range []string{"A", "B", "C", "D", "E"} {
		c := c
		m.Show(c, &model.Options{OnClose: func() { closed = append(closed, c) }})
	}
	m.Flush()

	s := m.Snapshot()
	assert.Equal(t, "E", foreground(t, s).Content)
	assert.Equal(t, []any{"D", "C"}, historyContent(s))
	assert.Equal(t, []string{"A", "B"}, closed)
	assertInvariants(t, s)
}

func TestReconfigureHistoryLimit(t *testing.T) {
	m := newTestManager(t, Config{})
	for _, c := range []string{"A", "B", "C", "D"} {
		m.Show(c, nil)
	}
	m.Flush()

	m.Reconfigure(HideAllDeferred, 1)
	m.Show("E", nil)
	m.Flush()

	s := m.Snapshot()
	assert.Equal(t, []any{"D"}, historyContent(s))
}

func TestCallbackPanicIsIsolated(t *testing.T) {
	secondCalled := false
	m := newTestManager(t, Config{})
	x1 := m.Show("A", &model.Options{OnClose: func() { panic("boom") }})
	x2 := m.Show("B", &model.Options{OnClose: func() { secondCalled = true }})
	m.Observe(func(Event) { panic("observer boom") })
	m.Flush()

	m.Destroy(x1)
	m.Destroy(x2)
	m.Flush()

	assert.True(t, secondCalled)
	assert.True(t, m.Snapshot().Empty())
	assert.GreaterOrEqual(t, m.CallbackPanics(), uint64(1))

	// Manager keeps working
	id := m.Show("C", nil)
	m.Flush()
	assert.True(t, m.IsOpen(id))
}

func TestObserverEvents(t *testing.T) {
	m := newTestManager(t, Config{})
	var kinds []EventKind
	remove := m.Observe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	id := m.Show("A", nil)
	m.Update(id, "A2", nil)
	m.Hide(id)
	m.Destroy(id)
	m.Flush()

	assert.Equal(t, []EventKind{EventShown, EventUpdated, EventHidden, EventDestroyed}, kinds)

	remove()
	m.Show("B", nil)
	m.Flush()
	assert.Len(t, kinds, 4)
}

func TestObserverEventsKeepCommitOrderAcrossFlushes(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", nil)
	m.Flush()

	release := make(chan struct{})
	var mu sync.Mutex
	var kinds []EventKind
	m.Observe(func(ev Event) {
		if ev.Kind == EventHidden {
			<-release
		}
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	m.Hide(id)
	done := make(chan struct{})
	go func() {
		m.Flush()
		close(done)
	}()
	require.Eventually(t, func() bool { return !m.IsOpen(id) }, time.Second, time.Millisecond)

	// Commits while the hide frame is still being delivered
	m.Destroy(id)
	m.Flush()
	assert.True(t, m.Snapshot().Empty())

	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{EventHidden, EventDestroyed}, kinds)
}

func TestCallbacksMayReenterManager(t *testing.T) {
	m := newTestManager(t, Config{Scheduler: Immediate})
	m.Observe(func(ev Event) {
		if ev.Kind == EventHidden {
			m.Destroy(ev.ID)
		}
	})

	id := m.Show("A", nil)
	m.Hide(id)

	assert.True(t, m.Snapshot().Empty())
}

func TestImmediateScheduler(t *testing.T) {
	m := newTestManager(t, Config{Scheduler: Immediate})

	id := m.Show("A", nil)

	assert.True(t, m.IsOpen(id))
	assert.Equal(t, 0, m.Pending())
}

func TestSchedulerCalledOncePerFrame(t *testing.T) {
	var requests int
	var flush func()
	sched := SchedulerFunc(func(f func()) {
		requests++
		flush = f
	})
	m := newTestManager(t, Config{Scheduler: sched})

	m.Show("A", nil)
	m.Show("B", nil)
	m.Hide("x1")
	assert.Equal(t, 1, requests)

	flush()
	assert.Equal(t, "B", foreground(t, m.Snapshot()).Content)

	m.Show("C", nil)
	assert.Equal(t, 2, requests)
}

func TestSetSchedulerFlushesPending(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", nil)

	m.SetScheduler(Immediate)

	assert.True(t, m.IsOpen(id))
}

func TestSubscribeLatestWins(t *testing.T) {
	m := newTestManager(t, Config{})
	ch := m.Subscribe()

	initial := <-ch
	assert.True(t, initial.Empty())

	m.Show("A", nil)
	m.Flush()
	m.Show("B", nil)
	m.Flush()
	m.Show("C", nil)
	m.Flush()

	s := <-ch
	assert.Equal(t, uint64(3), s.Version)
	assert.Equal(t, "C", foreground(t, s).Content)

	select {
	case <-ch:
		t.Fatal("only the latest snapshot should be buffered")
	default:
	}
}

func TestSubscribeNoPublishWithoutChange(t *testing.T) {
	m := newTestManager(t, Config{})
	ch := m.Subscribe()
	<-ch

	m.Hide("nope")
	m.Flush()

	select {
	case <-ch:
		t.Fatal("unexpected snapshot")
	default:
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	m := newTestManager(t, Config{})
	ch1 := m.Subscribe()
	ch2 := m.Subscribe()

	m.Unsubscribe(ch1)
	<-ch1 // drains the initial snapshot
	_, ok := <-ch1
	assert.False(t, ok)

	require.NoError(t, m.Close())
	<-ch2
	_, ok = <-ch2
	assert.False(t, ok)

	// Mutations after close are dropped
	m.Show("A", nil)
	assert.Equal(t, 0, m.Pending())
	require.NoError(t, m.Close())
}

func TestSnapshotIsACopy(t *testing.T) {
	m := newTestManager(t, Config{})
	id := m.Show("A", &model.Options{Hints: map[string]any{"k": "v"}})
	m.Show("B", nil)
	m.Flush()

	s := m.Snapshot()
	s.History[0].Content = "changed"
	s.History[0].Options.Hints["k"] = "changed"

	got, _ := m.Get(id)
	assert.Equal(t, "A", got.Content)
	assert.Equal(t, "v", got.Options.Hint("k"))
}

func TestConcurrentCallers(t *testing.T) {
	m := NewManager(Config{Scheduler: Immediate}, quietLogger())
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := m.Show(j, nil)
				m.Update(id, j+1, nil)
				if j%2 == 0 {
					m.Hide(id)
					m.Destroy(id)
				}
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, 8*25, s.Len())
	assertInvariants(t, s)
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	m := newTestManager(t, Config{HistoryLimit: 5})
	ops := []func(i int){
		func(i int) { m.Show(i, nil) },
		func(i int) { m.Show(i, &model.Options{ID: fmt.Sprintf("x%d", i%4+1)}) },
		func(i int) { m.Hide(fmt.Sprintf("x%d", i%7+1)) },
		func(i int) { m.Destroy(fmt.Sprintf("x%d", i%5+1)) },
		func(int) { m.SwitchUnfolded() },
		func(int) { m.HideAll() },
		func(i int) { m.Update(fmt.Sprintf("x%d", i%3+1), i, nil) },
	}

	for i := 0; i < 300; i++ {
		ops[(i*7+i/3)%len(ops)](i)
		if i%3 == 0 {
			m.Flush()
			assertInvariants(t, m.Snapshot())
		}
	}
	m.Flush()
	assertInvariants(t, m.Snapshot())
}

func TestParseHideAllMode(t *testing.T) {
	mode, err := ParseHideAllMode("")
	require.NoError(t, err)
	assert.Equal(t, HideAllDeferred, mode)

	mode, err = ParseHideAllMode("Immediate")
	require.NoError(t, err)
	assert.Equal(t, HideAllImmediate, mode)

	_, err = ParseHideAllMode("later")
	assert.ErrorIs(t, err, ErrInvalidHideAllMode)
}
