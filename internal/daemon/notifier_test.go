package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

func newTestNotifier(t *testing.T) (*Notifier, *stack.Manager, *time.Time) {
	t.Helper()
	m := stack.NewManager(stack.Config{Scheduler: stack.Immediate}, testLogger())
	e := stack.NewExpirer(m)
	t.Cleanup(e.Stop)

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotifier(m, e, testLogger())
	n.now = func() time.Time { return clock }
	return n, m, &clock
}

func TestNotifier_ShowsInternalToast(t *testing.T) {
	n, m, _ := newTestNotifier(t)

	id := n.Notify("startup", "toastd Started", "running", NotificationLevelError)

	assert.Equal(t, "toastd-startup", id)
	fg, ok := m.Snapshot().Foreground.Get()
	require.True(t, ok)
	assert.Equal(t, model.Message{AppName: "toastd", Summary: "toastd Started", Body: "running"}, fg.Content)
	assert.Equal(t, model.UrgencyCritical, fg.Options.UrgencyOr(model.UrgencyLow))
	assert.Equal(t, "dialog-error", fg.Options.IconOr(""))
	assert.Equal(t, model.TypeDanger, fg.Options.TypeOr(""))
	assert.Equal(t, "internal", fg.Options.Hint("category"))
	assert.Equal(t, DefaultInternalTimeout, *fg.Options.Duration)
}

func TestNotifier_RateLimitsPerKey(t *testing.T) {
	n, m, clock := newTestNotifier(t)

	assert.NotEmpty(t, n.Notify("config-error", "a", "", NotificationLevelWarning))
	assert.Empty(t, n.Notify("config-error", "b", "", NotificationLevelWarning))
	assert.NotEmpty(t, n.Notify("audio-error", "c", "", NotificationLevelWarning))

	*clock = clock.Add(6 * time.Second)
	assert.NotEmpty(t, n.Notify("config-error", "d", "", NotificationLevelWarning))

	// Same key replaces its earlier toast
	assert.Equal(t, 2, m.Snapshot().Len())
}

func TestNotifier_Disabled(t *testing.T) {
	n, m, _ := newTestNotifier(t)
	n.SetEnabled(false)

	assert.Empty(t, n.Notify("startup", "x", "", NotificationLevelInfo))
	assert.True(t, m.Snapshot().Empty())
}

func TestNotifier_MinInterval(t *testing.T) {
	n, _, _ := newTestNotifier(t)
	n.SetMinInterval(0)

	assert.NotEmpty(t, n.Notify("k", "a", "", NotificationLevelInfo))
	assert.NotEmpty(t, n.Notify("k", "b", "", NotificationLevelInfo))
}

func TestNotifier_Helpers(t *testing.T) {
	n, m, _ := newTestNotifier(t)

	n.NotifyConfigReloaded()
	n.NotifyConfigError(errors.New("bad toml"))
	n.NotifyStartup("v1.0.0")
	n.NotifyAudioError(errors.New("no device"))

	s := m.Snapshot()
	assert.ElementsMatch(t, []string{
		"toastd-config-reload", "toastd-config-error", "toastd-startup", "toastd-audio-error",
	}, s.IDs())

	errToast, ok := s.Find("toastd-config-error")
	require.True(t, ok)
	assert.Contains(t, errToast.Text(), "bad toml")
}

func TestLevelStyle(t *testing.T) {
	tests := []struct {
		level   NotificationLevel
		urgency model.Urgency
		icon    string
	}{
		{NotificationLevelInfo, model.UrgencyLow, "dialog-information"},
		{NotificationLevelWarning, model.UrgencyNormal, "dialog-warning"},
		{NotificationLevelError, model.UrgencyCritical, "dialog-error"},
	}
	for _, tt := range tests {
		u, icon := levelStyle(tt.level)
		assert.Equal(t, tt.urgency, u)
		assert.Equal(t, tt.icon, icon)
	}
}
