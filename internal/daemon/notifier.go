package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// NotificationLevel indicates the severity of an internal toast.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warnings (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for errors (critical urgency).
	NotificationLevelError
)

// DefaultInternalTimeout is how long internal toasts stay open.
const DefaultInternalTimeout = 5 * time.Second

// Notifier raises toasts about toastd's own events, rate limited per key.
// Each key reuses one toast id, so a repeated event replaces its earlier toast.
type Notifier struct {
	mu      sync.Mutex
	stack   *stack.Manager
	expirer *stack.Expirer
	logger  *slog.Logger

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	timeout        time.Duration
	enabled        bool
	now            func() time.Time
}

// NewNotifier creates a Notifier that shows toasts on m and expires them through e.
func NewNotifier(m *stack.Manager, e *stack.Expirer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		stack:          m,
		expirer:        e,
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		timeout:        DefaultInternalTimeout,
		enabled:        true,
		now:            time.Now,
	}
}

// SetEnabled enables or disables internal toasts.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between toasts with the same key.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify raises an internal toast unless the key fired within the minimum interval.
// It returns the toast id, or "" when suppressed.
func (n *Notifier) Notify(key, summary, body string, level NotificationLevel) string {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return ""
	}
	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal toast rate-limited", "key", key, "summary", summary)
		return ""
	}
	n.lastNotifyTime[key] = now
	timeout := n.timeout
	n.mu.Unlock()

	urgency, icon := levelStyle(level)
	id := n.stack.Show(model.Message{AppName: "toastd", Summary: summary, Body: body}, &model.Options{
		ID:       "toastd-" + key,
		Urgency:  model.Ptr(urgency),
		Icon:     model.Ptr(icon),
		Type:     model.Ptr(typeForUrgency(urgency)),
		Duration: model.Ptr(timeout),
		Hints:    map[string]any{"category": "internal", "app_name": "toastd", "suppress-sound": true},
	})
	if n.expirer != nil {
		n.expirer.After(id, timeout)
	}

	n.logger.Debug("internal toast", "key", key, "summary", summary, "level", level)
	return id
}

func levelStyle(level NotificationLevel) (model.Urgency, string) {
	switch level {
	case NotificationLevelError:
		return model.UrgencyCritical, "dialog-error"
	case NotificationLevelWarning:
		return model.UrgencyNormal, "dialog-warning"
	default:
		return model.UrgencyLow, "dialog-information"
	}
}

// NotifyConfigReloaded reports a successful config reload.
func (n *Notifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration Reloaded",
		"toastd configuration has been successfully reloaded.", NotificationLevelInfo)
}

// NotifyConfigError reports a config file that failed to load.
func (n *Notifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error",
		"Failed to reload configuration: "+err.Error(), NotificationLevelWarning)
}

// NotifyStartup reports that the daemon is running.
func (n *Notifier) NotifyStartup(version string) {
	n.Notify("startup", "toastd Started",
		"Notification daemon "+version+" is now running.", NotificationLevelInfo)
}

// NotifyAudioError reports a failed sound.
func (n *Notifier) NotifyAudioError(err error) {
	n.Notify("audio-error", "Audio Error",
		"Failed to play notification sound: "+err.Error(), NotificationLevelWarning)
}
