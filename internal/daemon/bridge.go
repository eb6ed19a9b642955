package daemon

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Signaler emits the notification signals back to D-Bus clients.
type Signaler interface {
	NotificationClosed(id uint32, reason dbus.CloseReason) error
	ActionInvoked(id uint32, actionKey string) error
}

// Bridge maps org.freedesktop.Notifications calls onto the stack and reports
// toast lifecycle back as D-Bus signals. It implements dbus.Handler.
type Bridge struct {
	stack    *stack.Manager
	expirer  *stack.Expirer
	registry *Registry
	signals  Signaler
	logger   *slog.Logger

	mu     sync.RWMutex
	cfg    *config.DaemonConfig
	remove func()
}

// NewBridge creates a Bridge. signals may be nil when mirroring another daemon.
func NewBridge(m *stack.Manager, expirer *stack.Expirer, signals Signaler, cfg *config.DaemonConfig, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	b := &Bridge{
		stack:    m,
		expirer:  expirer,
		registry: NewRegistry(),
		signals:  signals,
		logger:   logger,
		cfg:      cfg,
	}
	expirer.OnExpire(func(id string) {
		b.registry.SetReason(id, dbus.CloseReasonExpired)
	})
	b.remove = m.Observe(b.observe)
	return b
}

// observe marks toasts hidden by anything other than the bridge as dismissed.
func (b *Bridge) observe(ev stack.Event) {
	if ev.Kind == stack.EventHidden {
		b.registry.SetReason(ev.ID, dbus.CloseReasonDismissed)
	}
}

// Stop detaches the bridge from the stack.
func (b *Bridge) Stop() {
	b.remove()
}

// Registry returns the id mapping used by the bridge.
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// Reconfigure swaps the config used for timeouts.
func (b *Bridge) Reconfigure(cfg *config.DaemonConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
}

func (b *Bridge) config() *config.DaemonConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// Notify shows a new toast, or updates the live toast named by replaces_id or by
// a shared stack tag.
func (b *Bridge) Notify(n *dbus.Notification, id uint32) {
	toastID, live := "", false
	if n.ReplacesID != 0 {
		toastID, live = b.registry.ToastID(n.ReplacesID)
	}
	if !live {
		toastID, live = b.registry.ToastIDByTag(n.StackTag())
	}

	if live {
		b.logger.Debug("replacing toast", "dbus_id", id, "toast_id", toastID)
		b.registry.Register(toastID, id, n.StackTag())
		b.stack.Update(toastID, n.Message(), b.options(n, id, toastID))
	} else {
		toastID = model.NewID()
		opts := b.options(n, id, toastID)
		opts.ID = toastID
		opts.OnClose = func() { b.closed(toastID) }
		b.registry.Register(toastID, id, n.StackTag())
		b.stack.Show(n.Message(), opts)
	}

	b.expirer.After(toastID, b.timeout(n))
}

// Close hides the toast raised for a D-Bus id.
func (b *Bridge) Close(id uint32) {
	toastID, ok := b.registry.ToastID(id)
	if !ok {
		b.logger.Debug("CloseNotification for unknown id", "dbus_id", id)
		return
	}
	b.registry.SetReason(toastID, dbus.CloseReasonClosed)
	b.stack.Hide(toastID)
}

// options builds toast options for a notification. OnClose is left unset so
// updates keep the close callback bound at show time.
func (b *Bridge) options(n *dbus.Notification, dbusID uint32, toastID string) *model.Options {
	urgency := n.Urgency()
	hints := n.PlainHints()
	hints["dbus_id"] = strconv.FormatUint(uint64(dbusID), 10)
	if n.AppName != "" {
		hints["app_name"] = n.AppName
	}

	opts := &model.Options{
		Urgency: model.Ptr(urgency),
		Type:    model.Ptr(typeForUrgency(urgency)),
		Hints:   hints,
	}
	if n.AppIcon != "" {
		opts.Icon = model.Ptr(n.AppIcon)
	}
	if d := b.timeout(n); d > 0 {
		opts.Duration = model.Ptr(d)
	}
	if n.HasAction(dbus.DefaultActionKey) {
		resident := n.Resident()
		opts.OnPress = func() { b.invoke(toastID, dbus.DefaultActionKey, resident) }
	}
	return opts
}

// timeout resolves expire_timeout: positive values are milliseconds, zero never
// expires, and -1 defers to the per-urgency config.
func (b *Bridge) timeout(n *dbus.Notification) time.Duration {
	switch {
	case n.ExpireTimeout > 0:
		return time.Duration(n.ExpireTimeout) * time.Millisecond
	case n.ExpireTimeout == 0:
		return 0
	default:
		return b.config().TimeoutForUrgency(n.Urgency())
	}
}

func (b *Bridge) invoke(toastID, actionKey string, resident bool) {
	dbusID, ok := b.registry.DBusID(toastID)
	if !ok {
		return
	}
	if b.signals != nil {
		if err := b.signals.ActionInvoked(dbusID, actionKey); err != nil {
			b.logger.Warn("failed to emit ActionInvoked", "dbus_id", dbusID, "error", err)
		}
	}
	if !resident {
		b.registry.SetReason(toastID, dbus.CloseReasonDismissed)
		b.stack.Hide(toastID)
	}
}

// closed runs when the stack destroys a bridged toast.
func (b *Bridge) closed(toastID string) {
	entry, ok := b.registry.Remove(toastID)
	if !ok {
		return
	}
	b.expirer.Cancel(toastID)
	if b.signals == nil {
		return
	}
	if err := b.signals.NotificationClosed(entry.DBusID, entry.Reason); err != nil {
		b.logger.Warn("failed to emit NotificationClosed", "dbus_id", entry.DBusID, "error", err)
	}
}

func typeForUrgency(u model.Urgency) string {
	if u == model.UrgencyCritical {
		return model.TypeDanger
	}
	return model.TypeNormal
}
