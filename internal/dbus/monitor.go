package dbus

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// ErrMalformedNotify is returned for Notify calls whose arguments don't match susssasa{sv}i.
var ErrMalformedNotify = errors.New("malformed Notify call")

// Monitor observes Notify calls addressed to another notification daemon.
// It lets toastd mirror notifications without owning the bus name.
type Monitor struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	handler Handler
}

// NewMonitor creates a Monitor delivering captured notifications to h.
// Close calls are never observed, so only h.Notify is used.
func NewMonitor(h Handler, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{logger: logger, handler: h}
}

// Start opens a private session bus connection and turns it into a monitor.
// Buses without BecomeMonitor fall back to an eavesdropping match rule.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	rule := "type='method_call',interface='" + DBusInterface + "',member='Notify'"
	err = conn.BusObject().Call("org.freedesktop.DBus.Monitoring.BecomeMonitor", 0, []string{rule}, uint32(0)).Err
	if err != nil {
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule+",eavesdrop='true'").Err; err != nil {
			conn.Close()
			return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
		}
	}

	ch := make(chan *dbus.Message, 100)
	conn.Eavesdrop(ch)
	go m.process(ch)

	m.logger.Info("D-Bus monitor started")
	return nil
}

func (m *Monitor) process(ch <-chan *dbus.Message) {
	for msg := range ch {
		if msg.Type != dbus.TypeMethodCall {
			continue
		}
		if iface, _ := msg.Headers[dbus.FieldInterface].Value().(string); iface != DBusInterface {
			continue
		}
		if member, _ := msg.Headers[dbus.FieldMember].Value().(string); member != "Notify" {
			continue
		}

		n, err := ParseNotifyCall(msg.Body)
		if err != nil {
			m.logger.Warn("ignoring Notify call", "error", err)
			continue
		}
		id := MonitorID(n)
		m.logger.Debug("captured notification", "app", n.AppName, "summary", n.Summary, "id", id)
		m.handler.Notify(n, id)
	}
}

// ParseNotifyCall decodes the body of a Notify method call.
func ParseNotifyCall(body []any) (*Notification, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: %d arguments", ErrMalformedNotify, len(body))
	}
	n := &Notification{}
	var ok bool
	if n.AppName, ok = body[0].(string); !ok {
		return nil, fmt.Errorf("%w: app_name", ErrMalformedNotify)
	}
	if n.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, fmt.Errorf("%w: replaces_id", ErrMalformedNotify)
	}
	if n.AppIcon, ok = body[2].(string); !ok {
		return nil, fmt.Errorf("%w: app_icon", ErrMalformedNotify)
	}
	if n.Summary, ok = body[3].(string); !ok {
		return nil, fmt.Errorf("%w: summary", ErrMalformedNotify)
	}
	if n.Body, ok = body[4].(string); !ok {
		return nil, fmt.Errorf("%w: body", ErrMalformedNotify)
	}
	n.Actions, _ = body[5].([]string)
	n.Hints, _ = body[6].(map[string]dbus.Variant)
	n.ExpireTimeout, _ = body[7].(int32)
	return n, nil
}

// MonitorID derives an id for a captured notification. The real id is only in the
// daemon's reply, which a monitor doesn't see, so replacements keep their id and
// everything else hashes app name and summary.
func MonitorID(n *Notification) uint32 {
	if n.ReplacesID != 0 {
		return n.ReplacesID
	}
	h := fnv.New32a()
	h.Write([]byte(n.AppName))
	h.Write([]byte{0})
	h.Write([]byte(n.Summary))
	if id := h.Sum32(); id != 0 {
		return id
	}
	return 1
}

// Stop closes the monitor connection.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
