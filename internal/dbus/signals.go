package dbus

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when emitting before Start.
var ErrNotConnected = errors.New("not connected to D-Bus")

func (s *Server) emit(member string, args ...any) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.Emit(DBusPath, DBusInterface+"."+member, args...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", member, err)
	}
	return nil
}

// NotificationClosed emits the NotificationClosed signal.
func (s *Server) NotificationClosed(id uint32, reason CloseReason) error {
	if err := s.emit("NotificationClosed", id, uint32(reason)); err != nil {
		return err
	}
	s.logger.Debug("emitted NotificationClosed signal", "id", id, "reason", reason.String())
	return nil
}

// ActionInvoked emits the ActionInvoked signal.
func (s *Server) ActionInvoked(id uint32, actionKey string) error {
	if err := s.emit("ActionInvoked", id, actionKey); err != nil {
		return err
	}
	s.logger.Debug("emitted ActionInvoked signal", "id", id, "action_key", actionKey)
	return nil
}
