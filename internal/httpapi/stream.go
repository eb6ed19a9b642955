package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleStream upgrades to a websocket and writes a snapshot JSON frame after
// every frame that changed the stack, starting with the current state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	snapshots := s.stack.Subscribe()
	defer s.stack.Unsubscribe(snapshots)

	// Drain client frames so control messages are handled and disconnects noticed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.ping)
	defer ping.Stop()

	s.logger.Debug("stream client connected", "remote", r.RemoteAddr)
	defer s.logger.Debug("stream client disconnected", "remote", r.RemoteAddr)

	for {
		select {
		case <-gone:
			return
		case <-s.closing:
			s.closeStream(conn, websocket.CloseGoingAway, "server shutting down")
			return
		case snap, ok := <-snapshots:
			if !ok {
				s.closeStream(conn, websocket.CloseGoingAway, "stack closed")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("stream write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
