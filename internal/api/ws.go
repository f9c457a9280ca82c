package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Outbound frames must land within this window; a peer that stops
// draining its socket surfaces as a send error and gets evicted.
const wsWriteTimeout = 10 * time.Second

// wsSink adapts a websocket connection to the room's outbound contract.
// gorilla connections allow one concurrent writer, so sends serialize on a
// mutex.
type wsSink struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *wsSink) Send(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// roomWebsocket attaches a viewer to a room's sync stream. Every text
// message is a playback frame; the connection lives until the client goes
// away or a read fails.
func (s *Server) roomWebsocket(c *gin.Context) {
	id, _, ok := s.findRecord(c)
	if !ok {
		return
	}
	rm, ok := s.loadRoom(c, id)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "room_id", id.String(), "error", err)
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn, timeout: wsWriteTimeout}
	connID := rm.AddConnection(sink)
	defer rm.RemoveConnection(connID)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := rm.HandleFrame(connID, string(data)); err != nil {
			// Bad frames are the client's problem; the room is untouched.
			slog.Debug("rejected frame",
				"room_id", id.String(),
				"conn_id", connID,
				"error", err,
			)
			continue
		}
		if s.metrics != nil {
			s.metrics.FramesHandled.Inc()
		}
	}
}
