package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibegraph/vibegraph/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// handleOrchestratorStream streams orchestrator events as JSON frames.
func (s *Server) handleOrchestratorStream(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	sub := orch.Subscribe()

	frames := make(chan []byte, 16)
	go func() {
		defer close(frames)
		for event := range sub {
			b, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("marshal orchestrator event", "error", err)
				continue
			}
			frames <- b
		}
	}()

	done := s.drainReads(conn)
	s.writeFrames(conn, frames, done)
	orch.Unsubscribe(sub)
}

// handleDependenciesStream streams dependency change events.
func (s *Server) handleDependenciesStream(w http.ResponseWriter, r *http.Request) {
	s.handleRecordStream(w, r, events.TopicDependencies)
}

// handleGenresStream streams genre change events.
func (s *Server) handleGenresStream(w http.ResponseWriter, r *http.Request) {
	s.handleRecordStream(w, r, events.TopicGenres)
}

// handleRecordStream streams a project's record change events for one
// topic.
func (s *Server) handleRecordStream(w http.ResponseWriter, r *http.Request, topic events.Topic) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub := s.publisher.Subscribe(topic, projectID)

	frames := make(chan []byte, 16)
	go func() {
		defer close(frames)
		for event := range sub {
			b, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("marshal record event", "error", err)
				continue
			}
			frames <- b
		}
	}()

	done := s.drainReads(conn)
	s.writeFrames(conn, frames, done)
	s.publisher.Unsubscribe(topic, projectID, sub)
}

// drainReads consumes client frames without acting on them — they
// exist only for keep-alive — and signals when the peer goes away.
func (s *Server) drainReads(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}()

	return done
}

// writeFrames forwards frames to the peer with periodic pings until the
// source closes or the peer disconnects.
func (s *Server) writeFrames(conn *websocket.Conn, frames <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case frame, ok := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
