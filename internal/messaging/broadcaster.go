package messaging

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// session wraps a WebSocket connection with a write mutex. Gorilla
// connections support at most one concurrent writer, and overlapping
// Broadcast calls for the same user would otherwise race.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcaster manages WebSocket connections and pushes notifications to
// the owning user's open sessions.
type Broadcaster struct {
	mu       sync.RWMutex
	sessions map[string]map[*websocket.Conn]*session // userID -> sessions
}

// NewBroadcaster creates a new notification broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		sessions: make(map[string]map[*websocket.Conn]*session),
	}
}

// Subscribe registers a WebSocket connection for a user.
func (b *Broadcaster) Subscribe(userID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sessions[userID] == nil {
		b.sessions[userID] = make(map[*websocket.Conn]*session)
	}
	b.sessions[userID][conn] = &session{conn: conn}
}

// Unsubscribe removes a WebSocket connection from all users.
func (b *Broadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for userID, sessions := range b.sessions {
		delete(sessions, conn)
		if len(sessions) == 0 {
			delete(b.sessions, userID)
		}
	}
}

// Broadcast sends a notification to all of the user's open sessions.
// The registry lock is dropped before writing so a slow client cannot
// stall subscribes; each session serializes its own writes.
func (b *Broadcaster) Broadcast(userID string, notif *Notification) {
	b.mu.RLock()
	targets := make([]*session, 0, len(b.sessions[userID]))
	for _, s := range b.sessions[userID] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(notif)
	if err != nil {
		slog.Error("failed to marshal notification", "error", err)
		return
	}

	for _, s := range targets {
		if err := s.write(data); err != nil {
			slog.Warn("failed to push notification to websocket client",
				"error", err,
				"user_id", userID,
			)
			// Connection will be cleaned up when the client disconnects
		}
	}
}

// ConnectionCount returns the number of open sessions for a user.
func (b *Broadcaster) ConnectionCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if sessions, exists := b.sessions[userID]; exists {
		return len(sessions)
	}
	return 0
}
