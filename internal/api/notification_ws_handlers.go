package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the frontend domains are settled
		return true
	},
}

// NotificationWSHandlers holds dependencies for the live notification
// feed. Each stored notification is pushed to the owning user's open
// sessions as a JSON text frame.
type NotificationWSHandlers struct {
	broadcaster *messaging.Broadcaster
}

// NewNotificationWSHandlers creates a new NotificationWSHandlers instance.
func NewNotificationWSHandlers(broadcaster *messaging.Broadcaster) *NotificationWSHandlers {
	return &NotificationWSHandlers{broadcaster: broadcaster}
}

// Subscribe handles GET /ws/notifications - upgrades the connection and
// streams the authenticated user's notifications until disconnect.
func (h *NotificationWSHandlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"user_id", userID,
		)
		return
	}

	h.broadcaster.Subscribe(userID, conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to notifications",
		"user_id", userID,
		"request_id", requestID,
	)

	defer func() {
		h.broadcaster.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed",
			"user_id", userID,
			"request_id", requestID,
		)
	}()

	// Clients don't send anything; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"user_id", userID,
				)
			}
			break
		}
	}
}
