package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
)

// NotificationListResponse is the response body for GET /notifications.
type NotificationListResponse struct {
	Notifications []*messaging.Notification `json:"notifications"`
	Total         int                       `json:"total"`
}

// MarkAllReadResponse is the response body for POST /notifications/read_all.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// NotificationHandlers holds dependencies for notification feed HTTP
// handlers. The feed is read-only; entries are created by the workflow
// dispatcher, never by clients.
type NotificationHandlers struct {
	notifications messaging.NotificationRepository
}

// NewNotificationHandlers creates a new NotificationHandlers instance.
func NewNotificationHandlers(notifications messaging.NotificationRepository) *NotificationHandlers {
	return &NotificationHandlers{notifications: notifications}
}

// List handles GET /notifications - newest first, ?unread=true to skip
// read entries, ?type= to filter by notification type.
func (h *NotificationHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifs, err := h.notifications.ListByUser(userID, unreadOnly)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list notifications", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list notifications")
		return
	}

	if notifType := r.URL.Query().Get("type"); notifType != "" {
		filtered := notifs[:0]
		for _, n := range notifs {
			if n.Type == notifType {
				filtered = append(filtered, n)
			}
		}
		notifs = filtered
	}

	writeJSON(w, r.Context(), http.StatusOK, NotificationListResponse{Notifications: notifs, Total: len(notifs)})
}

// MarkRead handles POST /notifications/{id}/read. Only the owner can
// mark a notification read; anything else is reported as not found.
func (h *NotificationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	if err := h.notifications.MarkRead(id, userID); err != nil {
		if errors.Is(err, messaging.ErrNotificationNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Notification not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to mark notification read", "error", err, "notification_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to mark notification read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /notifications/read_all.
func (h *NotificationHandlers) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllRead(userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to mark notifications read", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to mark notifications read")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// UnreadCount handles GET /notifications/unread_count.
func (h *NotificationHandlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to count unread notifications", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count unread notifications")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, UnreadCountResponse{UnreadCount: count})
}
