package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/validate"
	"github.com/festago/festago/internal/user"
)

// MessageRequest is the request body for POST /messages. An empty
// receiver_id makes the message an announcement, which only operators
// may send.
type MessageRequest struct {
	ReceiverID    string   `json:"receiver_id"`
	Subject       string   `json:"subject"`
	Content       string   `json:"content"`
	ApplicationID string   `json:"application_id"`
	Attachments   []string `json:"attachments"`
}

// MessageListResponse is the response body for GET /messages.
type MessageListResponse struct {
	Messages []*messaging.Message `json:"messages"`
	Total    int                  `json:"total"`
}

// UnreadCountResponse is the response body for unread-count endpoints.
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// MessageHandlers holds dependencies for direct message HTTP handlers.
type MessageHandlers struct {
	messages messaging.MessageRepository
	users    user.Repository
	notifier *messaging.Notifier
	adminKey string
}

// NewMessageHandlers creates a new MessageHandlers instance. adminKey
// gates announcement sends; empty disables them.
func NewMessageHandlers(messages messaging.MessageRepository, users user.Repository, notifier *messaging.Notifier, adminKey string) *MessageHandlers {
	return &MessageHandlers{messages: messages, users: users, notifier: notifier, adminKey: adminKey}
}

func (h *MessageHandlers) isOperator(r *http.Request) bool {
	if h.adminKey == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminKey)) == 1
}

// Send handles POST /messages.
func (h *MessageHandlers) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msgType := messaging.MessageDirect
	if req.ReceiverID == "" {
		// No receiver means an announcement to every inbox.
		if !h.isOperator(r) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
			WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only operators can send announcements")
			return
		}
		msgType = messaging.MessageAnnouncement
	} else {
		if req.ReceiverID == userID {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "You cannot message yourself")
			return
		}
		if _, err := h.users.GetByID(req.ReceiverID); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Receiver not found")
			return
		}
	}

	content, err := validate.MessageContent(req.Content)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Message content must be 1-2000 characters")
		return
	}

	for _, attachment := range req.Attachments {
		if _, err := validate.WebsiteURL(attachment); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Attachments must be HTTPS URLs")
			return
		}
	}

	m := &messaging.Message{
		Type:          msgType,
		SenderID:      userID,
		ReceiverID:    req.ReceiverID,
		ApplicationID: req.ApplicationID,
		Subject:       strings.TrimSpace(req.Subject),
		Content:       content,
		Attachments:   req.Attachments,
	}
	if err := h.messages.Insert(m); err != nil {
		if errors.Is(err, messaging.ErrEmptyContent) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Message content is empty")
			return
		}
		slog.ErrorContext(r.Context(), "failed to insert message", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to send message")
		return
	}
	h.notifier.NotifyMessage(m)

	writeJSON(w, r.Context(), http.StatusCreated, m)
}

// List handles GET /messages - everything the user sent or received,
// newest first.
func (h *MessageHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	msgs, err := h.messages.ListByUser(userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list messages", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list messages")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, MessageListResponse{Messages: msgs, Total: len(msgs)})
}

// Conversation handles GET /messages/conversation/{user_id} - the
// thread between the authenticated user and another user, oldest first.
func (h *MessageHandlers) Conversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	otherID := r.PathValue("user_id")

	msgs, err := h.messages.Conversation(userID, otherID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load conversation", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load conversation")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, MessageListResponse{Messages: msgs, Total: len(msgs)})
}

// MarkRead handles POST /messages/{id}/read. Only the receiver can mark
// a message read; anything else is reported as not found.
func (h *MessageHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	if err := h.messages.MarkRead(id, userID); err != nil {
		if errors.Is(err, messaging.ErrMessageNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Message not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to mark message read", "error", err, "message_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to mark message read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnreadCount handles GET /messages/unread_count.
func (h *MessageHandlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.messages.UnreadCount(userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to count unread messages", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count unread messages")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

// requireUser extracts the authenticated user's ID or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return "", false
	}
	return userID, true
}
