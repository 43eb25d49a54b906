package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/chatbot"
	"github.com/festago/festago/internal/middleware"
)

// ChatRequest is the request body for POST /chatbot.
type ChatRequest struct {
	Messages []chatbot.Message `json:"messages"`
}

// ChatbotHandlers holds dependencies for the recommendation chatbot
// HTTP handler.
type ChatbotHandlers struct {
	service *chatbot.Service
}

// NewChatbotHandlers creates a new ChatbotHandlers instance. service
// may be nil when no API key is configured; the endpoint then reports
// the assistant as unavailable.
func NewChatbotHandlers(service *chatbot.Service) *ChatbotHandlers {
	return &ChatbotHandlers{service: service}
}

// Chat handles POST /chatbot.
func (h *ChatbotHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	if h.service == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeChatUnavailable)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeChatUnavailable, "The assistant is not configured")
		return
	}

	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := h.service.Chat(r.Context(), req.Messages)
	if err != nil {
		if errors.Is(err, chatbot.ErrNoMessages) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "At least one message is required")
			return
		}
		slog.ErrorContext(r.Context(), "chat completion failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeChatUnavailable)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeChatUnavailable, "The assistant is unavailable")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, reply)
}
