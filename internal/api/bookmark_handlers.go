package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/middleware"
)

// BookmarkEntry is one bookmark with its event embedded.
type BookmarkEntry struct {
	*event.Bookmark
	Event *event.Event `json:"event,omitempty"`
}

// BookmarkListResponse is the response body for GET /bookmarks.
type BookmarkListResponse struct {
	Bookmarks []*BookmarkEntry `json:"bookmarks"`
	Total     int              `json:"total"`
}

// BookmarkHandlers holds dependencies for event bookmark HTTP handlers.
type BookmarkHandlers struct {
	events    event.Repository
	bookmarks event.BookmarkRepository
}

// NewBookmarkHandlers creates a new BookmarkHandlers instance.
func NewBookmarkHandlers(events event.Repository, bookmarks event.BookmarkRepository) *BookmarkHandlers {
	return &BookmarkHandlers{events: events, bookmarks: bookmarks}
}

// CreateBookmark handles POST /events/{id}/bookmark.
func (h *BookmarkHandlers) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	if _, err := h.events.GetByID(eventID); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve event")
		return
	}

	b := &event.Bookmark{UserID: userID, EventID: eventID}
	if err := h.bookmarks.Insert(b); err != nil {
		if errors.Is(err, event.ErrDuplicateBookmark) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateBookmark)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateBookmark, "Event is already bookmarked")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create bookmark", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save bookmark")
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, b)
}

// DeleteBookmark handles DELETE /events/{id}/bookmark.
func (h *BookmarkHandlers) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	if err := h.bookmarks.Delete(userID, eventID); err != nil {
		if errors.Is(err, event.ErrBookmarkNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Bookmark not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete bookmark", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete bookmark")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBookmarks handles GET /bookmarks - the user's bookmarks, newest first.
func (h *BookmarkHandlers) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	bookmarks, err := h.bookmarks.ListByUser(userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list bookmarks", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list bookmarks")
		return
	}

	entries := make([]*BookmarkEntry, 0, len(bookmarks))
	for _, b := range bookmarks {
		entry := &BookmarkEntry{Bookmark: b}
		// Bookmarks may outlive their event; the entry is kept with
		// the event field empty.
		if e, err := h.events.GetByID(b.EventID); err == nil {
			entry.Event = e
		}
		entries = append(entries, entry)
	}

	writeJSON(w, r.Context(), http.StatusOK, BookmarkListResponse{Bookmarks: entries, Total: len(entries)})
}
