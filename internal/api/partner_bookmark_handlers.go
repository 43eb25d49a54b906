package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
)

// FestivalBookmarkRequest is the request body for POST /partners/bookmarks.
type FestivalBookmarkRequest struct {
	EventID string `json:"event_id"`
	Memo    string `json:"memo,omitempty"`
}

// FestivalBookmarkToggleResponse reports whether the toggle created or
// removed the bookmark.
type FestivalBookmarkToggleResponse struct {
	Bookmarked bool `json:"bookmarked"`
}

// FestivalBookmarkEntry is one partner bookmark with its event embedded.
type FestivalBookmarkEntry struct {
	*partner.FestivalBookmark
	Event *event.Event `json:"event,omitempty"`
}

// FestivalBookmarkListResponse is the response body for GET /partners/bookmarks.
type FestivalBookmarkListResponse struct {
	Bookmarks []*FestivalBookmarkEntry `json:"bookmarks"`
	Total     int                      `json:"total"`
}

// PartnerBookmarkHandlers holds dependencies for partner festival
// bookmark HTTP handlers.
type PartnerBookmarkHandlers struct {
	partners  partner.Repository
	bookmarks partner.FestivalBookmarkRepository
	events    event.Repository
}

// NewPartnerBookmarkHandlers creates a new PartnerBookmarkHandlers instance.
func NewPartnerBookmarkHandlers(
	partners partner.Repository,
	bookmarks partner.FestivalBookmarkRepository,
	events event.Repository,
) *PartnerBookmarkHandlers {
	return &PartnerBookmarkHandlers{
		partners:  partners,
		bookmarks: bookmarks,
		events:    events,
	}
}

// Toggle handles POST /partners/bookmarks - creates the bookmark when
// absent, removes it when present.
func (h *PartnerBookmarkHandlers) Toggle(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	var req FestivalBookmarkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EventID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "event_id is required")
		return
	}

	if _, err := h.events.GetByID(req.EventID); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", req.EventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve event")
		return
	}

	bookmarked, err := partner.Toggle(h.bookmarks, p.ID, req.EventID, req.Memo)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to toggle bookmark", "error", err, "event_id", req.EventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to toggle bookmark")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, FestivalBookmarkToggleResponse{Bookmarked: bookmarked})
}

// List handles GET /partners/bookmarks.
func (h *PartnerBookmarkHandlers) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	bookmarks, err := h.bookmarks.ListByPartner(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list bookmarks", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list bookmarks")
		return
	}

	entries := make([]*FestivalBookmarkEntry, 0, len(bookmarks))
	for _, b := range bookmarks {
		entry := &FestivalBookmarkEntry{FestivalBookmark: b}
		if e, err := h.events.GetByID(b.EventID); err == nil {
			entry.Event = e
		}
		entries = append(entries, entry)
	}

	writeJSON(w, r.Context(), http.StatusOK, FestivalBookmarkListResponse{Bookmarks: entries, Total: len(entries)})
}

// Delete handles DELETE /partners/bookmarks/{event_id}.
func (h *PartnerBookmarkHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("event_id")

	if err := h.bookmarks.Delete(p.ID, eventID); err != nil {
		if errors.Is(err, partner.ErrFestivalBookmarkNotFound) {
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

func (h *PartnerBookmarkHandlers) partnerOf(w http.ResponseWriter, r *http.Request) (*partner.Partner, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return nil, false
	}
	p, err := h.partners.GetByUserID(userID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Partner profile required")
		return nil, false
	}
	return p, true
}
