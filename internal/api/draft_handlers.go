package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
)

// DraftRequest is the request body for PUT /drafts.
type DraftRequest struct {
	EventID   string         `json:"event_id"`
	DraftData map[string]any `json:"draft_data"`
}

// DraftListResponse is the response body for GET /drafts.
type DraftListResponse struct {
	Drafts []*partner.ApplicationDraft `json:"drafts"`
	Total  int                         `json:"total"`
}

// DraftHandlers holds dependencies for application draft HTTP handlers.
type DraftHandlers struct {
	partners partner.Repository
	drafts   partner.DraftRepository
}

// NewDraftHandlers creates a new DraftHandlers instance.
func NewDraftHandlers(partners partner.Repository, drafts partner.DraftRepository) *DraftHandlers {
	return &DraftHandlers{partners: partners, drafts: drafts}
}

// Upsert handles PUT /drafts - saves in-progress application form data,
// one draft per (partner, event).
func (h *DraftHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	var req DraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EventID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "event_id is required")
		return
	}

	draft := &partner.ApplicationDraft{
		PartnerID: p.ID,
		EventID:   req.EventID,
		DraftData: req.DraftData,
	}
	created, err := h.drafts.Upsert(draft)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to save draft", "error", err, "event_id", req.EventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save draft")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, r.Context(), status, draft)
}

// List handles GET /drafts - the partner's drafts.
func (h *DraftHandlers) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	drafts, err := h.drafts.ListByPartner(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list drafts", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list drafts")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, DraftListResponse{Drafts: drafts, Total: len(drafts)})
}

// Get handles GET /drafts/{event_id}.
func (h *DraftHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("event_id")

	draft, err := h.drafts.Get(p.ID, eventID)
	if err != nil {
		if errors.Is(err, partner.ErrDraftNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Draft not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get draft", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve draft")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, draft)
}

// Delete handles DELETE /drafts/{event_id}.
func (h *DraftHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("event_id")

	if err := h.drafts.Delete(p.ID, eventID); err != nil {
		if errors.Is(err, partner.ErrDraftNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Draft not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete draft", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete draft")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DraftHandlers) partnerOf(w http.ResponseWriter, r *http.Request) (*partner.Partner, bool) {
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
