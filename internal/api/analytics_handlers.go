package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/analytics"
	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/report"
)

// AnalyticsListResponse is the response body for GET /analytics.
type AnalyticsListResponse struct {
	Records      []*analytics.Record `json:"records"`
	Total        int                 `json:"total"`
	IsSampleData bool                `json:"is_sample_data"`
}

// AnalyticsHandlers holds dependencies for booth analytics HTTP handlers.
type AnalyticsHandlers struct {
	partners partner.Repository
	events   event.Repository
	service  *analytics.Service
}

// NewAnalyticsHandlers creates a new AnalyticsHandlers instance.
func NewAnalyticsHandlers(partners partner.Repository, events event.Repository, service *analytics.Service) *AnalyticsHandlers {
	return &AnalyticsHandlers{partners: partners, events: events, service: service}
}

// List handles GET /analytics - the partner's records, or flagged
// sample rows when the partner has none yet.
func (h *AnalyticsHandlers) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	records, isSample, err := h.service.ForPartner(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list analytics", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list analytics")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, AnalyticsListResponse{
		Records:      records,
		Total:        len(records),
		IsSampleData: isSample,
	})
}

// Summary handles GET /analytics/summary.
func (h *AnalyticsHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summarize(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to summarize analytics", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to summarize analytics")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, summary)
}

// Get handles GET /analytics/{id}. Sample rows from other partners are
// readable here too; the service scopes access.
func (h *AnalyticsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	rec, ok := h.loadRecord(w, r, p)
	if !ok {
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, rec)
}

// PDF handles GET /analytics/{id}/pdf - the record rendered as a
// downloadable performance report.
func (h *AnalyticsHandlers) PDF(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	rec, ok := h.loadRecord(w, r, p)
	if !ok {
		return
	}

	eventName := rec.EventID
	if ev, err := h.events.GetByID(rec.EventID); err == nil {
		eventName = ev.Name
	}

	data, err := report.AnalyticsPDF(rec, p.BrandName, eventName)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build report", "error", err, "record_id", rec.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "analytics-"+rec.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(r.Context(), "failed to write report", "error", err)
	}
}

func (h *AnalyticsHandlers) loadRecord(w http.ResponseWriter, r *http.Request, p *partner.Partner) (*analytics.Record, bool) {
	id := r.PathValue("id")
	rec, err := h.service.Get(p.ID, id)
	if err != nil {
		if errors.Is(err, analytics.ErrAnalyticsNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Analytics record not found")
			return nil, false
		}
		slog.ErrorContext(r.Context(), "failed to get analytics record", "error", err, "record_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve analytics record")
		return nil, false
	}
	return rec, true
}

func (h *AnalyticsHandlers) partnerOf(w http.ResponseWriter, r *http.Request) (*partner.Partner, bool) {
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
