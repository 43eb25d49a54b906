package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/festago/festago/internal/analytics"
	"github.com/festago/festago/internal/audit"
	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/payment"
	"github.com/festago/festago/internal/report"
	"github.com/festago/festago/internal/validate"
)

// ApplicationRequest is the request body for POST /applications.
type ApplicationRequest struct {
	EventID           string   `json:"event_id"`
	BoothType         string   `json:"booth_type"`
	BoothSize         string   `json:"booth_size"`
	Products          string   `json:"products"`
	PriceRange        string   `json:"price_range"`
	BrandIntro        string   `json:"brand_intro"`
	BrandImages       []string `json:"brand_images"`
	HasExperience     bool     `json:"has_experience"`
	PreviousFestivals string   `json:"previous_festivals"`
	PortfolioURL      string   `json:"portfolio_url"`
	SpecialRequests   string   `json:"special_requests"`
}

// ApproveRequest is the request body for POST /applications/{id}/approve.
// Fee and booth location are assigned by the organizer at approval time.
type ApproveRequest struct {
	OrganizerMessage string `json:"organizer_message"`
	ParticipationFee int64  `json:"participation_fee"`
	BoothLocation    string `json:"booth_location"`
}

// RejectRequest is the request body for POST /applications/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ApplicationListResponse is the response body for GET /applications.
type ApplicationListResponse struct {
	Applications []*partner.Application `json:"applications"`
	Total        int                    `json:"total"`
}

// CheckoutResponse is the response body for POST /applications/{id}/pay.
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// ApplicationHandlers holds dependencies for booth application HTTP
// handlers. Review actions (approve, reject, complete) sit behind a
// static operator key; partners file, cancel, pay and export.
type ApplicationHandlers struct {
	partners     partner.Repository
	applications partner.ApplicationRepository
	events       event.Repository
	workflow     *partner.Workflow
	notifier     *messaging.Notifier
	analytics    *analytics.Service
	payments     *payment.Service
	audits       audit.Repository
	adminKey     string
}

// ApplicationHandlersConfig holds dependencies for NewApplicationHandlers.
type ApplicationHandlersConfig struct {
	Partners     partner.Repository
	Applications partner.ApplicationRepository
	Events       event.Repository
	Workflow     *partner.Workflow
	Notifier     *messaging.Notifier
	Analytics    *analytics.Service
	Payments     *payment.Service
	Audits       audit.Repository
	AdminAPIKey  string
}

// NewApplicationHandlers creates a new ApplicationHandlers instance.
func NewApplicationHandlers(cfg ApplicationHandlersConfig) *ApplicationHandlers {
	return &ApplicationHandlers{
		partners:     cfg.Partners,
		applications: cfg.Applications,
		events:       cfg.Events,
		workflow:     cfg.Workflow,
		notifier:     cfg.Notifier,
		analytics:    cfg.Analytics,
		payments:     cfg.Payments,
		audits:       cfg.Audits,
		adminKey:     cfg.AdminAPIKey,
	}
}

// Submit handles POST /applications - a partner files a booth
// application for an event.
func (h *ApplicationHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	var req ApplicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PortfolioURL != "" {
		u, err := validate.PortfolioURL(req.PortfolioURL)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid portfolio URL")
			return
		}
		req.PortfolioURL = u
	}
	if req.EventID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "event_id is required")
		return
	}
	if _, err := h.events.GetByID(req.EventID); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
		return
	}

	app := &partner.Application{
		PartnerID:         p.ID,
		EventID:           req.EventID,
		BoothType:         req.BoothType,
		BoothSize:         req.BoothSize,
		Products:          req.Products,
		PriceRange:        req.PriceRange,
		BrandIntro:        req.BrandIntro,
		BrandImages:       req.BrandImages,
		HasExperience:     req.HasExperience,
		PreviousFestivals: req.PreviousFestivals,
		PortfolioURL:      req.PortfolioURL,
		SpecialRequests:   req.SpecialRequests,
	}

	changes, err := h.workflow.Submit(app)
	if err != nil {
		switch {
		case errors.Is(err, partner.ErrInvalidBoothType), errors.Is(err, partner.ErrInvalidBoothSize):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		case errors.Is(err, partner.ErrDuplicateApplication):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateApplication)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateApplication, "You have already applied to this event")
		default:
			slog.ErrorContext(r.Context(), "failed to submit application", "error", err, "partner_id", p.ID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to submit application")
		}
		return
	}
	h.notifier.Dispatch(changes)

	writeJSON(w, r.Context(), http.StatusCreated, app)
}

// List handles GET /applications - the authenticated partner's
// applications, optionally filtered by ?status=.
func (h *ApplicationHandlers) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	apps, err := h.applications.List(partner.ApplicationFilter{
		PartnerID: p.ID,
		Status:    r.URL.Query().Get("status"),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list applications", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list applications")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, ApplicationListResponse{Applications: apps, Total: len(apps)})
}

// Get handles GET /applications/{id} - visible to the owning partner
// and to operators.
func (h *ApplicationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadApplication(w, r)
	if !ok {
		return
	}
	if !h.isOperator(r) {
		p, pok := h.partnerOf(w, r)
		if !pok {
			return
		}
		if app.PartnerID != p.ID {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
			WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "You can only view your own applications")
			return
		}
	}

	writeJSON(w, r.Context(), http.StatusOK, app)
}

// Approve handles POST /applications/{id}/approve - operator only.
// The organizer's message, participation fee and booth slot are
// recorded alongside the status change.
func (h *ApplicationHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	if !h.requireOperator(w, r) {
		return
	}
	app, ok := h.loadApplication(w, r)
	if !ok {
		return
	}

	var req ApproveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ok = h.applyTransition(w, r, func() ([]partner.Change, error) {
		return h.workflow.Approve(app.ID, partner.ApprovalTerms{
			OrganizerMessage: req.OrganizerMessage,
			ParticipationFee: req.ParticipationFee,
			BoothLocation:    req.BoothLocation,
		})
	})
	h.recordAudit(r, audit.EntityApplication, app.ID, audit.ActionApproveApplication, ok)
}

// Reject handles POST /applications/{id}/reject - operator only.
func (h *ApplicationHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	if !h.requireOperator(w, r) {
		return
	}
	id := r.PathValue("id")

	var req RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "reason is required")
		return
	}

	ok := h.applyTransition(w, r, func() ([]partner.Change, error) {
		return h.workflow.Reject(id, req.Reason)
	})
	h.recordAudit(r, audit.EntityApplication, id, audit.ActionRejectApplication, ok)
}

// Cancel handles POST /applications/{id}/cancel - the owning partner
// withdraws a pending application.
func (h *ApplicationHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}
	app, ok := h.loadApplication(w, r)
	if !ok {
		return
	}
	if app.PartnerID != p.ID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "You can only cancel your own applications")
		return
	}

	h.applyTransition(w, r, func() ([]partner.Change, error) {
		return h.workflow.Cancel(app.ID)
	})
}

// Complete handles POST /applications/{id}/complete - operator only.
// Completion also generates the booth's analytics record.
func (h *ApplicationHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	if !h.requireOperator(w, r) {
		return
	}
	id := r.PathValue("id")

	changes, err := h.workflow.Complete(id)
	if err != nil {
		h.writeTransitionError(w, r, err)
		h.recordAudit(r, audit.EntityApplication, id, audit.ActionCompleteApplication, false)
		return
	}
	h.notifier.Dispatch(changes)
	h.recordAudit(r, audit.EntityApplication, id, audit.ActionCompleteApplication, true)

	app, err := h.applications.GetByID(id)
	if err == nil {
		if _, genErr := h.analytics.Generate(app); genErr != nil &&
			!errors.Is(genErr, analytics.ErrDuplicateAnalytics) {
			slog.ErrorContext(r.Context(), "failed to generate analytics", "error", genErr, "application_id", id)
		}
		writeJSON(w, r.Context(), http.StatusOK, app)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Pay handles POST /applications/{id}/pay - creates a Stripe checkout
// session for the application's outstanding participation fee.
func (h *ApplicationHandlers) Pay(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}
	app, ok := h.loadApplication(w, r)
	if !ok {
		return
	}
	if app.PartnerID != p.ID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "You can only pay for your own applications")
		return
	}

	eventName := app.EventID
	if ev, err := h.events.GetByID(app.EventID); err == nil {
		eventName = ev.Name
	}

	record, checkoutURL, err := h.payments.Checkout(app, eventName, p.UserID)
	if err != nil {
		if errors.Is(err, payment.ErrNoFeeDue) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNoFeeDue)
			WriteError(w, ctx, http.StatusConflict, ErrCodeNoFeeDue, "No participation fee is outstanding")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create checkout session", "error", err, "application_id", app.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePaymentFailed)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodePaymentFailed, "Payment provider is unavailable")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, CheckoutResponse{
		SessionID:   record.SessionID,
		CheckoutURL: checkoutURL,
	})
}

// Export handles GET /applications/export - the partner's applications
// as an Excel workbook.
func (h *ApplicationHandlers) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	apps, err := h.applications.ListByPartner(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list applications", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list applications")
		return
	}

	eventNames := make(map[string]string, len(apps))
	for _, app := range apps {
		if _, seen := eventNames[app.EventID]; seen {
			continue
		}
		if ev, err := h.events.GetByID(app.EventID); err == nil {
			eventNames[app.EventID] = ev.Name
		}
	}

	data, err := report.ApplicationsExcel(apps, eventNames)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build export", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build export")
		return
	}

	filename := fmt.Sprintf("applications-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(r.Context(), "failed to write export", "error", err)
	}
	h.recordAudit(r, audit.EntityPartner, p.ID, audit.ActionExportApplications, true)
}

// AuditRecordResponse is one entry in GET /applications/{id}/audit.
type AuditRecordResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	CreatedAt string `json:"created_at"` // RFC 3339
}

// AuditTrailResponse is the response body for GET /applications/{id}/audit.
type AuditTrailResponse struct {
	Records []AuditRecordResponse `json:"records"`
	Total   int                   `json:"total"`
}

// AuditTrail handles GET /applications/{id}/audit - operator only.
// Returns the most recent operator actions on an application.
func (h *ApplicationHandlers) AuditTrail(w http.ResponseWriter, r *http.Request) {
	if !h.requireOperator(w, r) {
		return
	}
	id := r.PathValue("id")

	var records []*audit.Record
	if h.audits != nil {
		var err error
		records, err = h.audits.ByEntity(audit.EntityApplication, id, 100)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to query audit trail", "error", err, "application_id", id)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to query audit trail")
			return
		}
	}

	resp := AuditTrailResponse{Records: make([]AuditRecordResponse, 0, len(records)), Total: len(records)}
	for _, rec := range records {
		resp.Records = append(resp.Records, AuditRecordResponse{
			ID:        rec.ID,
			UserID:    rec.UserID,
			Action:    rec.Action,
			Outcome:   rec.Outcome,
			RequestID: rec.RequestID,
			IPAddress: rec.IPAddress,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, r.Context(), http.StatusOK, resp)
}

// applyTransition runs a workflow operation, dispatches its changes and
// writes the resulting application. Reports whether the transition was
// applied.
func (h *ApplicationHandlers) applyTransition(w http.ResponseWriter, r *http.Request, op func() ([]partner.Change, error)) bool {
	changes, err := op()
	if err != nil {
		h.writeTransitionError(w, r, err)
		return false
	}
	h.notifier.Dispatch(changes)

	if len(changes) > 0 {
		writeJSON(w, r.Context(), http.StatusOK, changes[0].Application)
		return true
	}
	w.WriteHeader(http.StatusOK)
	return true
}

// recordAudit appends an operator action to the audit trail. The state
// change already happened, so failures are logged rather than surfaced.
func (h *ApplicationHandlers) recordAudit(r *http.Request, entityType, entityID, action string, ok bool) {
	if h.audits == nil {
		return
	}
	outcome := audit.OutcomeSuccess
	if !ok {
		outcome = audit.OutcomeFailure
	}
	if err := audit.LogRequest(r, h.audits, entityType, entityID, action, outcome); err != nil {
		slog.ErrorContext(r.Context(), "failed to record audit entry", "error", err, "action", action)
	}
}

func (h *ApplicationHandlers) writeTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *partner.ErrInvalidTransition
	switch {
	case errors.Is(err, partner.ErrApplicationNotFound):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Application not found")
	case errors.As(err, &invalid):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidTransition)
		WriteError(w, ctx, http.StatusConflict, ErrCodeInvalidTransition, invalid.Error())
	default:
		slog.ErrorContext(r.Context(), "failed to apply transition", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update application")
	}
}

func (h *ApplicationHandlers) loadApplication(w http.ResponseWriter, r *http.Request) (*partner.Application, bool) {
	id := r.PathValue("id")
	app, err := h.applications.GetByID(id)
	if err != nil {
		if errors.Is(err, partner.ErrApplicationNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Application not found")
			return nil, false
		}
		slog.ErrorContext(r.Context(), "failed to get application", "error", err, "application_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve application")
		return nil, false
	}
	return app, true
}

// isOperator reports whether the request carries the operator key.
// Always false when no key is configured.
func (h *ApplicationHandlers) isOperator(r *http.Request) bool {
	if h.adminKey == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminKey)) == 1
}

func (h *ApplicationHandlers) requireOperator(w http.ResponseWriter, r *http.Request) bool {
	if !h.isOperator(r) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Operator access required")
		return false
	}
	return true
}

func (h *ApplicationHandlers) partnerOf(w http.ResponseWriter, r *http.Request) (*partner.Partner, bool) {
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
