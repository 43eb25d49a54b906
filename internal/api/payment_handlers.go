package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/payment"
)

// CheckoutRequest is the request body for POST /payments/checkout.
type CheckoutRequest struct {
	ApplicationID string `json:"application_id"`
}

// PaymentHandlers holds dependencies for participation fee payment
// HTTP handlers.
type PaymentHandlers struct {
	partners     partner.Repository
	applications partner.ApplicationRepository
	events       event.Repository
	payments     *payment.Service
}

// NewPaymentHandlers creates a new PaymentHandlers instance.
func NewPaymentHandlers(
	partners partner.Repository,
	applications partner.ApplicationRepository,
	events event.Repository,
	payments *payment.Service,
) *PaymentHandlers {
	return &PaymentHandlers{
		partners:     partners,
		applications: applications,
		events:       events,
		payments:     payments,
	}
}

// Checkout handles POST /payments/checkout - creates a Stripe checkout
// session for an application's outstanding participation fee.
func (h *PaymentHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.partners.GetByUserID(userID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Partner profile required")
		return
	}

	var req CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ApplicationID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "application_id is required")
		return
	}

	app, err := h.applications.GetByID(req.ApplicationID)
	if err != nil {
		if errors.Is(err, partner.ErrApplicationNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Application not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get application", "error", err, "application_id", req.ApplicationID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve application")
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

	record, checkoutURL, err := h.payments.Checkout(app, eventName, userID)
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
