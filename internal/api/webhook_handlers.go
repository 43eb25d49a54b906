package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/payment"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// WebhookHandlers holds dependencies for webhook-related HTTP handlers.
type WebhookHandlers struct {
	webhookSecret string
	paymentRepo   payment.PaymentRepository
	webhookRepo   payment.WebhookRepository
	workflow      *partner.Workflow
	notifier      *messaging.Notifier
}

// NewWebhookHandlers creates a new WebhookHandlers instance.
func NewWebhookHandlers(
	webhookSecret string,
	paymentRepo payment.PaymentRepository,
	webhookRepo payment.WebhookRepository,
	workflow *partner.Workflow,
	notifier *messaging.Notifier,
) *WebhookHandlers {
	return &WebhookHandlers{
		webhookSecret: webhookSecret,
		paymentRepo:   paymentRepo,
		webhookRepo:   webhookRepo,
		workflow:      workflow,
		notifier:      notifier,
	}
}

// HandleStripeWebhook processes Stripe webhook events with signature verification.
// POST /payments/webhook
func (h *WebhookHandlers) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "missing Stripe-Signature header")
		return
	}

	// Verify the webhook signature. Stripe delivers events at the
	// account's webhook API version, which can trail the SDK pin, so
	// only the signature is strict.
	event, err := webhook.ConstructEventWithOptions(body, signature, h.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		slog.WarnContext(ctx, "webhook signature verification failed", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid signature")
		return
	}

	// Log minimal event info (type and ID only, not full payload)
	slog.InfoContext(ctx, "webhook event received", "event_type", event.Type, "event_id", event.ID)

	// Check idempotency - has this event already been processed?
	if err := h.webhookRepo.RecordEvent(event.ID, string(event.Type)); err != nil {
		if err == payment.ErrEventAlreadyProcessed {
			slog.InfoContext(ctx, "webhook event already processed, ignoring", "event_id", event.ID)
			// Return 200 to acknowledge receipt even though we're ignoring it
			w.WriteHeader(http.StatusOK)
			return
		}
		slog.ErrorContext(ctx, "failed to record webhook event", "event_id", event.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to process webhook")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutSessionCompleted(ctx, event)
	case "checkout.session.expired":
		h.handleCheckoutSessionExpired(ctx, event)
	case "payment_intent.payment_failed":
		h.handlePaymentIntentFailed(ctx, event)
	default:
		// Unknown event type - log and ignore
		slog.InfoContext(ctx, "ignoring unhandled webhook event type", "event_type", event.Type, "event_id", event.ID)
	}

	// Always return 200 to acknowledge receipt
	w.WriteHeader(http.StatusOK)
}

// handleCheckoutSessionCompleted processes checkout.session.completed events.
// The session is paid at this point, so the payment record is settled, the
// application's fee is marked paid and the partner is notified.
func (h *WebhookHandlers) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.ErrorContext(ctx, "failed to parse checkout session", "event_id", event.ID, "error", err)
		return
	}

	record, err := h.paymentRepo.GetBySessionID(session.ID)
	if err != nil {
		if err == payment.ErrPaymentRecordNotFound {
			slog.WarnContext(ctx, "no payment record for completed session", "session_id", session.ID)
			return
		}
		slog.ErrorContext(ctx, "failed to get payment record", "session_id", session.ID, "error", err)
		return
	}

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	if err := h.paymentRepo.MarkCompleted(session.ID, paymentIntentID); err != nil {
		slog.ErrorContext(ctx, "failed to mark payment completed",
			"session_id", session.ID,
			"payment_intent_id", paymentIntentID,
			"error", err)
		return
	}

	changes, err := h.workflow.MarkPaid(record.ApplicationID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark application fee paid",
			"application_id", record.ApplicationID,
			"session_id", session.ID,
			"error", err)
		return
	}
	h.notifier.Dispatch(changes)

	slog.InfoContext(ctx, "participation fee settled",
		"session_id", session.ID,
		"application_id", record.ApplicationID,
		"payment_intent_id", paymentIntentID,
		"amount", record.Amount,
		"currency", record.Currency)
}

// handleCheckoutSessionExpired processes checkout.session.expired events.
// The pending record is marked failed so the partner can retry payment
// with a fresh checkout session.
func (h *WebhookHandlers) handleCheckoutSessionExpired(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.ErrorContext(ctx, "failed to parse checkout session", "event_id", event.ID, "error", err)
		return
	}

	if err := h.paymentRepo.MarkFailed(session.ID, "checkout session expired"); err != nil {
		if err == payment.ErrPaymentRecordNotFound {
			slog.WarnContext(ctx, "no payment record for expired session", "session_id", session.ID)
			return
		}
		slog.ErrorContext(ctx, "failed to mark payment as failed",
			"session_id", session.ID,
			"error", err)
		return
	}

	slog.InfoContext(ctx, "checkout session expired", "session_id", session.ID)
}

// handlePaymentIntentFailed processes payment_intent.payment_failed events.
func (h *WebhookHandlers) handlePaymentIntentFailed(ctx context.Context, event stripe.Event) {
	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		slog.ErrorContext(ctx, "failed to parse payment intent", "event_id", event.ID, "error", err)
		return
	}

	// The checkout flow stamps the session ID into the intent metadata.
	sessionID := ""
	if paymentIntent.Metadata != nil {
		sessionID = paymentIntent.Metadata["session_id"]
	}
	if sessionID == "" {
		slog.WarnContext(ctx, "payment intent failed but session ID not found",
			"payment_intent_id", paymentIntent.ID,
			"event_id", event.ID)
		return
	}

	failureReason := "unknown"
	if paymentIntent.LastPaymentError != nil {
		if paymentIntent.LastPaymentError.Code != "" {
			failureReason = string(paymentIntent.LastPaymentError.Code)
		} else if paymentIntent.LastPaymentError.Msg != "" {
			failureReason = paymentIntent.LastPaymentError.Msg
		}
	}

	if err := h.paymentRepo.MarkFailed(sessionID, failureReason); err != nil {
		if err == payment.ErrPaymentRecordNotFound {
			slog.WarnContext(ctx, "payment record not found for failed payment intent",
				"session_id", sessionID,
				"payment_intent_id", paymentIntent.ID)
			return
		}
		slog.ErrorContext(ctx, "failed to mark payment as failed",
			"session_id", sessionID,
			"payment_intent_id", paymentIntent.ID,
			"error", err)
		return
	}

	slog.InfoContext(ctx, "payment marked as failed",
		"session_id", sessionID,
		"payment_intent_id", paymentIntent.ID,
		"reason", failureReason)
}
