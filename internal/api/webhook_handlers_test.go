package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/payment"
)

// generateStripeSignature generates a valid Stripe webhook signature for testing.
func generateStripeSignature(payload []byte, secret string, timestamp int64) string {
	// Stripe signature format: t=timestamp,v1=signature
	signedPayload := fmt.Sprintf("%d.%s", timestamp, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}

const testWebhookSecret = "whsec_test_secret"

// webhookTestEnv wires the webhook handler against in-memory
// repositories with one approved, fee-outstanding application and a
// pending payment record for session cs_test123.
type webhookTestEnv struct {
	handlers      *WebhookHandlers
	paymentRepo   *payment.InMemoryPaymentRepository
	webhookRepo   *payment.InMemoryWebhookRepository
	appRepo       *partner.InMemoryApplicationRepository
	notifications *messaging.InMemoryNotificationRepository
	partnerUserID string
	applicationID string
}

func newWebhookTestEnv(t *testing.T) *webhookTestEnv {
	t.Helper()

	paymentRepo := payment.NewInMemoryPaymentRepository()
	webhookRepo := payment.NewInMemoryWebhookRepository()
	partnerRepo := partner.NewInMemoryRepository()
	appRepo := partner.NewInMemoryApplicationRepository()
	eventRepo := event.NewInMemoryRepository()
	notifications := messaging.NewInMemoryNotificationRepository()

	p := &partner.Partner{
		UserID:       "user-1",
		BusinessName: "Test Foods Co.",
		BrandName:    "Test Foods",
	}
	if err := partnerRepo.Insert(p); err != nil {
		t.Fatalf("failed to seed partner: %v", err)
	}

	app := &partner.Application{
		PartnerID:        p.ID,
		EventID:          "event-1",
		Status:           partner.StatusApproved,
		BoothType:        partner.BoothTypeExperience,
		BoothSize:        partner.BoothSizeStandard,
		ParticipationFee: 10000,
		PaymentStatus:    partner.PaymentUnpaid,
	}
	if err := appRepo.Insert(app); err != nil {
		t.Fatalf("failed to seed application: %v", err)
	}

	record := &payment.PaymentRecord{
		SessionID:     "cs_test123",
		Amount:        10000,
		Currency:      "krw",
		UserID:        p.UserID,
		ApplicationID: app.ID,
	}
	if err := paymentRepo.CreatePending(record); err != nil {
		t.Fatalf("failed to create payment record: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	workflow := partner.NewWorkflow(partnerRepo, appRepo)
	notifier := messaging.NewNotifier(notifications, partnerRepo, eventRepo, nil, logger)

	return &webhookTestEnv{
		handlers:      NewWebhookHandlers(testWebhookSecret, paymentRepo, webhookRepo, workflow, notifier),
		paymentRepo:   paymentRepo,
		webhookRepo:   webhookRepo,
		appRepo:       appRepo,
		notifications: notifications,
		partnerUserID: p.UserID,
		applicationID: app.ID,
	}
}

func (env *webhookTestEnv) post(t *testing.T, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	if sign {
		req.Header.Set("Stripe-Signature", generateStripeSignature(body, testWebhookSecret, time.Now().Unix()))
	}
	w := httptest.NewRecorder()
	env.handlers.HandleStripeWebhook(w, req)
	return w
}

func sessionCompletedEvent(eventID, sessionID string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id": sessionID,
				"payment_intent": map[string]interface{}{
					"id": "pi_test123",
				},
			},
		},
	})
	return body
}

// TestHandleStripeWebhook_InvalidSignature tests that invalid signatures are rejected.
func TestHandleStripeWebhook_InvalidSignature(t *testing.T) {
	env := newWebhookTestEnv(t)

	body := sessionCompletedEvent("evt_test123", "cs_test123")
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1234567890,v1=invalidsignature")

	w := httptest.NewRecorder()
	env.handlers.HandleStripeWebhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeBadRequest {
		t.Errorf("expected error code %s, got %s", ErrCodeBadRequest, errResp.Error.Code)
	}
}

// TestHandleStripeWebhook_MissingSignature tests that missing signature header is rejected.
func TestHandleStripeWebhook_MissingSignature(t *testing.T) {
	env := newWebhookTestEnv(t)

	w := env.post(t, sessionCompletedEvent("evt_test123", "cs_test123"), false)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

// TestHandleStripeWebhook_CheckoutSessionCompleted tests the paid-session flow
// end to end: payment record settled, application fee marked paid, partner notified.
func TestHandleStripeWebhook_CheckoutSessionCompleted(t *testing.T) {
	env := newWebhookTestEnv(t)

	w := env.post(t, sessionCompletedEvent("evt_session_completed", "cs_test123"), true)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// Payment record settled with the intent ID.
	record, err := env.paymentRepo.GetBySessionID("cs_test123")
	if err != nil {
		t.Fatalf("failed to get updated payment: %v", err)
	}
	if record.Status != payment.StatusSucceeded {
		t.Errorf("expected status %s, got %s", payment.StatusSucceeded, record.Status)
	}
	if record.PaymentIntentID == nil || *record.PaymentIntentID != "pi_test123" {
		t.Errorf("expected payment intent pi_test123, got %v", record.PaymentIntentID)
	}

	// Application fee marked paid.
	app, err := env.appRepo.GetByID(env.applicationID)
	if err != nil {
		t.Fatalf("failed to get application: %v", err)
	}
	if app.PaymentStatus != partner.PaymentPaid {
		t.Errorf("expected payment status %s, got %s", partner.PaymentPaid, app.PaymentStatus)
	}
	if app.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}

	// Partner notified of the confirmed payment.
	notifs, err := env.notifications.ListByUser(env.partnerUserID, false)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Type != messaging.NotificationPaymentConfirmed {
		t.Errorf("expected type %s, got %s", messaging.NotificationPaymentConfirmed, notifs[0].Type)
	}

	// Event recorded for idempotency.
	processed, err := env.webhookRepo.HasProcessed("evt_session_completed")
	if err != nil {
		t.Fatalf("failed to check processed state: %v", err)
	}
	if !processed {
		t.Error("event should have been recorded as processed")
	}
}

// TestHandleStripeWebhook_Idempotency tests that replayed events are ignored.
func TestHandleStripeWebhook_Idempotency(t *testing.T) {
	env := newWebhookTestEnv(t)

	body := sessionCompletedEvent("evt_replay", "cs_test123")

	w1 := env.post(t, body, true)
	if w1.Code != http.StatusOK {
		t.Errorf("first request: expected status 200, got %d", w1.Code)
	}

	w2 := env.post(t, body, true)
	if w2.Code != http.StatusOK {
		t.Errorf("second request: expected status 200, got %d", w2.Code)
	}

	// A replay must not produce a second notification.
	notifs, err := env.notifications.ListByUser(env.partnerUserID, false)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Errorf("expected 1 notification after replay, got %d", len(notifs))
	}

	record, err := env.paymentRepo.GetBySessionID("cs_test123")
	if err != nil {
		t.Fatalf("failed to get payment after replay: %v", err)
	}
	if record.Status != payment.StatusSucceeded {
		t.Errorf("status changed after replay: expected %s, got %s", payment.StatusSucceeded, record.Status)
	}
}

// TestHandleStripeWebhook_UnknownSession tests that a completed session with no
// matching payment record is acknowledged without side effects.
func TestHandleStripeWebhook_UnknownSession(t *testing.T) {
	env := newWebhookTestEnv(t)

	w := env.post(t, sessionCompletedEvent("evt_unknown_session", "cs_does_not_exist"), true)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	app, err := env.appRepo.GetByID(env.applicationID)
	if err != nil {
		t.Fatalf("failed to get application: %v", err)
	}
	if app.PaymentStatus != partner.PaymentUnpaid {
		t.Errorf("application fee should remain unpaid, got %s", app.PaymentStatus)
	}
}

// TestHandleStripeWebhook_SessionExpired tests checkout.session.expired handling.
func TestHandleStripeWebhook_SessionExpired(t *testing.T) {
	env := newWebhookTestEnv(t)

	body, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_expired",
		"type": "checkout.session.expired",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id": "cs_test123",
			},
		},
	})

	w := env.post(t, body, true)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	record, err := env.paymentRepo.GetBySessionID("cs_test123")
	if err != nil {
		t.Fatalf("failed to get payment record: %v", err)
	}
	if record.Status != payment.StatusFailed {
		t.Errorf("expected status %s, got %s", payment.StatusFailed, record.Status)
	}
	if record.FailureReason == nil || *record.FailureReason != "checkout session expired" {
		t.Errorf("unexpected failure reason: %v", record.FailureReason)
	}
}

// TestHandleStripeWebhook_PaymentIntentFailed tests payment_intent.payment_failed handling.
func TestHandleStripeWebhook_PaymentIntentFailed(t *testing.T) {
	env := newWebhookTestEnv(t)

	body, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_payment_failed",
		"type": "payment_intent.payment_failed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id": "pi_test456",
				"metadata": map[string]interface{}{
					"session_id": "cs_test123",
				},
				"last_payment_error": map[string]interface{}{
					"code":    "card_declined",
					"message": "Your card was declined",
				},
			},
		},
	})

	w := env.post(t, body, true)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	record, err := env.paymentRepo.GetBySessionID("cs_test123")
	if err != nil {
		t.Fatalf("failed to get updated payment: %v", err)
	}
	if record.Status != payment.StatusFailed {
		t.Errorf("expected status %s, got %s", payment.StatusFailed, record.Status)
	}
	if record.FailureReason == nil || *record.FailureReason != "card_declined" {
		t.Errorf("expected failure reason 'card_declined', got %v", record.FailureReason)
	}
}

// TestHandleStripeWebhook_UnknownEventType tests that unknown event types are handled gracefully.
func TestHandleStripeWebhook_UnknownEventType(t *testing.T) {
	env := newWebhookTestEnv(t)

	body, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_unknown",
		"type": "some.unknown.event",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id": "obj_test",
			},
		},
	})

	w := env.post(t, body, true)

	// Should still return 200 (acknowledge receipt)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	// Verify the event was still recorded for idempotency
	processed, err := env.webhookRepo.HasProcessed("evt_unknown")
	if err != nil {
		t.Fatalf("failed to check if event was processed: %v", err)
	}
	if !processed {
		t.Error("unknown event should still be recorded as processed")
	}
}

// TestWebhookSignatureGeneration validates our test signature generation matches Stripe's format.
func TestWebhookSignatureGeneration(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_test","type":"test"}`)
	timestamp := int64(1234567890)

	sig := generateStripeSignature(payload, secret, timestamp)

	if !strings.HasPrefix(sig, "t=") {
		t.Error("signature should start with 't='")
	}
	if !strings.Contains(sig, ",v1=") {
		t.Error("signature should contain ',v1=' component")
	}

	parts := strings.Split(sig, ",")
	if len(parts) < 2 {
		t.Fatal("signature should have at least timestamp and v1 components")
	}

	timestampStr := strings.TrimPrefix(parts[0], "t=")
	parsedTimestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		t.Errorf("failed to parse timestamp from signature: %v", err)
	}
	if parsedTimestamp != timestamp {
		t.Errorf("timestamp mismatch: expected %d, got %d", timestamp, parsedTimestamp)
	}

	sigHex := strings.TrimPrefix(parts[1], "v1=")
	if len(sigHex) != 64 {
		t.Errorf("v1 signature should be 64 hex chars (SHA256), got %d", len(sigHex))
	}
	if _, err := hex.DecodeString(sigHex); err != nil {
		t.Errorf("v1 signature should be valid hex: %v", err)
	}
}
