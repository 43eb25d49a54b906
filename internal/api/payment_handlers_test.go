package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/payment"
	"github.com/stripe/stripe-go/v81"
)

// countingStripeClient records how many checkout sessions were created
// and can be forced to fail.
type countingStripeClient struct {
	calls int
	err   error
}

func (c *countingStripeClient) CreateCheckoutSession(params *payment.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	id := fmt.Sprintf("cs_test_%d", c.calls)
	return &stripe.CheckoutSession{
		ID:  id,
		URL: "https://checkout.stripe.com/pay/" + id,
	}, nil
}

type paymentTestEnv struct {
	handlers      *PaymentHandlers
	client        *countingStripeClient
	payments      *payment.InMemoryPaymentRepository
	appRepo       *partner.InMemoryApplicationRepository
	partnerUserID string
	appID         string
}

// newPaymentTestEnv seeds one partner with an approved application that
// owes a participation fee.
func newPaymentTestEnv(t *testing.T) *paymentTestEnv {
	t.Helper()

	partnerRepo := partner.NewInMemoryRepository()
	appRepo := partner.NewInMemoryApplicationRepository()
	eventRepo := event.NewInMemoryRepository()

	p := &partner.Partner{
		UserID:       "user-1",
		BusinessName: "Test Foods Co.",
		BrandName:    "Test Foods",
	}
	if err := partnerRepo.Insert(p); err != nil {
		t.Fatalf("failed to seed partner: %v", err)
	}

	e := &event.Event{
		Name:      "Han River Festival",
		Category:  event.CategoryFestival,
		Location:  "Seoul",
		StartDate: time.Now().Add(7 * 24 * time.Hour),
		EndDate:   time.Now().Add(9 * 24 * time.Hour),
	}
	if err := eventRepo.Insert(e); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}

	app := &partner.Application{
		PartnerID:        p.ID,
		EventID:          e.ID,
		BoothType:        partner.BoothTypeFood,
		BoothSize:        partner.BoothSizeStandard,
		Status:           partner.StatusApproved,
		PaymentStatus:    partner.PaymentUnpaid,
		ParticipationFee: 50000,
	}
	if err := appRepo.Insert(app); err != nil {
		t.Fatalf("failed to seed application: %v", err)
	}

	client := &countingStripeClient{}
	paymentRepo := payment.NewInMemoryPaymentRepository()
	svc := payment.NewService(paymentRepo, client, "http://localhost:3000")

	return &paymentTestEnv{
		handlers:      NewPaymentHandlers(partnerRepo, appRepo, eventRepo, svc),
		client:        client,
		payments:      paymentRepo,
		appRepo:       appRepo,
		partnerUserID: p.UserID,
		appID:         app.ID,
	}
}

func (env *paymentTestEnv) checkoutRequest(userID, applicationID string) *http.Request {
	body, _ := json.Marshal(CheckoutRequest{ApplicationID: applicationID})
	req := httptest.NewRequest(http.MethodPost, "/payments/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	return req
}

func TestCheckout_Success(t *testing.T) {
	env := newPaymentTestEnv(t)

	rr := httptest.NewRecorder()
	env.handlers.Checkout(rr, env.checkoutRequest(env.partnerUserID, env.appID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp CheckoutResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "cs_test_1" {
		t.Errorf("expected session ID cs_test_1, got %q", resp.SessionID)
	}
	if resp.CheckoutURL == "" {
		t.Error("expected a checkout URL")
	}
	if env.client.calls != 1 {
		t.Errorf("expected 1 checkout session created, got %d", env.client.calls)
	}

	record, err := env.payments.GetBySessionID("cs_test_1")
	if err != nil {
		t.Fatalf("expected pending payment record: %v", err)
	}
	if record.Status != payment.StatusPending {
		t.Errorf("expected pending status, got %q", record.Status)
	}
	if record.Amount != 50000 {
		t.Errorf("expected amount 50000, got %d", record.Amount)
	}
}

func TestCheckout_RequiresPartnerProfile(t *testing.T) {
	env := newPaymentTestEnv(t)

	rr := httptest.NewRecorder()
	env.handlers.Checkout(rr, env.checkoutRequest("user-without-profile", env.appID))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
	if env.client.calls != 0 {
		t.Errorf("expected no checkout sessions, got %d", env.client.calls)
	}
}

func TestCheckout_ApplicationNotFound(t *testing.T) {
	env := newPaymentTestEnv(t)

	rr := httptest.NewRecorder()
	env.handlers.Checkout(rr, env.checkoutRequest(env.partnerUserID, "no-such-application"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCheckout_OtherPartnersApplication(t *testing.T) {
	env := newPaymentTestEnv(t)

	// A second partner must not pay for the first partner's application.
	other := &partner.Partner{
		UserID:       "user-2",
		BusinessName: "Other Goods Ltd.",
		BrandName:    "Other Goods",
	}
	if err := env.handlers.partners.Insert(other); err != nil {
		t.Fatalf("failed to seed second partner: %v", err)
	}

	rr := httptest.NewRecorder()
	env.handlers.Checkout(rr, env.checkoutRequest(other.UserID, env.appID))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
	if env.client.calls != 0 {
		t.Errorf("expected no checkout sessions, got %d", env.client.calls)
	}
}

func TestCheckout_NoFeeDue(t *testing.T) {
	env := newPaymentTestEnv(t)

	app, err := env.appRepo.GetByID(env.appID)
	if err != nil {
		t.Fatalf("failed to load application: %v", err)
	}
	app.PaymentStatus = partner.PaymentPaid
	if err := env.appRepo.Update(app); err != nil {
		t.Fatalf("failed to update application: %v", err)
	}

	rr := httptest.NewRecorder()
	env.handlers.Checkout(rr, env.checkoutRequest(env.partnerUserID, env.appID))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCheckout_StripeUnavailable(t *testing.T) {
	env := newPaymentTestEnv(t)
	env.client.err = errors.New("stripe: connection refused")

	rr := httptest.NewRecorder()
	env.handlers.Checkout(rr, env.checkoutRequest(env.partnerUserID, env.appID))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rr.Code)
	}
}

func TestCheckout_MissingApplicationID(t *testing.T) {
	env := newPaymentTestEnv(t)

	rr := httptest.NewRecorder()
	env.handlers.Checkout(rr, env.checkoutRequest(env.partnerUserID, ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
