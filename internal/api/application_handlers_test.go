package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/festago/festago/internal/analytics"
	"github.com/festago/festago/internal/audit"
	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/payment"
	"github.com/stripe/stripe-go/v81"
)

const testAdminKey = "op-test-key"

// applicationTestEnv wires the application handlers against in-memory
// repositories with one partner and one upcoming event.
type applicationTestEnv struct {
	handlers      *ApplicationHandlers
	partnerRepo   *partner.InMemoryRepository
	appRepo       *partner.InMemoryApplicationRepository
	notifications *messaging.InMemoryNotificationRepository
	audits        *audit.InMemoryRepository
	partnerID     string
	partnerUserID string
	eventID       string
}

func newApplicationTestEnv(t *testing.T) *applicationTestEnv {
	t.Helper()

	partnerRepo := partner.NewInMemoryRepository()
	appRepo := partner.NewInMemoryApplicationRepository()
	eventRepo := event.NewInMemoryRepository()
	notifications := messaging.NewInMemoryNotificationRepository()
	analyticsRepo := analytics.NewInMemoryRepository()
	reviewRepo := event.NewInMemoryReviewRepository()
	auditRepo := audit.NewInMemoryRepository()

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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	workflow := partner.NewWorkflow(partnerRepo, appRepo)
	notifier := messaging.NewNotifier(notifications, partnerRepo, eventRepo, nil, logger)
	analyticsSvc := analytics.NewService(analyticsRepo, eventRepo, reviewRepo, logger)
	paymentSvc := payment.NewService(payment.NewInMemoryPaymentRepository(), &stubStripeClient{}, "http://localhost:3000")

	handlers := NewApplicationHandlers(ApplicationHandlersConfig{
		Partners:     partnerRepo,
		Applications: appRepo,
		Events:       eventRepo,
		Workflow:     workflow,
		Notifier:     notifier,
		Analytics:    analyticsSvc,
		Payments:     paymentSvc,
		Audits:       auditRepo,
		AdminAPIKey:  testAdminKey,
	})

	return &applicationTestEnv{
		handlers:      handlers,
		partnerRepo:   partnerRepo,
		appRepo:       appRepo,
		notifications: notifications,
		audits:        auditRepo,
		partnerID:     p.ID,
		partnerUserID: p.UserID,
		eventID:       e.ID,
	}
}

type stubStripeClient struct{}

func (s *stubStripeClient) CreateCheckoutSession(params *payment.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{ID: "cs_stub", URL: "https://checkout.stripe.com/pay/cs_stub"}, nil
}

func (env *applicationTestEnv) submit(t *testing.T) *partner.Application {
	t.Helper()
	app := &partner.Application{
		PartnerID: env.partnerID,
		EventID:   env.eventID,
		BoothType: partner.BoothTypeFood,
		BoothSize: partner.BoothSizeStandard,
	}
	if err := app.Validate(); err != nil {
		t.Fatalf("invalid seed application: %v", err)
	}
	app.Status = partner.StatusPending
	app.PaymentStatus = partner.PaymentUnpaid
	if err := env.appRepo.Insert(app); err != nil {
		t.Fatalf("failed to seed application: %v", err)
	}
	return app
}

func (env *applicationTestEnv) asPartner(req *http.Request) *http.Request {
	return req.WithContext(middleware.SetUserID(req.Context(), env.partnerUserID))
}

func TestSubmitApplication(t *testing.T) {
	env := newApplicationTestEnv(t)

	body, _ := json.Marshal(ApplicationRequest{
		EventID:    env.eventID,
		BoothType:  partner.BoothTypeFood,
		BoothSize:  partner.BoothSizeStandard,
		Products:   "tteokbokki, hotteok",
		BrandIntro: "Street food since 2015",
	})
	req := env.asPartner(httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	env.handlers.Submit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var app partner.Application
	if err := json.NewDecoder(w.Body).Decode(&app); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if app.Status != partner.StatusPending {
		t.Errorf("expected pending status, got %q", app.Status)
	}

	notifs, err := env.notifications.ListByUser(env.partnerUserID, false)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Type != messaging.NotificationApplicationSubmitted {
		t.Errorf("expected submitted notification, got %q", notifs[0].Type)
	}
}

func TestSubmitApplication_Duplicate(t *testing.T) {
	env := newApplicationTestEnv(t)
	env.submit(t)

	body, _ := json.Marshal(ApplicationRequest{
		EventID:   env.eventID,
		BoothType: partner.BoothTypeFood,
		BoothSize: partner.BoothSizeStandard,
	})
	req := env.asPartner(httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	env.handlers.Submit(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitApplication_InvalidBoothType(t *testing.T) {
	env := newApplicationTestEnv(t)

	body, _ := json.Marshal(ApplicationRequest{
		EventID:   env.eventID,
		BoothType: "spaceship",
		BoothSize: partner.BoothSizeStandard,
	})
	req := env.asPartner(httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	env.handlers.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestApproveApplication(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	body, _ := json.Marshal(ApproveRequest{
		OrganizerMessage: "Welcome aboard",
		ParticipationFee: 50000,
		BoothLocation:    "A-12",
	})
	req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/approve", bytes.NewReader(body))
	req.SetPathValue("id", app.ID)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	env.handlers.Approve(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	updated, err := env.appRepo.GetByID(app.ID)
	if err != nil {
		t.Fatalf("failed to reload application: %v", err)
	}
	if updated.Status != partner.StatusApproved {
		t.Errorf("expected approved, got %q", updated.Status)
	}
	if updated.ParticipationFee != 50000 {
		t.Errorf("expected fee 50000, got %d", updated.ParticipationFee)
	}
	if updated.BoothLocation != "A-12" {
		t.Errorf("expected booth A-12, got %q", updated.BoothLocation)
	}

	// Approval with an outstanding fee fans out two notifications.
	notifs, err := env.notifications.ListByUser(env.partnerUserID, false)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifs) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifs))
	}
}

func TestApproveApplication_RejectedStaysUntouched(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	body, _ := json.Marshal(RejectRequest{Reason: "booth capacity full"})
	req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/reject", bytes.NewReader(body))
	req.SetPathValue("id", app.ID)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	env.handlers.Reject(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("reject failed: %d: %s", w.Code, w.Body.String())
	}

	body, _ = json.Marshal(ApproveRequest{
		OrganizerMessage: "Welcome aboard",
		ParticipationFee: 50000,
		BoothLocation:    "A-12",
	})
	req = httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/approve", bytes.NewReader(body))
	req.SetPathValue("id", app.ID)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w = httptest.NewRecorder()
	env.handlers.Approve(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	updated, err := env.appRepo.GetByID(app.ID)
	if err != nil {
		t.Fatalf("failed to reload application: %v", err)
	}
	if updated.Status != partner.StatusRejected {
		t.Errorf("expected rejected, got %q", updated.Status)
	}
	if updated.ParticipationFee != 0 || updated.BoothLocation != "" {
		t.Errorf("failed approval wrote terms: fee=%d booth=%q", updated.ParticipationFee, updated.BoothLocation)
	}
}

func TestApproveApplication_RequiresOperatorKey(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	body, _ := json.Marshal(ApproveRequest{OrganizerMessage: "hi"})
	req := env.asPartner(httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/approve", bytes.NewReader(body)))
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	env.handlers.Approve(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 without operator key, got %d", w.Code)
	}
}

func TestRejectApplication_RequiresReason(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	body, _ := json.Marshal(RejectRequest{})
	req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/reject", bytes.NewReader(body))
	req.SetPathValue("id", app.ID)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	env.handlers.Reject(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing reason, got %d", w.Code)
	}
}

func TestCancelApplication_TerminalStateGuard(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	body, _ := json.Marshal(RejectRequest{Reason: "Booth capacity reached"})
	req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/reject", bytes.NewReader(body))
	req.SetPathValue("id", app.ID)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	env.handlers.Reject(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("setup rejection failed: %d: %s", w.Code, w.Body.String())
	}

	// Rejected is terminal; the partner can no longer cancel.
	cancelReq := env.asPartner(httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/cancel", nil))
	cancelReq.SetPathValue("id", app.ID)
	cw := httptest.NewRecorder()
	env.handlers.Cancel(cw, cancelReq)

	if cw.Code != http.StatusConflict {
		t.Errorf("expected 409 invalid transition, got %d: %s", cw.Code, cw.Body.String())
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(cw.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if errResp.Error.Code != ErrCodeInvalidTransition {
		t.Errorf("expected %s, got %s", ErrCodeInvalidTransition, errResp.Error.Code)
	}
}

func TestCancelApplication_OwnerOnly(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	other := &partner.Partner{UserID: "user-2", BusinessName: "Other Co.", BusinessNumber: "999-88-77777"}
	if err := env.partnerRepo.Insert(other); err != nil {
		t.Fatalf("failed to seed second partner: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/cancel", nil)
	req.SetPathValue("id", app.ID)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-2"))
	w := httptest.NewRecorder()
	env.handlers.Cancel(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestPayApplication_NoFeeDue(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	req := env.asPartner(httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/pay", nil))
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	env.handlers.Pay(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for zero fee, got %d: %s", w.Code, w.Body.String())
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if errResp.Error.Code != ErrCodeNoFeeDue {
		t.Errorf("expected %s, got %s", ErrCodeNoFeeDue, errResp.Error.Code)
	}
}

func TestPayApplication_CreatesSession(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)
	app.Status = partner.StatusApproved
	app.ParticipationFee = 50000
	if err := env.appRepo.Update(app); err != nil {
		t.Fatalf("failed to update application: %v", err)
	}

	req := env.asPartner(httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/pay", nil))
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	env.handlers.Pay(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp CheckoutResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID == "" || resp.CheckoutURL == "" {
		t.Error("expected a session id and checkout URL")
	}
}

func TestListApplications_StatusFilter(t *testing.T) {
	env := newApplicationTestEnv(t)
	env.submit(t)

	req := env.asPartner(httptest.NewRequest(http.MethodGet, "/applications?status=pending", nil))
	w := httptest.NewRecorder()
	env.handlers.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ApplicationListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected 1 pending application, got %d", resp.Total)
	}
}

func TestExportApplications(t *testing.T) {
	env := newApplicationTestEnv(t)
	env.submit(t)

	req := env.asPartner(httptest.NewRequest(http.MethodGet, "/applications/export", nil))
	w := httptest.NewRecorder()
	env.handlers.Export(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestApproveApplication_RecordsAuditEntry(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	body, _ := json.Marshal(ApproveRequest{OrganizerMessage: "Welcome"})
	req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/approve", bytes.NewReader(body))
	req.SetPathValue("id", app.ID)
	req.Header.Set("X-Admin-Key", testAdminKey)
	req = req.WithContext(middleware.SetUserID(req.Context(), "operator-1"))
	w := httptest.NewRecorder()
	env.handlers.Approve(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	records, err := env.audits.ByEntity(audit.EntityApplication, app.ID, 0)
	if err != nil {
		t.Fatalf("failed to query audit trail: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	if records[0].Action != audit.ActionApproveApplication {
		t.Errorf("expected approve action, got %q", records[0].Action)
	}
	if records[0].Outcome != audit.OutcomeSuccess {
		t.Errorf("expected success outcome, got %q", records[0].Outcome)
	}
	if records[0].UserID != "operator-1" {
		t.Errorf("expected operator-1, got %q", records[0].UserID)
	}
}

func TestAuditTrail_OperatorOnly(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID+"/audit", nil)
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	env.handlers.AuditTrail(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without operator key, got %d", w.Code)
	}
}

func TestAuditTrail_ReturnsRecentActions(t *testing.T) {
	env := newApplicationTestEnv(t)
	app := env.submit(t)

	// Rejecting twice leaves one success and one invalid-transition failure.
	for i := 0; i < 2; i++ {
		body, _ := json.Marshal(RejectRequest{Reason: "Booth category is full"})
		req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID+"/reject", bytes.NewReader(body))
		req.SetPathValue("id", app.ID)
		req.Header.Set("X-Admin-Key", testAdminKey)
		w := httptest.NewRecorder()
		env.handlers.Reject(w, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID+"/audit", nil)
	req.SetPathValue("id", app.ID)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	env.handlers.AuditTrail(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp AuditTrailResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 audit records, got %d", resp.Total)
	}
	if resp.Records[0].Outcome != audit.OutcomeFailure {
		t.Errorf("expected newest record to be the failed retry, got %q", resp.Records[0].Outcome)
	}
	if resp.Records[1].Outcome != audit.OutcomeSuccess {
		t.Errorf("expected first rejection to succeed, got %q", resp.Records[1].Outcome)
	}
}
