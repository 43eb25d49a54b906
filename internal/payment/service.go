package payment

import (
	"errors"
	"fmt"

	"github.com/festago/festago/internal/partner"
)

// ErrNoFeeDue is returned when checkout is requested for an application
// that has no outstanding participation fee.
var ErrNoFeeDue = errors.New("application has no outstanding participation fee")

// DefaultCurrency is used for participation fees.
const DefaultCurrency = "krw"

// Service creates checkout sessions for booth application participation fees.
type Service struct {
	payments    PaymentRepository
	client      Client
	frontendURL string
}

// NewService creates a payment service.
func NewService(payments PaymentRepository, client Client, frontendURL string) *Service {
	return &Service{
		payments:    payments,
		client:      client,
		frontendURL: frontendURL,
	}
}

// Checkout creates a Stripe Checkout Session for an approved application's
// participation fee and records a provisional pending payment. The returned
// URL is where the partner completes payment.
func (s *Service) Checkout(app *partner.Application, eventName, userID string) (*PaymentRecord, string, error) {
	if app.Status != partner.StatusApproved || !app.FeeOutstanding() {
		return nil, "", ErrNoFeeDue
	}

	sess, err := s.client.CreateCheckoutSession(&CheckoutSessionParams{
		ApplicationID: app.ID,
		UserID:        userID,
		EventName:     eventName,
		Amount:        app.ParticipationFee,
		Currency:      DefaultCurrency,
		SuccessURL:    fmt.Sprintf("%s/partner/applications/%s?payment=success", s.frontendURL, app.ID),
		CancelURL:     fmt.Sprintf("%s/partner/applications/%s?payment=canceled", s.frontendURL, app.ID),
	})
	if err != nil {
		return nil, "", fmt.Errorf("create checkout session: %w", err)
	}

	record := &PaymentRecord{
		SessionID:     sess.ID,
		Status:        StatusPending,
		Amount:        app.ParticipationFee,
		Currency:      DefaultCurrency,
		UserID:        userID,
		ApplicationID: app.ID,
	}
	if err := s.payments.CreatePending(record); err != nil {
		return nil, "", fmt.Errorf("record payment: %w", err)
	}

	return record, sess.URL, nil
}
