// Package payment provides models and services for participation fee payments.
package payment

import "time"

// Payment record statuses.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// PaymentRecord represents a provisional payment record for a Stripe Checkout Session
// covering a booth application's participation fee.
type PaymentRecord struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`                  // Stripe Checkout Session ID
	PaymentIntentID *string    `json:"payment_intent_id,omitempty"` // Filled once Stripe creates the intent
	Status          string     `json:"status"`                      // pending, succeeded, failed, canceled
	Amount          int64      `json:"amount"`                      // Fee in the smallest currency unit
	Currency        string     `json:"currency"`
	UserID          string     `json:"user_id"`        // Partner account paying the fee
	ApplicationID   string     `json:"application_id"` // Application the fee belongs to
	FailureReason   *string    `json:"failure_reason,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}
