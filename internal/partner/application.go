package partner

import (
	"errors"
	"fmt"
	"time"
)

// Application statuses.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Booth types.
const (
	BoothTypeFood       = "food"
	BoothTypeGoods      = "goods"
	BoothTypeExperience = "experience"
	BoothTypePromotion  = "promotion"
)

// Booth sizes.
const (
	BoothSizeStandard = "3x3"
	BoothSizeLarge    = "6x3"
	BoothSizeCustom   = "custom"
)

// Payment statuses.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

var (
	// ErrInvalidBoothType is returned for an unknown booth type.
	ErrInvalidBoothType = errors.New("invalid booth type")

	// ErrInvalidBoothSize is returned for an unknown booth size.
	ErrInvalidBoothSize = errors.New("invalid booth size")
)

// ErrInvalidTransition is returned when a status change is not an
// allowed edge of the application state machine.
type ErrInvalidTransition struct {
	From, To string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// ValidBoothType reports whether t is a known booth type.
func ValidBoothType(t string) bool {
	switch t {
	case BoothTypeFood, BoothTypeGoods, BoothTypeExperience, BoothTypePromotion:
		return true
	}
	return false
}

// ValidBoothSize reports whether s is a known booth size.
func ValidBoothSize(s string) bool {
	switch s {
	case BoothSizeStandard, BoothSizeLarge, BoothSizeCustom:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an allowed edge.
// pending branches to approved, rejected or cancelled; approved may
// further move to completed. Terminal states have no outgoing edges.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected || to == StatusCancelled
	case StatusApproved:
		return to == StatusCompleted
	}
	return false
}

// Application is a partner's request to run a booth at an event.
// One per (partner, event).
type Application struct {
	ID        string `json:"id"`
	PartnerID string `json:"partner_id"`
	EventID   string `json:"event_id"`

	Status string `json:"status"`

	// Booth details.
	BoothType  string `json:"booth_type"`
	BoothSize  string `json:"booth_size"`
	Products   string `json:"products"`
	PriceRange string `json:"price_range,omitempty"`

	// Application pitch.
	BrandIntro  string   `json:"brand_intro"`
	BrandImages []string `json:"brand_images,omitempty"`

	// Prior experience.
	HasExperience     bool   `json:"has_experience"`
	PreviousFestivals string `json:"previous_festivals,omitempty"`
	PortfolioURL      string `json:"portfolio_url,omitempty"`

	SpecialRequests string `json:"special_requests,omitempty"`

	// Organizer feedback.
	OrganizerMessage string `json:"organizer_message,omitempty"`
	RejectionReason  string `json:"rejection_reason,omitempty"`

	// Payment.
	ParticipationFee int64      `json:"participation_fee"` // smallest currency unit
	PaymentStatus    string     `json:"payment_status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`

	// Booth assignment, e.g. "A-12".
	BoothLocation string `json:"booth_location,omitempty"`

	AppliedAt  time.Time  `json:"applied_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate checks booth enum fields.
func (a *Application) Validate() error {
	if !ValidBoothType(a.BoothType) {
		return ErrInvalidBoothType
	}
	if !ValidBoothSize(a.BoothSize) {
		return ErrInvalidBoothSize
	}
	return nil
}

// FeeOutstanding reports whether the application still owes its
// participation fee.
func (a *Application) FeeOutstanding() bool {
	return a.PaymentStatus == PaymentUnpaid && a.ParticipationFee > 0
}

// ApplicationStats is a per-partner breakdown of application counts.
type ApplicationStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}
