package partner

import (
	"fmt"
	"time"
)

// Change kinds emitted by the application workflow. Callers dispatch
// these to the notifier; the workflow itself never writes notifications.
const (
	ChangeSubmitted       = "submitted"
	ChangeApproved        = "approved"
	ChangePaymentRequired = "payment_required"
	ChangeRejected        = "rejected"
	ChangeCancelled       = "cancelled"
	ChangeCompleted       = "completed"
	ChangePaid            = "paid"
)

// Change is a domain event describing what a workflow operation did.
type Change struct {
	Kind        string
	Application *Application
}

// Workflow applies application state transitions: it persists the new
// status, mutates the owning partner's running totals and returns the
// domain events for the caller to dispatch. Status changes and the
// notification writes they trigger are not a single atomic unit; a
// failed notification write does not roll back the status change.
type Workflow struct {
	partners     Repository
	applications ApplicationRepository
	now          func() time.Time
}

// NewWorkflow creates a Workflow over the given repositories.
func NewWorkflow(partners Repository, applications ApplicationRepository) *Workflow {
	return &Workflow{
		partners:     partners,
		applications: applications,
		now:          time.Now,
	}
}

// Submit files a new application with status pending and increments the
// partner's total application count.
func (w *Workflow) Submit(app *Application) ([]Change, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}

	app.Status = StatusPending
	if app.PaymentStatus == "" {
		app.PaymentStatus = PaymentUnpaid
	}
	if err := w.applications.Insert(app); err != nil {
		return nil, err
	}

	p, err := w.partners.GetByID(app.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner for counter update: %w", err)
	}
	p.TotalApplications++
	if err := w.partners.Update(p); err != nil {
		return nil, fmt.Errorf("failed to update partner totals: %w", err)
	}

	return []Change{{Kind: ChangeSubmitted, Application: app}}, nil
}

// ApprovalTerms carries what the organizer sets while approving. Zero
// values leave the application's existing fields alone.
type ApprovalTerms struct {
	OrganizerMessage string
	ParticipationFee int64
	BoothLocation    string
}

// Approve moves a pending application to approved, stamping reviewed_at
// and recording the organizer's terms. The terms are only written when
// the transition itself is valid; a rejected edge leaves the record
// untouched. The partner's approval count is incremented. If the
// participation fee is outstanding, an additional payment-required
// change is emitted.
func (w *Workflow) Approve(id string, terms ApprovalTerms) ([]Change, error) {
	app, err := w.transition(id, StatusApproved, func(app *Application) {
		app.OrganizerMessage = terms.OrganizerMessage
		if terms.ParticipationFee > 0 {
			app.ParticipationFee = terms.ParticipationFee
		}
		if terms.BoothLocation != "" {
			app.BoothLocation = terms.BoothLocation
		}
	})
	if err != nil {
		return nil, err
	}

	p, err := w.partners.GetByID(app.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner for counter update: %w", err)
	}
	p.TotalApprovals++
	if err := w.partners.Update(p); err != nil {
		return nil, fmt.Errorf("failed to update partner totals: %w", err)
	}

	changes := []Change{{Kind: ChangeApproved, Application: app}}
	if app.FeeOutstanding() {
		changes = append(changes, Change{Kind: ChangePaymentRequired, Application: app})
	}
	return changes, nil
}

// Reject moves a pending application to rejected, recording the reason.
func (w *Workflow) Reject(id, reason string) ([]Change, error) {
	app, err := w.transition(id, StatusRejected, func(app *Application) {
		app.RejectionReason = reason
	})
	if err != nil {
		return nil, err
	}
	return []Change{{Kind: ChangeRejected, Application: app}}, nil
}

// Cancel moves a pending application to cancelled. Cancellation is
// partner-initiated and emits no notification.
func (w *Workflow) Cancel(id string) ([]Change, error) {
	app, err := w.transition(id, StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	return []Change{{Kind: ChangeCancelled, Application: app}}, nil
}

// Complete moves an approved application to completed, typically from
// the post-event batch step that also generates analytics.
func (w *Workflow) Complete(id string) ([]Change, error) {
	app, err := w.transition(id, StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	return []Change{{Kind: ChangeCompleted, Application: app}}, nil
}

// MarkPaid records the participation fee payment. Not a status-machine
// edge; valid whenever a fee is outstanding.
func (w *Workflow) MarkPaid(id string) ([]Change, error) {
	app, err := w.applications.GetByID(id)
	if err != nil {
		return nil, err
	}
	if app.PaymentStatus == PaymentPaid {
		// Already settled; webhook retries land here.
		return nil, nil
	}
	now := w.now()
	app.PaymentStatus = PaymentPaid
	app.PaidAt = &now
	if err := w.applications.Update(app); err != nil {
		return nil, err
	}
	return []Change{{Kind: ChangePaid, Application: app}}, nil
}

// transition loads the application, validates the edge against the
// state machine and persists the new status. Re-transitioning a
// terminal state is rejected rather than silently overwritten.
func (w *Workflow) transition(id, to string, mutate func(*Application)) (*Application, error) {
	app, err := w.applications.GetByID(id)
	if err != nil {
		return nil, err
	}
	if app.Status == to {
		// Repeated saves with an unchanged status emit nothing.
		return nil, &ErrInvalidTransition{From: app.Status, To: to}
	}
	if !CanTransition(app.Status, to) {
		return nil, &ErrInvalidTransition{From: app.Status, To: to}
	}

	app.Status = to
	if mutate != nil {
		mutate(app)
	}
	// Completion keeps the original review timestamp when one exists.
	if app.ReviewedAt == nil || to != StatusCompleted {
		now := w.now()
		app.ReviewedAt = &now
	}

	if err := w.applications.Update(app); err != nil {
		return nil, err
	}
	return app, nil
}

// Stats returns the partner's application counts by status.
func (w *Workflow) Stats(partnerID string) (ApplicationStats, error) {
	apps, err := w.applications.ListByPartner(partnerID)
	if err != nil {
		return ApplicationStats{}, err
	}
	var stats ApplicationStats
	for _, app := range apps {
		stats.Total++
		switch app.Status {
		case StatusPending:
			stats.Pending++
		case StatusApproved:
			stats.Approved++
		case StatusRejected:
			stats.Rejected++
		case StatusCancelled:
			stats.Cancelled++
		case StatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}
