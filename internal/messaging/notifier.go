package messaging

import (
	"fmt"
	"log/slog"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/partner"
)

// Notifier turns application workflow changes into notification feed
// entries and pushes them to connected websocket clients. Failures are
// logged, never propagated: a missing notification must not undo the
// status change that triggered it.
type Notifier struct {
	notifications NotificationRepository
	partners      partner.Repository
	events        event.Repository
	broadcaster   *Broadcaster
	logger        *slog.Logger
}

// NewNotifier creates a Notifier. The broadcaster may be nil when live
// push is disabled.
func NewNotifier(
	notifications NotificationRepository,
	partners partner.Repository,
	events event.Repository,
	broadcaster *Broadcaster,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		partners:      partners,
		events:        events,
		broadcaster:   broadcaster,
		logger:        logger,
	}
}

// Dispatch fans each workflow change out to the application's partner.
func (n *Notifier) Dispatch(changes []partner.Change) {
	for _, change := range changes {
		notif := n.build(change)
		if notif == nil {
			continue
		}
		n.deliver(notif)
	}
}

// NotifyMessage notifies the receiver of a new direct message. The
// sender gets nothing, and announcements have no receiver to notify.
func (n *Notifier) NotifyMessage(m *Message) {
	if m.Broadcast() {
		return
	}
	preview := m.Content
	if len([]rune(preview)) > 80 {
		preview = string([]rune(preview)[:80])
	}
	n.deliver(&Notification{
		UserID:    m.ReceiverID,
		Type:      NotificationMessageReceived,
		Title:     "New message",
		Body:      preview,
		RelatedID: m.ID,
	})
}

func (n *Notifier) build(change partner.Change) *Notification {
	app := change.Application
	p, err := n.partners.GetByID(app.PartnerID)
	if err != nil {
		n.logger.Error("failed to resolve partner for notification",
			"error", err,
			"partner_id", app.PartnerID,
			"application_id", app.ID,
		)
		return nil
	}

	eventName := "the event"
	if e, err := n.events.GetByID(app.EventID); err == nil {
		eventName = e.Name
	}

	notif := &Notification{
		UserID:    p.UserID,
		RelatedID: app.ID,
	}
	switch change.Kind {
	case partner.ChangeSubmitted:
		notif.Type = NotificationApplicationSubmitted
		notif.Title = "Application submitted"
		notif.Body = fmt.Sprintf("Your booth application for %s has been received.", eventName)
	case partner.ChangeApproved:
		notif.Type = NotificationApplicationApproved
		notif.Title = "Application approved"
		notif.Body = fmt.Sprintf("Your booth application for %s was approved.", eventName)
		if app.OrganizerMessage != "" {
			notif.Body += " Organizer note: " + app.OrganizerMessage
		}
	case partner.ChangePaymentRequired:
		notif.Type = NotificationPaymentRequired
		notif.Title = "Payment required"
		notif.Body = fmt.Sprintf("Pay the participation fee to confirm your booth at %s.", eventName)
	case partner.ChangeRejected:
		notif.Type = NotificationApplicationRejected
		notif.Title = "Application rejected"
		notif.Body = fmt.Sprintf("Your booth application for %s was rejected.", eventName)
		if app.RejectionReason != "" {
			notif.Body += " Reason: " + app.RejectionReason
		}
	case partner.ChangePaid:
		notif.Type = NotificationPaymentConfirmed
		notif.Title = "Payment confirmed"
		notif.Body = fmt.Sprintf("Your participation fee for %s has been received.", eventName)
	case partner.ChangeCompleted:
		notif.Type = NotificationAnalyticsReady
		notif.Title = "Analytics ready"
		notif.Body = fmt.Sprintf("Performance analytics for %s are now available.", eventName)
	default:
		// Cancellations are partner-initiated and generate no entry.
		return nil
	}
	return notif
}

func (n *Notifier) deliver(notif *Notification) {
	if err := n.notifications.Insert(notif); err != nil {
		n.logger.Error("failed to store notification",
			"error", err,
			"user_id", notif.UserID,
			"type", notif.Type,
		)
		return
	}
	if n.broadcaster != nil {
		n.broadcaster.Broadcast(notif.UserID, notif)
	}
}
