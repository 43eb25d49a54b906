// Package messaging provides partner-organizer direct messages and the
// notification feed fed by application workflow changes.
package messaging

import (
	"errors"
	"time"
)

// Notification types.
const (
	NotificationApplicationSubmitted = "application_submitted"
	NotificationApplicationApproved  = "application_approved"
	NotificationApplicationRejected  = "application_rejected"
	NotificationPaymentRequired      = "payment_required"
	NotificationPaymentConfirmed     = "payment_confirmed"
	NotificationAnalyticsReady       = "analytics_ready"
	NotificationMessageReceived      = "message_received"
)

var (
	// ErrMessageNotFound is returned when a message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotificationNotFound is returned when a notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrEmptyContent is returned when a message has no content.
	ErrEmptyContent = errors.New("message content is empty")
)

// Message types.
const (
	MessageDirect       = "direct"
	MessageAnnouncement = "announcement"
)

// Message is a direct message between two users, optionally threaded
// under a booth application. Announcements have no receiver and reach
// every user's inbox.
type Message struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	SenderID      string     `json:"sender_id"`
	ReceiverID    string     `json:"receiver_id,omitempty"`
	ApplicationID string     `json:"application_id,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	Content       string     `json:"content"`
	Attachments   []string   `json:"attachments,omitempty"`
	Read          bool       `json:"read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Broadcast reports whether the message is an announcement.
func (m *Message) Broadcast() bool {
	return m.Type == MessageAnnouncement
}

// Notification is a feed entry for a single user.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	RelatedID string     `json:"related_id,omitempty"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
