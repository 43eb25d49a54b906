package messaging

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageRepository defines direct message data operations.
type MessageRepository interface {
	// Insert stores a new message.
	Insert(m *Message) error

	// GetByID retrieves a message by its ID.
	GetByID(id string) (*Message, error)

	// Conversation returns all messages exchanged between two users,
	// oldest first.
	Conversation(userA, userB string) ([]*Message, error)

	// ListByUser returns all messages the user sent or received,
	// newest first.
	ListByUser(userID string) ([]*Message, error)

	// MarkRead marks a message read on behalf of its receiver.
	MarkRead(id, receiverID string) error

	// UnreadCount counts unread messages addressed to the user.
	UnreadCount(userID string) (int, error)
}

// NotificationRepository defines notification feed data operations.
type NotificationRepository interface {
	// Insert stores a new notification.
	Insert(n *Notification) error

	// GetByID retrieves a notification by its ID.
	GetByID(id string) (*Notification, error)

	// ListByUser returns the user's notifications, newest first. When
	// unreadOnly is set, read entries are skipped.
	ListByUser(userID string, unreadOnly bool) ([]*Notification, error)

	// MarkRead marks one notification read on behalf of its owner.
	MarkRead(id, userID string) error

	// MarkAllRead marks every unread notification of the user read and
	// returns how many were affected.
	MarkAllRead(userID string) (int, error)

	// UnreadCount counts the user's unread notifications.
	UnreadCount(userID string) (int, error)
}

// InMemoryMessageRepository is an in-memory implementation of MessageRepository.
type InMemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]*Message
}

// NewInMemoryMessageRepository creates a new in-memory message repository.
func NewInMemoryMessageRepository() *InMemoryMessageRepository {
	return &InMemoryMessageRepository{messages: make(map[string]*Message)}
}

// Insert stores a new message. The type defaults from the receiver: a
// message without one is an announcement.
func (r *InMemoryMessageRepository) Insert(m *Message) error {
	if m.Content == "" {
		return ErrEmptyContent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Type == "" {
		if m.ReceiverID == "" {
			m.Type = MessageAnnouncement
		} else {
			m.Type = MessageDirect
		}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.messages[m.ID] = cloneMessage(m)
	return nil
}

// GetByID retrieves a message by its ID.
func (r *InMemoryMessageRepository) GetByID(id string) (*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return cloneMessage(m), nil
}

// Conversation returns all messages exchanged between two users, oldest first.
func (r *InMemoryMessageRepository) Conversation(userA, userB string) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Message
	for _, m := range r.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) ||
			(m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListByUser returns all messages the user sent or received, newest
// first. Announcements reach every inbox.
func (r *InMemoryMessageRepository) ListByUser(userID string) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Message
	for _, m := range r.messages {
		if m.SenderID == userID || m.ReceiverID == userID || m.Broadcast() {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead marks a message read on behalf of its receiver. Marking a
// message someone else received is reported as not found. Announcements
// carry no per-user read state, so they fall through the receiver check
// the same way.
func (r *InMemoryMessageRepository) MarkRead(id, receiverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[id]
	if !ok || m.ReceiverID != receiverID {
		return ErrMessageNotFound
	}
	if !m.Read {
		now := time.Now()
		m.Read = true
		m.ReadAt = &now
	}
	return nil
}

// UnreadCount counts unread direct messages addressed to the user.
// Announcements have no per-user read state and are excluded.
func (r *InMemoryMessageRepository) UnreadCount(userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.messages {
		if m.ReceiverID == userID && !m.Read {
			count++
		}
	}
	return count, nil
}

func cloneMessage(m *Message) *Message {
	copied := *m
	if m.Attachments != nil {
		copied.Attachments = append([]string(nil), m.Attachments...)
	}
	return &copied
}

// InMemoryNotificationRepository is an in-memory implementation of
// NotificationRepository.
type InMemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*Notification
}

// NewInMemoryNotificationRepository creates a new in-memory
// notification repository.
func NewInMemoryNotificationRepository() *InMemoryNotificationRepository {
	return &InMemoryNotificationRepository{notifications: make(map[string]*Notification)}
}

// Insert stores a new notification.
func (r *InMemoryNotificationRepository) Insert(n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	copied := *n
	r.notifications[n.ID] = &copied
	return nil
}

// GetByID retrieves a notification by its ID.
func (r *InMemoryNotificationRepository) GetByID(id string) (*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	copied := *n
	return &copied, nil
}

// ListByUser returns the user's notifications, newest first.
func (r *InMemoryNotificationRepository) ListByUser(userID string, unreadOnly bool) ([]*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead marks one notification read on behalf of its owner.
func (r *InMemoryNotificationRepository) MarkRead(id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotificationNotFound
	}
	if !n.Read {
		now := time.Now()
		n.Read = true
		n.ReadAt = &now
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read.
func (r *InMemoryNotificationRepository) MarkAllRead(userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

// UnreadCount counts the user's unread notifications.
func (r *InMemoryNotificationRepository) UnreadCount(userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}
