package payment

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrPaymentRecordNotFound is returned when a payment record is not found.
var ErrPaymentRecordNotFound = errors.New("payment record not found")

// ErrDuplicateSession is returned when a payment record already exists for a session.
var ErrDuplicateSession = errors.New("payment record already exists for session")

// PaymentRepository defines methods for payment record persistence.
type PaymentRepository interface {
	// CreatePending records a new pending payment. Returns ErrDuplicateSession
	// if a record already exists for the session ID.
	CreatePending(record *PaymentRecord) error
	GetByID(id string) (*PaymentRecord, error)
	GetBySessionID(sessionID string) (*PaymentRecord, error)
	ListByApplication(applicationID string) ([]*PaymentRecord, error)
	Update(record *PaymentRecord) error

	// MarkCompleted transitions the record for sessionID to succeeded and
	// stores the payment intent ID.
	MarkCompleted(sessionID, paymentIntentID string) error

	// MarkFailed transitions the record for sessionID to failed with a reason.
	MarkFailed(sessionID, reason string) error
}

// InMemoryPaymentRepository implements PaymentRepository with in-memory storage.
type InMemoryPaymentRepository struct {
	mu      sync.RWMutex
	records map[string]*PaymentRecord
}

// NewInMemoryPaymentRepository creates a new in-memory payment repository.
func NewInMemoryPaymentRepository() *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		records: make(map[string]*PaymentRecord),
	}
}

// CreatePending adds a new payment record in pending status.
func (r *InMemoryPaymentRepository) CreatePending(record *PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.findBySession(record.SessionID); exists {
		return ErrDuplicateSession
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.Status = StatusPending

	// Set timestamps for new record
	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	r.records[record.ID] = cloneRecord(record)

	return nil
}

// GetByID retrieves a payment record by ID.
func (r *InMemoryPaymentRepository) GetByID(id string) (*PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrPaymentRecordNotFound
	}

	return cloneRecord(record), nil
}

// GetBySessionID retrieves a payment record by session ID.
func (r *InMemoryPaymentRepository) GetBySessionID(sessionID string) (*PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.findBySession(sessionID)
	if !ok {
		return nil, ErrPaymentRecordNotFound
	}
	return cloneRecord(record), nil
}

// ListByApplication retrieves all payment records for an application.
func (r *InMemoryPaymentRepository) ListByApplication(applicationID string) ([]*PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*PaymentRecord
	for _, record := range r.records {
		if record.ApplicationID == applicationID {
			result = append(result, cloneRecord(record))
		}
	}
	return result, nil
}

// Update updates an existing payment record.
func (r *InMemoryPaymentRepository) Update(record *PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		return ErrPaymentRecordNotFound
	}

	// Update the UpdatedAt timestamp
	now := time.Now()
	record.UpdatedAt = &now

	r.records[record.ID] = cloneRecord(record)

	return nil
}

// MarkCompleted transitions the record for sessionID to succeeded.
func (r *InMemoryPaymentRepository) MarkCompleted(sessionID, paymentIntentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.findBySession(sessionID)
	if !ok {
		return ErrPaymentRecordNotFound
	}

	now := time.Now()
	record.Status = StatusSucceeded
	record.PaymentIntentID = &paymentIntentID
	record.FailureReason = nil
	record.UpdatedAt = &now
	return nil
}

// MarkFailed transitions the record for sessionID to failed with a reason.
func (r *InMemoryPaymentRepository) MarkFailed(sessionID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.findBySession(sessionID)
	if !ok {
		return ErrPaymentRecordNotFound
	}

	now := time.Now()
	record.Status = StatusFailed
	record.FailureReason = &reason
	record.UpdatedAt = &now
	return nil
}

// findBySession returns the stored (not cloned) record for a session ID.
// Callers must hold the lock.
func (r *InMemoryPaymentRepository) findBySession(sessionID string) (*PaymentRecord, bool) {
	for _, record := range r.records {
		if record.SessionID == sessionID {
			return record, true
		}
	}
	return nil, false
}

// cloneRecord deep-copies a payment record to prevent external mutation.
func cloneRecord(record *PaymentRecord) *PaymentRecord {
	copied := *record
	if record.PaymentIntentID != nil {
		id := *record.PaymentIntentID
		copied.PaymentIntentID = &id
	}
	if record.FailureReason != nil {
		reason := *record.FailureReason
		copied.FailureReason = &reason
	}
	if record.CreatedAt != nil {
		t := *record.CreatedAt
		copied.CreatedAt = &t
	}
	if record.UpdatedAt != nil {
		t := *record.UpdatedAt
		copied.UpdatedAt = &t
	}
	return &copied
}
