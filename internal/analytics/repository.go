package analytics

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines analytics record data operations.
type Repository interface {
	// Insert stores a new record. Returns ErrDuplicateAnalytics if the
	// (partner, event) pair already has one.
	Insert(rec *Record) error

	// Update modifies an existing record.
	Update(rec *Record) error

	// GetByID retrieves a record by its ID.
	GetByID(id string) (*Record, error)

	// ListByPartner returns the partner's records, newest first.
	ListByPartner(partnerID string) ([]*Record, error)

	// Sample returns up to limit records belonging to other partners,
	// in random order. Serves partners with no data of their own.
	Sample(excludePartnerID string, limit int) ([]*Record, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	byPair  map[string]string // partnerID+eventID -> record ID
}

// NewInMemoryRepository creates a new in-memory analytics repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
		byPair:  make(map[string]string),
	}
}

func recordKey(partnerID, eventID string) string {
	return partnerID + "\x00" + eventID
}

// Insert stores a new record, rejecting duplicates per (partner, event).
func (r *InMemoryRepository) Insert(rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(rec.PartnerID, rec.EventID)
	if _, ok := r.byPair[key]; ok {
		return ErrDuplicateAnalytics
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now()
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = now
	}
	rec.UpdatedAt = now

	r.records[rec.ID] = cloneRecord(rec)
	r.byPair[key] = rec.ID
	return nil
}

// Update modifies an existing record.
func (r *InMemoryRepository) Update(rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[rec.ID]
	if !ok {
		return ErrAnalyticsNotFound
	}
	rec.PartnerID = existing.PartnerID
	rec.EventID = existing.EventID
	rec.GeneratedAt = existing.GeneratedAt
	rec.UpdatedAt = time.Now()
	r.records[rec.ID] = cloneRecord(rec)
	return nil
}

// GetByID retrieves a record by its ID.
func (r *InMemoryRepository) GetByID(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrAnalyticsNotFound
	}
	return cloneRecord(rec), nil
}

// ListByPartner returns the partner's records, newest first.
func (r *InMemoryRepository) ListByPartner(partnerID string) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Record
	for _, rec := range r.records {
		if rec.PartnerID == partnerID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out, nil
}

// Sample returns up to limit foreign records in random order.
func (r *InMemoryRepository) Sample(excludePartnerID string, limit int) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Record
	for _, rec := range r.records {
		if rec.PartnerID != excludePartnerID {
			out = append(out, cloneRecord(rec))
		}
	}
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRecord(rec *Record) *Record {
	copied := *rec
	if rec.HourlyVisitors != nil {
		copied.HourlyVisitors = make(map[string]int, len(rec.HourlyVisitors))
		for k, v := range rec.HourlyVisitors {
			copied.HourlyVisitors[k] = v
		}
	}
	copied.TopProducts = append([]Product(nil), rec.TopProducts...)
	copied.PositiveKeywords = append([]Keyword(nil), rec.PositiveKeywords...)
	copied.NegativeKeywords = append([]Keyword(nil), rec.NegativeKeywords...)
	return &copied
}
