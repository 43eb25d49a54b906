package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores and queries the audit trail.
type Repository interface {
	// Log appends an entry to the trail and returns the stored record.
	Log(entry Entry) (*Record, error)

	// ByEntity returns records for one entity, newest first. A limit of
	// zero means no limit.
	ByEntity(entityType, entityID string, limit int) ([]*Record, error)

	// ByUser returns records for one operator, newest first. A limit of
	// zero means no limit.
	ByUser(userID string, limit int) ([]*Record, error)
}

// InMemoryRepository keeps the audit trail in memory, preserving
// insertion order so queries can walk it newest first.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []*Record
}

// NewInMemoryRepository creates an empty in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Log appends an entry to the trail.
func (r *InMemoryRepository) Log(entry Entry) (*Record, error) {
	rec := &Record{
		ID:         uuid.New().String(),
		UserID:     entry.UserID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		Outcome:    entry.Outcome,
		CreatedAt:  time.Now().UTC(),
		RequestID:  entry.RequestID,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	out := *rec
	return &out, nil
}

// ByEntity returns records for one entity, newest first.
func (r *InMemoryRepository) ByEntity(entityType, entityID string, limit int) ([]*Record, error) {
	return r.filter(limit, func(rec *Record) bool {
		return rec.EntityType == entityType && rec.EntityID == entityID
	})
}

// ByUser returns records for one operator, newest first.
func (r *InMemoryRepository) ByUser(userID string, limit int) ([]*Record, error) {
	return r.filter(limit, func(rec *Record) bool {
		return rec.UserID == userID
	})
}

func (r *InMemoryRepository) filter(limit int, match func(*Record) bool) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Record
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if !match(rec) {
			continue
		}
		out := *rec
		results = append(results, &out)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
