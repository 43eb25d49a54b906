package idempotency

import (
	"sync"
	"time"
)

// InMemoryRepository implements Repository with in-memory storage.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRepository creates a new in-memory idempotency repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

func recordKey(key, method, route string) string {
	return key + "\x00" + method + "\x00" + route
}

// Get retrieves the cached response for (key, method, route). A record
// whose body no longer matches its stored hash is treated as absent so
// a corrupted cache entry never replays; cleanup removes it by age.
func (r *InMemoryRepository) Get(key, method, route string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[recordKey(key, method, route)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if HashBody(rec.Body) != rec.BodyHash {
		return nil, ErrKeyNotFound
	}

	out := *rec
	return &out, nil
}

// Store caches a response, computing the body hash and stamping the
// creation time when missing.
func (r *InMemoryRepository) Store(rec *Record) error {
	if err := ValidateKey(rec.Key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := recordKey(rec.Key, rec.Method, rec.Route)
	if _, exists := r.records[k]; exists {
		return ErrKeyExists
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.BodyHash == "" {
		rec.BodyHash = HashBody(rec.Body)
	}

	stored := *rec
	r.records[k] = &stored
	return nil
}

// DeleteOlderThan removes records older than the given age.
func (r *InMemoryRepository) DeleteOlderThan(age time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-age)
	deleted := int64(0)
	for k, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.records, k)
			deleted++
		}
	}
	return deleted, nil
}
