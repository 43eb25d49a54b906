package partner

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DraftRepository defines application draft operations. Drafts upsert
// per (partner, event): saving an existing pair overwrites its data.
type DraftRepository interface {
	// Upsert stores or replaces the draft for (partner, event) and
	// reports whether a new draft was created.
	Upsert(d *ApplicationDraft) (created bool, err error)

	// Get retrieves the draft for (partner, event).
	Get(partnerID, eventID string) (*ApplicationDraft, error)

	// Delete removes the draft for (partner, event).
	Delete(partnerID, eventID string) error

	// ListByPartner returns the partner's drafts, most recently
	// updated first.
	ListByPartner(partnerID string) ([]*ApplicationDraft, error)
}

// InMemoryDraftRepository is an in-memory implementation of DraftRepository.
type InMemoryDraftRepository struct {
	mu     sync.RWMutex
	drafts map[string]*ApplicationDraft // keyed by partnerID + "\x00" + eventID
}

// NewInMemoryDraftRepository creates a new in-memory draft repository.
func NewInMemoryDraftRepository() *InMemoryDraftRepository {
	return &InMemoryDraftRepository{
		drafts: make(map[string]*ApplicationDraft),
	}
}

// Upsert stores or replaces the draft for (partner, event).
func (r *InMemoryDraftRepository) Upsert(d *ApplicationDraft) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(d.PartnerID, d.EventID)
	now := time.Now()

	existing, ok := r.drafts[key]
	if ok {
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
	} else {
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	r.drafts[key] = cloneDraft(d)
	return !ok, nil
}

// Get retrieves the draft for (partner, event).
func (r *InMemoryDraftRepository) Get(partnerID, eventID string) (*ApplicationDraft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drafts[pairKey(partnerID, eventID)]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return cloneDraft(d), nil
}

// Delete removes the draft for (partner, event).
func (r *InMemoryDraftRepository) Delete(partnerID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(partnerID, eventID)
	if _, ok := r.drafts[key]; !ok {
		return ErrDraftNotFound
	}
	delete(r.drafts, key)
	return nil
}

// ListByPartner returns the partner's drafts, most recently updated first.
func (r *InMemoryDraftRepository) ListByPartner(partnerID string) ([]*ApplicationDraft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ApplicationDraft
	for _, d := range r.drafts {
		if d.PartnerID == partnerID {
			out = append(out, cloneDraft(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func cloneDraft(d *ApplicationDraft) *ApplicationDraft {
	copied := *d
	if d.DraftData != nil {
		copied.DraftData = make(map[string]any, len(d.DraftData))
		for k, v := range d.DraftData {
			copied.DraftData[k] = v
		}
	}
	return &copied
}
