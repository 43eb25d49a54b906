package partner

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FestivalBookmarkRepository defines partner-side event bookmark
// operations. One bookmark per (partner, event).
type FestivalBookmarkRepository interface {
	// Insert stores a new bookmark.
	Insert(b *FestivalBookmark) error

	// Get retrieves the bookmark for (partner, event).
	Get(partnerID, eventID string) (*FestivalBookmark, error)

	// Update modifies an existing bookmark's memo.
	Update(b *FestivalBookmark) error

	// Delete removes the bookmark for (partner, event).
	Delete(partnerID, eventID string) error

	// ListByPartner returns the partner's bookmarks, newest first.
	ListByPartner(partnerID string) ([]*FestivalBookmark, error)
}

// Toggle creates the bookmark for (partner, event) if absent, removes
// it if present, and reports whether it now exists.
func Toggle(repo FestivalBookmarkRepository, partnerID, eventID, memo string) (bool, error) {
	_, err := repo.Get(partnerID, eventID)
	switch err {
	case nil:
		if err := repo.Delete(partnerID, eventID); err != nil {
			return false, err
		}
		return false, nil
	case ErrFestivalBookmarkNotFound:
		b := &FestivalBookmark{PartnerID: partnerID, EventID: eventID, Memo: memo}
		if err := repo.Insert(b); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

// InMemoryFestivalBookmarkRepository is an in-memory implementation of
// FestivalBookmarkRepository.
type InMemoryFestivalBookmarkRepository struct {
	mu        sync.RWMutex
	bookmarks map[string]*FestivalBookmark // keyed by partnerID + "\x00" + eventID
}

// NewInMemoryFestivalBookmarkRepository creates a new in-memory
// festival bookmark repository.
func NewInMemoryFestivalBookmarkRepository() *InMemoryFestivalBookmarkRepository {
	return &InMemoryFestivalBookmarkRepository{
		bookmarks: make(map[string]*FestivalBookmark),
	}
}

// Insert stores a new bookmark.
func (r *InMemoryFestivalBookmarkRepository) Insert(b *FestivalBookmark) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	copied := *b
	r.bookmarks[pairKey(b.PartnerID, b.EventID)] = &copied
	return nil
}

// Get retrieves the bookmark for (partner, event).
func (r *InMemoryFestivalBookmarkRepository) Get(partnerID, eventID string) (*FestivalBookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookmarks[pairKey(partnerID, eventID)]
	if !ok {
		return nil, ErrFestivalBookmarkNotFound
	}
	copied := *b
	return &copied, nil
}

// Update modifies an existing bookmark's memo.
func (r *InMemoryFestivalBookmarkRepository) Update(b *FestivalBookmark) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(b.PartnerID, b.EventID)
	existing, ok := r.bookmarks[key]
	if !ok {
		return ErrFestivalBookmarkNotFound
	}
	existing.Memo = b.Memo
	return nil
}

// Delete removes the bookmark for (partner, event).
func (r *InMemoryFestivalBookmarkRepository) Delete(partnerID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(partnerID, eventID)
	if _, ok := r.bookmarks[key]; !ok {
		return ErrFestivalBookmarkNotFound
	}
	delete(r.bookmarks, key)
	return nil
}

// ListByPartner returns the partner's bookmarks, newest first.
func (r *InMemoryFestivalBookmarkRepository) ListByPartner(partnerID string) ([]*FestivalBookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*FestivalBookmark
	for _, b := range r.bookmarks {
		if b.PartnerID == partnerID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
