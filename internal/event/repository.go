package event

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows event listings. Zero values mean "no filter".
type ListFilter struct {
	Category    string
	Location    string
	Search      string
	IncludePast bool
}

// Repository defines event catalog data operations.
type Repository interface {
	// Insert stores a new event, assigning an ID if missing.
	Insert(event *Event) error

	// Update modifies an existing event.
	Update(event *Event) error

	// Delete removes an event.
	Delete(id string) error

	// GetByID retrieves an event by its ID.
	GetByID(id string) (*Event, error)

	// List returns events matching the filter. Unless IncludePast is
	// set, only events whose end date has not passed are returned.
	// Results are ordered by start date descending.
	List(filter ListFilter) ([]*Event, error)

	// FindDuplicate returns the event matching (name, location, startDate),
	// or nil. Used by the bulk importer for duplicate suppression.
	FindDuplicate(name, location string, startDate time.Time) (*Event, error)
}

// BookmarkRepository defines consumer bookmark operations.
type BookmarkRepository interface {
	// Insert stores a new bookmark. Returns ErrDuplicateBookmark if the
	// (user, event) pair already exists.
	Insert(b *Bookmark) error

	// Delete removes a bookmark by (user, event).
	Delete(userID, eventID string) error

	// ListByUser returns the user's bookmarks, newest first.
	ListByUser(userID string) ([]*Bookmark, error)

	// Exists reports whether the (user, event) pair is bookmarked.
	Exists(userID, eventID string) (bool, error)
}

// ReviewRepository defines review operations.
type ReviewRepository interface {
	// Insert stores a new review. Returns ErrDuplicateReview if the
	// (user, event) pair already has one.
	Insert(r *Review) error

	// Update modifies an existing review.
	Update(r *Review) error

	// Delete removes a review.
	Delete(id string) error

	// GetByID retrieves a review by its ID.
	GetByID(id string) (*Review, error)

	// ListByEvent returns all reviews for an event, newest first.
	ListByEvent(eventID string) ([]*Review, error)

	// ListByUser returns all reviews written by a user, newest first.
	ListByUser(userID string) ([]*Review, error)

	// Summary computes the average rating and count for an event.
	// Events without reviews report an average of 0.
	Summary(eventID string) (RatingSummary, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events map[string]*Event
	now    func() time.Time
}

// NewInMemoryRepository creates a new in-memory event repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		events: make(map[string]*Event),
		now:    time.Now,
	}
}

// Insert stores a new event, assigning an ID if missing.
func (r *InMemoryRepository) Insert(event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := r.now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	copied := cloneEvent(event)
	r.events[event.ID] = copied
	return nil
}

// Update modifies an existing event.
func (r *InMemoryRepository) Update(event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[event.ID]; !ok {
		return ErrEventNotFound
	}
	event.UpdatedAt = r.now()
	r.events[event.ID] = cloneEvent(event)
	return nil
}

// Delete removes an event.
func (r *InMemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

// GetByID retrieves an event by its ID.
func (r *InMemoryRepository) GetByID(id string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return cloneEvent(event), nil
}

// List returns events matching the filter, ordered by start date descending.
func (r *InMemoryRepository) List(filter ListFilter) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	today := r.now()
	var out []*Event
	for _, e := range r.events {
		if !filter.IncludePast && !e.Active(today) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.Location != "" && !containsFold(e.Location, filter.Location) {
			continue
		}
		if filter.Search != "" &&
			!containsFold(e.Name, filter.Search) &&
			!containsFold(e.Description, filter.Search) &&
			!containsFold(e.Location, filter.Search) {
			continue
		}
		out = append(out, cloneEvent(e))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

// FindDuplicate returns the event matching (name, location, startDate), or nil.
func (r *InMemoryRepository) FindDuplicate(name, location string, startDate time.Time) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := truncateToDay(startDate)
	for _, e := range r.events {
		if e.Name == name && e.Location == location && truncateToDay(e.StartDate).Equal(day) {
			return cloneEvent(e), nil
		}
	}
	return nil, nil
}

// SetNowFunc overrides the clock, for tests that need a fixed "today".
func (r *InMemoryRepository) SetNowFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// InMemoryBookmarkRepository is an in-memory implementation of BookmarkRepository.
type InMemoryBookmarkRepository struct {
	mu        sync.RWMutex
	bookmarks map[string]*Bookmark // keyed by userID + "\x00" + eventID
}

// NewInMemoryBookmarkRepository creates a new in-memory bookmark repository.
func NewInMemoryBookmarkRepository() *InMemoryBookmarkRepository {
	return &InMemoryBookmarkRepository{
		bookmarks: make(map[string]*Bookmark),
	}
}

func bookmarkKey(userID, eventID string) string {
	return userID + "\x00" + eventID
}

// Insert stores a new bookmark, rejecting duplicates per (user, event).
func (r *InMemoryBookmarkRepository) Insert(b *Bookmark) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := bookmarkKey(b.UserID, b.EventID)
	if _, ok := r.bookmarks[key]; ok {
		return ErrDuplicateBookmark
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	copied := *b
	r.bookmarks[key] = &copied
	return nil
}

// Delete removes a bookmark by (user, event).
func (r *InMemoryBookmarkRepository) Delete(userID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := bookmarkKey(userID, eventID)
	if _, ok := r.bookmarks[key]; !ok {
		return ErrBookmarkNotFound
	}
	delete(r.bookmarks, key)
	return nil
}

// ListByUser returns the user's bookmarks, newest first.
func (r *InMemoryBookmarkRepository) ListByUser(userID string) ([]*Bookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Bookmark
	for _, b := range r.bookmarks {
		if b.UserID == userID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Exists reports whether the (user, event) pair is bookmarked.
func (r *InMemoryBookmarkRepository) Exists(userID, eventID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bookmarks[bookmarkKey(userID, eventID)]
	return ok, nil
}

// InMemoryReviewRepository is an in-memory implementation of ReviewRepository.
type InMemoryReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]*Review
	byPair  map[string]string // userID+eventID -> review ID
}

// NewInMemoryReviewRepository creates a new in-memory review repository.
func NewInMemoryReviewRepository() *InMemoryReviewRepository {
	return &InMemoryReviewRepository{
		reviews: make(map[string]*Review),
		byPair:  make(map[string]string),
	}
}

// Insert stores a new review, rejecting duplicates per (user, event).
func (r *InMemoryReviewRepository) Insert(review *Review) error {
	if err := review.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pair := bookmarkKey(review.UserID, review.EventID)
	if _, ok := r.byPair[pair]; ok {
		return ErrDuplicateReview
	}
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	now := time.Now()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	r.reviews[review.ID] = cloneReview(review)
	r.byPair[pair] = review.ID
	return nil
}

// Update modifies an existing review.
func (r *InMemoryReviewRepository) Update(review *Review) error {
	if err := review.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.reviews[review.ID]
	if !ok {
		return ErrReviewNotFound
	}
	// (user, event) is immutable on update.
	review.UserID = existing.UserID
	review.EventID = existing.EventID
	review.CreatedAt = existing.CreatedAt
	review.UpdatedAt = time.Now()
	r.reviews[review.ID] = cloneReview(review)
	return nil
}

// Delete removes a review.
func (r *InMemoryReviewRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return ErrReviewNotFound
	}
	delete(r.byPair, bookmarkKey(review.UserID, review.EventID))
	delete(r.reviews, id)
	return nil
}

// GetByID retrieves a review by its ID.
func (r *InMemoryReviewRepository) GetByID(id string) (*Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	return cloneReview(review), nil
}

// ListByEvent returns all reviews for an event, newest first.
func (r *InMemoryReviewRepository) ListByEvent(eventID string) ([]*Review, error) {
	return r.list(func(rev *Review) bool { return rev.EventID == eventID })
}

// ListByUser returns all reviews written by a user, newest first.
func (r *InMemoryReviewRepository) ListByUser(userID string) ([]*Review, error) {
	return r.list(func(rev *Review) bool { return rev.UserID == userID })
}

func (r *InMemoryReviewRepository) list(match func(*Review) bool) ([]*Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Review
	for _, rev := range r.reviews {
		if match(rev) {
			out = append(out, cloneReview(rev))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Summary computes the average rating and count for an event.
func (r *InMemoryReviewRepository) Summary(eventID string) (RatingSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum, count int
	for _, rev := range r.reviews {
		if rev.EventID == eventID {
			sum += rev.Rating
			count++
		}
	}
	if count == 0 {
		return RatingSummary{}, nil
	}
	return RatingSummary{
		AverageRating: round1(float64(sum) / float64(count)),
		ReviewCount:   count,
	}, nil
}

func cloneEvent(e *Event) *Event {
	copied := *e
	if e.Coordinates != nil {
		point := *e.Coordinates
		copied.Coordinates = &point
	}
	return &copied
}

func cloneReview(rev *Review) *Review {
	copied := *rev
	if rev.Images != nil {
		copied.Images = append([]string(nil), rev.Images...)
	}
	return &copied
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
