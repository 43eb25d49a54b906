// Package event provides models and repositories for the public event
// catalog: festivals, concerts, exhibitions and popup stores, plus the
// consumer-side bookmarks and reviews attached to them.
package event

import (
	"errors"
	"time"
)

// Event categories.
const (
	CategoryFestival   = "festival"
	CategoryConcert    = "concert"
	CategoryExhibition = "exhibition"
	CategoryPopup      = "popup"
)

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrEventNotFound is returned when an event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrBookmarkNotFound is returned when a bookmark does not exist.
	ErrBookmarkNotFound = errors.New("bookmark not found")

	// ErrDuplicateBookmark is returned when a (user, event) bookmark already exists.
	ErrDuplicateBookmark = errors.New("event already bookmarked")

	// ErrReviewNotFound is returned when a review does not exist.
	ErrReviewNotFound = errors.New("review not found")

	// ErrDuplicateReview is returned when a (user, event) review already exists.
	ErrDuplicateReview = errors.New("review already exists for this event")

	// ErrInvalidCategory is returned for an unknown event category.
	ErrInvalidCategory = errors.New("invalid event category")

	// ErrInvalidRating is returned when a review rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// ValidCategory reports whether cat is one of the known event categories.
func ValidCategory(cat string) bool {
	switch cat {
	case CategoryFestival, CategoryConcert, CategoryExhibition, CategoryPopup:
		return true
	}
	return false
}

// Point represents a geographic coordinate with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event represents a catalog entry. Coordinates are optional; events
// without them are simply excluded from the map listing.
type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Address     string     `json:"address"`
	Coordinates *Point     `json:"coordinates,omitempty"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	PosterImage string     `json:"poster_image"`
	WebsiteURL  string     `json:"website_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Active reports whether the event has not yet ended on the given day.
func (e *Event) Active(today time.Time) bool {
	return !e.EndDate.Before(truncateToDay(today))
}

// Bookmark marks an event as saved by a consumer. One per (user, event).
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a consumer's rating and comment on an event. One per (user, event).
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the review's rating bounds.
func (r *Review) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// RatingSummary aggregates review stats for an event.
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
