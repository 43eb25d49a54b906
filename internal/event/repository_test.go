package event

import (
	"errors"
	"testing"
	"time"
)

var testToday = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestEvent(name string, startOffset, endOffset int) *Event {
	return &Event{
		Name:        name,
		Description: "A " + name + " festival",
		Category:    CategoryFestival,
		Location:    "Seoul",
		Address:     "1 Festival Road, Seoul",
		StartDate:   testToday.AddDate(0, 0, startOffset),
		EndDate:     testToday.AddDate(0, 0, endOffset),
	}
}

func newTestRepo() *InMemoryRepository {
	repo := NewInMemoryRepository()
	repo.SetNowFunc(func() time.Time { return testToday })
	return repo
}

func TestRepository_InsertAndGet(t *testing.T) {
	repo := newTestRepo()

	e := newTestEvent("Han River Night Market", 1, 3)
	if err := repo.Insert(e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := repo.GetByID(e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Han River Night Market" {
		t.Errorf("unexpected name %q", got.Name)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := newTestRepo()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestRepository_Update(t *testing.T) {
	repo := newTestRepo()

	e := newTestEvent("Seoul Food Week", 1, 3)
	if err := repo.Insert(e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	e.Description = "updated description"
	if err := repo.Update(e); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Description != "updated description" {
		t.Errorf("update not persisted: %q", got.Description)
	}

	missing := newTestEvent("ghost", 0, 1)
	missing.ID = "nonexistent"
	if err := repo.Update(missing); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := newTestRepo()

	e := newTestEvent("Seoul Food Week", 1, 3)
	if err := repo.Insert(e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Delete(e.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(e.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound after delete, got %v", err)
	}
	if err := repo.Delete(e.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound on second delete, got %v", err)
	}
}

func TestRepository_List_ExcludesPastByDefault(t *testing.T) {
	repo := newTestRepo()

	past := newTestEvent("Last Month Market", -40, -35)
	endsToday := newTestEvent("Ends Today", -2, 0)
	upcoming := newTestEvent("Next Week Concert", 5, 7)
	upcoming.Category = CategoryConcert

	for _, e := range []*Event{past, endsToday, upcoming} {
		if err := repo.Insert(e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	events, err := repo.List(ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 active events, got %d", len(events))
	}
	// Ordered by start date descending.
	if events[0].Name != "Next Week Concert" || events[1].Name != "Ends Today" {
		t.Errorf("unexpected order: %s, %s", events[0].Name, events[1].Name)
	}

	all, err := repo.List(ListFilter{IncludePast: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events with IncludePast, got %d", len(all))
	}
}

func TestRepository_List_Filters(t *testing.T) {
	repo := newTestRepo()

	festival := newTestEvent("Jazz Picnic", 1, 2)
	concert := newTestEvent("Rooftop Gig", 3, 4)
	concert.Category = CategoryConcert
	concert.Location = "Busan"

	for _, e := range []*Event{festival, concert} {
		if err := repo.Insert(e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{
			name:   "by category",
			filter: ListFilter{Category: CategoryConcert},
			want:   []string{"Rooftop Gig"},
		},
		{
			name:   "by location case insensitive",
			filter: ListFilter{Location: "busan"},
			want:   []string{"Rooftop Gig"},
		},
		{
			name:   "by search over name",
			filter: ListFilter{Search: "jazz"},
			want:   []string{"Jazz Picnic"},
		},
		{
			name:   "by search over description",
			filter: ListFilter{Search: "rooftop gig festival"},
			want:   []string{"Rooftop Gig"},
		},
		{
			name:   "no match",
			filter: ListFilter{Category: CategoryExhibition},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.List(tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(events) != len(tt.want) {
				t.Fatalf("expected %d events, got %d", len(tt.want), len(events))
			}
			for i, name := range tt.want {
				if events[i].Name != name {
					t.Errorf("event %d: expected %q, got %q", i, name, events[i].Name)
				}
			}
		})
	}
}

func TestRepository_FindDuplicate(t *testing.T) {
	repo := newTestRepo()

	e := newTestEvent("Han River Night Market", 1, 3)
	if err := repo.Insert(e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Same name, location and day: duplicate even with a different hour.
	dup, err := repo.FindDuplicate("Han River Night Market", "Seoul", e.StartDate.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if dup == nil || dup.ID != e.ID {
		t.Fatalf("expected duplicate %s, got %v", e.ID, dup)
	}

	// Different day: not a duplicate.
	none, err := repo.FindDuplicate("Han River Night Market", "Seoul", e.StartDate.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if none != nil {
		t.Errorf("expected no duplicate, got %v", none)
	}
}

func TestRepository_CloneIsolation(t *testing.T) {
	repo := newTestRepo()

	e := newTestEvent("Han River Night Market", 1, 3)
	e.Coordinates = &Point{Lat: 37.52, Lng: 126.93}
	if err := repo.Insert(e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByID(e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got.Name = "mutated"
	got.Coordinates.Lat = 0

	fresh, err := repo.GetByID(e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fresh.Name != "Han River Night Market" {
		t.Errorf("stored name mutated: %q", fresh.Name)
	}
	if fresh.Coordinates.Lat != 37.52 {
		t.Errorf("stored coordinates mutated: %f", fresh.Coordinates.Lat)
	}
}

func TestBookmarkRepository(t *testing.T) {
	repo := NewInMemoryBookmarkRepository()

	b := &Bookmark{UserID: "user-1", EventID: "event-1"}
	if err := repo.Insert(b); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if b.ID == "" {
		t.Error("expected ID to be assigned")
	}

	if err := repo.Insert(&Bookmark{UserID: "user-1", EventID: "event-1"}); !errors.Is(err, ErrDuplicateBookmark) {
		t.Fatalf("expected ErrDuplicateBookmark, got %v", err)
	}

	// Same event, different user is fine.
	if err := repo.Insert(&Bookmark{UserID: "user-2", EventID: "event-1"}); err != nil {
		t.Fatalf("Insert for second user failed: %v", err)
	}

	exists, err := repo.Exists("user-1", "event-1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected bookmark to exist")
	}

	if err := repo.Delete("user-1", "event-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete("user-1", "event-1"); !errors.Is(err, ErrBookmarkNotFound) {
		t.Fatalf("expected ErrBookmarkNotFound, got %v", err)
	}

	exists, err = repo.Exists("user-1", "event-1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected bookmark to be gone")
	}
}

func TestBookmarkRepository_ListByUser(t *testing.T) {
	repo := NewInMemoryBookmarkRepository()

	older := &Bookmark{UserID: "user-1", EventID: "event-1", CreatedAt: testToday.Add(-time.Hour)}
	newer := &Bookmark{UserID: "user-1", EventID: "event-2", CreatedAt: testToday}
	other := &Bookmark{UserID: "user-2", EventID: "event-1", CreatedAt: testToday}

	for _, b := range []*Bookmark{older, newer, other} {
		if err := repo.Insert(b); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	bookmarks, err := repo.ListByUser("user-1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(bookmarks) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(bookmarks))
	}
	if bookmarks[0].EventID != "event-2" || bookmarks[1].EventID != "event-1" {
		t.Errorf("expected newest first, got %s, %s", bookmarks[0].EventID, bookmarks[1].EventID)
	}
}

func TestReviewRepository_InsertValidation(t *testing.T) {
	repo := NewInMemoryReviewRepository()

	tests := []struct {
		name    string
		rating  int
		wantErr error
	}{
		{"minimum rating", 1, nil},
		{"maximum rating", 5, nil},
		{"zero rating", 0, ErrInvalidRating},
		{"too high", 6, ErrInvalidRating},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Insert(&Review{
				UserID:  "user-1",
				EventID: "event-" + string(rune('a'+i)),
				Rating:  tt.rating,
				Comment: "fine",
			})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReviewRepository_DuplicatePair(t *testing.T) {
	repo := NewInMemoryReviewRepository()

	if err := repo.Insert(&Review{UserID: "user-1", EventID: "event-1", Rating: 4}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := repo.Insert(&Review{UserID: "user-1", EventID: "event-1", Rating: 5})
	if !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}
}

func TestReviewRepository_UpdateKeepsPair(t *testing.T) {
	repo := NewInMemoryReviewRepository()

	review := &Review{UserID: "user-1", EventID: "event-1", Rating: 3, Comment: "okay"}
	if err := repo.Insert(review); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	review.Rating = 5
	review.Comment = "actually great"
	review.UserID = "user-9" // must be ignored
	if err := repo.Update(review); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(review.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Rating != 5 || got.Comment != "actually great" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.UserID != "user-1" {
		t.Errorf("user ID should be immutable, got %s", got.UserID)
	}
}

func TestReviewRepository_DeleteFreesPair(t *testing.T) {
	repo := NewInMemoryReviewRepository()

	review := &Review{UserID: "user-1", EventID: "event-1", Rating: 3}
	if err := repo.Insert(review); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Delete(review.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The pair can be reviewed again after deletion.
	if err := repo.Insert(&Review{UserID: "user-1", EventID: "event-1", Rating: 4}); err != nil {
		t.Fatalf("re-insert after delete failed: %v", err)
	}
}

func TestReviewRepository_Summary(t *testing.T) {
	repo := NewInMemoryReviewRepository()

	ratings := []int{5, 4, 4}
	for i, rating := range ratings {
		err := repo.Insert(&Review{
			UserID:  "user-" + string(rune('a'+i)),
			EventID: "event-1",
			Rating:  rating,
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := repo.Insert(&Review{UserID: "user-x", EventID: "event-2", Rating: 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	summary, err := repo.Summary("event-1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.ReviewCount != 3 {
		t.Errorf("expected 3 reviews, got %d", summary.ReviewCount)
	}
	// 13/3 = 4.333..., rounded to one decimal.
	if summary.AverageRating != 4.3 {
		t.Errorf("expected average 4.3, got %f", summary.AverageRating)
	}

	empty, err := repo.Summary("event-none")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if empty.ReviewCount != 0 || empty.AverageRating != 0 {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}
