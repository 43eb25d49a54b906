package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/geo"
	"github.com/festago/festago/internal/middleware"
)

// EventResponse is an event enriched with its review summary.
type EventResponse struct {
	*event.Event
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`

	// Only meaningful for authenticated requests.
	Bookmarked bool `json:"bookmarked"`
}

// EventListResponse is the response body for GET /events.
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int              `json:"total"`
}

// MapCluster is one geohash cell of the map view.
type MapCluster struct {
	Geohash  string   `json:"geohash"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Count    int      `json:"count"`
	EventIDs []string `json:"event_ids"`
}

// MapResponse is the response body for GET /events/map.
type MapResponse struct {
	Zoom      int           `json:"zoom"`
	Precision int           `json:"precision"`
	Clusters  []*MapCluster `json:"clusters"`
}

// EventHandlers holds dependencies for event catalog HTTP handlers.
type EventHandlers struct {
	events    event.Repository
	bookmarks event.BookmarkRepository
	reviews   event.ReviewRepository
}

// NewEventHandlers creates a new EventHandlers instance.
func NewEventHandlers(events event.Repository, bookmarks event.BookmarkRepository, reviews event.ReviewRepository) *EventHandlers {
	return &EventHandlers{
		events:    events,
		bookmarks: bookmarks,
		reviews:   reviews,
	}
}

// ListEvents handles GET /events.
// Query parameters: category, location, search, include_past.
func (h *EventHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := q.Get("category")
	if category != "" && !event.ValidCategory(category) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown event category")
		return
	}

	filter := event.ListFilter{
		Category:    category,
		Location:    q.Get("location"),
		Search:      q.Get("search"),
		IncludePast: q.Get("include_past") == "true",
	}

	events, err := h.events.List(filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list events")
		return
	}

	userID := middleware.GetUserID(r.Context())
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		resp, err := h.enrich(e, userID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to enrich event", "error", err, "event_id", e.ID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list events")
			return
		}
		out = append(out, resp)
	}

	writeJSON(w, r.Context(), http.StatusOK, EventListResponse{Events: out, Total: len(out)})
}

// GetEvent handles GET /events/{id}.
func (h *EventHandlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	e, err := h.events.GetByID(id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve event")
		return
	}

	resp, err := h.enrich(e, middleware.GetUserID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to enrich event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve event")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, resp)
}

// MapEvents handles GET /events/map.
// Active events with coordinates are grouped into geohash cells sized
// for the requested zoom level.
func (h *EventHandlers) MapEvents(w http.ResponseWriter, r *http.Request) {
	zoom := 10
	if z := r.URL.Query().Get("zoom"); z != "" {
		parsed, err := strconv.Atoi(z)
		if err != nil || parsed < 0 || parsed > 22 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "zoom must be an integer between 0 and 22")
			return
		}
		zoom = parsed
	}

	events, err := h.events.List(event.ListFilter{Category: r.URL.Query().Get("category")})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list events for map", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build map view")
		return
	}

	precision := geo.PrecisionForZoom(zoom)
	cells := make(map[string]*MapCluster)
	for _, e := range events {
		if e.Coordinates == nil {
			continue
		}
		hash := geo.Encode(e.Coordinates.Lat, e.Coordinates.Lng, precision)
		cluster, ok := cells[hash]
		if !ok {
			lat, lng, _ := geo.Decode(hash)
			cluster = &MapCluster{Geohash: hash, Lat: lat, Lng: lng}
			cells[hash] = cluster
		}
		cluster.Count++
		cluster.EventIDs = append(cluster.EventIDs, e.ID)
	}

	clusters := make([]*MapCluster, 0, len(cells))
	for _, c := range cells {
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Geohash < clusters[j].Geohash })

	writeJSON(w, r.Context(), http.StatusOK, MapResponse{
		Zoom:      zoom,
		Precision: precision,
		Clusters:  clusters,
	})
}

func (h *EventHandlers) enrich(e *event.Event, userID string) (*EventResponse, error) {
	summary, err := h.reviews.Summary(e.ID)
	if err != nil {
		return nil, err
	}
	resp := &EventResponse{
		Event:         e,
		AverageRating: summary.AverageRating,
		ReviewCount:   summary.ReviewCount,
	}
	if userID != "" {
		bookmarked, err := h.bookmarks.Exists(userID, e.ID)
		if err != nil {
			return nil, err
		}
		resp.Bookmarked = bookmarked
	}
	return resp, nil
}
