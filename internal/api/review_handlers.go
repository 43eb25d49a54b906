package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/validate"
)

// ReviewRequest is the request body for creating or updating a review.
type ReviewRequest struct {
	Rating  int      `json:"rating"`
	Comment string   `json:"comment"`
	Images  []string `json:"images,omitempty"`
}

// ReviewListResponse is the response body for GET /events/{id}/reviews.
type ReviewListResponse struct {
	Reviews       []*event.Review `json:"reviews"`
	AverageRating float64         `json:"average_rating"`
	Total         int             `json:"total"`
}

// ReviewHandlers holds dependencies for review HTTP handlers.
type ReviewHandlers struct {
	events  event.Repository
	reviews event.ReviewRepository
}

// NewReviewHandlers creates a new ReviewHandlers instance.
func NewReviewHandlers(events event.Repository, reviews event.ReviewRepository) *ReviewHandlers {
	return &ReviewHandlers{events: events, reviews: reviews}
}

// ListReviews handles GET /events/{id}/reviews.
func (h *ReviewHandlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")

	if _, err := h.events.GetByID(eventID); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve event")
		return
	}

	reviews, err := h.reviews.ListByEvent(eventID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list reviews", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list reviews")
		return
	}
	summary, err := h.reviews.Summary(eventID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to summarize reviews", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list reviews")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, ReviewListResponse{
		Reviews:       reviews,
		AverageRating: summary.AverageRating,
		Total:         summary.ReviewCount,
	})
}

// CreateReview handles POST /events/{id}/reviews.
func (h *ReviewHandlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.events.GetByID(eventID); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", eventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve event")
		return
	}

	comment := strings.TrimSpace(req.Comment)
	if comment != "" {
		var err error
		if comment, err = validate.ReviewComment(comment); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Comment must be at most 2000 characters")
			return
		}
	}

	review := &event.Review{
		UserID:  userID,
		EventID: eventID,
		Rating:  req.Rating,
		Comment: comment,
		Images:  req.Images,
	}
	if err := h.reviews.Insert(review); err != nil {
		switch {
		case errors.Is(err, event.ErrInvalidRating):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidRating)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidRating, "Rating must be between 1 and 5")
		case errors.Is(err, event.ErrDuplicateReview):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateReview)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateReview, "You have already reviewed this event")
		default:
			slog.ErrorContext(r.Context(), "failed to create review", "error", err, "event_id", eventID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save review")
		}
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, review)
}

// UpdateReview handles PUT /reviews/{id}. Only the author may update.
func (h *ReviewHandlers) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := h.reviews.GetByID(id)
	if err != nil {
		if errors.Is(err, event.ErrReviewNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Review not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get review", "error", err, "review_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve review")
		return
	}
	if existing.UserID != userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "You can only edit your own reviews")
		return
	}

	comment := strings.TrimSpace(req.Comment)
	if comment != "" {
		if comment, err = validate.ReviewComment(comment); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Comment must be at most 2000 characters")
			return
		}
	}

	existing.Rating = req.Rating
	existing.Comment = comment
	existing.Images = req.Images
	if err := h.reviews.Update(existing); err != nil {
		if errors.Is(err, event.ErrInvalidRating) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidRating)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidRating, "Rating must be between 1 and 5")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update review", "error", err, "review_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update review")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, existing)
}

// DeleteReview handles DELETE /reviews/{id}. Only the author may delete.
func (h *ReviewHandlers) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	existing, err := h.reviews.GetByID(id)
	if err != nil {
		if errors.Is(err, event.ErrReviewNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Review not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get review", "error", err, "review_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve review")
		return
	}
	if existing.UserID != userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "You can only delete your own reviews")
		return
	}

	if err := h.reviews.Delete(id); err != nil {
		slog.ErrorContext(r.Context(), "failed to delete review", "error", err, "review_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete review")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
