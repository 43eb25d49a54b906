package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/festago/festago/internal/middleware"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response already started; log and move on.
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// decodeJSON parses the request body into v. On failure it writes a
// bad-request error and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}
