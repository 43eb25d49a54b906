package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/festago/festago/internal/auth"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/social"
)

// SocialHandlers holds dependencies for social login HTTP handlers.
type SocialHandlers struct {
	service     *social.Service
	jwt         *auth.JWTService
	frontendURL string
}

// NewSocialHandlers creates a new SocialHandlers instance. frontendURL
// is where callbacks redirect with the issued tokens.
func NewSocialHandlers(service *social.Service, jwt *auth.JWTService, frontendURL string) *SocialHandlers {
	return &SocialHandlers{
		service:     service,
		jwt:         jwt,
		frontendURL: frontendURL,
	}
}

// Authorize handles GET /auth/social/{provider} - redirects the browser
// to the provider's consent page.
func (h *SocialHandlers) Authorize(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	authURL, err := h.service.AuthURL(provider)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidProvider)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidProvider, "Unknown social login provider")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /auth/social/{provider}/callback - redeems the
// authorization code and redirects to the frontend with a token pair.
func (h *SocialHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Missing code or state parameter")
		return
	}

	u, created, err := h.service.Login(r.Context(), provider, code, state)
	if err != nil {
		// Browser flow: the user lands back on the frontend with an
		// error code rather than a raw JSON body.
		switch {
		case errors.Is(err, social.ErrUnknownProvider):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidProvider)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidProvider, "Unknown social login provider")
			return
		case errors.Is(err, social.ErrInvalidState):
			http.Redirect(w, r, h.errorRedirect("invalid_state"), http.StatusFound)
			return
		default:
			slog.ErrorContext(r.Context(), "social login failed", "error", err, "provider", provider)
			http.Redirect(w, r, h.errorRedirect("login_failed"), http.StatusFound)
			return
		}
	}

	access, err := h.jwt.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue access token", "error", err, "user_id", u.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue tokens")
		return
	}
	refresh, err := h.jwt.GenerateRefreshToken(u.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue refresh token", "error", err, "user_id", u.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue tokens")
		return
	}

	redirect := h.callbackRedirect(access, refresh, created)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// callbackRedirect builds the frontend URL carrying the token pair in
// the query string; the frontend stores them and strips the URL.
func (h *SocialHandlers) callbackRedirect(access, refresh string, created bool) string {
	values := url.Values{}
	values.Set("access_token", access)
	values.Set("refresh_token", refresh)
	if created {
		values.Set("new_user", "true")
	}
	return h.frontendURL + "/auth/callback?" + values.Encode()
}

func (h *SocialHandlers) errorRedirect(code string) string {
	values := url.Values{}
	values.Set("error", code)
	return h.frontendURL + "/auth/callback?" + values.Encode()
}

// providersResponse lists the configured social providers.
type providersResponse struct {
	Providers []string `json:"providers"`
}

// Providers handles GET /auth/social - lists available providers so the
// frontend can hide buttons for unconfigured ones.
func (h *SocialHandlers) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), http.StatusOK, providersResponse{Providers: h.service.Providers()})
}
