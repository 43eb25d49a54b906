package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/festago/festago/internal/auth"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/user"
	"github.com/festago/festago/internal/validate"
)

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair carries a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is the response body for register and login.
type AuthResponse struct {
	User   *user.User `json:"user"`
	Tokens TokenPair  `json:"tokens"`
}

// AuthHandlers holds dependencies for authentication HTTP handlers.
type AuthHandlers struct {
	users user.Repository
	jwt   *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(users user.Repository, jwt *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{users: users, jwt: jwt}
}

// Register handles POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Username is required")
		return
	}

	email, err := validate.Email(req.Email)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid email address")
		return
	}

	role := req.Role
	if role == "" {
		role = user.RoleConsumer
	}
	if !user.ValidRole(role) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Role must be consumer or partner")
		return
	}

	u := &user.User{
		Username: req.Username,
		Email:    email,
		Role:     role,
		Phone:    req.Phone,
	}
	if err := u.SetPassword(req.Password); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Password must be at least 8 characters")
		return
	}

	if err := h.users.Insert(u); err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "Username already in use")
		case errors.Is(err, user.ErrDuplicateEmail):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "Email already in use")
		default:
			slog.ErrorContext(r.Context(), "failed to create user", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create account")
		}
		return
	}

	tokens, err := h.issueTokens(u)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", "error", err, "user_id", u.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue tokens")
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, AuthResponse{User: u, Tokens: tokens})
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			// Same error as a wrong password; no account enumeration.
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid username or password")
			return
		}
		slog.ErrorContext(r.Context(), "failed to look up user", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to log in")
		return
	}

	if !u.CheckPassword(req.Password) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid username or password")
		return
	}

	tokens, err := h.issueTokens(u)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", "error", err, "user_id", u.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue tokens")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, AuthResponse{User: u, Tokens: tokens})
}

// Refresh handles POST /auth/refresh. A valid refresh token yields a
// fresh access/refresh pair.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, err := h.jwt.ValidateToken(req.RefreshToken)
	if err != nil || claims.Type != auth.TokenTypeRefresh {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid refresh token")
		return
	}

	// The role is re-read from the store so a role change takes effect
	// at the next refresh rather than at token expiry.
	u, err := h.users.GetByID(claims.Subject)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Account no longer exists")
		return
	}

	tokens, err := h.issueTokens(u)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", "error", err, "user_id", u.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue tokens")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, tokens)
}

// Me handles GET /auth/me - returns the authenticated user's profile.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	u, err := h.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "User not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get user", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve user")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, u)
}

// UpdateMeRequest is the request body for PUT /auth/me. Pointer fields
// distinguish "leave unchanged" from "clear".
type UpdateMeRequest struct {
	Phone        *string `json:"phone,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
	Password     *string `json:"password,omitempty"`
}

// UpdateMe handles PUT /auth/me - updates the authenticated user's
// contact details, profile image or password.
func (h *AuthHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req UpdateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "User not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get user", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve user")
		return
	}

	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.ProfileImage != nil {
		img := strings.TrimSpace(*req.ProfileImage)
		if img != "" {
			if _, err := validate.WebsiteURL(img); err != nil {
				ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
				WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid profile image URL")
				return
			}
		}
		u.ProfileImage = img
	}
	if req.Password != nil {
		if err := u.SetPassword(*req.Password); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Password must be at least 8 characters")
			return
		}
	}

	if err := h.users.Update(u); err != nil {
		slog.ErrorContext(r.Context(), "failed to update user", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update profile")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, u)
}

func (h *AuthHandlers) issueTokens(u *user.User) (TokenPair, error) {
	access, err := h.jwt.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := h.jwt.GenerateRefreshToken(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
