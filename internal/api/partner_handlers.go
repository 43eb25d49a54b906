package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/festago/festago/internal/auth"
	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/user"
	"github.com/festago/festago/internal/validate"
)

// PartnerSignupResponse is the response body for POST /partners/signup.
type PartnerSignupResponse struct {
	User    *user.User       `json:"user"`
	Partner *partner.Partner `json:"partner"`
	Tokens  TokenPair        `json:"tokens"`
}

// UpcomingBooth is one approved application on the dashboard, with the
// days remaining until the event starts.
type UpcomingBooth struct {
	Application *partner.Application `json:"application"`
	Event       *event.Event         `json:"event"`
	DDay        int                  `json:"d_day"`
}

// DashboardResponse is the response body for GET /partners/dashboard.
type DashboardResponse struct {
	Partner             *partner.Partner          `json:"partner"`
	Stats               partner.ApplicationStats  `json:"stats"`
	UnreadMessages      int                       `json:"unread_messages"`
	RecentNotifications []*messaging.Notification `json:"recent_notifications"`
	UpcomingBooths      []*UpcomingBooth          `json:"upcoming_booths"`
}

// PartnerHandlers holds dependencies for partner profile HTTP handlers.
type PartnerHandlers struct {
	users         user.Repository
	partners      partner.Repository
	applications  partner.ApplicationRepository
	events        event.Repository
	notifications messaging.NotificationRepository
	messages      messaging.MessageRepository
	workflow      *partner.Workflow
	jwt           *auth.JWTService
	now           func() time.Time
}

// NewPartnerHandlers creates a new PartnerHandlers instance.
func NewPartnerHandlers(
	users user.Repository,
	partners partner.Repository,
	applications partner.ApplicationRepository,
	events event.Repository,
	notifications messaging.NotificationRepository,
	messages messaging.MessageRepository,
	workflow *partner.Workflow,
	jwt *auth.JWTService,
) *PartnerHandlers {
	return &PartnerHandlers{
		users:         users,
		partners:      partners,
		applications:  applications,
		events:        events,
		notifications: notifications,
		messages:      messages,
		workflow:      workflow,
		jwt:           jwt,
		now:           time.Now,
	}
}

// Signup handles POST /partners/signup - creates the account and the
// business profile in one step.
func (h *PartnerHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var in partner.SignupInput
	if !decodeJSON(w, r, &in) {
		return
	}

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.BusinessName == "" || in.BusinessNumber == "" || in.BrandName == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
			"username, business_name, business_number and brand_name are required")
		return
	}

	email, err := validate.Email(in.Email)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid email address")
		return
	}
	in.Email = email

	brand, err := validate.BrandName(in.BrandName)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid brand name")
		return
	}
	in.BrandName = brand

	u, p, err := partner.Signup(h.users, h.partners, in)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrPasswordTooShort):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Password must be at least 8 characters")
		case errors.Is(err, user.ErrDuplicateUsername), errors.Is(err, user.ErrDuplicateEmail),
			errors.Is(err, partner.ErrDuplicateBusinessNumber):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			slog.ErrorContext(r.Context(), "partner signup failed", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create partner account")
		}
		return
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

	writeJSON(w, r.Context(), http.StatusCreated, PartnerSignupResponse{
		User:    u,
		Partner: p,
		Tokens:  TokenPair{AccessToken: access, RefreshToken: refresh},
	})
}

// Me handles GET /partners/me - the authenticated partner's profile.
func (h *PartnerHandlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requirePartner(w, r)
	if !ok {
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, p)
}

// UpdateMe handles PUT /partners/me - updates brand fields of the
// authenticated partner's profile. Business registration fields are
// immutable through this endpoint.
func (h *PartnerHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requirePartner(w, r)
	if !ok {
		return
	}

	var req struct {
		BrandName       *string            `json:"brand_name"`
		BrandLogo       *string            `json:"brand_logo"`
		BrandIntro      *string            `json:"brand_intro"`
		Products        *string            `json:"products"`
		SNSLinks        *map[string]string `json:"sns_links"`
		Website         *string            `json:"website"`
		PortfolioImages *[]string          `json:"portfolio_images"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.BrandName != nil {
		p.BrandName = *req.BrandName
	}
	if req.BrandLogo != nil {
		p.BrandLogo = *req.BrandLogo
	}
	if req.BrandIntro != nil {
		p.BrandIntro = *req.BrandIntro
	}
	if req.Products != nil {
		p.Products = *req.Products
	}
	if req.SNSLinks != nil {
		p.SNSLinks = *req.SNSLinks
	}
	if req.Website != nil {
		p.Website = *req.Website
	}
	if req.PortfolioImages != nil {
		p.PortfolioImages = *req.PortfolioImages
	}

	if err := h.partners.Update(p); err != nil {
		slog.ErrorContext(r.Context(), "failed to update partner", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update profile")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, p)
}

// Dashboard handles GET /partners/dashboard.
func (h *PartnerHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requirePartner(w, r)
	if !ok {
		return
	}

	stats, err := h.workflow.Stats(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to compute stats", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build dashboard")
		return
	}

	unread, err := h.messages.UnreadCount(p.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to count unread messages", "error", err, "user_id", p.UserID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build dashboard")
		return
	}

	notifs, err := h.notifications.ListByUser(p.UserID, false)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list notifications", "error", err, "user_id", p.UserID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build dashboard")
		return
	}
	if len(notifs) > 5 {
		notifs = notifs[:5]
	}

	booths, err := h.upcomingBooths(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to collect upcoming booths", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build dashboard")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, DashboardResponse{
		Partner:             p,
		Stats:               stats,
		UnreadMessages:      unread,
		RecentNotifications: notifs,
		UpcomingBooths:      booths,
	})
}

// Stats handles GET /partners/stats - application counts by status.
func (h *PartnerHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requirePartner(w, r)
	if !ok {
		return
	}

	stats, err := h.workflow.Stats(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to compute stats", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute stats")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, stats)
}

// PublicEventAppearance is one upcoming event a partner has an approved
// booth at, as shown on the public profile.
type PublicEventAppearance struct {
	Event *event.Event `json:"event"`
	DDay  int          `json:"d_day"`
}

// PublicPartnerResponse is the response body for GET /partners/{id}.
// Business registration fields stay private.
type PublicPartnerResponse struct {
	ID              string                   `json:"id"`
	BrandName       string                   `json:"brand_name"`
	BrandLogo       string                   `json:"brand_logo,omitempty"`
	BrandIntro      string                   `json:"brand_intro"`
	Products        string                   `json:"products"`
	SNSLinks        map[string]string        `json:"sns_links,omitempty"`
	Website         string                   `json:"website,omitempty"`
	PortfolioImages []string                 `json:"portfolio_images,omitempty"`
	Verified        bool                     `json:"verified"`
	AverageRating   float64                  `json:"average_rating"`
	UpcomingEvents  []*PublicEventAppearance `json:"upcoming_events"`
}

// PublicProfile handles GET /partners/{id} - the public view of a
// partner's brand, with upcoming approved booth appearances.
func (h *PartnerHandlers) PublicProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Partner ID is required")
		return
	}

	p, err := h.partners.GetByID(id)
	if err != nil {
		if errors.Is(err, partner.ErrPartnerNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Partner not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get partner", "error", err, "partner_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve partner")
		return
	}

	booths, err := h.upcomingBooths(p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to collect upcoming booths", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve partner")
		return
	}
	upcoming := make([]*PublicEventAppearance, 0, len(booths))
	for _, b := range booths {
		upcoming = append(upcoming, &PublicEventAppearance{Event: b.Event, DDay: b.DDay})
	}

	writeJSON(w, r.Context(), http.StatusOK, PublicPartnerResponse{
		ID:              p.ID,
		BrandName:       p.BrandName,
		BrandLogo:       p.BrandLogo,
		BrandIntro:      p.BrandIntro,
		Products:        p.Products,
		SNSLinks:        p.SNSLinks,
		Website:         p.Website,
		PortfolioImages: p.PortfolioImages,
		Verified:        p.Verified,
		AverageRating:   p.AverageRating,
		UpcomingEvents:  upcoming,
	})
}

// upcomingBooths returns the partner's approved applications for events
// that have not started yet, soonest first.
func (h *PartnerHandlers) upcomingBooths(partnerID string) ([]*UpcomingBooth, error) {
	apps, err := h.applications.ListByPartner(partnerID)
	if err != nil {
		return nil, err
	}

	today := truncateToDay(h.now())
	var out []*UpcomingBooth
	for _, app := range apps {
		if app.Status != partner.StatusApproved {
			continue
		}
		e, err := h.events.GetByID(app.EventID)
		if err != nil {
			continue
		}
		start := truncateToDay(e.StartDate)
		if start.Before(today) {
			continue
		}
		out = append(out, &UpcomingBooth{
			Application: app,
			Event:       e,
			DDay:        int(start.Sub(today).Hours() / 24),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DDay < out[j].DDay })
	return out, nil
}

// requirePartner resolves the authenticated user's partner profile,
// writing the appropriate error when there is none.
func (h *PartnerHandlers) requirePartner(w http.ResponseWriter, r *http.Request) (*partner.Partner, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return nil, false
	}

	p, err := h.partners.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, partner.ErrPartnerNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
			WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Partner profile required")
			return nil, false
		}
		slog.ErrorContext(r.Context(), "failed to resolve partner", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to resolve partner profile")
		return nil, false
	}
	return p, true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
