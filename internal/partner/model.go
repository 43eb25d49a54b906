// Package partner provides models and repositories for business
// partners: profiles, booth applications and their review workflow,
// application drafts, festival bookmarks and uploaded images.
package partner

import (
	"errors"
	"time"
)

var (
	// ErrPartnerNotFound is returned when a partner profile does not exist.
	ErrPartnerNotFound = errors.New("partner not found")

	// ErrDuplicateBusinessNumber is returned when the business registration
	// number is already registered.
	ErrDuplicateBusinessNumber = errors.New("business number already registered")

	// ErrApplicationNotFound is returned when an application does not exist.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrDuplicateApplication is returned when the partner has already
	// applied to the event.
	ErrDuplicateApplication = errors.New("application already exists for this event")

	// ErrDraftNotFound is returned when an application draft does not exist.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrFestivalBookmarkNotFound is returned when a festival bookmark does not exist.
	ErrFestivalBookmarkNotFound = errors.New("festival bookmark not found")

	// ErrImageNotFound is returned when an uploaded image record does not exist.
	ErrImageNotFound = errors.New("image not found")
)

// Partner is a business profile linked 1:1 to a user account.
type Partner struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Business registration (private).
	BusinessName       string `json:"business_name"`
	BusinessNumber     string `json:"business_number"`
	RepresentativeName string `json:"representative_name"`
	BusinessType       string `json:"business_type"`
	Address            string `json:"address"`
	PostalCode         string `json:"postal_code,omitempty"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	BusinessCert       string `json:"business_certificate,omitempty"`

	// Brand identity (public).
	BrandName       string            `json:"brand_name"`
	BrandLogo       string            `json:"brand_logo,omitempty"`
	BrandIntro      string            `json:"brand_intro"`
	Products        string            `json:"products"`
	SNSLinks        map[string]string `json:"sns_links,omitempty"`
	Website         string            `json:"website,omitempty"`
	PortfolioImages []string          `json:"portfolio_images,omitempty"`
	FestivalImages  []string          `json:"festival_images,omitempty"`

	// Verification.
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// Running totals, mutated by the application workflow.
	TotalApplications int     `json:"total_applications"`
	TotalApprovals    int     `json:"total_approvals"`
	AverageRating     float64 `json:"average_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApprovalRate returns the partner's approval percentage, rounded to
// one decimal. Zero applications yield zero.
func (p *Partner) ApprovalRate() float64 {
	if p.TotalApplications == 0 {
		return 0
	}
	rate := float64(p.TotalApprovals) / float64(p.TotalApplications) * 100
	return float64(int(rate*10+0.5)) / 10
}

// ApplicationDraft stores in-progress application form data, one per
// (partner, event), with upsert semantics.
type ApplicationDraft struct {
	ID        string         `json:"id"`
	PartnerID string         `json:"partner_id"`
	EventID   string         `json:"event_id"`
	DraftData map[string]any `json:"draft_data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FestivalBookmark marks an event a partner wants to track, with an
// optional memo. One per (partner, event); toggled create/delete.
type FestivalBookmark struct {
	ID        string    `json:"id"`
	PartnerID string    `json:"partner_id"`
	EventID   string    `json:"event_id"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Image upload types.
const (
	ImageTypeCertificate = "certificate"
	ImageTypeLogo        = "logo"
	ImageTypePortfolio   = "portfolio"
	ImageTypeProduct     = "product"
	ImageTypeFestival    = "festival"
	ImageTypeOther       = "other"
)

// ValidImageType reports whether t is a known image upload type.
func ValidImageType(t string) bool {
	switch t {
	case ImageTypeCertificate, ImageTypeLogo, ImageTypePortfolio,
		ImageTypeProduct, ImageTypeFestival, ImageTypeOther:
		return true
	}
	return false
}

// ImageUpload records a file a partner has uploaded to object storage.
type ImageUpload struct {
	ID               string    `json:"id"`
	PartnerID        string    `json:"partner_id"`
	ImageType        string    `json:"image_type"`
	Key              string    `json:"key"`
	URL              string    `json:"url"`
	OriginalFilename string    `json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
	Description      string    `json:"description,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
