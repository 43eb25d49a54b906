package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/festago/festago/internal/image"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/upload"
)

// ObjectStore abstracts the bucket operations the image handlers need.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Delete(ctx context.Context, key string) error
}

// S3ObjectStore is an ObjectStore over the upload service's S3 client.
type S3ObjectStore struct {
	client *s3.Client
	bucket string
}

// NewS3ObjectStore creates an S3ObjectStore reusing the upload service's
// client and bucket.
func NewS3ObjectStore(svc *upload.Service) *S3ObjectStore {
	return &S3ObjectStore{client: svc.GetS3Client(), bucket: svc.GetBucketName()}
}

// Put writes an object to the bucket.
func (s *S3ObjectStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(body),
	})
	return err
}

// Delete removes an object from the bucket.
func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// ImageListResponse is the response body for GET /partners/images.
type ImageListResponse struct {
	Images []*partner.ImageUpload `json:"images"`
	Total  int                    `json:"total"`
}

// PartnerImageHandlers holds dependencies for partner image HTTP handlers.
// Uploaded images are re-encoded to strip metadata before they reach
// the bucket.
type PartnerImageHandlers struct {
	partners  partner.Repository
	images    partner.ImageRepository
	store     ObjectStore
	publicURL string

	// process re-encodes and sanitizes an upload; swapped in tests.
	process func([]byte) ([]byte, error)
}

// NewPartnerImageHandlers creates a new PartnerImageHandlers instance.
// publicURL is the base URL objects are served from.
func NewPartnerImageHandlers(
	partners partner.Repository,
	images partner.ImageRepository,
	store ObjectStore,
	publicURL string,
) *PartnerImageHandlers {
	return &PartnerImageHandlers{
		partners:  partners,
		images:    images,
		store:     store,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		process:   image.ProcessBytes,
	}
}

// maxImageFormBytes caps the parsed multipart form.
const maxImageFormBytes = 20 << 20

// Upload handles POST /partners/images - accepts a multipart form with
// a "file" part, an "image_type" field and an optional "description".
func (h *PartnerImageHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageFormBytes); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart form")
		return
	}

	imageType := r.FormValue("image_type")
	if !partner.ValidImageType(imageType) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown image type")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "A file part is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to read upload", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to read upload")
		return
	}

	contentType := http.DetectContentType(raw)
	if err := upload.ValidateContentType(contentType); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType, "Only JPEG, PNG and WebP images are accepted")
		return
	}

	// Re-encode to strip EXIF (including GPS) and bound dimensions.
	processed, err := h.process(raw)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to process image", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "File is not a valid image")
		return
	}

	key, err := upload.GenerateObjectKey(contentType, &p.ID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate object key")
		return
	}

	if err := h.store.Put(r.Context(), key, contentType, processed); err != nil {
		slog.ErrorContext(r.Context(), "failed to store image", "error", err, "key", key)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to store image")
		return
	}

	img := &partner.ImageUpload{
		PartnerID:        p.ID,
		ImageType:        imageType,
		Key:              key,
		URL:              h.publicURL + "/" + key,
		OriginalFilename: header.Filename,
		FileSize:         int64(len(processed)),
		Description:      r.FormValue("description"),
	}
	if err := h.images.Insert(img); err != nil {
		slog.ErrorContext(r.Context(), "failed to record image", "error", err, "key", key)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record image")
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, img)
}

// List handles GET /partners/images - the partner's uploads, optionally
// filtered by ?type=.
func (h *PartnerImageHandlers) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}

	imageType := r.URL.Query().Get("type")
	if imageType != "" && !partner.ValidImageType(imageType) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown image type")
		return
	}

	images, err := h.images.ListByPartner(p.ID, imageType)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list images", "error", err, "partner_id", p.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list images")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, ImageListResponse{Images: images, Total: len(images)})
}

// Delete handles DELETE /partners/images/{id}.
func (h *PartnerImageHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partnerOf(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	img, err := h.images.GetByID(id)
	if err != nil {
		if errors.Is(err, partner.ErrImageNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Image not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get image", "error", err, "image_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve image")
		return
	}
	if img.PartnerID != p.ID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "You can only delete your own images")
		return
	}

	if err := h.images.Delete(id); err != nil {
		slog.ErrorContext(r.Context(), "failed to delete image record", "error", err, "image_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete image")
		return
	}

	// Bucket cleanup is best effort; the record is already gone.
	if err := h.store.Delete(r.Context(), img.Key); err != nil {
		slog.WarnContext(r.Context(), "failed to delete object", "error", err, "key", img.Key)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PartnerImageHandlers) partnerOf(w http.ResponseWriter, r *http.Request) (*partner.Partner, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return nil, false
	}
	p, err := h.partners.GetByUserID(userID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Partner profile required")
		return nil, false
	}
	return p, true
}
