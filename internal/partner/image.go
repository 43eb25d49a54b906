package partner

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ImageRepository defines partner image upload records.
type ImageRepository interface {
	// Insert stores a new upload record.
	Insert(img *ImageUpload) error

	// GetByID retrieves an upload record by its ID.
	GetByID(id string) (*ImageUpload, error)

	// Delete removes an upload record.
	Delete(id string) error

	// ListByPartner returns the partner's uploads, optionally filtered
	// by image type, newest first.
	ListByPartner(partnerID, imageType string) ([]*ImageUpload, error)
}

// InMemoryImageRepository is an in-memory implementation of ImageRepository.
type InMemoryImageRepository struct {
	mu     sync.RWMutex
	images map[string]*ImageUpload
}

// NewInMemoryImageRepository creates a new in-memory image repository.
func NewInMemoryImageRepository() *InMemoryImageRepository {
	return &InMemoryImageRepository{
		images: make(map[string]*ImageUpload),
	}
}

// Insert stores a new upload record.
func (r *InMemoryImageRepository) Insert(img *ImageUpload) error {
	if !ValidImageType(img.ImageType) {
		img.ImageType = ImageTypeOther
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now()
	}
	copied := *img
	r.images[img.ID] = &copied
	return nil
}

// GetByID retrieves an upload record by its ID.
func (r *InMemoryImageRepository) GetByID(id string) (*ImageUpload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, ok := r.images[id]
	if !ok {
		return nil, ErrImageNotFound
	}
	copied := *img
	return &copied, nil
}

// Delete removes an upload record.
func (r *InMemoryImageRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.images[id]; !ok {
		return ErrImageNotFound
	}
	delete(r.images, id)
	return nil
}

// ListByPartner returns the partner's uploads, newest first.
func (r *InMemoryImageRepository) ListByPartner(partnerID, imageType string) ([]*ImageUpload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ImageUpload
	for _, img := range r.images {
		if img.PartnerID != partnerID {
			continue
		}
		if imageType != "" && img.ImageType != imageType {
			continue
		}
		copied := *img
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}
