package partner

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines partner profile data operations.
type Repository interface {
	// Insert stores a new partner, assigning an ID if missing. Returns
	// ErrDuplicateBusinessNumber if the business number is taken.
	Insert(p *Partner) error

	// Update modifies an existing partner.
	Update(p *Partner) error

	// GetByID retrieves a partner by its ID.
	GetByID(id string) (*Partner, error)

	// GetByUserID retrieves the partner owned by the given user.
	GetByUserID(userID string) (*Partner, error)

	// List returns all partners, newest first.
	List() ([]*Partner, error)
}

// ApplicationFilter narrows application listings. Zero values mean "no
// filter".
type ApplicationFilter struct {
	PartnerID string
	EventID   string
	Status    string
}

// ApplicationRepository defines booth application data operations.
type ApplicationRepository interface {
	// Insert stores a new application. Returns ErrDuplicateApplication
	// if the (partner, event) pair already has one.
	Insert(a *Application) error

	// Update modifies an existing application.
	Update(a *Application) error

	// GetByID retrieves an application by its ID.
	GetByID(id string) (*Application, error)

	// List returns applications matching the filter, newest first.
	List(filter ApplicationFilter) ([]*Application, error)

	// ListByPartner returns all applications filed by a partner,
	// newest first.
	ListByPartner(partnerID string) ([]*Application, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	partners map[string]*Partner
}

// NewInMemoryRepository creates a new in-memory partner repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		partners: make(map[string]*Partner),
	}
}

// Insert stores a new partner, assigning an ID if missing.
func (r *InMemoryRepository) Insert(p *Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Signup enforces presence; an empty number is not a duplicate of
	// another empty number.
	if p.BusinessNumber != "" {
		for _, existing := range r.partners {
			if existing.BusinessNumber == p.BusinessNumber {
				return ErrDuplicateBusinessNumber
			}
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.partners[p.ID] = clonePartner(p)
	return nil
}

// Update modifies an existing partner.
func (r *InMemoryRepository) Update(p *Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.partners[p.ID]; !ok {
		return ErrPartnerNotFound
	}
	if p.BusinessNumber != "" {
		for id, existing := range r.partners {
			if id != p.ID && existing.BusinessNumber == p.BusinessNumber {
				return ErrDuplicateBusinessNumber
			}
		}
	}
	p.UpdatedAt = time.Now()
	r.partners[p.ID] = clonePartner(p)
	return nil
}

// GetByID retrieves a partner by its ID.
func (r *InMemoryRepository) GetByID(id string) (*Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.partners[id]
	if !ok {
		return nil, ErrPartnerNotFound
	}
	return clonePartner(p), nil
}

// GetByUserID retrieves the partner owned by the given user.
func (r *InMemoryRepository) GetByUserID(userID string) (*Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.partners {
		if p.UserID == userID {
			return clonePartner(p), nil
		}
	}
	return nil, ErrPartnerNotFound
}

// List returns all partners, newest first.
func (r *InMemoryRepository) List() ([]*Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Partner, 0, len(r.partners))
	for _, p := range r.partners {
		out = append(out, clonePartner(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// InMemoryApplicationRepository is an in-memory implementation of
// ApplicationRepository.
type InMemoryApplicationRepository struct {
	mu           sync.RWMutex
	applications map[string]*Application
	byPair       map[string]string // partnerID+eventID -> application ID
}

// NewInMemoryApplicationRepository creates a new in-memory application
// repository.
func NewInMemoryApplicationRepository() *InMemoryApplicationRepository {
	return &InMemoryApplicationRepository{
		applications: make(map[string]*Application),
		byPair:       make(map[string]string),
	}
}

func pairKey(partnerID, eventID string) string {
	return partnerID + "\x00" + eventID
}

// Insert stores a new application, rejecting duplicates per
// (partner, event).
func (r *InMemoryApplicationRepository) Insert(a *Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := pairKey(a.PartnerID, a.EventID)
	if _, ok := r.byPair[pair]; ok {
		return ErrDuplicateApplication
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now()
	if a.AppliedAt.IsZero() {
		a.AppliedAt = now
	}
	a.UpdatedAt = now

	r.applications[a.ID] = cloneApplication(a)
	r.byPair[pair] = a.ID
	return nil
}

// Update modifies an existing application.
func (r *InMemoryApplicationRepository) Update(a *Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.applications[a.ID]
	if !ok {
		return ErrApplicationNotFound
	}
	// (partner, event) is immutable on update.
	a.PartnerID = existing.PartnerID
	a.EventID = existing.EventID
	a.AppliedAt = existing.AppliedAt
	a.UpdatedAt = time.Now()
	r.applications[a.ID] = cloneApplication(a)
	return nil
}

// GetByID retrieves an application by its ID.
func (r *InMemoryApplicationRepository) GetByID(id string) (*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.applications[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	return cloneApplication(a), nil
}

// List returns applications matching the filter, newest first.
func (r *InMemoryApplicationRepository) List(filter ApplicationFilter) ([]*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Application
	for _, a := range r.applications {
		if filter.PartnerID != "" && a.PartnerID != filter.PartnerID {
			continue
		}
		if filter.EventID != "" && a.EventID != filter.EventID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, cloneApplication(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppliedAt.After(out[j].AppliedAt)
	})
	return out, nil
}

// ListByPartner returns all applications filed by a partner, newest first.
func (r *InMemoryApplicationRepository) ListByPartner(partnerID string) ([]*Application, error) {
	return r.List(ApplicationFilter{PartnerID: partnerID})
}

func clonePartner(p *Partner) *Partner {
	copied := *p
	if p.SNSLinks != nil {
		copied.SNSLinks = make(map[string]string, len(p.SNSLinks))
		for k, v := range p.SNSLinks {
			copied.SNSLinks[k] = v
		}
	}
	copied.PortfolioImages = append([]string(nil), p.PortfolioImages...)
	copied.FestivalImages = append([]string(nil), p.FestivalImages...)
	return &copied
}

func cloneApplication(a *Application) *Application {
	copied := *a
	copied.BrandImages = append([]string(nil), a.BrandImages...)
	return &copied
}
