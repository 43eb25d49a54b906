package user

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines account data operations.
type Repository interface {
	// Insert stores a new user, rejecting duplicate usernames and emails.
	Insert(u *User) error

	// Update modifies an existing user.
	Update(u *User) error

	// Delete removes a user.
	Delete(id string) error

	// GetByID retrieves a user by ID.
	GetByID(id string) (*User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(username string) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(email string) (*User, error)

	// GetBySocial retrieves a user by (provider, social ID).
	GetBySocial(provider, socialID string) (*User, error)
}

// SocialProfile is the provider-supplied identity used to upsert an account.
type SocialProfile struct {
	Provider     string
	SocialID     string
	Email        string
	Nickname     string
	ProfileImage string
}

// UpsertSocial resolves a social login against the repository: an
// existing (provider, id) account is reused, an existing account with
// the same email is linked, otherwise a new consumer account is created
// with a random password. Returns the user and whether it was created.
func UpsertSocial(repo Repository, profile SocialProfile) (*User, bool, error) {
	if u, err := repo.GetBySocial(profile.Provider, profile.SocialID); err == nil {
		if profile.ProfileImage != "" && u.ProfileImage != profile.ProfileImage {
			u.ProfileImage = profile.ProfileImage
			if err := repo.Update(u); err != nil {
				return nil, false, fmt.Errorf("failed to refresh profile image: %w", err)
			}
		}
		return u, false, nil
	} else if err != ErrUserNotFound {
		return nil, false, err
	}

	// Link an existing password account registered with the same email.
	if u, err := repo.GetByEmail(profile.Email); err == nil {
		u.SocialProvider = profile.Provider
		u.SocialID = profile.SocialID
		if profile.ProfileImage != "" {
			u.ProfileImage = profile.ProfileImage
		}
		if err := repo.Update(u); err != nil {
			return nil, false, fmt.Errorf("failed to link social account: %w", err)
		}
		return u, false, nil
	} else if err != ErrUserNotFound {
		return nil, false, err
	}

	u := &User{
		Username:       profile.Provider + "_" + profile.SocialID,
		Email:          profile.Email,
		Role:           RoleConsumer,
		ProfileImage:   profile.ProfileImage,
		SocialProvider: profile.Provider,
		SocialID:       profile.SocialID,
	}
	// Social accounts never log in with a password; set an unguessable one.
	if err := u.SetPassword(randomPassword()); err != nil {
		return nil, false, err
	}
	if err := repo.Insert(u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func randomPassword() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand read failures are not recoverable here.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

// Insert stores a new user, rejecting duplicate usernames and emails.
func (r *InMemoryRepository) Insert(u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	copied := *u
	r.users[u.ID] = &copied
	return nil
}

// Update modifies an existing user.
func (r *InMemoryRepository) Update(u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	for id, existing := range r.users {
		if id == u.ID {
			continue
		}
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	u.UpdatedAt = time.Now()
	copied := *u
	r.users[u.ID] = &copied
	return nil
}

// Delete removes a user.
func (r *InMemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// GetByID retrieves a user by ID.
func (r *InMemoryRepository) GetByID(id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// GetByUsername retrieves a user by username.
func (r *InMemoryRepository) GetByUsername(username string) (*User, error) {
	return r.find(func(u *User) bool { return u.Username == username })
}

// GetByEmail retrieves a user by email.
func (r *InMemoryRepository) GetByEmail(email string) (*User, error) {
	return r.find(func(u *User) bool { return u.Email == email })
}

// GetBySocial retrieves a user by (provider, social ID).
func (r *InMemoryRepository) GetBySocial(provider, socialID string) (*User, error) {
	return r.find(func(u *User) bool {
		return u.SocialProvider == provider && u.SocialID == socialID
	})
}

func (r *InMemoryRepository) find(match func(*User) bool) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}
