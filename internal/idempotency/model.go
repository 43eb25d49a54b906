// Package idempotency caches responses for retried payment requests so
// a client retrying POST /payments/checkout with the same key cannot
// open a second Stripe session.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// MaxKeyLength is the maximum allowed length for an idempotency key.
const MaxKeyLength = 64

var (
	// ErrKeyNotFound is returned when no cached response exists for a key.
	ErrKeyNotFound = errors.New("idempotency key not found")

	// ErrKeyExists is returned when attempting to cache a duplicate key.
	ErrKeyExists = errors.New("idempotency key already exists")

	// ErrInvalidKey is returned when the key is empty.
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrKeyTooLong is returned when the key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// Record is one cached response, scoped to the method and route it was
// produced on so a reused key cannot replay a response across
// endpoints.
type Record struct {
	Key        string    `json:"key"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	StatusCode int       `json:"status_code"`
	Body       string    `json:"body"`
	BodyHash   string    `json:"body_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidateKey checks whether an idempotency key is usable.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// HashBody returns the SHA-256 hex digest of a cached body. Replays
// compare it against the stored body to detect corrupted entries.
func HashBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Repository defines idempotency record persistence.
type Repository interface {
	// Get retrieves the cached response for (key, method, route).
	// Returns ErrKeyNotFound if there is none.
	Get(key, method, route string) (*Record, error)

	// Store caches a response. Returns ErrKeyExists when the same
	// (key, method, route) is already cached.
	Store(rec *Record) error

	// DeleteOlderThan removes records older than the given age so
	// storage stays bounded. Returns the number removed.
	DeleteOlderThan(age time.Duration) (int64, error)
}
