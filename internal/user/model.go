// Package user provides the account model shared by consumers and
// business partners, including credential and social-login handling.
package user

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account roles.
const (
	RoleConsumer = "consumer"
	RolePartner  = "partner"
)

// Social login providers.
const (
	ProviderKakao  = "kakao"
	ProviderNaver  = "naver"
	ProviderGoogle = "google"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

var (
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when the username is taken.
	ErrDuplicateUsername = errors.New("username already in use")

	// ErrDuplicateEmail is returned when the email is taken.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidRole is returned for an unknown account role.
	ErrInvalidRole = errors.New("invalid user role")

	// ErrPasswordTooShort is returned when a password is below the minimum length.
	ErrPasswordTooShort = errors.New("password too short")
)

// ValidRole reports whether role is a known account role.
func ValidRole(role string) bool {
	return role == RoleConsumer || role == RolePartner
}

// User is an account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`

	// Social linkage; both empty for password-only accounts.
	SocialProvider string `json:"social_provider,omitempty"`
	SocialID       string `json:"social_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
