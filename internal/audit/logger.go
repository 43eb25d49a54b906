package audit

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/festago/festago/internal/middleware"
)

var (
	// ErrNilRepository is returned when no repository was provided.
	ErrNilRepository = errors.New("audit repository cannot be nil")
	// ErrInvalidEntityType is returned for an unknown entity type.
	ErrInvalidEntityType = errors.New("invalid audit entity type")
	// ErrInvalidEntityID is returned for an empty entity ID.
	ErrInvalidEntityID = errors.New("audit entity ID cannot be empty")
	// ErrInvalidAction is returned for an unknown action.
	ErrInvalidAction = errors.New("invalid audit action")
)

var validEntityTypes = map[string]bool{
	EntityApplication: true,
	EntityPartner:     true,
}

var validActions = map[string]bool{
	ActionApproveApplication:  true,
	ActionRejectApplication:   true,
	ActionCompleteApplication: true,
	ActionExportApplications:  true,
}

func validateEntry(entityType, entityID, action string) error {
	if !validEntityTypes[entityType] {
		return ErrInvalidEntityType
	}
	if entityID == "" {
		return ErrInvalidEntityID
	}
	if !validActions[action] {
		return ErrInvalidAction
	}
	return nil
}

// clientIP extracts the client IP from a request, preferring proxy
// headers over RemoteAddr. Ports are stripped.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx != -1 {
			first = xff[:idx]
		}
		return stripPort(strings.TrimSpace(first))
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return stripPort(strings.TrimSpace(xri))
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// LogRequest records an operator action with HTTP request metadata.
// The acting user and request ID come from the request context.
func LogRequest(r *http.Request, repo Repository, entityType, entityID, action, outcome string) error {
	if repo == nil {
		return ErrNilRepository
	}
	if err := validateEntry(entityType, entityID, action); err != nil {
		return err
	}

	_, err := repo.Log(Entry{
		UserID:     middleware.GetUserID(r.Context()),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Outcome:    outcome,
		RequestID:  middleware.GetRequestID(r.Context()),
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	return err
}
