// Package audit records operator actions on the booth application
// workflow for compliance and dispute resolution.
package audit

import (
	"time"
)

// Entity types that can appear in the audit trail.
const (
	EntityApplication = "application"
	EntityPartner     = "partner"
)

// Actions recorded in the audit trail.
const (
	ActionApproveApplication  = "approve_application"
	ActionRejectApplication   = "reject_application"
	ActionCompleteApplication = "complete_application"
	ActionExportApplications  = "export_applications"
)

// Outcomes for audit records.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Record is a single entry in the audit trail.
type Record struct {
	ID         string
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	Outcome    string
	CreatedAt  time.Time

	RequestID string
	IPAddress string
	UserAgent string
}

// Entry is the input for recording an audit event.
type Entry struct {
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	Outcome    string

	RequestID string
	IPAddress string
	UserAgent string
}
