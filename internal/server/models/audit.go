package models

import "time"

// AuditEvent is an immutable, append-only record of a security- or
// PHI-relevant action. Events are only ever appended; the actor is stored
// as a salted hash rather than a raw identifier.
type AuditEvent struct {
	ID string
	// UserHash is the salted SHA-256 index hash of the acting user's id.
	UserHash string
	// Action names what happened, e.g. "document_uploaded", "result_accessed".
	Action string
	// ResourceID is the affected job or artifact id.
	ResourceID string
	// Classification labels the data sensitivity involved, e.g. "phi".
	Classification string
	Details        string
	CreatedAt      time.Time
}
