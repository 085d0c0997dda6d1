package models

import "time"

// Severity of an audit log entry.
type Severity string

const (
	SeverityInformation Severity = "information"
	SeverityWarning     Severity = "warning"
)

// ReferenceResource tags audit entries that point at a resource row.
const ReferenceResource = "resource"

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID            int64     `json:"id"`
	Created       time.Time `json:"created"`
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	UserID        *int64    `json:"userId"`
	ReferenceType string    `json:"referenceType"`
	ReferenceID   int64     `json:"referenceId"`
}
