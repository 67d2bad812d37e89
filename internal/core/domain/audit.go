package domain

import "time"

// AuditAction enumerates the recorded mutation kinds.
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
	AuditLogin  AuditAction = "LOGIN"
	AuditLogout AuditAction = "LOGOUT"
)

// AuditEntry is an append-only record of a security-relevant mutation.
// Writing an entry is always best-effort; a failed write never aborts the
// operation that triggered it.
type AuditEntry struct {
	ID             string
	TableName      string
	RecordID       string
	Action         AuditAction
	ActorAccountID *string
	ActorEmail     *string
	IP             *string
	Payload        map[string]any
	CreatedAt      time.Time
}
