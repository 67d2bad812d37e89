package port

import (
	"context"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
)

// AuditRepository appends and reads audit entries.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	// History returns entries for a record, newest first, with actor email
	// joined in when the actor still exists.
	History(ctx context.Context, tableName, recordID string, limit int) ([]domain.AuditEntry, error)
}
