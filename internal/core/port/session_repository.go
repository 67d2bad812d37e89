package port

import (
	"context"
	"time"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
)

// SessionRepository persists opaque active sessions. All delete operations
// are idempotent: removing zero rows is success.
type SessionRepository interface {
	Create(ctx context.Context, session domain.ActiveSession) error
	GetByToken(ctx context.Context, token string) (*domain.ActiveSession, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.ActiveSession, error)
	Touch(ctx context.Context, token string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error
	// DeleteByAccount removes every session for the account and returns the
	// number of rows removed.
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
	// DeleteIdle removes sessions whose last activity predates the cutoff.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error)
	// CountActive returns the number of live session rows, optionally
	// scoped to one account (empty accountID means all).
	CountActive(ctx context.Context, accountID string) (int64, error)
}
