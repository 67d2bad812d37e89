package port

import (
	"context"
	"time"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
)

// LoginAttemptRepository is the append-only attempt ledger plus its
// read-side aggregations.
type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt domain.LoginAttempt) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.LoginAttempt, error)
	// CountConsecutiveFailures counts failed attempts for the account since
	// its most recent success, feeding the lockout decision.
	CountConsecutiveFailures(ctx context.Context, accountID string) (int, error)
	// CountFailedSince counts failed attempts within a trailing window,
	// across all accounts, for security reporting.
	CountFailedSince(ctx context.Context, since time.Time) (int, error)
	ListFailedSince(ctx context.Context, since time.Time, limit int) ([]domain.LoginAttempt, error)
}
