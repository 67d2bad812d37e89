package port

import (
	"context"
	"time"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
)

// MFACodeRepository persists one-time code hashes.
type MFACodeRepository interface {
	Create(ctx context.Context, code domain.MFACode) error
	// GetByHash returns the most recent row matching the hash for the
	// account and action, used or not.
	GetByHash(ctx context.Context, accountID, codeHash string, action domain.MFAAction) (*domain.MFACode, error)
	// MarkUsed flips used=true exactly once; a second call for the same id
	// reports ErrNotFound so verification stays single-use.
	MarkUsed(ctx context.Context, id string) error
	// DeleteStale removes used or expired rows for the (account, action)
	// pair ahead of a new issuance.
	DeleteStale(ctx context.Context, accountID string, action domain.MFAAction, now time.Time) error
	// PurgeExpired removes all used or expired rows and returns the count.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	// CountIssuedSince counts issuance rows created within the trailing
	// window, for caller-side rate limiting.
	CountIssuedSince(ctx context.Context, accountID string, since time.Time) (int, error)
}
