package port

import (
	"context"
	"time"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
)

// AccountRepository persists accounts and their password history.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByEmail resolves an account by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	// ClearProvisionalFlags resets first_access and provisional_password
	// after a forced password change completes.
	ClearProvisionalFlags(ctx context.Context, id string) error
	SetBlocked(ctx context.Context, id string, blocked bool, at *time.Time) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// UpdateSecurityProfile stores the self-unlock factors. Nil arguments
	// leave the corresponding column untouched.
	UpdateSecurityProfile(ctx context.Context, id string, pinHash, question, answerHash *string) error

	// HasTokenVersionColumn probes whether the optional token_version column
	// exists in the deployed schema. Callers cache the result.
	HasTokenVersionColumn(ctx context.Context) (bool, error)
	GetTokenVersion(ctx context.Context, id string) (int64, error)
	// IncrementTokenVersion bumps the per-account counter and returns the
	// new value, invalidating all previously issued bearer tokens.
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)

	ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error)
	AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error
	TrimPasswordHistory(ctx context.Context, accountID string, maxEntries int) error
}
