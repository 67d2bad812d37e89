package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/repository"
)

// MFACodeRepository implements port.MFACodeRepository using PostgreSQL.
type MFACodeRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewMFACodeRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewMFACodeRepository(exec pgExecutor) *MFACodeRepository {
	return &MFACodeRepository{exec: exec, builder: newBuilder()}
}

// Create inserts a code row. Only the hash is persisted.
func (r *MFACodeRepository) Create(ctx context.Context, code domain.MFACode) error {
	stmt, args, err := r.builder.Insert("mfa_codes").
		Columns("id", "account_id", "code_hash", "action", "used", "ip", "user_agent", "created_at", "expires_at").
		Values(code.ID, code.AccountID, code.CodeHash, code.Action, code.Used, code.IP, code.UserAgent, code.CreatedAt, code.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert mfa code sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert mfa code: %w", err)
	}

	return nil
}

// GetByHash returns the most recent row matching the hash for the account
// and action, used or not.
func (r *MFACodeRepository) GetByHash(ctx context.Context, accountID, codeHash string, action domain.MFAAction) (*domain.MFACode, error) {
	stmt, args, err := r.builder.
		Select("id", "account_id", "code_hash", "action", "used", "ip", "user_agent", "created_at", "expires_at").
		From("mfa_codes").
		Where(squirrel.Eq{"account_id": accountID, "code_hash": codeHash, "action": action}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select mfa code sql: %w", err)
	}

	var code domain.MFACode
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&code.ID,
		&code.AccountID,
		&code.CodeHash,
		&code.Action,
		&code.Used,
		&code.IP,
		&code.UserAgent,
		&code.CreatedAt,
		&code.ExpiresAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan mfa code: %w", err)
	}

	return &code, nil
}

// MarkUsed flips used=true exactly once. The used=false guard keeps the
// consumption atomic so a code cannot be replayed.
func (r *MFACodeRepository) MarkUsed(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("mfa_codes").
		Set("used", true).
		Where(squirrel.Eq{"id": id, "used": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark mfa code used sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark mfa code used: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteStale removes used or expired rows for the (account, action) pair.
func (r *MFACodeRepository) DeleteStale(ctx context.Context, accountID string, action domain.MFAAction, now time.Time) error {
	stmt, args, err := r.builder.Delete("mfa_codes").
		Where(squirrel.Eq{"account_id": accountID, "action": action}).
		Where(squirrel.Or{
			squirrel.Eq{"used": true},
			squirrel.Lt{"expires_at": now},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete stale mfa codes sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete stale mfa codes: %w", err)
	}

	return nil
}

// PurgeExpired removes all used or expired rows and returns the count.
func (r *MFACodeRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("mfa_codes").
		Where(squirrel.Or{
			squirrel.Eq{"used": true},
			squirrel.Lt{"expires_at": now},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge mfa codes sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge mfa codes: %w", err)
	}

	return ct.RowsAffected(), nil
}

// CountIssuedSince counts issuance rows created within the trailing window.
func (r *MFACodeRepository) CountIssuedSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From("mfa_codes").
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count mfa codes sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("scan mfa code count: %w", err)
	}

	return int(count), nil
}

var _ port.MFACodeRepository = (*MFACodeRepository)(nil)
