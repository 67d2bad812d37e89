package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
)

const attemptColumns = "id, account_id, email, ip, user_agent, success, failure_reason, created_at"

// LoginAttemptRepository implements port.LoginAttemptRepository using
// PostgreSQL. The table is append-only; nothing here updates or deletes.
type LoginAttemptRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewLoginAttemptRepository(exec pgExecutor) *LoginAttemptRepository {
	return &LoginAttemptRepository{exec: exec, builder: newBuilder()}
}

func (r *LoginAttemptRepository) Record(ctx context.Context, attempt domain.LoginAttempt) error {
	stmt, args, err := r.builder.Insert("login_attempts").
		Columns("id", "account_id", "email", "ip", "user_agent", "success", "failure_reason", "created_at").
		Values(attempt.ID, attempt.AccountID, attempt.Email, attempt.IP, attempt.UserAgent, attempt.Success, attempt.FailureReason, attempt.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	return nil
}

func (r *LoginAttemptRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.LoginAttempt, error) {
	stmt, args, err := r.builder.Select(attemptColumns).
		From("login_attempts").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list login attempts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list login attempts: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// CountConsecutiveFailures counts failures recorded after the account's most
// recent success. With no success on record every failure counts.
func (r *LoginAttemptRepository) CountConsecutiveFailures(ctx context.Context, accountID string) (int, error) {
	const query = `
		SELECT COUNT(*) FROM login_attempts
		WHERE account_id = $1
		  AND success = false
		  AND created_at > COALESCE(
			(SELECT MAX(created_at) FROM login_attempts WHERE account_id = $1 AND success = true),
			'-infinity'::timestamptz
		  )`

	var count int64
	if err := r.exec.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("scan consecutive failure count: %w", err)
	}

	return int(count), nil
}

func (r *LoginAttemptRepository) CountFailedSince(ctx context.Context, since time.Time) (int, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From("login_attempts").
		Where(squirrel.Eq{"success": false}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count failed attempts sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("scan failed attempt count: %w", err)
	}

	return int(count), nil
}

func (r *LoginAttemptRepository) ListFailedSince(ctx context.Context, since time.Time, limit int) ([]domain.LoginAttempt, error) {
	stmt, args, err := r.builder.Select(attemptColumns).
		From("login_attempts").
		Where(squirrel.Eq{"success": false}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list failed attempts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list failed attempts: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *LoginAttemptRepository) collect(rows pgx.Rows) ([]domain.LoginAttempt, error) {
	var attempts []domain.LoginAttempt
	for rows.Next() {
		var attempt domain.LoginAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.AccountID,
			&attempt.Email,
			&attempt.IP,
			&attempt.UserAgent,
			&attempt.Success,
			&attempt.FailureReason,
			&attempt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan login attempt row: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate login attempt rows: %w", err)
	}

	return attempts, nil
}

var _ port.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
