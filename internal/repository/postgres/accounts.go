package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/repository"
)

const accountColumns = "id, email, password_hash, role, status, token_version, blocked, blocked_at, pin_hash, security_question, security_answer_hash, first_access, provisional_password, password_changed_at, last_login_at, created_at"

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{exec: exec, builder: newBuilder()}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Insert("accounts").
		Columns(
			"id",
			"email",
			"password_hash",
			"role",
			"status",
			"token_version",
			"blocked",
			"blocked_at",
			"pin_hash",
			"security_question",
			"security_answer_hash",
			"first_access",
			"provisional_password",
			"password_changed_at",
			"last_login_at",
			"created_at",
		).
		Values(
			account.ID,
			strings.ToLower(account.Email),
			account.PasswordHash,
			account.Role,
			account.Status,
			account.TokenVersion,
			account.Blocked,
			account.BlockedAt,
			account.PINHash,
			account.SecurityQuestion,
			account.SecurityAnswerHash,
			account.FirstAccess,
			account.ProvisionalPassword,
			account.PasswordChangedAt,
			account.LastLoginAt,
			account.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(accountColumns, ", ")...).
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves an account by email, case-insensitively.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(accountColumns, ", ")...).
		From("accounts").
		Where(squirrel.Expr("LOWER(email) = LOWER(?)", email)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Status,
		&account.TokenVersion,
		&account.Blocked,
		&account.BlockedAt,
		&account.PINHash,
		&account.SecurityQuestion,
		&account.SecurityAnswerHash,
		&account.FirstAccess,
		&account.ProvisionalPassword,
		&account.PasswordChangedAt,
		&account.LastLoginAt,
		&account.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &account, nil
}

// UpdatePassword updates the password hash and change timestamp.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ClearProvisionalFlags resets first_access and provisional_password.
func (r *AccountRepository) ClearProvisionalFlags(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("first_access", false).
		Set("provisional_password", false).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear provisional flags sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear provisional flags: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetBlocked flips the blocked flag and timestamp.
func (r *AccountRepository) SetBlocked(ctx context.Context, id string, blocked bool, at *time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("blocked", blocked).
		Set("blocked_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set blocked sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("last_login_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	return nil
}

// UpdateSecurityProfile stores the self-unlock factors, skipping columns
// whose argument is nil.
func (r *AccountRepository) UpdateSecurityProfile(ctx context.Context, id string, pinHash, question, answerHash *string) error {
	builder := r.builder.Update("accounts").Where(squirrel.Eq{"id": id})
	touched := false
	if pinHash != nil {
		builder = builder.Set("pin_hash", *pinHash)
		touched = true
	}
	if question != nil {
		builder = builder.Set("security_question", *question)
		touched = true
	}
	if answerHash != nil {
		builder = builder.Set("security_answer_hash", *answerHash)
		touched = true
	}
	if !touched {
		return nil
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update security profile sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update security profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// HasTokenVersionColumn probes information_schema for the optional
// token_version column. Deployments still running the older schema report
// false; callers cache the result.
func (r *AccountRepository) HasTokenVersionColumn(ctx context.Context) (bool, error) {
	const stmt = `
		SELECT EXISTS (
			SELECT 1
			  FROM information_schema.columns
			 WHERE table_name = 'accounts'
			   AND column_name = 'token_version'
		)
	`

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt).Scan(&exists); err != nil {
		return false, fmt.Errorf("probe token_version column: %w", err)
	}

	return exists, nil
}

// GetTokenVersion reads the live per-account counter.
func (r *AccountRepository) GetTokenVersion(ctx context.Context, id string) (int64, error) {
	stmt, args, err := r.builder.Select("token_version").
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select token version sql: %w", err)
	}

	var version int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&version); err != nil {
		if err == pgx.ErrNoRows {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("scan token version: %w", err)
	}

	return version, nil
}

// IncrementTokenVersion bumps the counter and returns the new value.
func (r *AccountRepository) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	const stmt = `
		UPDATE accounts
		   SET token_version = token_version + 1
		 WHERE id = $1
		RETURNING token_version
	`

	var version int64
	if err := r.exec.QueryRow(ctx, stmt, id).Scan(&version); err != nil {
		if err == pgx.ErrNoRows {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment token version: %w", err)
	}

	return version, nil
}

// ListPasswordHistory retrieves the most recent password hashes.
func (r *AccountRepository) ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("account id is required")
	}

	builder := r.builder.Select("id", "account_id", "password_hash", "created_at").
		From("password_history").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select password history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query password history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.PasswordHistoryEntry, 0)
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PasswordHash, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return history, nil
}

// AddPasswordHistory inserts a password hash into the history table.
func (r *AccountRepository) AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	if strings.TrimSpace(entry.AccountID) == "" {
		return fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(entry.PasswordHash) == "" {
		return fmt.Errorf("password hash is required")
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("password_history").
		Columns("id", "account_id", "password_hash", "created_at").
		Values(entry.ID, entry.AccountID, entry.PasswordHash, createdAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert password history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}

	return nil
}

// TrimPasswordHistory retains only the most recent maxEntries hashes.
func (r *AccountRepository) TrimPasswordHistory(ctx context.Context, accountID string, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("account id is required")
	}

	const stmt = `
		DELETE FROM password_history
		 WHERE account_id = $1
		   AND id NOT IN (
				SELECT id
				  FROM password_history
				 WHERE account_id = $1
				 ORDER BY created_at DESC
				 LIMIT $2
		   )
	`

	if _, err := r.exec.Exec(ctx, stmt, accountID, maxEntries); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
