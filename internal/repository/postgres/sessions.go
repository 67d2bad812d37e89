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

const sessionColumns = "id, account_id, token, ip, user_agent, city, country, last_activity_at, created_at"

// SessionRepository implements port.SessionRepository using PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{exec: exec, builder: newBuilder()}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.ActiveSession) error {
	stmt, args, err := r.builder.Insert("active_sessions").
		Columns("id", "account_id", "token", "ip", "user_agent", "city", "country", "last_activity_at", "created_at").
		Values(session.ID, session.AccountID, session.Token, session.IP, session.UserAgent, session.City, session.Country, session.LastActivityAt, session.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.ActiveSession, error) {
	stmt, args, err := r.builder.Select(sessionColumns).
		From("active_sessions").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := r.scanSession(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.ActiveSession, error) {
	stmt, args, err := r.builder.Select(sessionColumns).
		From("active_sessions").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("last_activity_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ActiveSession
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}

	return sessions, nil
}

// Touch moves last_activity_at forward for the token's row.
func (r *SessionRepository) Touch(ctx context.Context, token string, at time.Time) error {
	stmt, args, err := r.builder.Update("active_sessions").
		Set("last_activity_at", at).
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("active_sessions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	stmt, args, err := r.builder.Delete("active_sessions").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session by token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete session by token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteByAccount removes every session the account holds and reports how
// many rows went away.
func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	stmt, args, err := r.builder.Delete("active_sessions").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete sessions by account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions by account: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteIdle sweeps sessions whose last activity predates the cutoff.
func (r *SessionRepository) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("active_sessions").
		Where(squirrel.Lt{"last_activity_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete idle sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}

	return ct.RowsAffected(), nil
}

// CountActive counts sessions, scoped to one account when accountID is set.
func (r *SessionRepository) CountActive(ctx context.Context, accountID string) (int64, error) {
	builder := r.builder.Select("COUNT(*)").From("active_sessions")
	if accountID != "" {
		builder = builder.Where(squirrel.Eq{"account_id": accountID})
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count sessions sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("scan session count: %w", err)
	}

	return count, nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (*domain.ActiveSession, error) {
	var session domain.ActiveSession
	if err := row.Scan(
		&session.ID,
		&session.AccountID,
		&session.Token,
		&session.IP,
		&session.UserAgent,
		&session.City,
		&session.Country,
		&session.LastActivityAt,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
