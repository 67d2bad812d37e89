package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/repository"
)

const sessionTokenBytes = 32

// SessionService manages the opaque server-side session rows.
type SessionService struct {
	cfg      *config.AppConfig
	sessions port.SessionRepository
	log      *zap.Logger
	now      func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(cfg *config.AppConfig, sessions port.SessionRepository, log *zap.Logger) *SessionService {
	return &SessionService{
		cfg:      cfg,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// Create issues a new session for the account. Each account holds at most
// one active session, so existing rows are revoked first. The idle sweep and
// the revocation are best-effort; a failure there never blocks the login.
func (s *SessionService) Create(ctx context.Context, accountID string, ip, userAgent *string) (*domain.ActiveSession, error) {
	now := s.now().UTC()

	if _, err := s.sessions.DeleteIdle(ctx, now.Add(-s.cfg.Auth.SessionIdleTTL)); err != nil {
		s.log.Warn("sweep idle sessions", zap.Error(err))
	}

	if _, err := s.sessions.DeleteByAccount(ctx, accountID); err != nil {
		s.log.Warn("revoke previous sessions",
			zap.String("account_id", accountID),
			zap.Error(err))
	}

	token, err := security.GenerateSessionToken(sessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := domain.ActiveSession{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Token:          token,
		IP:             ip,
		UserAgent:      userAgent,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

// Resolve looks up a session by its opaque token and refreshes its activity
// stamp. Sessions idle beyond the configured TTL are treated as gone.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.ActiveSession, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now().UTC()
	if session.IdleSince(now, s.cfg.Auth.SessionIdleTTL) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("delete idle session", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, ErrSessionNotFound
	}

	if err := s.sessions.Touch(ctx, token, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("touch session", zap.String("session_id", session.ID), zap.Error(err))
	}

	return session, nil
}

// List returns the account's sessions, most recently active first.
func (s *SessionService) List(ctx context.Context, accountID string) ([]domain.ActiveSession, error) {
	sessions, err := s.sessions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeByToken removes a single session.
func (s *SessionService) RevokeByToken(ctx context.Context, token string) error {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAll removes every session the account holds and reports the count.
func (s *SessionService) RevokeAll(ctx context.Context, accountID string) (int64, error) {
	removed, err := s.sessions.DeleteByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return removed, nil
}

// CountActive counts live sessions, optionally scoped to one account.
func (s *SessionService) CountActive(ctx context.Context, accountID string) (int64, error) {
	count, err := s.sessions.CountActive(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
