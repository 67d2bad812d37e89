package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
)

const defaultReportLimit = 100

// ReportService reads the security ledgers for the reporting endpoints.
type ReportService struct {
	attempts port.LoginAttemptRepository
	sessions port.SessionRepository
	audit    *AuditService
	now      func() time.Time
}

// NewReportService constructs a ReportService instance.
func NewReportService(attempts port.LoginAttemptRepository, sessions port.SessionRepository, audit *AuditService) *ReportService {
	return &ReportService{
		attempts: attempts,
		sessions: sessions,
		audit:    audit,
		now:      time.Now,
	}
}

// FailedAttemptReport aggregates the failed logins inside a trailing
// window. Total counts every failure in the window, including those beyond
// the listing limit.
type FailedAttemptReport struct {
	Since    time.Time
	Total    int
	Attempts []domain.LoginAttempt
}

// FailedAttempts reports failed logins across all accounts inside the window.
func (s *ReportService) FailedAttempts(ctx context.Context, window time.Duration, limit int) (*FailedAttemptReport, error) {
	if limit <= 0 {
		limit = defaultReportLimit
	}

	since := s.now().UTC().Add(-window)

	total, err := s.attempts.CountFailedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("count failed attempts: %w", err)
	}

	attempts, err := s.attempts.ListFailedSince(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed attempts: %w", err)
	}

	return &FailedAttemptReport{Since: since, Total: total, Attempts: attempts}, nil
}

// AccountAttempts lists one account's attempt history, newest first.
func (s *ReportService) AccountAttempts(ctx context.Context, accountID string, limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = defaultReportLimit
	}

	attempts, err := s.attempts.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list account attempts: %w", err)
	}

	return attempts, nil
}

// ActiveSessions counts live sessions, optionally scoped to one account.
func (s *ReportService) ActiveSessions(ctx context.Context, accountID string) (int64, error) {
	count, err := s.sessions.CountActive(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}

	return count, nil
}

// AccountHistory lists the audit trail of one account.
func (s *ReportService) AccountHistory(ctx context.Context, accountID string, limit int) ([]domain.AuditEntry, error) {
	return s.audit.History(ctx, "accounts", accountID, limit)
}
