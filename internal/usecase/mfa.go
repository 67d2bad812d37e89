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
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/logger"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/repository"
)

// MFAService issues and verifies step-up verification codes.
type MFAService struct {
	cfg    *config.AppConfig
	codes  port.MFACodeRepository
	mailer port.Mailer
	log    *zap.Logger
	now    func() time.Time
}

// NewMFAService constructs an MFAService instance.
func NewMFAService(cfg *config.AppConfig, codes port.MFACodeRepository, mailer port.Mailer, log *zap.Logger) *MFAService {
	return &MFAService{
		cfg:    cfg,
		codes:  codes,
		mailer: mailer,
		log:    log,
		now:    time.Now,
	}
}

// Issue generates a fresh code for the account and action and delivers it by
// mail. Previously issued codes for the pair are retired first, so only the
// newest code verifies. Issuance counts against a trailing window budget.
func (s *MFAService) Issue(ctx context.Context, account *domain.Account, action domain.MFAAction, ip, userAgent *string) error {
	if !action.Valid() {
		return fmt.Errorf("unknown mfa action %q", action)
	}

	now := s.now().UTC()

	issued, err := s.codes.CountIssuedSince(ctx, account.ID, now.Add(-s.cfg.RateLimit.MFAWindow))
	if err != nil {
		return fmt.Errorf("count issued codes: %w", err)
	}
	if issued >= s.cfg.RateLimit.MFAMaxIssues {
		return &RateLimitedError{RetryAfter: s.cfg.RateLimit.MFAWindow}
	}

	if err := s.codes.DeleteStale(ctx, account.ID, action, now); err != nil {
		s.log.Warn("delete stale mfa codes",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}

	code, err := security.GenerateMFACode()
	if err != nil {
		return fmt.Errorf("generate mfa code: %w", err)
	}

	record := domain.MFACode{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		CodeHash:  security.HashToken(code),
		Action:    action,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Auth.MFACodeTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return fmt.Errorf("store mfa code: %w", err)
	}

	message := port.MailMessage{
		To:      account.Email,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.cfg.Auth.MFACodeTTL),
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		s.log.Warn("deliver mfa code",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err))
	}

	return nil
}

// Verify consumes a code exactly once. A code that matches no row, was used
// before, or outlived its window is rejected with the corresponding error.
func (s *MFAService) Verify(ctx context.Context, accountID, code string, action domain.MFAAction) error {
	record, err := s.codes.GetByHash(ctx, accountID, security.HashToken(code), action)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("lookup mfa code: %w", err)
	}

	if record.Used {
		return ErrCodeAlreadyUsed
	}
	if record.Expired(s.now().UTC()) {
		return ErrCodeExpired
	}

	if err := s.codes.MarkUsed(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the race against a concurrent verify.
			return ErrCodeAlreadyUsed
		}
		return fmt.Errorf("mark mfa code used: %w", err)
	}

	return nil
}

// PurgeExpired sweeps used and expired rows. Intended for a periodic job.
func (s *MFAService) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := s.codes.PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge mfa codes: %w", err)
	}
	return removed, nil
}
