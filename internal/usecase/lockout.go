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

const (
	// UnlockMethodPIN identifies a PIN-based self-service unlock.
	UnlockMethodPIN = "pin"
	// UnlockMethodSecurityAnswer identifies a question-based unlock.
	UnlockMethodSecurityAnswer = "security_answer"
)

// LockoutService flips the blocked flag when consecutive failures cross the
// threshold and handles both self-service unlock paths.
type LockoutService struct {
	cfg      *config.AppConfig
	accounts port.AccountRepository
	attempts port.LoginAttemptRepository
	limiter  port.RateLimitStore
	audit    *AuditService
	events   port.EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewLockoutService constructs a LockoutService instance.
func NewLockoutService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	attempts port.LoginAttemptRepository,
	limiter port.RateLimitStore,
	audit *AuditService,
	events port.EventPublisher,
	log *zap.Logger,
) *LockoutService {
	return &LockoutService{
		cfg:      cfg,
		accounts: accounts,
		attempts: attempts,
		limiter:  limiter,
		audit:    audit,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// EvaluateAfterFailure locks the account when its consecutive failure count
// reaches the threshold. Returns whether the account ended up locked.
func (s *LockoutService) EvaluateAfterFailure(ctx context.Context, account *domain.Account, ip *string) (bool, error) {
	if account.Blocked {
		return true, nil
	}

	failures, err := s.attempts.CountConsecutiveFailures(ctx, account.ID)
	if err != nil {
		return false, fmt.Errorf("count consecutive failures: %w", err)
	}
	if failures < s.cfg.Auth.LockoutThreshold {
		return false, nil
	}

	now := s.now().UTC()
	if err := s.accounts.SetBlocked(ctx, account.ID, true, &now); err != nil {
		return false, fmt.Errorf("block account: %w", err)
	}

	s.audit.Record(ctx, "accounts", account.ID, domain.AuditUpdate, nil, ip, map[string]any{
		"blocked":  true,
		"failures": failures,
	})

	if err := s.events.PublishAccountLocked(ctx, domain.AccountLockedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		Failures:  failures,
		LockedAt:  now,
	}); err != nil {
		s.log.Warn("publish account locked event",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}

	s.log.Info("account locked",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
		zap.Int("failures", failures))

	return true, nil
}

// UnlockWithPIN clears the blocked flag when the caller proves knowledge of
// the account's PIN.
func (s *LockoutService) UnlockWithPIN(ctx context.Context, email, pin string, ip *string) error {
	return s.unlock(ctx, email, ip, UnlockMethodPIN, func(account *domain.Account) error {
		if !account.HasPIN() {
			return ErrNoPINSet
		}
		ok, err := security.VerifyPassword(pin, *account.PINHash)
		if err != nil {
			return fmt.Errorf("verify pin: %w", err)
		}
		if !ok {
			return ErrInvalidPIN
		}
		return nil
	})
}

// UnlockWithSecurityAnswer clears the blocked flag when the caller answers
// the account's security question. Answers are normalized before comparison.
func (s *LockoutService) UnlockWithSecurityAnswer(ctx context.Context, email, answer string, ip *string) error {
	return s.unlock(ctx, email, ip, UnlockMethodSecurityAnswer, func(account *domain.Account) error {
		if !account.HasSecurityQuestion() {
			return ErrNoSecurityQuestion
		}
		ok, err := security.VerifyPassword(security.NormalizeSecurityAnswer(answer), *account.SecurityAnswerHash)
		if err != nil {
			return fmt.Errorf("verify security answer: %w", err)
		}
		if !ok {
			return ErrInvalidSecurityAnswer
		}
		return nil
	})
}

// SecurityQuestion returns the question on file so the unlock form can show
// it. Locked state is required; the question is not disclosed otherwise.
func (s *LockoutService) SecurityQuestion(ctx context.Context, email string) (string, error) {
	account, err := s.lookup(ctx, email)
	if err != nil {
		return "", err
	}
	if !account.Blocked {
		return "", ErrNotLocked
	}
	if !account.HasSecurityQuestion() {
		return "", ErrNoSecurityQuestion
	}
	return *account.SecurityQuestion, nil
}

func (s *LockoutService) unlock(ctx context.Context, email string, ip *string, method string, prove func(*domain.Account) error) error {
	account, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}

	if !account.Blocked {
		return ErrNotLocked
	}

	now := s.now().UTC()
	identifier := "unlock:" + account.ID

	state, err := s.limiter.SweepWindow(ctx, identifier, s.cfg.RateLimit.UnlockWindow, now)
	if err != nil {
		return fmt.Errorf("sweep unlock window: %w", err)
	}
	if state.Attempts >= s.cfg.RateLimit.UnlockMaxTries {
		return &RateLimitedError{RetryAfter: state.RetryAfter(s.cfg.RateLimit.UnlockWindow, now)}
	}
	if err := s.limiter.RecordAttempt(ctx, identifier, now); err != nil {
		s.log.Warn("record unlock attempt", zap.Error(err))
	}

	if err := prove(account); err != nil {
		s.audit.Record(ctx, "accounts", account.ID, domain.AuditUpdate, nil, ip, map[string]any{
			"unlock_attempt": method,
			"success":        false,
		})
		return err
	}

	if err := s.accounts.SetBlocked(ctx, account.ID, false, nil); err != nil {
		return fmt.Errorf("unblock account: %w", err)
	}

	s.audit.Record(ctx, "accounts", account.ID, domain.AuditUpdate, &account.ID, ip, map[string]any{
		"unlock_success": method,
	})

	if err := s.events.PublishAccountUnlocked(ctx, domain.AccountUnlockedEvent{
		EventID:    uuid.NewString(),
		AccountID:  account.ID,
		Method:     method,
		UnlockedAt: now,
	}); err != nil {
		s.log.Warn("publish account unlocked event",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}

	return nil
}

func (s *LockoutService) lookup(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}
