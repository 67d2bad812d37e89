package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
)

// PasswordService changes passwords under the composition policy, the
// strength estimate and the reuse window, and maintains the history trail.
type PasswordService struct {
	cfg      *config.AppConfig
	accounts port.AccountRepository
	tokens   *TokenService
	sessions *SessionService
	audit    *AuditService
	events   port.EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewPasswordService constructs a PasswordService instance.
func NewPasswordService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	tokens *TokenService,
	sessions *SessionService,
	audit *AuditService,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordService {
	return &PasswordService{
		cfg:      cfg,
		accounts: accounts,
		tokens:   tokens,
		sessions: sessions,
		audit:    audit,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Change replaces the account's password. The candidate must satisfy every
// composition rule, survive the strength estimate, and differ from the
// current password and the recorded history. A successful change retires
// every live session and bearer token.
func (s *PasswordService) Change(ctx context.Context, account *domain.Account, newPassword string, forced bool, ip *string) error {
	if violations := security.ValidatePassword(newPassword); len(violations) > 0 {
		return &PasswordPolicyError{Violations: violations}
	}
	if security.IsWeakPassword(newPassword, account.Email) {
		return ErrWeakPassword
	}

	reused, err := s.isReused(ctx, account, newPassword)
	if err != nil {
		return err
	}
	if reused {
		return ErrPasswordReused
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// Retired hashes feed the reuse check on future changes.
	if err := s.accounts.AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		PasswordHash: account.PasswordHash,
		CreatedAt:    now,
	}); err != nil {
		s.log.Warn("record password history", zap.String("account_id", account.ID), zap.Error(err))
	}
	if err := s.accounts.TrimPasswordHistory(ctx, account.ID, s.cfg.Auth.PasswordHistory); err != nil {
		s.log.Warn("trim password history", zap.String("account_id", account.ID), zap.Error(err))
	}

	if forced {
		if err := s.accounts.ClearProvisionalFlags(ctx, account.ID); err != nil {
			return fmt.Errorf("clear provisional flags: %w", err)
		}
	}

	if _, err := s.tokens.Revoke(ctx, account.ID); err != nil {
		s.log.Warn("revoke bearer tokens after password change",
			zap.String("account_id", account.ID), zap.Error(err))
	}
	if _, err := s.sessions.RevokeAll(ctx, account.ID); err != nil {
		s.log.Warn("revoke sessions after password change",
			zap.String("account_id", account.ID), zap.Error(err))
	}

	s.audit.Record(ctx, "accounts", account.ID, domain.AuditUpdate, &account.ID, ip, map[string]any{
		"password_changed": true,
		"forced":           forced,
	})

	if err := s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Forced:    forced,
		ChangedAt: now,
	}); err != nil {
		s.log.Warn("publish password changed event",
			zap.String("account_id", account.ID), zap.Error(err))
	}

	return nil
}

// ConfigureUnlockFactors stores the hashed PIN and security answer used by
// the self-service unlock paths. Nil arguments leave factors untouched.
func (s *PasswordService) ConfigureUnlockFactors(ctx context.Context, accountID string, pin, question, answer *string) error {
	var pinHash, answerHash *string

	if pin != nil {
		hashed, err := security.HashPassword(*pin)
		if err != nil {
			return fmt.Errorf("hash pin: %w", err)
		}
		pinHash = &hashed
	}
	if answer != nil {
		hashed, err := security.HashPassword(security.NormalizeSecurityAnswer(*answer))
		if err != nil {
			return fmt.Errorf("hash security answer: %w", err)
		}
		answerHash = &hashed
	}

	if err := s.accounts.UpdateSecurityProfile(ctx, accountID, pinHash, question, answerHash); err != nil {
		return fmt.Errorf("store unlock factors: %w", err)
	}

	return nil
}

// Strength exposes the additive strength estimate for interactive forms.
func (s *PasswordService) Strength(candidate string) security.Strength {
	return security.PasswordStrength(candidate)
}

func (s *PasswordService) isReused(ctx context.Context, account *domain.Account, candidate string) (bool, error) {
	ok, err := security.VerifyPassword(candidate, account.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("compare against current password: %w", err)
	}
	if ok {
		return true, nil
	}

	history, err := s.accounts.ListPasswordHistory(ctx, account.ID, s.cfg.Auth.PasswordHistory)
	if err != nil {
		return false, fmt.Errorf("load password history: %w", err)
	}
	for _, entry := range history {
		ok, err := security.VerifyPassword(candidate, entry.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("compare against password history: %w", err)
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}
