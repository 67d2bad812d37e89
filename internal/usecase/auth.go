package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// LoginResult reports the outcome of a successful credential check. A
// session is never issued here; the caller must complete the step-up
// verification first.
type LoginResult struct {
	AccountID   string
	Email       string
	MFARequired bool
	FirstAccess bool
}

// AuthResult carries the artifacts of a fully authenticated login.
type AuthResult struct {
	Account      *domain.Account
	SessionToken string
	BearerToken  string
	ExpiresIn    time.Duration
}

// LogoutSummary reports how much of the best-effort logout actually landed.
type LogoutSummary struct {
	SessionsRevoked int64
	TokenVersion    int64
}

// LogoutInput carries whichever credentials the caller still holds. Either
// field may be empty; an expired bearer is as good as a live one here.
type LogoutInput struct {
	BearerToken  string
	SessionToken string
}

// AccountStatus is the probe result for the pre-login status endpoint.
type AccountStatus struct {
	Exists              bool
	Blocked             bool
	FirstAccess         bool
	HasPIN              bool
	HasSecurityQuestion bool
	SecurityQuestion    *string
}

// FirstAccessInput bundles everything the onboarding completion needs.
type FirstAccessInput struct {
	Email            string
	Code             string
	NewPassword      string
	PIN              *string
	SecurityQuestion *string
	SecurityAnswer   *string
}

// AuthService coordinates the login state machine: credential check, step-up
// verification, lockout bookkeeping, session and bearer issuance, logout.
type AuthService struct {
	cfg      *config.AppConfig
	accounts port.AccountRepository
	attempts port.LoginAttemptRepository
	mfa      *MFAService
	sessions *SessionService
	tokens   *TokenService
	lockout  *LockoutService
	password *PasswordService
	audit    *AuditService
	events   port.EventPublisher
	limiter  port.RateLimitStore
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	attempts port.LoginAttemptRepository,
	mfa *MFAService,
	sessions *SessionService,
	tokens *TokenService,
	lockout *LockoutService,
	password *PasswordService,
	audit *AuditService,
	events port.EventPublisher,
	limiter port.RateLimitStore,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:      cfg,
		accounts: accounts,
		attempts: attempts,
		mfa:      mfa,
		sessions: sessions,
		tokens:   tokens,
		lockout:  lockout,
		password: password,
		audit:    audit,
		events:   events,
		limiter:  limiter,
		log:      log,
		now:      time.Now,
	}
}

// Login validates credentials and, on success, issues a step-up code. Every
// attempt lands in the ledger. Unknown accounts and wrong passwords produce
// the same error; locked and inactive accounts are reported distinctly.
func (s *AuthService) Login(ctx context.Context, email, password string, ip, userAgent *string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if err := s.throttleLogin(ctx, ip); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordFailure(ctx, nil, email, domain.FailureNoSuchAccount, ip, userAgent)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.Blocked {
		s.recordFailure(ctx, account, email, domain.FailureLocked, ip, userAgent)
		return nil, ErrAccountLocked
	}
	if account.Status != domain.AccountStatusActive {
		s.recordFailure(ctx, account, email, domain.FailureInactive, ip, userAgent)
		return nil, ErrAccountInactive
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, account, email, domain.FailureBadPassword, ip, userAgent)
		locked, lockErr := s.lockout.EvaluateAfterFailure(ctx, account, ip)
		if lockErr != nil {
			s.log.Warn("evaluate lockout", zap.String("account_id", account.ID), zap.Error(lockErr))
		}
		if locked {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	action := domain.MFAActionLogin
	if account.MustChangePassword() {
		action = domain.MFAActionFirstAccess
	}
	if err := s.mfa.Issue(ctx, account, action, ip, userAgent); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccountID:   account.ID,
		Email:       account.Email,
		MFARequired: true,
		FirstAccess: account.MustChangePassword(),
	}, nil
}

// VerifyMFA consumes the step-up code and finishes the login. Accounts still
// carrying a provisional password are sent to the first-access flow instead
// of receiving a session.
func (s *AuthService) VerifyMFA(ctx context.Context, email, code string, ip, userAgent *string) (*AuthResult, error) {
	account, err := s.lookupActive(ctx, email)
	if err != nil {
		return nil, err
	}

	if account.MustChangePassword() {
		return nil, ErrPasswordChangeRequired
	}

	if err := s.mfa.Verify(ctx, account.ID, code, domain.MFAActionLogin); err != nil {
		if isCodeRejection(err) {
			s.recordFailure(ctx, account, account.Email, domain.FailureBadMFA, ip, userAgent)
			locked, lockErr := s.lockout.EvaluateAfterFailure(ctx, account, ip)
			if lockErr != nil {
				s.log.Warn("evaluate lockout", zap.String("account_id", account.ID), zap.Error(lockErr))
			}
			if locked {
				return nil, ErrAccountLocked
			}
		}
		return nil, err
	}

	return s.finalizeLogin(ctx, account, ip, userAgent)
}

// ResendMFA issues a fresh code for a pending login. Unknown accounts are
// ignored so the endpoint cannot confirm addresses.
func (s *AuthService) ResendMFA(ctx context.Context, email string, ip, userAgent *string) error {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("resend requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if account.Blocked {
		return ErrAccountLocked
	}
	if account.Status != domain.AccountStatusActive {
		return nil
	}

	action := domain.MFAActionLogin
	if account.MustChangePassword() {
		action = domain.MFAActionFirstAccess
	}

	return s.mfa.Issue(ctx, account, action, ip, userAgent)
}

// CompleteFirstAccess finishes onboarding: verifies the first-access code,
// replaces the provisional password, stores the unlock factors, and only
// then issues the session.
func (s *AuthService) CompleteFirstAccess(ctx context.Context, input FirstAccessInput, ip, userAgent *string) (*AuthResult, error) {
	account, err := s.lookupActive(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if !account.MustChangePassword() {
		return nil, ErrFirstAccessComplete
	}

	if err := s.mfa.Verify(ctx, account.ID, input.Code, domain.MFAActionFirstAccess); err != nil {
		if isCodeRejection(err) {
			s.recordFailure(ctx, account, account.Email, domain.FailureBadMFA, ip, userAgent)
		}
		return nil, err
	}

	if err := s.password.Change(ctx, account, input.NewPassword, true, ip); err != nil {
		return nil, err
	}

	if input.PIN != nil || input.SecurityAnswer != nil {
		if err := s.password.ConfigureUnlockFactors(ctx, account.ID, input.PIN, input.SecurityQuestion, input.SecurityAnswer); err != nil {
			return nil, err
		}
	}

	// Reload so the result reflects the cleared flags and new hash.
	account, err = s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("reload account: %w", err)
	}

	return s.finalizeLogin(ctx, account, ip, userAgent)
}

// Logout tears the account's authenticated state down. Every step is
// best-effort; a partial logout still counts, and a caller holding no
// decodable credential at all gets an empty summary rather than an error.
// The bearer is decoded signature-only so expired and already-revoked
// tokens still identify the account to clean up.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput, ip *string) *LogoutSummary {
	summary := &LogoutSummary{}

	accountID := ""
	if in.BearerToken != "" {
		if claims, err := s.tokens.Decode(in.BearerToken); err == nil {
			accountID = claims.Subject
		}
	}
	if accountID == "" && in.SessionToken != "" {
		if session, err := s.sessions.Resolve(ctx, in.SessionToken); err == nil {
			accountID = session.AccountID
		}
	}

	if accountID == "" {
		// No account to tie the request to; drop the session row if the
		// opaque token happens to match one.
		if in.SessionToken != "" {
			if err := s.sessions.RevokeByToken(ctx, in.SessionToken); err == nil {
				summary.SessionsRevoked = 1
			}
		}
		return summary
	}

	return s.logoutAccount(ctx, accountID, ip)
}

func (s *AuthService) logoutAccount(ctx context.Context, accountID string, ip *string) *LogoutSummary {
	summary := &LogoutSummary{}

	revoked, err := s.sessions.RevokeAll(ctx, accountID)
	if err != nil {
		s.log.Warn("revoke sessions on logout", zap.String("account_id", accountID), zap.Error(err))
	}
	summary.SessionsRevoked = revoked

	version, err := s.tokens.Revoke(ctx, accountID)
	if err != nil {
		s.log.Warn("revoke bearer tokens on logout", zap.String("account_id", accountID), zap.Error(err))
	}
	summary.TokenVersion = version

	s.audit.Record(ctx, "accounts", accountID, domain.AuditLogout, &accountID, ip, map[string]any{
		"sessions_revoked": revoked,
	})

	if err := s.events.PublishLogout(ctx, domain.LogoutEvent{
		EventID:      uuid.NewString(),
		AccountID:    accountID,
		SessionsGone: int(revoked),
		TokenVersion: version,
		LoggedOutAt:  s.now().UTC(),
	}); err != nil {
		s.log.Warn("publish logout event", zap.String("account_id", accountID), zap.Error(err))
	}

	return summary
}

// Status reports what the pre-login UI needs to know about an address. A
// zero-value result with Exists false stands in for unknown addresses.
func (s *AuthService) Status(ctx context.Context, email string) (*AccountStatus, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &AccountStatus{}, nil
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	status := &AccountStatus{
		Exists:              true,
		Blocked:             account.Blocked,
		FirstAccess:         account.MustChangePassword(),
		HasPIN:              account.HasPIN(),
		HasSecurityQuestion: account.HasSecurityQuestion(),
	}
	if account.Blocked && account.HasSecurityQuestion() {
		status.SecurityQuestion = account.SecurityQuestion
	}

	return status, nil
}

func (s *AuthService) finalizeLogin(ctx context.Context, account *domain.Account, ip, userAgent *string) (*AuthResult, error) {
	session, err := s.sessions.Create(ctx, account.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	bearer, err := s.tokens.Issue(ctx, account)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.log.Warn("stamp last login", zap.String("account_id", account.ID), zap.Error(err))
	}

	s.recordAttempt(ctx, domain.LoginAttempt{
		ID:        uuid.NewString(),
		AccountID: &account.ID,
		Email:     account.Email,
		IP:        ip,
		UserAgent: userAgent,
		Success:   true,
		CreatedAt: now,
	})

	s.audit.Record(ctx, "accounts", account.ID, domain.AuditLogin, &account.ID, ip, nil)

	if err := s.events.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		SessionID: session.ID,
		IP:        ip,
		UserAgent: userAgent,
		LoggedAt:  now,
	}); err != nil {
		s.log.Warn("publish login succeeded event", zap.String("account_id", account.ID), zap.Error(err))
	}

	return &AuthResult{
		Account:      account,
		SessionToken: session.Token,
		BearerToken:  bearer,
		ExpiresIn:    s.tokens.TTL(),
	}, nil
}

func (s *AuthService) lookupActive(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.Blocked {
		return nil, ErrAccountLocked
	}
	if account.Status != domain.AccountStatusActive {
		return nil, ErrAccountInactive
	}

	return account, nil
}

func (s *AuthService) throttleLogin(ctx context.Context, ip *string) error {
	if ip == nil || *ip == "" {
		return nil
	}

	now := s.now().UTC()
	identifier := "login:" + *ip

	state, err := s.limiter.SweepWindow(ctx, identifier, s.cfg.RateLimit.LoginWindow, now)
	if err != nil {
		// The throttle is an extra guard; a broken limiter must not take
		// logins down with it.
		s.log.Warn("sweep login window", zap.Error(err))
		return nil
	}
	if state.Attempts >= s.cfg.RateLimit.LoginMaxTries {
		return &RateLimitedError{RetryAfter: state.RetryAfter(s.cfg.RateLimit.LoginWindow, now)}
	}
	if err := s.limiter.RecordAttempt(ctx, identifier, now); err != nil {
		s.log.Warn("record login attempt", zap.Error(err))
	}

	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, account *domain.Account, email string, reason domain.FailureReason, ip, userAgent *string) {
	var accountID *string
	if account != nil {
		accountID = &account.ID
	}

	now := s.now().UTC()
	s.recordAttempt(ctx, domain.LoginAttempt{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Email:         email,
		IP:            ip,
		UserAgent:     userAgent,
		Success:       false,
		FailureReason: &reason,
		CreatedAt:     now,
	})

	if err := s.events.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		Email:     email,
		Reason:    reason,
		IP:        ip,
		FailedAt:  now,
	}); err != nil {
		s.log.Warn("publish login failed event",
			zap.String("email", logger.MaskEmail(email)), zap.Error(err))
	}
}

func (s *AuthService) recordAttempt(ctx context.Context, attempt domain.LoginAttempt) {
	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.log.Warn("record login attempt",
			zap.String("email", logger.MaskEmail(attempt.Email)), zap.Error(err))
	}
}

func isCodeRejection(err error) bool {
	return errors.Is(err, ErrCodeInvalid) || errors.Is(err, ErrCodeExpired) || errors.Is(err, ErrCodeAlreadyUsed)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
