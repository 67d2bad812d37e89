package usecase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
)

const (
	testPassword    = "Outono.Ceres42"
	testNewPassword = "Lagoa!Vertice88"
)

var codePattern = regexp.MustCompile(`\d{6}`)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

type testEnv struct {
	cfg      *config.AppConfig
	clock    *fakeClock
	accounts *stubAccountRepo
	codes    *stubMFARepo
	sessions *stubSessionRepo
	attempts *stubAttemptRepo
	audits   *stubAuditRepo
	limiter  *stubLimiter
	mailer   *captureMailer

	auth     *AuthService
	mfa      *MFAService
	session  *SessionService
	tokens   *TokenService
	lockout  *LockoutService
	password *PasswordService
	signer   *security.BearerSigner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.AppConfig{}
	cfg.App.Name = "gladpros-auth"
	cfg.App.Env = "test"
	cfg.Auth.BearerSecret = "unit-test-signing-secret"
	cfg.Auth.BearerTTL = time.Hour
	cfg.Auth.MFACodeTTL = 5 * time.Minute
	cfg.Auth.SessionIdleTTL = 24 * time.Hour
	cfg.Auth.LockoutThreshold = 6
	cfg.Auth.PasswordHistory = 5
	cfg.RateLimit.MFAWindow = 15 * time.Minute
	cfg.RateLimit.MFAMaxIssues = 3
	cfg.RateLimit.LoginWindow = time.Minute
	cfg.RateLimit.LoginMaxTries = 10
	cfg.RateLimit.UnlockWindow = 15 * time.Minute
	cfg.RateLimit.UnlockMaxTries = 5

	// Anchor the clock to the wall so signed bearer tokens stay inside
	// their validity window when the JWT library checks expiry.
	clock := &fakeClock{current: time.Now().UTC().Truncate(time.Second)}
	log := zap.NewNop()

	env := &testEnv{
		cfg:      cfg,
		clock:    clock,
		accounts: newStubAccountRepo(),
		codes:    &stubMFARepo{},
		sessions: newStubSessionRepo(),
		attempts: &stubAttemptRepo{},
		audits:   &stubAuditRepo{},
		limiter:  newStubLimiter(),
		mailer:   &captureMailer{},
	}

	signer, err := security.NewBearerSigner(cfg.Auth.BearerSecret, cfg.App.Name, cfg.Auth.BearerTTL)
	if err != nil {
		t.Fatalf("build signer: %v", err)
	}
	env.signer = signer

	audit := NewAuditService(env.audits, log)
	env.mfa = NewMFAService(cfg, env.codes, env.mailer, log)
	env.session = NewSessionService(cfg, env.sessions, log)
	env.tokens = NewTokenService(cfg, env.accounts, signer, log)
	env.lockout = NewLockoutService(cfg, env.accounts, env.attempts, env.limiter, audit, nopPublisher{}, log)
	env.password = NewPasswordService(cfg, env.accounts, env.tokens, env.session, audit, nopPublisher{}, log)
	env.auth = NewAuthService(cfg, env.accounts, env.attempts, env.mfa, env.session, env.tokens, env.lockout, env.password, audit, nopPublisher{}, env.limiter, log)

	audit.now = clock.Now
	env.mfa.now = clock.Now
	env.session.now = clock.Now
	env.tokens.now = clock.Now
	env.lockout.now = clock.Now
	env.password.now = clock.Now
	env.auth.now = clock.Now

	return env
}

func (e *testEnv) seedAccount(t *testing.T, email, password string, mutate func(*domain.Account)) *domain.Account {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.AccountStatusActive,
		CreatedAt:    e.clock.Now(),
	}
	if mutate != nil {
		mutate(account)
	}
	copied := *account
	e.accounts.accounts[account.ID] = &copied
	return account
}

func (e *testEnv) lastMailCode(t *testing.T) string {
	t.Helper()
	if len(e.mailer.messages) == 0 {
		t.Fatal("no mail was sent")
	}
	code := codePattern.FindString(e.mailer.messages[len(e.mailer.messages)-1].Body)
	if code == "" {
		t.Fatal("mail body carries no verification code")
	}
	return code
}

func (e *testEnv) completeLogin(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	ctx := context.Background()
	result, err := e.auth.Login(ctx, email, password, nil, nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.MFARequired {
		t.Fatal("expected step-up verification to be required")
	}
	auth, err := e.auth.VerifyMFA(ctx, email, e.lastMailCode(t), nil, nil)
	if err != nil {
		t.Fatalf("verify code: %v", err)
	}
	return auth
}

func TestLoginIssuesStepUpCode(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	result, err := env.auth.Login(context.Background(), "Ana@GladPros.com", testPassword, nil, nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.MFARequired || result.FirstAccess {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(env.mailer.messages) != 1 {
		t.Fatalf("expected one mail, got %d", len(env.mailer.messages))
	}
	if env.mailer.messages[0].To != "ana@gladpros.com" {
		t.Fatalf("mail sent to %q", env.mailer.messages[0].To)
	}
	if len(env.codes.codes) != 1 || env.codes.codes[0].Action != domain.MFAActionLogin {
		t.Fatalf("unexpected issued codes: %+v", env.codes.codes)
	}
	if env.codes.codes[0].CodeHash == env.lastMailCode(t) {
		t.Fatal("code stored in plaintext")
	}
}

func TestLoginErrorsDoNotRevealAccountExistence(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	ctx := context.Background()
	_, unknownErr := env.auth.Login(ctx, "ghost@gladpros.com", testPassword, nil, nil)
	_, wrongErr := env.auth.Login(ctx, "ana@gladpros.com", "not-the-password", nil, nil)

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected identical generic errors, got %v and %v", unknownErr, wrongErr)
	}

	if len(env.attempts.attempts) != 2 {
		t.Fatalf("expected both attempts in the ledger, got %d", len(env.attempts.attempts))
	}
	first, second := env.attempts.attempts[0], env.attempts.attempts[1]
	if first.FailureReason == nil || *first.FailureReason != domain.FailureNoSuchAccount {
		t.Fatalf("first attempt reason = %v", first.FailureReason)
	}
	if second.FailureReason == nil || *second.FailureReason != domain.FailureBadPassword {
		t.Fatalf("second attempt reason = %v", second.FailureReason)
	}
	if second.AccountID == nil || *second.AccountID != account.ID {
		t.Fatal("known-account failure not linked to the account")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, func(a *domain.Account) {
		a.Status = domain.AccountStatusInactive
	})

	_, err := env.auth.Login(context.Background(), "ana@gladpros.com", testPassword, nil, nil)
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
	last := env.attempts.attempts[len(env.attempts.attempts)-1]
	if last.FailureReason == nil || *last.FailureReason != domain.FailureInactive {
		t.Fatalf("attempt reason = %v", last.FailureReason)
	}
}

func TestVerifyMFAIssuesSessionAndBearer(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)
	if auth.SessionToken == "" || auth.BearerToken == "" {
		t.Fatalf("missing artifacts: %+v", auth)
	}
	if auth.ExpiresIn != env.cfg.Auth.BearerTTL {
		t.Fatalf("ExpiresIn = %s", auth.ExpiresIn)
	}

	claims, err := env.tokens.Verify(context.Background(), auth.BearerToken)
	if err != nil {
		t.Fatalf("verify bearer: %v", err)
	}
	if claims.Subject != account.ID {
		t.Fatalf("claims subject = %q", claims.Subject)
	}

	session, err := env.session.Resolve(context.Background(), auth.SessionToken)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if session.AccountID != account.ID {
		t.Fatalf("session account = %q", session.AccountID)
	}

	stored, _ := env.accounts.GetByID(context.Background(), account.ID)
	if stored.LastLoginAt == nil {
		t.Fatal("last login not stamped")
	}
	last := env.attempts.attempts[len(env.attempts.attempts)-1]
	if !last.Success {
		t.Fatal("success not recorded in the ledger")
	}
}

func TestVerifyMFACodeIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	ctx := context.Background()
	if _, err := env.auth.Login(ctx, "ana@gladpros.com", testPassword, nil, nil); err != nil {
		t.Fatalf("login: %v", err)
	}
	code := env.lastMailCode(t)

	if _, err := env.auth.VerifyMFA(ctx, "ana@gladpros.com", code, nil, nil); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	_, err := env.auth.VerifyMFA(ctx, "ana@gladpros.com", code, nil, nil)
	if !errors.Is(err, ErrCodeAlreadyUsed) {
		t.Fatalf("expected ErrCodeAlreadyUsed, got %v", err)
	}
}

func TestVerifyMFACodeExpires(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	ctx := context.Background()
	if _, err := env.auth.Login(ctx, "ana@gladpros.com", testPassword, nil, nil); err != nil {
		t.Fatalf("login: %v", err)
	}
	code := env.lastMailCode(t)

	env.clock.Advance(env.cfg.Auth.MFACodeTTL + time.Second)

	_, err := env.auth.VerifyMFA(ctx, "ana@gladpros.com", code, nil, nil)
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestVerifyMFAWrongCodeCountsTowardLockout(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	ctx := context.Background()
	if _, err := env.auth.Login(ctx, "ana@gladpros.com", testPassword, nil, nil); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := env.auth.VerifyMFA(ctx, "ana@gladpros.com", "000000", nil, nil)
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
	last := env.attempts.attempts[len(env.attempts.attempts)-1]
	if last.FailureReason == nil || *last.FailureReason != domain.FailureBadMFA {
		t.Fatalf("attempt reason = %v", last.FailureReason)
	}
}

func TestResendRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	ctx := context.Background()
	if _, err := env.auth.Login(ctx, "ana@gladpros.com", testPassword, nil, nil); err != nil {
		t.Fatalf("login: %v", err)
	}
	for i := 0; i < env.cfg.RateLimit.MFAMaxIssues-1; i++ {
		if err := env.auth.ResendMFA(ctx, "ana@gladpros.com", nil, nil); err != nil {
			t.Fatalf("resend %d: %v", i+1, err)
		}
	}

	err := env.auth.ResendMFA(ctx, "ana@gladpros.com", nil, nil)
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %s", limited.RetryAfter)
	}

	// The window slides: after it passes the resend goes through again.
	env.clock.Advance(env.cfg.RateLimit.MFAWindow + time.Second)
	if err := env.auth.ResendMFA(ctx, "ana@gladpros.com", nil, nil); err != nil {
		t.Fatalf("resend after window: %v", err)
	}
}

func TestResendForUnknownAccountStaysSilent(t *testing.T) {
	env := newTestEnv(t)

	if err := env.auth.ResendMFA(context.Background(), "ghost@gladpros.com", nil, nil); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.mailer.messages) != 0 {
		t.Fatal("mail sent for unknown account")
	}
}

func TestLockoutAfterConsecutiveFailuresAndPINUnlock(t *testing.T) {
	env := newTestEnv(t)
	pinHash, err := security.HashPassword("4821")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, func(a *domain.Account) {
		a.PINHash = &pinHash
	})

	ctx := context.Background()
	for i := 1; i < env.cfg.Auth.LockoutThreshold; i++ {
		_, err := env.auth.Login(ctx, "ana@gladpros.com", "wrong-password", nil, nil)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// The attempt that crosses the threshold reports the lock.
	_, err = env.auth.Login(ctx, "ana@gladpros.com", "wrong-password", nil, nil)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked on threshold, got %v", err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if !stored.Blocked || stored.BlockedAt == nil {
		t.Fatal("account not marked blocked")
	}

	// Correct credentials no longer help while locked.
	_, err = env.auth.Login(ctx, "ana@gladpros.com", testPassword, nil, nil)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	if err := env.lockout.UnlockWithPIN(ctx, "ana@gladpros.com", "0000", nil); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
	if err := env.lockout.UnlockWithPIN(ctx, "ana@gladpros.com", "4821", nil); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	stored, _ = env.accounts.GetByID(ctx, account.ID)
	if stored.Blocked || stored.BlockedAt != nil {
		t.Fatal("account still blocked after unlock")
	}

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)
	if auth.SessionToken == "" {
		t.Fatal("no session after unlock")
	}
}

func TestUnlockWithSecurityAnswer(t *testing.T) {
	env := newTestEnv(t)
	answerHash, err := security.HashPassword(security.NormalizeSecurityAnswer("Rex the dog"))
	if err != nil {
		t.Fatalf("hash answer: %v", err)
	}
	question := "First pet's name?"
	now := env.clock.Now().Add(-time.Hour)
	env.seedAccount(t, "ana@gladpros.com", testPassword, func(a *domain.Account) {
		a.Blocked = true
		a.BlockedAt = &now
		a.SecurityQuestion = &question
		a.SecurityAnswerHash = &answerHash
	})

	ctx := context.Background()
	got, err := env.lockout.SecurityQuestion(ctx, "ana@gladpros.com")
	if err != nil || got != question {
		t.Fatalf("SecurityQuestion = %q, %v", got, err)
	}

	if err := env.lockout.UnlockWithSecurityAnswer(ctx, "ana@gladpros.com", "  REX THE DOG ", nil); err != nil {
		t.Fatalf("unlock with normalized answer: %v", err)
	}
}

func TestUnlockRequiresLockedAccount(t *testing.T) {
	env := newTestEnv(t)
	pinHash, _ := security.HashPassword("4821")
	env.seedAccount(t, "ana@gladpros.com", testPassword, func(a *domain.Account) {
		a.PINHash = &pinHash
	})

	err := env.lockout.UnlockWithPIN(context.Background(), "ana@gladpros.com", "4821", nil)
	if !errors.Is(err, ErrNotLocked) {
		t.Fatalf("expected ErrNotLocked, got %v", err)
	}
}

func TestUnlockAttemptsAreThrottled(t *testing.T) {
	env := newTestEnv(t)
	pinHash, _ := security.HashPassword("4821")
	now := env.clock.Now()
	env.seedAccount(t, "ana@gladpros.com", testPassword, func(a *domain.Account) {
		a.Blocked = true
		a.BlockedAt = &now
		a.PINHash = &pinHash
	})

	ctx := context.Background()
	for i := 0; i < env.cfg.RateLimit.UnlockMaxTries; i++ {
		if err := env.lockout.UnlockWithPIN(ctx, "ana@gladpros.com", "0000", nil); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("attempt %d: expected ErrInvalidPIN, got %v", i+1, err)
		}
	}

	err := env.lockout.UnlockWithPIN(ctx, "ana@gladpros.com", "4821", nil)
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
}

func TestSingleActiveSession(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	first := env.completeLogin(t, "ana@gladpros.com", testPassword)
	second := env.completeLogin(t, "ana@gladpros.com", testPassword)

	count, err := env.session.CountActive(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("active sessions = %d", count)
	}
	if _, err := env.session.Resolve(context.Background(), first.SessionToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("stale session still resolves: %v", err)
	}
	if _, err := env.session.Resolve(context.Background(), second.SessionToken); err != nil {
		t.Fatalf("fresh session: %v", err)
	}
}

func TestIdleSessionIsDropped(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)
	env.clock.Advance(env.cfg.Auth.SessionIdleTTL + time.Minute)

	_, err := env.session.Resolve(context.Background(), auth.SessionToken)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLogoutRevokesSessionsAndBearers(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.hasVersion = true
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)
	if _, err := env.tokens.Verify(context.Background(), auth.BearerToken); err != nil {
		t.Fatalf("verify before logout: %v", err)
	}

	summary := env.auth.Logout(context.Background(), LogoutInput{BearerToken: auth.BearerToken}, nil)
	if summary.SessionsRevoked != 1 {
		t.Fatalf("sessions revoked = %d", summary.SessionsRevoked)
	}
	if summary.TokenVersion != 1 {
		t.Fatalf("token version = %d", summary.TokenVersion)
	}

	if _, err := env.session.Resolve(context.Background(), auth.SessionToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session survives logout: %v", err)
	}
	if _, err := env.tokens.Verify(context.Background(), auth.BearerToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestLogoutAcceptsExpiredBearer(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.hasVersion = true
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)

	expired, err := env.signer.Sign(account.ID, string(account.Role), string(account.Status), 0, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("sign expired bearer: %v", err)
	}
	if _, err := env.tokens.Verify(context.Background(), expired); !errors.Is(err, security.ErrExpiredBearerToken) {
		t.Fatalf("expected expired bearer to fail verification, got %v", err)
	}

	summary := env.auth.Logout(context.Background(), LogoutInput{BearerToken: expired}, nil)
	if summary.SessionsRevoked != 1 {
		t.Fatalf("sessions revoked = %d", summary.SessionsRevoked)
	}
	if _, err := env.session.Resolve(context.Background(), auth.SessionToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session survives logout: %v", err)
	}
	if _, err := env.tokens.Verify(context.Background(), auth.BearerToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked for the live bearer, got %v", err)
	}
}

func TestLogoutFallsBackToSessionToken(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.hasVersion = true
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)

	summary := env.auth.Logout(context.Background(), LogoutInput{SessionToken: auth.SessionToken}, nil)
	if summary.SessionsRevoked != 1 {
		t.Fatalf("sessions revoked = %d", summary.SessionsRevoked)
	}
	if summary.TokenVersion != 1 {
		t.Fatalf("token version = %d", summary.TokenVersion)
	}
	if _, err := env.tokens.Verify(context.Background(), auth.BearerToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestLogoutWithoutCredentialsIsSilent(t *testing.T) {
	env := newTestEnv(t)

	summary := env.auth.Logout(context.Background(), LogoutInput{}, nil)
	if summary.SessionsRevoked != 0 || summary.TokenVersion != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	summary = env.auth.Logout(context.Background(), LogoutInput{
		BearerToken:  "not-a-token",
		SessionToken: "unknown-session",
	}, nil)
	if summary.SessionsRevoked != 0 || summary.TokenVersion != 0 {
		t.Fatalf("unexpected summary for garbage credentials: %+v", summary)
	}
}

func TestBearerRevocationDegradesWithoutVersionColumn(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.hasVersion = false
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)
	env.auth.Logout(context.Background(), LogoutInput{BearerToken: auth.BearerToken}, nil)

	// Without the version column the bearer stays valid until expiry.
	if _, err := env.tokens.Verify(context.Background(), auth.BearerToken); err != nil {
		t.Fatalf("expected degraded verify to pass, got %v", err)
	}
	if env.accounts.probeCalls == 0 {
		t.Fatal("column support was never probed")
	}
}

func TestVersionColumnProbeIsCached(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.hasVersion = true
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	env.completeLogin(t, "ana@gladpros.com", testPassword)
	first := env.accounts.probeCalls
	env.completeLogin(t, "ana@gladpros.com", testPassword)
	if env.accounts.probeCalls != first {
		t.Fatalf("probe repeated within cache window: %d -> %d", first, env.accounts.probeCalls)
	}

	env.clock.Advance(time.Minute)
	env.completeLogin(t, "ana@gladpros.com", testPassword)
	if env.accounts.probeCalls == first {
		t.Fatal("probe never refreshed after expiry")
	}
}

func TestPasswordChangeRejectsRecentReuse(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	ctx := context.Background()
	if err := env.password.Change(ctx, account, testNewPassword, false, nil); err != nil {
		t.Fatalf("change: %v", err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if err := env.password.Change(ctx, stored, testPassword, false, nil); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused for retired password, got %v", err)
	}
	stored, _ = env.accounts.GetByID(ctx, account.ID)
	if err := env.password.Change(ctx, stored, testNewPassword, false, nil); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused for current password, got %v", err)
	}
}

func TestPasswordChangePolicyViolations(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	err := env.password.Change(context.Background(), account, "short", false, nil)
	var policyErr *PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError, got %v", err)
	}
	if len(policyErr.Violations) == 0 {
		t.Fatal("no violations reported")
	}

	err = env.password.Change(context.Background(), account, "Password123!", false, nil)
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword for guessable password, got %v", err)
	}
}

func TestPasswordChangeRetiresCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.hasVersion = true
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	auth := env.completeLogin(t, "ana@gladpros.com", testPassword)

	ctx := context.Background()
	stored, _ := env.accounts.GetByEmail(ctx, "ana@gladpros.com")
	if err := env.password.Change(ctx, stored, testNewPassword, false, nil); err != nil {
		t.Fatalf("change: %v", err)
	}

	if _, err := env.session.Resolve(ctx, auth.SessionToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session survives password change: %v", err)
	}
	if _, err := env.tokens.Verify(ctx, auth.BearerToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	stored, _ = env.accounts.GetByEmail(ctx, "ana@gladpros.com")
	if stored.PasswordChangedAt == nil || !stored.PasswordChangedAt.Equal(env.clock.Now().UTC()) {
		t.Fatalf("password change timestamp not recorded: %v", stored.PasswordChangedAt)
	}

	env.completeLogin(t, "ana@gladpros.com", testNewPassword)
}

func TestFirstAccessFlow(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "ana@gladpros.com", testPassword, func(a *domain.Account) {
		a.FirstAccess = true
		a.ProvisionalPassword = true
	})

	ctx := context.Background()
	result, err := env.auth.Login(ctx, "ana@gladpros.com", testPassword, nil, nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.FirstAccess {
		t.Fatal("first access not flagged")
	}
	if len(env.codes.codes) != 1 || env.codes.codes[0].Action != domain.MFAActionFirstAccess {
		t.Fatalf("unexpected issued codes: %+v", env.codes.codes)
	}
	code := env.lastMailCode(t)

	// The ordinary verification endpoint refuses to finish onboarding.
	if _, err := env.auth.VerifyMFA(ctx, "ana@gladpros.com", code, nil, nil); !errors.Is(err, ErrPasswordChangeRequired) {
		t.Fatalf("expected ErrPasswordChangeRequired, got %v", err)
	}
	if count, _ := env.session.CountActive(ctx, account.ID); count != 0 {
		t.Fatal("session issued before the forced password change")
	}

	pin := "4821"
	question := "First pet's name?"
	answer := "Rex"
	auth, err := env.auth.CompleteFirstAccess(ctx, FirstAccessInput{
		Email:            "ana@gladpros.com",
		Code:             code,
		NewPassword:      testNewPassword,
		PIN:              &pin,
		SecurityQuestion: &question,
		SecurityAnswer:   &answer,
	}, nil, nil)
	if err != nil {
		t.Fatalf("complete first access: %v", err)
	}
	if auth.SessionToken == "" || auth.BearerToken == "" {
		t.Fatal("onboarding did not finish with a full login")
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if stored.MustChangePassword() {
		t.Fatal("provisional flags not cleared")
	}
	if !stored.HasPIN() || !stored.HasSecurityQuestion() {
		t.Fatal("unlock factors not configured")
	}

	_, err = env.auth.CompleteFirstAccess(ctx, FirstAccessInput{
		Email:       "ana@gladpros.com",
		Code:        code,
		NewPassword: testNewPassword,
	}, nil, nil)
	if !errors.Is(err, ErrFirstAccessComplete) {
		t.Fatalf("expected ErrFirstAccessComplete on repeat, got %v", err)
	}
}

func TestLoginThrottledPerIP(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "ana@gladpros.com", testPassword, nil)

	ctx := context.Background()
	ip := "203.0.113.9"
	for i := 0; i < env.cfg.RateLimit.LoginMaxTries; i++ {
		env.auth.Login(ctx, "ghost@gladpros.com", "whatever", &ip, nil)
	}

	_, err := env.auth.Login(ctx, "ana@gladpros.com", testPassword, &ip, nil)
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}

	// A different address is unaffected.
	otherIP := "198.51.100.7"
	if _, err := env.auth.Login(ctx, "ana@gladpros.com", testPassword, &otherIP, nil); err != nil {
		t.Fatalf("login from clean address: %v", err)
	}
}

func TestStatusProbe(t *testing.T) {
	env := newTestEnv(t)
	pinHash, _ := security.HashPassword("4821")
	now := env.clock.Now()
	env.seedAccount(t, "ana@gladpros.com", testPassword, func(a *domain.Account) {
		a.Blocked = true
		a.BlockedAt = &now
		a.PINHash = &pinHash
	})

	ctx := context.Background()
	status, err := env.auth.Status(ctx, "ana@gladpros.com")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Exists || !status.Blocked || !status.HasPIN {
		t.Fatalf("unexpected status: %+v", status)
	}

	status, err = env.auth.Status(ctx, "ghost@gladpros.com")
	if err != nil {
		t.Fatalf("status unknown: %v", err)
	}
	if status.Exists {
		t.Fatal("unknown address reported as existing")
	}
}
