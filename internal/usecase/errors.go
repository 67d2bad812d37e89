package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	// Returned for unknown accounts and wrong passwords alike so callers
	// cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is blocked after repeated failures.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive indicates the account exists but is disabled.
	ErrAccountInactive = errors.New("account inactive")
	// ErrPasswordChangeRequired indicates a provisional password must be replaced
	// before a session can be issued.
	ErrPasswordChangeRequired = errors.New("password change required")
	// ErrFirstAccessComplete indicates a first-access completion was requested
	// for an account that already finished onboarding.
	ErrFirstAccessComplete = errors.New("first access already completed")

	// ErrCodeInvalid indicates the verification code does not match any issued code.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrCodeExpired indicates the verification code exists but its validity window passed.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeAlreadyUsed indicates the verification code was consumed before.
	ErrCodeAlreadyUsed = errors.New("verification code already used")

	// ErrNotLocked indicates an unlock was requested for an account that is not blocked.
	ErrNotLocked = errors.New("account is not locked")
	// ErrNoPINSet indicates PIN unlock was requested but the account holds no PIN.
	ErrNoPINSet = errors.New("no pin configured")
	// ErrInvalidPIN indicates the provided unlock PIN did not match.
	ErrInvalidPIN = errors.New("invalid pin")
	// ErrNoSecurityQuestion indicates answer unlock was requested without a question on file.
	ErrNoSecurityQuestion = errors.New("no security question configured")
	// ErrInvalidSecurityAnswer indicates the provided answer did not match.
	ErrInvalidSecurityAnswer = errors.New("invalid security answer")

	// ErrPasswordReused indicates the new password matches one of the recent ones.
	ErrPasswordReused = errors.New("password was used recently")
	// ErrWeakPassword indicates the password satisfies the character rules but is
	// guessable.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrTokenRevoked indicates a structurally valid bearer token whose version
	// no longer matches the account's live counter.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrSessionNotFound indicates the opaque session token resolves to no row.
	ErrSessionNotFound = errors.New("session not found")
)

// RateLimitedError reports that an operation exceeded its issuance budget.
// RetryAfter tells the caller when the oldest attempt leaves the window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// PasswordPolicyError carries every rule the candidate password violates.
type PasswordPolicyError struct {
	Violations []security.PasswordViolation
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("password violates %d policy rules", len(e.Violations))
}
