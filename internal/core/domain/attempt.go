package domain

import "time"

// FailureReason classifies why a login attempt was rejected. Reasons are
// recorded verbatim in the ledger; callers only ever see the generic
// rejection for BAD_PASSWORD and NO_SUCH_ACCOUNT.
type FailureReason string

const (
	FailureBadPassword   FailureReason = "BAD_PASSWORD"
	FailureNoSuchAccount FailureReason = "NO_SUCH_ACCOUNT"
	FailureInactive      FailureReason = "INACTIVE"
	FailureLocked        FailureReason = "LOCKED"
	FailureBadMFA        FailureReason = "BAD_MFA"
)

// LoginAttempt records a single authentication attempt, success or failure.
// Rows are append-only and never updated.
type LoginAttempt struct {
	ID            string
	AccountID     *string
	Email         string
	IP            *string
	UserAgent     *string
	Success       bool
	FailureReason *FailureReason
	CreatedAt     time.Time
}
