package domain

import "time"

// Event payloads published to the security event stream. Publishing is
// best-effort everywhere; consumers must tolerate gaps.

// LoginSucceededEvent is emitted after a session has been issued.
type LoginSucceededEvent struct {
	EventID   string
	AccountID string
	Email     string
	SessionID string
	IP        *string
	UserAgent *string
	LoggedAt  time.Time
}

// LoginFailedEvent is emitted for every rejected attempt, carrying the
// internal failure reason (which is never surfaced to the caller).
type LoginFailedEvent struct {
	EventID   string
	AccountID *string
	Email     string
	Reason    FailureReason
	IP        *string
	FailedAt  time.Time
}

// LogoutEvent is emitted when a logout completes, regardless of how many of
// its best-effort steps succeeded.
type LogoutEvent struct {
	EventID      string
	AccountID    string
	SessionsGone int
	TokenVersion int64
	LoggedOutAt  time.Time
}

// AccountLockedEvent is emitted when the failure threshold flips the
// blocked flag.
type AccountLockedEvent struct {
	EventID    string
	AccountID  string
	Email      string
	Failures   int
	LockedAt   time.Time
}

// AccountUnlockedEvent is emitted on successful self-service unlock.
type AccountUnlockedEvent struct {
	EventID    string
	AccountID  string
	Method     string
	UnlockedAt time.Time
}

// PasswordChangedEvent is emitted after a password change or forced
// first-access change completes.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	Forced    bool
	ChangedAt time.Time
}
