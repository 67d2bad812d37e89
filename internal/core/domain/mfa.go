package domain

import "time"

// MFAAction scopes a one-time code to the flow it was issued for so a code
// cannot be replayed across flows.
type MFAAction string

const (
	MFAActionLogin         MFAAction = "LOGIN"
	MFAActionPasswordReset MFAAction = "PASSWORD_RESET"
	MFAActionFirstAccess   MFAAction = "FIRST_ACCESS"
	MFAActionUnlock        MFAAction = "UNLOCK"
)

// Valid reports whether the action is one of the known flow tags.
func (a MFAAction) Valid() bool {
	switch a {
	case MFAActionLogin, MFAActionPasswordReset, MFAActionFirstAccess, MFAActionUnlock:
		return true
	}
	return false
}

// MFACode mirrors the persisted representation of an issued one-time code.
// Only the hash of the code is stored; the plaintext exists solely in the
// out-of-band delivery path.
type MFACode struct {
	ID        string
	AccountID string
	CodeHash  string
	Action    MFAAction
	Used      bool
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the code is past its expiry at the given instant.
func (c MFACode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
