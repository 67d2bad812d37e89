package domain

import "time"

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

// AccountRole enumerates coarse authorization roles.
type AccountRole string

const (
	RoleAdmin    AccountRole = "admin"
	RoleOperator AccountRole = "operator"
	RoleUser     AccountRole = "user"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                  string
	Email               string
	PasswordHash        string
	Role                AccountRole
	Status              AccountStatus
	TokenVersion        int64
	Blocked             bool
	BlockedAt           *time.Time
	PINHash             *string
	SecurityQuestion    *string
	SecurityAnswerHash  *string
	FirstAccess         bool
	ProvisionalPassword bool
	PasswordChangedAt   *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
}

// HasPIN reports whether a self-unlock PIN is configured.
func (a Account) HasPIN() bool {
	return a.PINHash != nil && *a.PINHash != ""
}

// HasSecurityQuestion reports whether a security question with a stored
// answer is configured.
func (a Account) HasSecurityQuestion() bool {
	return a.SecurityQuestion != nil && *a.SecurityQuestion != "" &&
		a.SecurityAnswerHash != nil && *a.SecurityAnswerHash != ""
}

// MustChangePassword reports whether the forced password-change flow applies
// before a normal session may be issued.
func (a Account) MustChangePassword() bool {
	return a.FirstAccess || a.ProvisionalPassword
}

// PasswordHistoryEntry tracks historical password hashes for reuse prevention.
type PasswordHistoryEntry struct {
	ID           string
	AccountID    string
	PasswordHash string
	CreatedAt    time.Time
}
