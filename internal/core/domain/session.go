package domain

import "time"

// ActiveSession mirrors a row in the active_sessions table. The opaque token
// carries no claims; the session is valid only by virtue of its row existing.
type ActiveSession struct {
	ID             string
	AccountID      string
	Token          string
	IP             *string
	UserAgent      *string
	City           *string
	Country        *string
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// IdleSince reports whether the session has been inactive for longer than
// cutoff at the given instant.
func (s ActiveSession) IdleSince(now time.Time, cutoff time.Duration) bool {
	return now.Sub(s.LastActivityAt) > cutoff
}
