package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/repository"
)

// In-memory collaborators backing the service tests. Each mirrors the
// semantics of its SQL counterpart closely enough for behavioural tests.

type stubAccountRepo struct {
	accounts   map[string]*domain.Account
	history    map[string][]domain.PasswordHistoryEntry
	hasVersion bool
	probeCalls int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		accounts: make(map[string]*domain.Account),
		history:  make(map[string][]domain.PasswordHistoryEntry),
	}
}

func (r *stubAccountRepo) Create(_ context.Context, account domain.Account) error {
	copied := account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *stubAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *stubAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, account := range r.accounts {
		if strings.EqualFold(account.Email, email) {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.PasswordChangedAt = &changedAt
	return nil
}

func (r *stubAccountRepo) ClearProvisionalFlags(_ context.Context, id string) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.FirstAccess = false
	account.ProvisionalPassword = false
	return nil
}

func (r *stubAccountRepo) SetBlocked(_ context.Context, id string, blocked bool, at *time.Time) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Blocked = blocked
	account.BlockedAt = at
	return nil
}

func (r *stubAccountRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.LastLoginAt = &at
	return nil
}

func (r *stubAccountRepo) UpdateSecurityProfile(_ context.Context, id string, pinHash, question, answerHash *string) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if pinHash != nil {
		account.PINHash = pinHash
	}
	if question != nil {
		account.SecurityQuestion = question
	}
	if answerHash != nil {
		account.SecurityAnswerHash = answerHash
	}
	return nil
}

func (r *stubAccountRepo) HasTokenVersionColumn(context.Context) (bool, error) {
	r.probeCalls++
	return r.hasVersion, nil
}

func (r *stubAccountRepo) GetTokenVersion(_ context.Context, id string) (int64, error) {
	account, ok := r.accounts[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return account.TokenVersion, nil
}

func (r *stubAccountRepo) IncrementTokenVersion(_ context.Context, id string) (int64, error) {
	account, ok := r.accounts[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	account.TokenVersion++
	return account.TokenVersion, nil
}

func (r *stubAccountRepo) ListPasswordHistory(_ context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	entries := r.history[accountID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.PasswordHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *stubAccountRepo) AddPasswordHistory(_ context.Context, entry domain.PasswordHistoryEntry) error {
	r.history[entry.AccountID] = append([]domain.PasswordHistoryEntry{entry}, r.history[entry.AccountID]...)
	return nil
}

func (r *stubAccountRepo) TrimPasswordHistory(_ context.Context, accountID string, maxEntries int) error {
	entries := r.history[accountID]
	if len(entries) > maxEntries {
		r.history[accountID] = entries[:maxEntries]
	}
	return nil
}

var _ port.AccountRepository = (*stubAccountRepo)(nil)

type stubMFARepo struct {
	codes []domain.MFACode
}

func (r *stubMFARepo) Create(_ context.Context, code domain.MFACode) error {
	r.codes = append(r.codes, code)
	return nil
}

func (r *stubMFARepo) GetByHash(_ context.Context, accountID, codeHash string, action domain.MFAAction) (*domain.MFACode, error) {
	for i := len(r.codes) - 1; i >= 0; i-- {
		code := r.codes[i]
		if code.AccountID == accountID && code.CodeHash == codeHash && code.Action == action {
			copied := code
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubMFARepo) MarkUsed(_ context.Context, id string) error {
	for i := range r.codes {
		if r.codes[i].ID == id && !r.codes[i].Used {
			r.codes[i].Used = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubMFARepo) DeleteStale(_ context.Context, accountID string, action domain.MFAAction, now time.Time) error {
	kept := r.codes[:0]
	for _, code := range r.codes {
		stale := code.AccountID == accountID && code.Action == action && (code.Used || code.Expired(now))
		if !stale {
			kept = append(kept, code)
		}
	}
	r.codes = kept
	return nil
}

func (r *stubMFARepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	kept := r.codes[:0]
	for _, code := range r.codes {
		if code.Used || code.Expired(now) {
			removed++
			continue
		}
		kept = append(kept, code)
	}
	r.codes = kept
	return removed, nil
}

func (r *stubMFARepo) CountIssuedSince(_ context.Context, accountID string, since time.Time) (int, error) {
	count := 0
	for _, code := range r.codes {
		if code.AccountID == accountID && !code.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

var _ port.MFACodeRepository = (*stubMFARepo)(nil)

type stubSessionRepo struct {
	sessions map[string]domain.ActiveSession
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]domain.ActiveSession)}
}

func (r *stubSessionRepo) Create(_ context.Context, session domain.ActiveSession) error {
	r.sessions[session.Token] = session
	return nil
}

func (r *stubSessionRepo) GetByToken(_ context.Context, token string) (*domain.ActiveSession, error) {
	session, ok := r.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := session
	return &copied, nil
}

func (r *stubSessionRepo) ListByAccount(_ context.Context, accountID string) ([]domain.ActiveSession, error) {
	var out []domain.ActiveSession
	for _, session := range r.sessions {
		if session.AccountID == accountID {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out, nil
}

func (r *stubSessionRepo) Touch(_ context.Context, token string, at time.Time) error {
	session, ok := r.sessions[token]
	if !ok {
		return repository.ErrNotFound
	}
	session.LastActivityAt = at
	r.sessions[token] = session
	return nil
}

func (r *stubSessionRepo) Delete(_ context.Context, id string) error {
	for token, session := range r.sessions {
		if session.ID == id {
			delete(r.sessions, token)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubSessionRepo) DeleteByToken(_ context.Context, token string) error {
	if _, ok := r.sessions[token]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, token)
	return nil
}

func (r *stubSessionRepo) DeleteByAccount(_ context.Context, accountID string) (int64, error) {
	var removed int64
	for token, session := range r.sessions {
		if session.AccountID == accountID {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (r *stubSessionRepo) DeleteIdle(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for token, session := range r.sessions {
		if session.LastActivityAt.Before(cutoff) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (r *stubSessionRepo) CountActive(_ context.Context, accountID string) (int64, error) {
	var count int64
	for _, session := range r.sessions {
		if accountID == "" || session.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

var _ port.SessionRepository = (*stubSessionRepo)(nil)

type stubAttemptRepo struct {
	attempts []domain.LoginAttempt
}

func (r *stubAttemptRepo) Record(_ context.Context, attempt domain.LoginAttempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *stubAttemptRepo) ListByAccount(_ context.Context, accountID string, limit int) ([]domain.LoginAttempt, error) {
	var out []domain.LoginAttempt
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		attempt := r.attempts[i]
		if attempt.AccountID != nil && *attempt.AccountID == accountID {
			out = append(out, attempt)
		}
	}
	return out, nil
}

func (r *stubAttemptRepo) CountConsecutiveFailures(_ context.Context, accountID string) (int, error) {
	count := 0
	for i := len(r.attempts) - 1; i >= 0; i-- {
		attempt := r.attempts[i]
		if attempt.AccountID == nil || *attempt.AccountID != accountID {
			continue
		}
		if attempt.Success {
			break
		}
		count++
	}
	return count, nil
}

func (r *stubAttemptRepo) CountFailedSince(_ context.Context, since time.Time) (int, error) {
	count := 0
	for _, attempt := range r.attempts {
		if !attempt.Success && !attempt.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *stubAttemptRepo) ListFailedSince(_ context.Context, since time.Time, limit int) ([]domain.LoginAttempt, error) {
	var out []domain.LoginAttempt
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		attempt := r.attempts[i]
		if !attempt.Success && !attempt.CreatedAt.Before(since) {
			out = append(out, attempt)
		}
	}
	return out, nil
}

var _ port.LoginAttemptRepository = (*stubAttemptRepo)(nil)

type stubAuditRepo struct {
	entries []domain.AuditEntry
}

func (r *stubAuditRepo) Append(_ context.Context, entry domain.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) History(_ context.Context, tableName, recordID string, limit int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		entry := r.entries[i]
		if entry.TableName == tableName && entry.RecordID == recordID {
			out = append(out, entry)
		}
	}
	return out, nil
}

var _ port.AuditRepository = (*stubAuditRepo)(nil)

type stubLimiter struct {
	attempts map[string][]time.Time
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{attempts: make(map[string][]time.Time)}
}

func (r *stubLimiter) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	r.attempts[identifier] = append(r.attempts[identifier], at)
	return nil
}

func (r *stubLimiter) SweepWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) (port.WindowState, error) {
	cutoff := reference.Add(-window)
	kept := r.attempts[identifier][:0]
	state := port.WindowState{}
	for _, at := range r.attempts[identifier] {
		if at.Before(cutoff) {
			continue
		}
		kept = append(kept, at)
		if at.After(reference) {
			continue
		}
		state.Attempts++
		if state.Oldest.IsZero() || at.Before(state.Oldest) {
			state.Oldest = at
		}
	}
	r.attempts[identifier] = kept
	return state, nil
}

var _ port.RateLimitStore = (*stubLimiter)(nil)

type captureMailer struct {
	messages []port.MailMessage
}

func (m *captureMailer) Send(_ context.Context, msg port.MailMessage) error {
	m.messages = append(m.messages, msg)
	return nil
}

var _ port.Mailer = (*captureMailer)(nil)

type nopPublisher struct{}

func (nopPublisher) PublishLoginSucceeded(context.Context, domain.LoginSucceededEvent) error {
	return nil
}
func (nopPublisher) PublishLoginFailed(context.Context, domain.LoginFailedEvent) error { return nil }
func (nopPublisher) PublishLogout(context.Context, domain.LogoutEvent) error           { return nil }
func (nopPublisher) PublishAccountLocked(context.Context, domain.AccountLockedEvent) error {
	return nil
}
func (nopPublisher) PublishAccountUnlocked(context.Context, domain.AccountUnlockedEvent) error {
	return nil
}
func (nopPublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return nil
}

var _ port.EventPublisher = nopPublisher{}
