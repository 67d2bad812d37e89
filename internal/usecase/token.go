package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
)

const (
	probeTTLProduction  = time.Minute
	probeTTLDevelopment = 10 * time.Second
)

// TokenService issues and verifies signed bearer tokens. Each token embeds
// the account's token version; bumping the version on the account revokes
// every token issued before the bump.
//
// The version column is optional in the deployed schema. Its presence is
// probed once per TTL and cached; when absent the service degrades to
// signature-and-expiry checks only.
type TokenService struct {
	cfg      *config.AppConfig
	accounts port.AccountRepository
	signer   *security.BearerSigner
	log      *zap.Logger
	now      func() time.Time

	mu           sync.Mutex
	probed       bool
	columnExists bool
	probeExpiry  time.Time
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(cfg *config.AppConfig, accounts port.AccountRepository, signer *security.BearerSigner, log *zap.Logger) *TokenService {
	return &TokenService{
		cfg:      cfg,
		accounts: accounts,
		signer:   signer,
		log:      log,
		now:      time.Now,
	}
}

// Issue signs a bearer token for the account, embedding its current token
// version (zero when the schema has no version column).
func (s *TokenService) Issue(ctx context.Context, account *domain.Account) (string, error) {
	version := int64(0)
	if s.versioningEnabled(ctx) {
		current, err := s.accounts.GetTokenVersion(ctx, account.ID)
		if err != nil {
			return "", fmt.Errorf("read token version: %w", err)
		}
		version = current
	}

	token, err := s.signer.Sign(account.ID, string(account.Role), string(account.Status), version, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}

	return token, nil
}

// Verify parses the token and, when versioning is available, compares its
// embedded version against the account's live counter. A stale version means
// the token was revoked out-of-band.
func (s *TokenService) Verify(ctx context.Context, token string) (*security.BearerClaims, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrExpiredBearerToken) {
			return nil, err
		}
		return nil, security.ErrInvalidBearerToken
	}

	if s.versioningEnabled(ctx) {
		current, err := s.accounts.GetTokenVersion(ctx, claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("read token version: %w", err)
		}
		if claims.TokenVersion != current {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Decode recovers the claims from a token checked against the signature
// only. Expired and version-revoked tokens still decode; logout relies on
// this to find the subject of whatever credential the caller still holds.
func (s *TokenService) Decode(token string) (*security.BearerClaims, error) {
	return s.signer.ParseIgnoringExpiry(token)
}

// Revoke bumps the account's token version, invalidating all outstanding
// bearer tokens. With no version column this is a no-op.
func (s *TokenService) Revoke(ctx context.Context, accountID string) (int64, error) {
	if !s.versioningEnabled(ctx) {
		return 0, nil
	}

	version, err := s.accounts.IncrementTokenVersion(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("increment token version: %w", err)
	}

	return version, nil
}

// TTL exposes the configured bearer lifetime for cookie expiry.
func (s *TokenService) TTL() time.Duration { return s.signer.TTL() }

func (s *TokenService) versioningEnabled(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.probed && now.Before(s.probeExpiry) {
		return s.columnExists
	}

	exists, err := s.accounts.HasTokenVersionColumn(ctx)
	if err != nil {
		s.log.Warn("probe token version column", zap.Error(err))
		// Keep the last known answer on probe failure; default to off.
		return s.probed && s.columnExists
	}

	ttl := probeTTLDevelopment
	if s.cfg.App.IsProduction() {
		ttl = probeTTLProduction
	}

	s.probed = true
	s.columnExists = exists
	s.probeExpiry = now.Add(ttl)

	return exists
}
