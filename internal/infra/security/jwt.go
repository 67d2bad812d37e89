package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidBearerToken indicates the token is malformed or its
	// signature does not verify.
	ErrInvalidBearerToken = errors.New("invalid bearer token")
	// ErrExpiredBearerToken indicates the token expired.
	ErrExpiredBearerToken = errors.New("bearer token expired")
)

// BearerClaims augments registered claims with the account context embedded
// at issuance. TokenVersion is compared against the live account record at
// verification time, enabling early invalidation without a denylist.
type BearerClaims struct {
	Role         string `json:"role"`
	Status       string `json:"status"`
	TokenVersion int64  `json:"token_version"`
	jwt.RegisteredClaims
}

// BearerSigner signs and parses HS256 bearer tokens.
type BearerSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewBearerSigner constructs a signer. The secret must be non-empty.
func NewBearerSigner(secret, issuer string, ttl time.Duration) (*BearerSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("bearer token secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &BearerSigner{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (s *BearerSigner) TTL() time.Duration { return s.ttl }

// Sign issues a token for the account with the supplied version counter.
func (s *BearerSigner) Sign(accountID, role, status string, tokenVersion int64, now time.Time) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}

	claims := BearerClaims{
		Role:         role,
		Status:       status,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}

	return signed, nil
}

// Parse validates the token signature and standard claims.
func (s *BearerSigner) Parse(token string) (*BearerClaims, error) {
	return s.parse(token, false)
}

// ParseIgnoringExpiry validates only the signature, accepting expired
// tokens. Logout uses this to recover the subject from a token that may
// have lapsed mid-session.
func (s *BearerSigner) ParseIgnoringExpiry(token string) (*BearerClaims, error) {
	return s.parse(token, true)
}

func (s *BearerSigner) parse(token string, ignoreExpiry bool) (*BearerClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidBearerToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &BearerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredBearerToken
		}
		return nil, ErrInvalidBearerToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidBearerToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidBearerToken
	}

	return claims, nil
}
