package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// GenerateMFACode returns a uniform random 6-digit code in [100000, 999999].
func GenerateMFACode() (string, error) {
	const span = 900000

	// Rejection sampling keeps the distribution uniform over the span.
	limit := uint32((1 << 32) / span * span)
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("generate mfa code: %w", err)
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v >= limit {
			continue
		}
		return strconv.Itoa(int(v%span) + 100000), nil
	}
}

// GenerateSessionToken returns a hex-encoded random token using the
// specified number of random bytes (32 or more for session tokens).
func GenerateSessionToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value. Verification
// compares full hashes, never partial digits, so no timing signal correlates
// with prefix matches.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
