package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	// MinPasswordLength is the hard floor enforced by ValidatePassword.
	MinPasswordLength = 9

	passwordSymbols = "!@#$%&*()-_=+[]{};:,.?"
	upperLetters    = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerLetters    = "abcdefghijkmnopqrstuvwxyz"
	digits          = "23456789"
)

// PasswordViolation describes a single policy rule the candidate failed.
type PasswordViolation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v PasswordViolation) Error() string { return v.Message }

// ValidatePassword checks the candidate against the account password policy
// and returns every violated rule, not just the first.
func ValidatePassword(candidate string) []PasswordViolation {
	var violations []PasswordViolation

	if len([]rune(candidate)) < MinPasswordLength {
		violations = append(violations, PasswordViolation{
			Code:    "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", MinPasswordLength),
		})
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, PasswordViolation{
			Code:    "uppercase",
			Message: "password must include at least one uppercase letter",
		})
	}
	if !hasDigit {
		violations = append(violations, PasswordViolation{
			Code:    "digit",
			Message: "password must include at least one digit",
		})
	}
	if !hasSymbol {
		violations = append(violations, PasswordViolation{
			Code:    "symbol",
			Message: "password must include at least one symbol",
		})
	}

	return violations
}

// IsWeakPassword applies the zxcvbn estimator as an additional guard on the
// password-change flows. It never gates initial validation; advisory rules
// stay advisory at login time.
func IsWeakPassword(candidate string, userInputs ...string) bool {
	result := zxcvbn.PasswordStrength(candidate, userInputs)
	return result.Score < 2
}

// Strength is the advisory score surfaced to UI feedback. It never gates
// acceptance beyond ValidatePassword.
type Strength struct {
	Score       int      `json:"score"`
	Label       string   `json:"label"`
	CriteriaMet []string `json:"criteriaMet"`
}

// PasswordStrength computes an additive 0-100 score across length, case,
// digit, symbol, and long-length criteria.
func PasswordStrength(candidate string) Strength {
	var (
		met   []string
		score int
	)

	runes := []rune(candidate)

	if len(runes) >= MinPasswordLength {
		score += 20
		met = append(met, "length")
	}
	if len(runes) >= 14 {
		score += 20
		met = append(met, "long_length")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if hasUpper && hasLower {
		score += 20
		met = append(met, "mixed_case")
	}
	if hasDigit {
		score += 20
		met = append(met, "digit")
	}
	if hasSymbol {
		score += 20
		met = append(met, "symbol")
	}

	label := "weak"
	switch {
	case score >= 80:
		label = "strong"
	case score >= 60:
		label = "good"
	case score >= 40:
		label = "fair"
	}

	return Strength{Score: score, Label: label, CriteriaMet: met}
}

// GenerateProvisionalPassword constructs a 9-character password guaranteed
// to contain at least one uppercase letter, one digit, and one symbol. The
// character order is shuffled so the guaranteed characters are not
// positionally predictable.
func GenerateProvisionalPassword() (string, error) {
	chars := make([]rune, 0, MinPasswordLength)

	for _, set := range []string{upperLetters, digits, passwordSymbols} {
		r, err := randomRune(set)
		if err != nil {
			return "", err
		}
		chars = append(chars, r)
	}

	all := upperLetters + lowerLetters + digits + passwordSymbols
	for len(chars) < MinPasswordLength {
		r, err := randomRune(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, r)
	}

	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

// NormalizeSecurityAnswer canonicalizes a security-question answer for
// case-insensitive hash comparison.
func NormalizeSecurityAnswer(answer string) string {
	return strings.ToLower(strings.Join(strings.Fields(answer), " "))
}

func randomRune(set string) (rune, error) {
	runes := []rune(set)
	idx, err := randomInt(len(runes))
	if err != nil {
		return 0, err
	}
	return runes[idx], nil
}

func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("random int: %w", err)
	}
	return int(n.Int64()), nil
}
