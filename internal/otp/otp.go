package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// VerifyResult classifies one verification attempt.
type VerifyResult int

const (
	Valid VerifyResult = iota
	Expired
	InvalidFormat
	Incorrect
)

// GenerateCode returns a random 6-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Normalize strips the separators applicants commonly type into codes.
func Normalize(input string) string {
	r := strings.NewReplacer(" ", "", "-", "", ".", "")
	return r.Replace(strings.TrimSpace(input))
}

// Verify checks an applicant-supplied code against the issued one.
// Expiry is checked first so a stale code never counts as an attempt
// at guessing.
func Verify(input, code string, issuedAt time.Time, ttl time.Duration, now time.Time) VerifyResult {
	if now.Sub(issuedAt) > ttl {
		return Expired
	}

	cleaned := Normalize(input)
	if len(cleaned) != 6 {
		return InvalidFormat
	}
	for _, c := range cleaned {
		if c < '0' || c > '9' {
			return InvalidFormat
		}
	}

	if cleaned != code {
		return Incorrect
	}
	return Valid
}

// IsResendCommand reports whether the applicant asked for a new code
// instead of typing one.
func IsResendCommand(input string) bool {
	t := strings.ToLower(strings.TrimSpace(input))
	return t == "resend" || t == "send again" || t == "resend code" ||
		t == "resend otp" || t == "new code"
}
