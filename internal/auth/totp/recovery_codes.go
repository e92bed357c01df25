package totp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultRecoveryCodeLength is the number of symbols in a recovery code.
	DefaultRecoveryCodeLength = 10
	// DefaultNumRecoveryCodes is the number of recovery codes to generate.
	DefaultNumRecoveryCodes = 10

	// 32 symbols, so a random byte masked to 5 bits maps without bias.
	// i, l, o and u are left out to avoid misreads.
	recoveryCharset = "0123456789abcdefghjkmnpqrstvwxyz"
)

// GenerateRecoveryCodes generates a set of unique recovery codes.
// Returns the plaintext codes (to show to the user once) and their bcrypt
// hashes (for storage), index-aligned.
func GenerateRecoveryCodes(count, cost int) (plaintextCodes []string, hashedCodes []string, err error) {
	if count <= 0 {
		count = DefaultNumRecoveryCodes
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}

	plaintextCodes = make([]string, count)
	hashedCodes = make([]string, count)
	seen := make(map[string]struct{}, count)

	for i := 0; i < count; i++ {
		for {
			code, genErr := randomRecoveryCode(DefaultRecoveryCodeLength)
			if genErr != nil {
				return nil, nil, genErr
			}
			if _, dup := seen[code]; !dup {
				seen[code] = struct{}{}
				plaintextCodes[i] = code
				break
			}
		}

		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(NormalizeRecoveryCode(plaintextCodes[i])), cost)
		if hashErr != nil {
			return nil, nil, fmt.Errorf("failed to hash recovery code %d: %w", i+1, hashErr)
		}
		hashedCodes[i] = string(hashed)
	}
	return plaintextCodes, hashedCodes, nil
}

func randomRecoveryCode(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes for recovery code: %w", err)
	}
	for j := range b {
		b[j] = recoveryCharset[b[j]&0x1f]
	}
	half := length / 2
	return string(b[:half]) + "-" + string(b[half:]), nil
}

// NormalizeRecoveryCode lowercases the code and strips separators so that
// "ABCDE-12345", "abcde 12345" and "abcde12345" are the same code.
func NormalizeRecoveryCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(code)))
}

// VerifyRecoveryCode compares a presented code with one stored bcrypt hash.
func VerifyRecoveryCode(hashedCode, providedCode string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(NormalizeRecoveryCode(providedCode)))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		log.Warn().Err(err).Msg("Unexpected error during recovery code comparison")
	}
	return false
}
