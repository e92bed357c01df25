package totp

import (
	"bytes"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// DefaultPeriod is the TOTP time step.
	DefaultPeriod = 30 * time.Second
	// DefaultSkew is the number of adjacent steps accepted on each side of now.
	DefaultSkew = 1
	// SecretSize is the raw secret length in bytes (32 base32 characters).
	SecretSize = 20
)

var b32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(DefaultPeriod / time.Second),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateTOTPSecret generates a new TOTP secret key.
// It returns the key and the otpauth:// URI for QR code generation.
func GenerateTOTPSecret(issuer, accountName string) (*otp.Key, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      uint(DefaultPeriod / time.Second),
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key, key.URL(), nil
}

// ProvisioningURI builds the otpauth:// URI for an existing base32 secret.
func ProvisioningURI(issuer, accountName, secret string) (string, error) {
	raw, err := b32NoPadding.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return "", fmt.Errorf("failed to decode TOTP secret: %w", err)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      uint(DefaultPeriod / time.Second),
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build provisioning uri: %w", err)
	}
	return key.URL(), nil
}

// GenerateTOTPQRCodeBytes generates a PNG QR code image for the otpauth:// URI.
func GenerateTOTPQRCodeBytes(otpAuthURI string) ([]byte, error) {
	key, err := otp.NewKeyFromURL(otpAuthURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse otpauth uri for QR code: %w", err)
	}
	img, err := key.Image(256, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code image to PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateCode returns the code for the step containing t.
func GenerateCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(strings.TrimSpace(secret), t, validateOpts())
}

// Step returns the time-step counter containing t.
func Step(t time.Time) int64 {
	return t.Unix() / int64(DefaultPeriod/time.Second)
}

// ValidateTOTPCode checks passcode against the steps around at, skew steps on
// either side. Every candidate is compared in constant time. On a match it
// returns the matched step counter.
func ValidateTOTPCode(secret, passcode string, at time.Time, skew int) (int64, bool, error) {
	passcode = strings.TrimSpace(passcode)
	if len(passcode) != otp.DigitsSix.Length() {
		return 0, false, nil
	}
	if skew < 0 {
		skew = 0
	}

	var (
		matched int64
		ok      bool
	)
	for i := -skew; i <= skew; i++ {
		t := at.Add(time.Duration(i) * DefaultPeriod)
		code, err := GenerateCode(secret, t)
		if err != nil {
			return 0, false, fmt.Errorf("failed to compute TOTP code: %w", err)
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(passcode)) == 1 && !ok {
			matched, ok = Step(t), true
		}
	}
	return matched, ok, nil
}
