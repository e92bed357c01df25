package totp

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateTOTPSecret(t *testing.T) {
	key, uri, err := GenerateTOTPSecret("HomeFin", "alice@example.com")
	require.NoError(t, err)
	assert.Len(t, key.Secret(), 32, "20 raw bytes encode to 32 base32 characters")
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/HomeFin:alice@example.com"))
}

func TestProvisioningURI_EmbedsExistingSecret(t *testing.T) {
	key, _, err := GenerateTOTPSecret("HomeFin", "alice@example.com")
	require.NoError(t, err)

	uri, err := ProvisioningURI("HomeFin", "alice@example.com", key.Secret())
	require.NoError(t, err)

	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "otpauth", parsed.Scheme)
	assert.Equal(t, "totp", parsed.Host)
	assert.Equal(t, key.Secret(), parsed.Query().Get("secret"))
	assert.Equal(t, "HomeFin", parsed.Query().Get("issuer"))
	assert.Equal(t, "30", parsed.Query().Get("period"))
}

func TestProvisioningURI_RejectsGarbageSecret(t *testing.T) {
	_, err := ProvisioningURI("HomeFin", "alice@example.com", "not base32 !!")
	assert.Error(t, err)
}

func TestGenerateTOTPQRCodeBytes(t *testing.T) {
	_, uri, err := GenerateTOTPSecret("HomeFin", "alice@example.com")
	require.NoError(t, err)

	png, err := GenerateTOTPQRCodeBytes(uri)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestValidateTOTPCode_Window(t *testing.T) {
	key, _, err := GenerateTOTPSecret("HomeFin", "alice@example.com")
	require.NoError(t, err)
	secret := key.Secret()

	// Middle of a step so adjacent offsets land squarely in neighbour steps.
	issuedAt := time.Unix(1_700_000_015, 0)
	code, err := GenerateCode(secret, issuedAt)
	require.NoError(t, err)

	tests := []struct {
		name   string
		offset int
		valid  bool
	}{
		{"same step", 0, true},
		{"one step later", 1, true},
		{"one step earlier", -1, true},
		{"three steps later", 3, false},
		{"three steps earlier", -3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := issuedAt.Add(time.Duration(tt.offset) * DefaultPeriod)
			step, ok, err := ValidateTOTPCode(secret, code, at, DefaultSkew)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, ok)
			if ok {
				assert.Equal(t, Step(issuedAt), step)
			}
		})
	}
}

func TestValidateTOTPCode_RejectsMalformed(t *testing.T) {
	key, _, err := GenerateTOTPSecret("HomeFin", "alice@example.com")
	require.NoError(t, err)

	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		_, ok, err := ValidateTOTPCode(key.Secret(), code, time.Now(), DefaultSkew)
		require.NoError(t, err)
		assert.False(t, ok, "code %q", code)
	}
}

func TestGenerateRecoveryCodes(t *testing.T) {
	plain, hashed, err := GenerateRecoveryCodes(10, bcrypt.MinCost)
	require.NoError(t, err)
	require.Len(t, plain, 10)
	require.Len(t, hashed, 10)

	seen := map[string]bool{}
	for i, code := range plain {
		assert.False(t, seen[code], "codes must be pairwise unique")
		seen[code] = true
		assert.Len(t, code, DefaultRecoveryCodeLength+1)
		assert.NotEqual(t, code, hashed[i], "only hashes are returned for storage")
		assert.True(t, VerifyRecoveryCode(hashed[i], code))
	}
}

func TestVerifyRecoveryCode_Normalisation(t *testing.T) {
	plain, hashed, err := GenerateRecoveryCodes(1, bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyRecoveryCode(hashed[0], strings.ToUpper(plain[0])))
	assert.True(t, VerifyRecoveryCode(hashed[0], strings.ReplaceAll(plain[0], "-", "")))
	assert.True(t, VerifyRecoveryCode(hashed[0], " "+strings.ReplaceAll(plain[0], "-", " ")+" "))
	assert.False(t, VerifyRecoveryCode(hashed[0], "00000-00000"))
}
