package domain

import "time"

// MFADevice is the single second-factor device of a user. Secret is written
// once when the device is created and never rotated; BackupCodes holds bcrypt
// hashes of the remaining one-time codes.
type MFADevice struct {
	UserID       string     `bson:"_id" json:"user_id"`
	Secret       string     `bson:"secret" json:"secret"`
	Enabled      bool       `bson:"enabled" json:"enabled"`
	BackupCodes  []string   `bson:"backup_codes" json:"backup_codes"`
	LastUsedAt   *time.Time `bson:"last_used_at,omitempty" json:"last_used_at,omitempty"`
	LastTOTPStep int64      `bson:"last_totp_step" json:"last_totp_step"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	EnabledAt    *time.Time `bson:"enabled_at,omitempty" json:"enabled_at,omitempty"`
}

// BackupCodeMatcher reports whether a stored hash matches the presented code.
type BackupCodeMatcher func(hash string) bool

// MatchBackupCode scans every hash without stopping at the first hit and
// returns the index of the first match, or -1.
func MatchBackupCode(hashes []string, match BackupCodeMatcher) int {
	found := -1
	for i, h := range hashes {
		if match(h) && found < 0 {
			found = i
		}
	}
	return found
}

// WithoutIndex returns a copy of codes with the element at i removed.
func WithoutIndex(codes []string, i int) []string {
	out := make([]string, 0, len(codes)-1)
	out = append(out, codes[:i]...)
	return append(out, codes[i+1:]...)
}
