package domain

import "time"

// LoginAttempt is an append-only record of one authentication attempt.
type LoginAttempt struct {
	ID            string    `bson:"_id" json:"id"`
	Identity      string    `bson:"identity" json:"identity"`
	IPAddress     string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent     string    `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	AttemptedAt   time.Time `bson:"attempted_at" json:"attempted_at"`
	Success       bool      `bson:"success" json:"success"`
	FailureReason string    `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
}

// LockoutState is derived from recent LoginAttempts and is never stored.
type LockoutState struct {
	Identity            string     `json:"identity" yaml:"identity"`
	ConsecutiveFailures int        `json:"consecutive_failures" yaml:"consecutive_failures"`
	IPFailures          int        `json:"ip_failures,omitempty" yaml:"ip_failures,omitempty"`
	Locked              bool       `json:"locked" yaml:"locked"`
	LockedUntil         *time.Time `json:"locked_until,omitempty" yaml:"locked_until,omitempty"`
}
