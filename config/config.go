package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Storage drivers for users, MFA devices and login attempts.
const (
	StorageMongo  = "mongo"
	StorageBolt   = "bolt"
	StorageMemory = "memory"
)

// ServerConfig holds all configuration for the server and the admin CLI.
// Tags use mapstructure for Viper unmarshalling; every key can be overridden
// by an environment variable of the same name.
type ServerConfig struct {
	HTTPPort           string `mapstructure:"HTTP_PORT"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	LogPretty          bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName    string `mapstructure:"OTEL_SERVICE_NAME"`
	OtelTracingEnabled bool   `mapstructure:"OTEL_TRACING_ENABLED"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDBName   string `mapstructure:"MONGO_DB_NAME"`
	BoltPath      string `mapstructure:"BOLT_PATH"`

	// RedisAddr empty keeps sessions and rate counters in process memory.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	JWTSecretKey        string `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer           string `mapstructure:"JWT_ISSUER"`
	AccessTokenTTLMin   int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLHour int    `mapstructure:"REFRESH_TOKEN_TTL_HOUR"`
	PasswordHashCost    int    `mapstructure:"PASSWORD_HASH_COST"`

	// SessionTimeout of zero disables idle tracking.
	SessionTimeout     time.Duration `mapstructure:"SESSION_TIMEOUT"`
	SessionGrace       time.Duration `mapstructure:"SESSION_GRACE"`
	SessionExemptPaths []string      `mapstructure:"SESSION_EXEMPT_PATHS"`
	LoginPagePath      string        `mapstructure:"LOGIN_PAGE_PATH"`

	KeepAliveRateLimit  int           `mapstructure:"KEEPALIVE_RATE_LIMIT"`
	KeepAliveRateWindow time.Duration `mapstructure:"KEEPALIVE_RATE_WINDOW"`
	LoginRateLimit      int           `mapstructure:"LOGIN_RATE_LIMIT"`
	LoginRateWindow     time.Duration `mapstructure:"LOGIN_RATE_WINDOW"`

	LockoutThreshold      int           `mapstructure:"LOCKOUT_THRESHOLD"`
	LockoutWindow         time.Duration `mapstructure:"LOCKOUT_WINDOW"`
	LockoutCoolOff        time.Duration `mapstructure:"LOCKOUT_COOLOFF"`
	LockoutIPThreshold    int           `mapstructure:"LOCKOUT_IP_THRESHOLD"`
	LoginAttemptRetention time.Duration `mapstructure:"LOGIN_ATTEMPT_RETENTION"`

	TOTPIssuer       string `mapstructure:"TOTP_ISSUER"`
	TOTPSkew         int    `mapstructure:"TOTP_SKEW"`
	TOTPRejectReplay bool   `mapstructure:"TOTP_REJECT_REPLAY"`
	BackupCodeCount  int    `mapstructure:"BACKUP_CODE_COUNT"`
	BackupCodeCost   int    `mapstructure:"BACKUP_CODE_COST"`
}

// AccessTokenTTL returns the access token lifetime.
func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (c *ServerConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHour) * time.Hour
}

// SessionRetention is how long a session store keeps an untouched session.
// With idle tracking it outlives hard expiry by a refresh lifetime, so the
// tracker sees the expired session and terminates it itself. The store only
// collects sessions nobody comes back for.
func (c *ServerConfig) SessionRetention() time.Duration {
	if c.SessionTimeout > 0 {
		return c.SessionTimeout + max(c.SessionGrace, 0) + c.RefreshTokenTTL()
	}
	return c.RefreshTokenTTL()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "homefin-auth")
	v.SetDefault("OTEL_TRACING_ENABLED", false)

	v.SetDefault("STORAGE_DRIVER", StorageMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "homefin_auth")
	v.SetDefault("BOLT_PATH", "homefin-auth.db")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "homefin")

	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me_now") // CHANGE IN PRODUCTION
	v.SetDefault("JWT_ISSUER", "homefin-auth")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 15)
	v.SetDefault("REFRESH_TOKEN_TTL_HOUR", 24)
	v.SetDefault("PASSWORD_HASH_COST", bcrypt.DefaultCost)

	v.SetDefault("SESSION_TIMEOUT", 15*time.Minute)
	v.SetDefault("SESSION_GRACE", 2*time.Minute)
	v.SetDefault("SESSION_EXEMPT_PATHS", []string{
		"/static/", "/favicon.ico", "/login", "/healthz", "/metrics",
		"/api/auth/login", "/api/auth/refresh",
	})
	v.SetDefault("LOGIN_PAGE_PATH", "/login")

	v.SetDefault("KEEPALIVE_RATE_LIMIT", 30)
	v.SetDefault("KEEPALIVE_RATE_WINDOW", time.Minute)
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("LOGIN_RATE_WINDOW", time.Minute)

	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_WINDOW", 15*time.Minute)
	v.SetDefault("LOCKOUT_COOLOFF", 15*time.Minute)
	v.SetDefault("LOCKOUT_IP_THRESHOLD", 0)
	v.SetDefault("LOGIN_ATTEMPT_RETENTION", 30*24*time.Hour)

	v.SetDefault("TOTP_ISSUER", "HomeFin")
	v.SetDefault("TOTP_SKEW", 1)
	v.SetDefault("TOTP_REJECT_REPLAY", false)
	v.SetDefault("BACKUP_CODE_COUNT", 10)
	v.SetDefault("BACKUP_CODE_COST", bcrypt.DefaultCost)
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. An empty configFile searches the standard locations.
func LoadConfig(configFile string) (*ServerConfig, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/homefin-auth/")
		v.AddConfigPath("$HOME/.homefin-auth")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file means defaults plus environment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *ServerConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.StorageDriver {
	case StorageMongo:
		check(c.MongoURI != "" && c.MongoDBName != "", "MONGO_URI and MONGO_DB_NAME are required for the mongo driver")
	case StorageBolt:
		check(c.BoltPath != "", "BOLT_PATH is required for the bolt driver")
	case StorageMemory:
	default:
		check(false, "unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	check(len(c.JWTSecretKey) >= 32, "JWT_SECRET_KEY must be at least 32 bytes")
	check(c.AccessTokenTTLMin > 0, "ACCESS_TOKEN_TTL_MIN must be positive")
	check(c.RefreshTokenTTLHour > 0, "REFRESH_TOKEN_TTL_HOUR must be positive")
	check(c.PasswordHashCost >= bcrypt.MinCost && c.PasswordHashCost <= bcrypt.MaxCost,
		"PASSWORD_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)

	check(c.SessionTimeout >= 0, "SESSION_TIMEOUT must not be negative")
	check(c.SessionGrace >= 0, "SESSION_GRACE must not be negative")

	check(c.KeepAliveRateLimit > 0 && c.KeepAliveRateWindow > 0, "KEEPALIVE_RATE_LIMIT and KEEPALIVE_RATE_WINDOW must be positive")
	check(c.LoginRateLimit > 0 && c.LoginRateWindow > 0, "LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive")

	check(c.LockoutThreshold > 0, "LOCKOUT_THRESHOLD must be positive")
	check(c.LockoutWindow > 0, "LOCKOUT_WINDOW must be positive")
	check(c.LockoutCoolOff > 0 && c.LockoutCoolOff <= c.LockoutWindow, "LOCKOUT_COOLOFF must be positive and not longer than LOCKOUT_WINDOW")
	check(c.LockoutIPThreshold >= 0, "LOCKOUT_IP_THRESHOLD must not be negative")
	check(c.LoginAttemptRetention >= c.LockoutWindow, "LOGIN_ATTEMPT_RETENTION must cover LOCKOUT_WINDOW")

	check(c.TOTPIssuer != "", "TOTP_ISSUER is required")
	check(c.TOTPSkew >= 0 && c.TOTPSkew <= 10, "TOTP_SKEW must be between 0 and 10")
	check(c.BackupCodeCount > 0, "BACKUP_CODE_COUNT must be positive")
	check(c.BackupCodeCost >= bcrypt.MinCost && c.BackupCodeCost <= bcrypt.MaxCost,
		"BACKUP_CODE_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
