// Package app assembles stores and services from configuration. It is shared
// by the server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilab-dev/homefin-auth/boltdb"
	"github.com/pilab-dev/homefin-auth/cache"
	redisstore "github.com/pilab-dev/homefin-auth/cache/redis"
	"github.com/pilab-dev/homefin-auth/config"
	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/internal/auth"
	"github.com/pilab-dev/homefin-auth/memory"
	"github.com/pilab-dev/homefin-auth/mongodb"
	"github.com/pilab-dev/homefin-auth/services"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Stores holds the repositories selected by configuration.
type Stores struct {
	Users    domain.UserRepository
	Devices  domain.MFADeviceRepository
	Attempts domain.LoginAttemptRepository
	Sessions domain.SessionStore
	Counters domain.CounterStore

	// HealthChecks report whether remote backends are reachable.
	HealthChecks []func(ctx context.Context) error

	closers []func(ctx context.Context) error
}

// OpenStores connects the storage driver and the session/counter backend.
// On error everything opened so far is closed again.
func OpenStores(ctx context.Context, cfg *config.ServerConfig) (stores *Stores, err error) {
	stores = &Stores{}
	defer func() {
		if err != nil {
			_ = stores.Close(ctx)
			stores = nil
		}
	}()

	if err = stores.openRepositories(ctx, cfg); err != nil {
		return nil, err
	}
	if err = stores.openSessionBackend(ctx, cfg); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *Stores) openRepositories(ctx context.Context, cfg *config.ServerConfig) error {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		db, err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func(ctx context.Context) error {
			mongodb.CloseMongoDB(ctx)
			return nil
		})
		s.HealthChecks = append(s.HealthChecks, mongodb.Ping)

		users, err := mongodb.NewUserRepository(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to initialize user repository: %w", err)
		}
		attempts, err := mongodb.NewLoginAttemptRepository(ctx, db, cfg.LoginAttemptRetention)
		if err != nil {
			return fmt.Errorf("failed to initialize login attempt repository: %w", err)
		}
		s.Users = users
		s.Devices = mongodb.NewMFADeviceRepository(db)
		s.Attempts = attempts

	case config.StorageBolt:
		store, err := boltdb.Open(cfg.BoltPath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func(context.Context) error { return store.Close() })
		s.Users = store.Users()
		s.Devices = store.MFADevices()
		s.Attempts = store.LoginAttempts()

	case config.StorageMemory:
		log.Warn().Msg("Using in-memory storage, all users and MFA devices are lost on restart")
		s.Users = memory.NewUserRepository()
		s.Devices = memory.NewMFADeviceRepository()
		s.Attempts = memory.NewLoginAttemptRepository()

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	log.Info().Str("driver", cfg.StorageDriver).Msg("Storage initialized")
	return nil
}

func (s *Stores) openSessionBackend(ctx context.Context, cfg *config.ServerConfig) error {
	if cfg.RedisAddr == "" {
		sessions := cache.NewMemorySessionStore(cfg.SessionRetention())
		counters := cache.NewMemoryCounterStore()
		s.closers = append(s.closers, func(context.Context) error {
			sessions.Close()
			counters.Close()
			return nil
		})
		s.Sessions = sessions
		s.Counters = counters
		log.Info().Msg("Sessions and rate counters kept in process memory")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	s.closers = append(s.closers, func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	s.HealthChecks = append(s.HealthChecks, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	s.Sessions = redisstore.NewSessionStore(client, cfg.RedisKeyPrefix, cfg.SessionRetention())
	s.Counters = redisstore.NewCounterStore(client, cfg.RedisKeyPrefix)
	log.Info().Str("addr", cfg.RedisAddr).Msg("Sessions and rate counters kept in redis")
	return nil
}

// Close releases every backend in reverse opening order.
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Services holds the wired authentication services.
type Services struct {
	Hasher    services.PasswordHasher
	Tokens    *services.TokenService
	Tracker   *services.SessionActivityTracker
	TOTP      *services.TOTPEngine
	Vault     *services.BackupCodeVault
	Lockout   *services.LockoutGuard
	Limiter   *services.FixedWindowLimiter
	Auth      *services.AuthService
	TwoFactor *services.TwoFactorService
}

// NewServices wires the services over stores. A nil clock uses time.Now.
func NewServices(cfg *config.ServerConfig, stores *Stores, clock services.Clock) *Services {
	svc := &Services{
		Hasher: auth.NewBcryptPasswordHasher(cfg.PasswordHashCost),
		Tokens: services.NewTokenService(cfg.JWTSecretKey, cfg.JWTIssuer, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(), clock),
		Tracker: services.NewSessionActivityTracker(stores.Sessions, services.SessionPolicy{
			Timeout: cfg.SessionTimeout,
			Grace:   cfg.SessionGrace,
		}, clock),
		TOTP: services.NewTOTPEngine(stores.Devices, services.TOTPOptions{
			Issuer:       cfg.TOTPIssuer,
			Skew:         cfg.TOTPSkew,
			RejectReplay: cfg.TOTPRejectReplay,
		}, clock),
		Vault: services.NewBackupCodeVault(stores.Devices, cfg.BackupCodeCount, cfg.BackupCodeCost, clock),
		Lockout: services.NewLockoutGuard(stores.Attempts, services.LockoutPolicy{
			Threshold:   cfg.LockoutThreshold,
			Window:      cfg.LockoutWindow,
			CoolOff:     cfg.LockoutCoolOff,
			IPThreshold: cfg.LockoutIPThreshold,
		}, clock),
		Limiter: services.NewFixedWindowLimiter(stores.Counters, "rl"),
	}
	svc.Auth = services.NewAuthService(stores.Users, stores.Devices, svc.Hasher, svc.TOTP, svc.Vault, svc.Lockout, svc.Tracker, svc.Tokens)
	svc.TwoFactor = services.NewTwoFactorService(stores.Users, stores.Devices, svc.TOTP, svc.Vault, clock)
	return svc
}
