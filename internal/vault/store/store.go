package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by conditional writes when the row changed
	// since it was read.
	ErrConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this.
type Store interface {
	SecurityConfigs() SecurityConfigs

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// SecurityConfigs persists one SecurityConfig per user, keyed by user ID.
//
// There are no transactions: every read-modify-write goes through Update,
// which only succeeds if the stored version still matches.
type SecurityConfigs interface {
	// Create inserts cfg. ErrAlreadyExists if the user already has one.
	Create(ctx context.Context, cfg domain.SecurityConfig) error

	// GetByUserID returns the config for userID or ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (domain.SecurityConfig, error)

	// Update writes cfg if the stored version equals cfg.Version and bumps the
	// stored version by one. ErrConflict if the row moved, ErrNotFound if it
	// does not exist.
	Update(ctx context.Context, cfg domain.SecurityConfig) error

	// TouchVerified sets last_verified_at in a single statement.
	TouchVerified(ctx context.Context, userID string, at time.Time) error

	// ClearExpiredResetTokens drops reset tokens that expired before now.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)

	// ClearExpiredChallenges drops WebAuthn challenges that expired before now.
	ClearExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}
