package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/pkg/slogx"
)

const maxMutateAttempts = 3

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// persistErr marks a mutation failure whose changes must still be written,
// e.g. a consumed challenge.
type persistErr struct{ err error }

func (e persistErr) Error() string { return e.err.Error() }
func (e persistErr) Unwrap() error { return e.err }

func persistAnyway(err error) error { return persistErr{err: err} }

// mutate runs a read-modify-write cycle on the user's config. fn edits cfg in
// place; returning nil writes it, returning persistAnyway(err) writes it and
// then returns err, any other error aborts without writing. Version conflicts
// re-run fn on a fresh copy.
func mutate(
	ctx context.Context,
	st store.Store,
	clock Clock,
	userID string,
	fn func(cfg *domain.SecurityConfig) error,
) (domain.SecurityConfig, error) {
	log := slogx.FromContext(ctx)

	for attempt := 1; ; attempt++ {
		cfg, err := st.SecurityConfigs().GetByUserID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.SecurityConfig{}, ErrConfigNotFound
		}
		if err != nil {
			return domain.SecurityConfig{}, unavailable(err)
		}

		var outcome error
		if err := fn(&cfg); err != nil {
			var keep persistErr
			if !errors.As(err, &keep) {
				return domain.SecurityConfig{}, err
			}
			outcome = keep.err
		}

		cfg.UpdatedAt = clock.now()
		err = st.SecurityConfigs().Update(ctx, cfg)
		switch {
		case err == nil:
			cfg.Version++
			return cfg, outcome
		case errors.Is(err, store.ErrConflict) && attempt < maxMutateAttempts:
			log.Debug("security config changed underneath, retrying", "attempt", attempt)
			continue
		case errors.Is(err, store.ErrConflict):
			return domain.SecurityConfig{}, unavailable(err)
		case errors.Is(err, store.ErrNotFound):
			return domain.SecurityConfig{}, ErrConfigNotFound
		default:
			return domain.SecurityConfig{}, unavailable(err)
		}
	}
}
