package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")
	e.newUser(t, "user-2")

	requestToken(t, e, "user-1", domain.MethodPIN)
	_, err := e.ceremonies.BeginRegistration(ctx, "user-2")
	require.NoError(t, err)

	hk := NewHousekeepingService(e.store, slog.New(slog.NewTextHandler(io.Discard, nil)), "")
	hk.Clock = e.clock.Now
	require.Equal(t, DefaultHousekeepingSchedule, hk.Schedule)

	hk.Cleanup()
	require.NotNil(t, e.get(t, "user-1").Reset)
	require.NotNil(t, e.get(t, "user-2").Challenge)

	e.clock.Advance(2 * time.Hour)
	hk.Cleanup()
	require.Nil(t, e.get(t, "user-1").Reset)
	require.Nil(t, e.get(t, "user-2").Challenge)
}

func TestHousekeepingStartStop(t *testing.T) {
	e := newEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hk := NewHousekeepingService(e.store, logger, "not a schedule")
	require.Error(t, hk.Start())

	hk = NewHousekeepingService(e.store, logger, "@every 1m")
	require.NoError(t, hk.Start())
	hk.Stop()
}
