package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/mailer"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking the database, the mail transport and, when configured, the lockout store.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	vaultsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	vaultsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	mail mailer.Checker,
	lockout Pinger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := &vaultsdk.HealthChecks{Database: "ok", Mailer: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK
		degrade := func() {
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := st.Ping(ctx); err != nil {
			checks.Database = "error: " + err.Error()
			degrade()
		}

		if mail != nil {
			if err := mail.Check(ctx); err != nil {
				checks.Mailer = "error: " + err.Error()
				degrade()
			}
		}

		if lockout != nil {
			checks.Lockout = "ok"
			if err := lockout.Ping(ctx); err != nil {
				// Verification fails open without Redis.
				checks.Lockout = "error: " + err.Error()
			}
		}

		httpx.WriteJSON(w, statusCode, vaultsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
