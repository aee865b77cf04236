package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/jwtx"
	"github.com/aussiebroadwan/vault/pkg/mailer"
	"github.com/aussiebroadwan/vault/pkg/slogx"

	_ "github.com/aussiebroadwan/vault/api/vault" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	// Optional readiness dependencies.
	MailChecker mailer.Checker
	Lockout     Pinger

	SecurityService     *service.SecurityService
	CeremonyService     *service.CeremonyService
	VerificationService *service.VerificationService
	ResetService        *service.ResetService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	corsOrigins []string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(corsOrigins),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSecurity()
	r.registerVerification()
	r.registerReset()
	r.registerWebAuthn()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Vault Security Service API
//	@version		0.1.0
//	@description	Security configuration and credential verification for the personal vault.
//	@description
//	@description				Every /v1/security route acts on the subject of an HS256 bearer token.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/vault
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured requires a bearer token and rate limits by user.
func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerSecurity() {
	h := &SecurityHandler{SecurityService: r.SecurityService}

	r.Mux.Handle("POST /v1/security/config", r.secured(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/security/config", r.secured(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/security/methods/{method}", r.secured(h.HandleSetMethod, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/security/freshness", r.secured(h.HandleFreshness, httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/security/questions", r.secured(h.HandleSetQuestions, httpx.ModerateLimit))
}

func (r *Router) registerVerification() {
	h := &VerifyHandler{VerificationService: r.VerificationService}

	// Strict limits: these guess secrets.
	r.Mux.Handle("POST /v1/security/verify", r.secured(h.HandleVerify, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/security/questions/verify", r.secured(h.HandleVerifyAnswer, httpx.StrictLimit))
}

func (r *Router) registerReset() {
	h := &ResetHandler{ResetService: r.ResetService}

	r.Mux.Handle("POST /v1/security/reset/request", r.secured(h.HandleRequest, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/security/reset/consume", r.secured(h.HandleConsume, httpx.StrictLimit))
}

func (r *Router) registerWebAuthn() {
	h := &WebAuthnHandler{
		CeremonyService:     r.CeremonyService,
		VerificationService: r.VerificationService,
	}

	r.Mux.Handle("POST /v1/security/webauthn/register/begin", r.secured(h.HandleBeginRegistration, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/security/webauthn/register/finish", r.secured(h.HandleFinishRegistration, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/security/webauthn/authenticate/begin", r.secured(h.HandleBeginAuthentication, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/security/webauthn/authenticate/finish", r.secured(h.HandleFinishAuthentication, httpx.StrictLimit))
}

func (r *Router) registerAdmin() {
	h := &SecurityHandler{SecurityService: r.SecurityService}

	r.Mux.Handle("GET /v1/admin/security/{userId}",
		httpx.Chain(http.HandlerFunc(h.HandleAdminGet),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyRole(httpx.RoleReadOnly, httpx.RoleReadWrite, httpx.RoleSuperAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Monitoring may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.MailChecker, r.Lockout),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
