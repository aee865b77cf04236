package httpx

import "net/http"

// Operator roles carried in the "role" claim.
const (
	RoleReadOnly   = "readonly"
	RoleReadWrite  = "readwrite"
	RoleSuperAdmin = "superadmin"
)

// RequireAnyRole the caller's role must be one of allowed. Runs after
// AuthnMiddleware.
func RequireAnyRole(allowed ...string) Middleware {
	want := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[roleFromContext(r.Context())]; !ok {
				ErrForbidden.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
