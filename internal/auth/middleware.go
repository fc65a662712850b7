package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// LoginPath is where browser pages send unauthenticated visitors.
const LoginPath = "/auth/login"

// Middleware requires a principal with one of the allowed roles (any role when none are
// given) and stores it in the request context. Failures are written as problem JSON.
func (g *Gate) Middleware(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.RequireRole(r, allowed...)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// PageMiddleware is Middleware for browser pages: unauthenticated visitors are redirected
// to the login page instead of receiving a 401. Only session principals are admitted;
// bearer tokens carry scopes that pages do not check, so they get a 403.
func (g *Gate) PageMiddleware(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.RequireRole(r, allowed...)
			if err == nil && p.Method() != MethodSession {
				err = &ForbiddenError{SessionRequired: true}
			}
			if err != nil {
				var unauth *UnauthorizedError
				if errors.As(err, &unauth) {
					target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
					http.Redirect(w, r, target, http.StatusSeeOther)
					return
				}
				status, _, _ := httpx.Classify(err)
				http.Error(w, httpx.UserSafeMessage(err), status)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// ScopeMiddleware requires bearer callers to hold scope. It must run after a Gate
// middleware.
func ScopeMiddleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, &UnauthorizedError{})
				return
			}
			if err := RequireScope(p, scope); err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
