package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// Gate decision outcomes reported to a DecisionObserver.
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeError           = "error"
)

// DecisionObserver receives one call per gate decision.
type DecisionObserver interface {
	ObserveAuthDecision(method, outcome string)
}

// Gate is the only path to a principal. Every protected operation calls RequireAuth,
// RequireRole or RequireAdmin before touching protected state.
//
// A browser session is tried before a bearer token. When a request carries both, the
// session wins.
type Gate struct {
	sessions *SessionResolver
	bearer   *BearerResolver
	users    UserStore
	observer DecisionObserver
	logger   *slog.Logger
}

// GateOption customises a Gate.
type GateOption func(*Gate)

// WithDecisionObserver reports every decision to o.
func WithDecisionObserver(o DecisionObserver) GateOption {
	return func(g *Gate) { g.observer = o }
}

// NewGate constructs a Gate.
func NewGate(sessions *SessionResolver, bearer *BearerResolver, users UserStore, logger *slog.Logger, opts ...GateOption) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{sessions: sessions, bearer: bearer, users: users, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireAuth resolves the caller or fails with *UnauthorizedError. Storage failures are
// returned as-is and map to INTERNAL_ERROR.
func (g *Gate) RequireAuth(r *http.Request) (Principal, error) {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p, nil
	}
	p, err := g.resolve(r)
	if err != nil {
		g.observe("", OutcomeError)
		g.logger.Error("resolve principal", slog.Any("error", err))
		return Principal{}, err
	}
	if p == nil {
		g.observe("", OutcomeUnauthenticated)
		return Principal{}, &UnauthorizedError{}
	}
	return *p, nil
}

// RequireRole resolves the caller and checks their role is one of allowed.
func (g *Gate) RequireRole(r *http.Request, allowed ...Role) (Principal, error) {
	p, err := g.RequireAuth(r)
	if err != nil {
		return Principal{}, err
	}
	if err := CheckRole(p, allowed...); err != nil {
		g.observe(string(p.Method()), OutcomeForbidden)
		return Principal{}, err
	}
	g.observe(string(p.Method()), OutcomeAllowed)
	return p, nil
}

// RequireAdmin is RequireRole(r, RoleAdmin).
func (g *Gate) RequireAdmin(r *http.Request) (Principal, error) {
	return g.RequireRole(r, RoleAdmin)
}

// CheckRole fails with *ForbiddenError unless p's role is in allowed. An empty allowed
// list admits any authenticated principal.
func CheckRole(p Principal, allowed ...Role) error {
	if len(allowed) == 0 || slices.Contains(allowed, p.Role()) {
		return nil
	}
	return &ForbiddenError{Allowed: slices.Clone(allowed)}
}

// RequireScope checks a bearer principal was granted scope. Session principals are
// governed by their role alone.
func RequireScope(p Principal, scope string) error {
	if p.Method() != MethodBearerToken || p.HasScope(scope) {
		return nil
	}
	return &ForbiddenError{Scope: scope}
}

func (g *Gate) resolve(r *http.Request) (*Principal, error) {
	ctx := r.Context()
	if g.sessions != nil {
		p, err := g.sessions.Resolve(ctx, r)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	if g.bearer == nil {
		return nil, nil
	}
	sa, err := g.bearer.Resolve(ctx, r.Header.Get("Authorization"))
	if err != nil || sa == nil {
		return nil, err
	}
	return g.bearerPrincipal(ctx, sa)
}

// bearerPrincipal takes the user fields from the account's owner. Tokens whose owner is
// gone or deactivated do not authenticate.
func (g *Gate) bearerPrincipal(ctx context.Context, sa *ServiceAccountAuth) (*Principal, error) {
	owner, err := g.users.FindByID(ctx, sa.CreatedByID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: find service account owner: %w", err)
	}
	if !owner.IsActive || !owner.Role.Valid() {
		return nil, nil
	}
	p := NewBearerPrincipal(owner.ID, owner.Email, owner.Role, sa.ServiceAccountID, sa.Scopes)
	return &p, nil
}

func (g *Gate) observe(method, outcome string) {
	if g.observer == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	g.observer.ObserveAuthDecision(method, outcome)
}
