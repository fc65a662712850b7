package auth

import (
	"context"
	"encoding/json"
	"slices"
)

// Method identifies how a principal authenticated.
type Method string

const (
	MethodSession     Method = "session"
	MethodBearerToken Method = "bearer-token"
)

// Principal is the identity resolved for one request. It is built by the gate, never
// persisted and immutable: the scope slice is copied in and out.
type Principal struct {
	userID           string
	email            string
	role             Role
	method           Method
	serviceAccountID string
	scopes           []string
}

// NewSessionPrincipal builds a principal for a browser session.
func NewSessionPrincipal(userID, email string, role Role) Principal {
	return Principal{userID: userID, email: email, role: role, method: MethodSession}
}

// NewBearerPrincipal builds a principal for a service-account token. The user fields
// describe the account's owner.
func NewBearerPrincipal(userID, email string, role Role, serviceAccountID string, scopes []string) Principal {
	return Principal{
		userID:           userID,
		email:            email,
		role:             role,
		method:           MethodBearerToken,
		serviceAccountID: serviceAccountID,
		scopes:           slices.Clone(scopes),
	}
}

func (p Principal) UserID() string { return p.userID }
func (p Principal) Email() string  { return p.email }
func (p Principal) Role() Role     { return p.role }
func (p Principal) Method() Method { return p.method }

// ServiceAccountID is empty for session principals.
func (p Principal) ServiceAccountID() string { return p.serviceAccountID }

// Scopes returns a copy of the granted scopes; nil for session principals.
func (p Principal) Scopes() []string {
	if p.method != MethodBearerToken {
		return nil
	}
	return slices.Clone(p.scopes)
}

// IsZero reports whether p was never resolved.
func (p Principal) IsZero() bool { return p.method == "" }

// HasScope reports whether a bearer principal was granted scope directly or through
// admin:full.
func (p Principal) HasScope(scope string) bool {
	if p.method != MethodBearerToken {
		return false
	}
	return slices.Contains(p.scopes, scope) || slices.Contains(p.scopes, ScopeAdminFull)
}

type principalJSON struct {
	UserID               string   `json:"userId"`
	Email                string   `json:"email"`
	Role                 Role     `json:"role"`
	Method               Method   `json:"method"`
	ServiceAccountID     string   `json:"serviceAccountId,omitempty"`
	ServiceAccountScopes []string `json:"serviceAccountScopes,omitempty"`
}

// MarshalJSON renders the collaborator-facing principal contract.
func (p Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(principalJSON{
		UserID:               p.userID,
		Email:                p.email,
		Role:                 p.role,
		Method:               p.method,
		ServiceAccountID:     p.serviceAccountID,
		ServiceAccountScopes: p.Scopes(),
	})
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by the gate middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && !p.IsZero()
}
