package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// SessionRecord is what the session layer knows about the caller's browser.
type SessionRecord struct {
	Email string
	Role  Role
}

// SessionProvider returns the session record for r, or nil when the caller has no
// signed-in session.
type SessionProvider interface {
	Session(r *http.Request) (*SessionRecord, error)
}

// CookieSessionProvider reads the Redis-backed cookie session attached to the request by
// the session middleware.
type CookieSessionProvider struct{}

// Session implements SessionProvider.
func (CookieSessionProvider) Session(r *http.Request) (*SessionRecord, error) {
	sess := shared.RequestSession(r)
	if sess == nil || sess.User() == "" || sess.Email() == "" {
		return nil, nil
	}
	return &SessionRecord{Email: sess.Email(), Role: Role(sess.Get(shared.SessionRoleKey))}, nil
}

// SignIn stores the user's identity in sess under a fresh id.
func SignIn(sessions *shared.SessionManager, sess *shared.Session, user *User) {
	sessions.Renew(sess)
	sess.SetIdentity(user.ID, user.Email)
	sess.Set(shared.SessionRoleKey, string(user.Role))
}

// SessionResolver turns a browser session into a principal.
type SessionResolver struct {
	provider SessionProvider
	users    UserStore
}

// NewSessionResolver constructs a SessionResolver.
func NewSessionResolver(provider SessionProvider, users UserStore) *SessionResolver {
	return &SessionResolver{provider: provider, users: users}
}

// Resolve returns the session principal for r, or (nil, nil) when there is no usable
// session. A user that has since been removed or deactivated has no session.
func (s *SessionResolver) Resolve(ctx context.Context, r *http.Request) (*Principal, error) {
	record, err := s.provider.Session(r)
	if err != nil {
		return nil, fmt.Errorf("auth: load session: %w", err)
	}
	if record == nil || record.Email == "" {
		return nil, nil
	}
	user, err := s.users.FindByEmail(ctx, record.Email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: find session user: %w", err)
	}
	if !user.IsActive || !user.Role.Valid() {
		return nil, nil
	}
	p := NewSessionPrincipal(user.ID, user.Email, user.Role)
	return &p, nil
}
