package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

type memoryUsers struct {
	byID map[string]*auth.User
	err  error
}

func newMemoryUsers(users ...*auth.User) *memoryUsers {
	m := &memoryUsers{byID: make(map[string]*auth.User)}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memoryUsers) FindByID(ctx context.Context, id string) (*auth.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, httpx.ErrNotFound
}

// headerSessions treats an X-Test-Session header as the signed-in email.
type headerSessions struct{}

func (headerSessions) Session(r *http.Request) (*auth.SessionRecord, error) {
	email := r.Header.Get("X-Test-Session")
	if email == "" {
		return nil, nil
	}
	return &auth.SessionRecord{Email: email, Role: auth.RoleReader}, nil
}

type countingObserver struct {
	mu        sync.Mutex
	decisions map[string]int
}

func (c *countingObserver) ObserveAuthDecision(method, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decisions == nil {
		c.decisions = make(map[string]int)
	}
	c.decisions[method+"/"+outcome]++
}

type GateSuite struct {
	suite.Suite
	users    *memoryUsers
	creds    *memoryCredentials
	observer *countingObserver
	gate     *auth.Gate
	token    string
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	codec := newTestCodec()
	gen, err := codec.Generate()
	s.Require().NoError(err)
	s.token = gen.Token

	s.users = newMemoryUsers(
		&auth.User{ID: "admin-1", Email: "admin@inkwell.test", Role: auth.RoleAdmin, IsActive: true},
		&auth.User{ID: "reader-1", Email: "reader@inkwell.test", Role: auth.RoleReader, IsActive: true},
		&auth.User{ID: "gone-1", Email: "gone@inkwell.test", Role: auth.RoleAdmin, IsActive: false},
	)
	s.creds = newMemoryCredentials(auth.Credential{
		ServiceAccountID: "sa-1",
		Name:             "ci",
		TokenHash:        gen.Hash,
		Scopes:           []string{auth.ScopePostsRead},
		CreatedByID:      "admin-1",
	})
	s.observer = &countingObserver{}
	s.gate = auth.NewGate(
		auth.NewSessionResolver(headerSessions{}, s.users),
		auth.NewBearerResolver(s.creds, codec, nil),
		s.users,
		nil,
		auth.WithDecisionObserver(s.observer),
	)
}

func (s *GateSuite) request(sessionEmail, authorization string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	if sessionEmail != "" {
		req.Header.Set("X-Test-Session", sessionEmail)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func (s *GateSuite) TestNoCredentials() {
	_, err := s.gate.RequireAuth(s.request("", ""))
	var unauth *auth.UnauthorizedError
	s.Require().ErrorAs(err, &unauth)
	status, code, _ := httpx.Classify(err)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal(httpx.CodeUnauthorized, code)
}

func (s *GateSuite) TestSessionPrincipal() {
	p, err := s.gate.RequireAuth(s.request("reader@inkwell.test", ""))
	s.Require().NoError(err)
	s.Equal(auth.MethodSession, p.Method())
	s.Equal("reader-1", p.UserID())
	s.Equal(auth.RoleReader, p.Role())
	s.Nil(p.Scopes())
	s.Empty(p.ServiceAccountID())
}

func (s *GateSuite) TestSessionRoleComesFromUserStore() {
	p, err := s.gate.RequireAdmin(s.request("admin@inkwell.test", ""))
	s.Require().NoError(err)
	s.Equal(auth.RoleAdmin, p.Role())
}

func (s *GateSuite) TestInactiveSessionUserIsUnauthenticated() {
	_, err := s.gate.RequireAuth(s.request("gone@inkwell.test", ""))
	var unauth *auth.UnauthorizedError
	s.ErrorAs(err, &unauth)
}

func (s *GateSuite) TestBearerPrincipal() {
	p, err := s.gate.RequireAuth(s.request("", "Bearer "+s.token))
	s.Require().NoError(err)
	s.Equal(auth.MethodBearerToken, p.Method())
	s.Equal("sa-1", p.ServiceAccountID())
	s.Equal("admin-1", p.UserID())
	s.Equal("admin@inkwell.test", p.Email())
	s.Equal([]string{auth.ScopePostsRead}, p.Scopes())
}

func (s *GateSuite) TestSessionWinsOverBearer() {
	p, err := s.gate.RequireAuth(s.request("reader@inkwell.test", "Bearer "+s.token))
	s.Require().NoError(err)
	s.Equal(auth.MethodSession, p.Method())
	s.Equal("reader-1", p.UserID())
}

func (s *GateSuite) TestBearerWithInactiveOwner() {
	s.creds.creds[0].CreatedByID = "gone-1"
	_, err := s.gate.RequireAuth(s.request("", "Bearer "+s.token))
	var unauth *auth.UnauthorizedError
	s.ErrorAs(err, &unauth)
}

func (s *GateSuite) TestFailedMethodsAreIndistinguishable() {
	_, sessionErr := s.gate.RequireAuth(s.request("nobody@inkwell.test", ""))
	_, bearerErr := s.gate.RequireAuth(s.request("", "Bearer sa_"+strings.Repeat("b", 64)))
	s.Require().Error(sessionErr)
	s.Require().Error(bearerErr)
	s.Equal(sessionErr.Error(), bearerErr.Error())
}

func (s *GateSuite) TestRequireRoleForbidsReader() {
	_, err := s.gate.RequireRole(s.request("reader@inkwell.test", ""), auth.RoleAdmin)
	var forbidden *auth.ForbiddenError
	s.Require().ErrorAs(err, &forbidden)
	s.Contains(err.Error(), "ADMIN")
	status, code, _ := httpx.Classify(err)
	s.Equal(http.StatusForbidden, status)
	s.Equal(httpx.CodeForbidden, code)
}

func (s *GateSuite) TestRequireRoleReturnsAdminUnchanged() {
	req := s.request("admin@inkwell.test", "")
	want, err := s.gate.RequireAuth(req)
	s.Require().NoError(err)
	got, err := s.gate.RequireRole(req, auth.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *GateSuite) TestStorageFailureIsInternal() {
	s.users.err = errors.New("db down")
	_, err := s.gate.RequireAuth(s.request("admin@inkwell.test", ""))
	s.Require().Error(err)
	status, code, detail := httpx.Classify(err)
	s.Equal(http.StatusInternalServerError, status)
	s.Equal(httpx.CodeInternal, code)
	s.Empty(detail)
}

func (s *GateSuite) TestDecisionsAreObserved() {
	_, _ = s.gate.RequireAdmin(s.request("admin@inkwell.test", ""))
	_, _ = s.gate.RequireAdmin(s.request("reader@inkwell.test", ""))
	_, _ = s.gate.RequireAdmin(s.request("", ""))
	s.Equal(1, s.observer.decisions["session/allowed"])
	s.Equal(1, s.observer.decisions["session/forbidden"])
	s.Equal(1, s.observer.decisions["none/unauthenticated"])
}

func (s *GateSuite) TestMiddlewareStoresPrincipal() {
	var seen auth.Principal
	h := s.gate.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		s.True(ok)
		seen = p
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("", "Bearer "+s.token))
	s.Equal(http.StatusNoContent, rr.Code)
	s.Equal("sa-1", seen.ServiceAccountID())
}

func (s *GateSuite) TestMiddlewareRejectsWithProblem() {
	h := s.gate.Middleware(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Fail("handler must not run")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("", ""))
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Contains(rr.Header().Get("WWW-Authenticate"), "Bearer")

	var problem httpx.ProblemDetail
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &problem))
	s.Equal(httpx.CodeUnauthorized, problem.Code)
}

func (s *GateSuite) TestPageMiddlewareRedirectsToLogin() {
	h := s.gate.PageMiddleware(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/posts?page=2", nil)
	h.ServeHTTP(rr, req)
	s.Equal(http.StatusSeeOther, rr.Code)
	s.Equal(auth.LoginPath+"?next=%2Fadmin%2Fposts%3Fpage%3D2", rr.Header().Get("Location"))
}

func (s *GateSuite) TestPageMiddlewareRejectsBearerTokens() {
	h := s.gate.PageMiddleware(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Fail("admin page must not run for a bearer principal")
	}))
	form := strings.NewReader("name=escalate&scopes=" + auth.ScopeAdminFull)
	req := httptest.NewRequest(http.MethodPost, "/admin/service-accounts", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.token)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	s.Equal(http.StatusForbidden, rr.Code)
	s.NotContains(rr.Body.String(), "sa_")
}

func (s *GateSuite) TestPageMiddlewareAdmitsAdminSession() {
	var seen auth.Principal
	h := s.gate.PageMiddleware(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("admin@inkwell.test", ""))
	s.Equal(http.StatusNoContent, rr.Code)
	s.Equal(auth.MethodSession, seen.Method())
}

func (s *GateSuite) TestScopeMiddleware() {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rr := httptest.NewRecorder()
	s.gate.Middleware()(auth.ScopeMiddleware(auth.ScopePostsWrite)(ok)).ServeHTTP(rr, s.request("", "Bearer "+s.token))
	s.Equal(http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	s.gate.Middleware()(auth.ScopeMiddleware(auth.ScopePostsRead)(ok)).ServeHTTP(rr, s.request("", "Bearer "+s.token))
	s.Equal(http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	s.gate.Middleware()(auth.ScopeMiddleware(auth.ScopeUsersRead)(ok)).ServeHTTP(rr, s.request("reader@inkwell.test", ""))
	s.Equal(http.StatusNoContent, rr.Code, "session principals are governed by role only")
}

func TestRequireScope(t *testing.T) {
	reader := auth.NewBearerPrincipal("u", "u@x.test", auth.RoleReader, "sa", []string{auth.ScopePostsRead})
	admin := auth.NewBearerPrincipal("u", "u@x.test", auth.RoleAdmin, "sa", []string{auth.ScopeAdminFull})

	assert.NoError(t, auth.RequireScope(reader, auth.ScopePostsRead))
	err := auth.RequireScope(reader, auth.ScopePostsDelete)
	var forbidden *auth.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "insufficient scope: posts:delete required", err.Error())

	for _, scope := range auth.AllowedScopes() {
		assert.NoError(t, auth.RequireScope(admin, scope))
	}
}

func TestCheckRole(t *testing.T) {
	reader := auth.NewSessionPrincipal("u", "u@x.test", auth.RoleReader)
	assert.NoError(t, auth.CheckRole(reader))
	assert.NoError(t, auth.CheckRole(reader, auth.RoleReader, auth.RoleAdmin))
	assert.EqualError(t, auth.CheckRole(reader, auth.RoleAdmin), "insufficient role: requires one of [ADMIN]")
}
