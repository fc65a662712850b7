package posts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/posts"
)

type tokenStore struct {
	creds []auth.Credential
}

func (s *tokenStore) ListActiveCredentials(context.Context) ([]auth.Credential, error) {
	return s.creds, nil
}

func (s *tokenStore) TouchLastUsed(context.Context, string, time.Time) error { return nil }

type ownerStore struct{}

func (ownerStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return nil, httpx.ErrNotFound
}

func (ownerStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return &auth.User{ID: id, Email: id + "@inkwell.test", Role: auth.RoleAdmin, IsActive: true}, nil
}

type apiFixture struct {
	router http.Handler
	repo   *memoryRepo
	tokens map[string]string
}

func newAPIFixture(t *testing.T, scopesByName map[string][]string) *apiFixture {
	t.Helper()
	codec := auth.NewTokenCodec(bcrypt.MinCost, nil)
	store := &tokenStore{}
	tokens := make(map[string]string)
	for name, scopes := range scopesByName {
		gen, err := codec.Generate()
		require.NoError(t, err)
		tokens[name] = gen.Token
		store.creds = append(store.creds, auth.Credential{ServiceAccountID: name, Name: name, TokenHash: gen.Hash, Scopes: scopes, CreatedByID: "admin-1"})
	}
	gate := auth.NewGate(nil, auth.NewBearerResolver(store, codec, nil), ownerStore{}, nil)
	repo := newMemoryRepo()
	handler := posts.NewHandler(posts.HandlerConfig{Service: newService(repo, nil), Gate: gate, Locales: []string{"en", "es"}})

	r := chi.NewRouter()
	r.Route("/api/posts", handler.MountAPI)
	return &apiFixture{router: r, repo: repo, tokens: tokens}
}

func (f *apiFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func problemCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return problem.Code
}

func TestPostAPIScopes(t *testing.T) {
	f := newAPIFixture(t, map[string][]string{
		"reader": {auth.ScopePostsRead},
		"writer": {auth.ScopePostsRead, auth.ScopePostsWrite},
		"root":   {auth.ScopeAdminFull},
	})

	rr := f.do(http.MethodGet, "/api/posts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, httpx.CodeUnauthorized, problemCode(t, rr))

	rr = f.do(http.MethodPost, "/api/posts", f.tokens["reader"], `{"title":"Hello","content":"x","published":true}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, httpx.CodeForbidden, problemCode(t, rr))

	rr = f.do(http.MethodPost, "/api/posts", f.tokens["writer"], `{"title":"Hello","content":"x","published":true}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Data posts.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "hello", created.Data.Slug)

	rr = f.do(http.MethodGet, "/api/posts?locale=en", f.tokens["reader"], "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"slug":"hello"`)

	rr = f.do(http.MethodDelete, "/api/posts/"+created.Data.ID, f.tokens["writer"], "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(http.MethodDelete, "/api/posts/"+created.Data.ID, f.tokens["root"], "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(http.MethodGet, "/api/posts/"+created.Data.ID, f.tokens["root"], "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, httpx.CodePostNotFound, problemCode(t, rr))
}

func TestPostAPIValidation(t *testing.T) {
	f := newAPIFixture(t, map[string][]string{"root": {auth.ScopeAdminFull}})

	rr := f.do(http.MethodPost, "/api/posts", f.tokens["root"], `{"content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, httpx.CodeMissingRequiredField, problemCode(t, rr))

	rr = f.do(http.MethodPost, "/api/posts", f.tokens["root"], `{"title":"x","content":"y","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, httpx.CodeInvalidInput, problemCode(t, rr))

	rr = f.do(http.MethodGet, "/api/posts?locale=fr", f.tokens["root"], "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPostAPIUpdateKeepsSlug(t *testing.T) {
	f := newAPIFixture(t, map[string][]string{"root": {auth.ScopeAdminFull}})

	rr := f.do(http.MethodPost, "/api/posts", f.tokens["root"], `{"title":"My Post","content":"v1","tags":["go"]}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Data posts.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = f.do(http.MethodPut, "/api/posts/"+created.Data.ID, f.tokens["root"], `{"title":"My Post","content":"v2","tags":["rust"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated struct {
		Data posts.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "my-post", updated.Data.Slug)
	assert.Equal(t, "rust", updated.Data.Tags[0].Slug)
}
