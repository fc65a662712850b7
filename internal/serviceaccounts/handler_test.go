package serviceaccounts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/serviceaccounts"
)

type owners struct{ active bool }

func (o owners) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return nil, httpx.ErrNotFound
}

func (o owners) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return &auth.User{ID: id, Email: id + "@inkwell.test", Role: auth.RoleAdmin, IsActive: o.active}, nil
}

func newAPI(t *testing.T) (http.Handler, *serviceaccounts.Service) {
	t.Helper()
	repo := newMemoryRepo()
	svc, codec := newService(repo, nil)
	gate := auth.NewGate(nil, auth.NewBearerResolver(repo, codec, nil), owners{active: true}, nil)
	handler := serviceaccounts.NewHandler(nil, svc, nil, nil, gate)

	r := chi.NewRouter()
	r.Route("/api/admin/service-accounts", handler.MountAPI)
	return r, svc
}

func call(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRevokedTokenStopsAuthenticating(t *testing.T) {
	router, svc := newAPI(t)
	ctx := context.Background()

	root, err := svc.Create(ctx, admin, serviceaccounts.CreateInput{Name: "root", Scopes: []string{auth.ScopeAdminFull}})
	require.NoError(t, err)

	rr := call(router, http.MethodGet, "/api/admin/service-accounts", root.Token, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), root.Token)

	require.NoError(t, svc.Revoke(ctx, admin, root.Account.ID))

	rr = call(router, http.MethodGet, "/api/admin/service-accounts", root.Token, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServiceAccountAPIRequiresAdminFull(t *testing.T) {
	router, svc := newAPI(t)
	ctx := context.Background()

	reader, err := svc.Create(ctx, admin, serviceaccounts.CreateInput{Name: "reader", Scopes: []string{auth.ScopePostsRead}})
	require.NoError(t, err)

	rr := call(router, http.MethodGet, "/api/admin/service-accounts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = call(router, http.MethodGet, "/api/admin/service-accounts", reader.Token, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestServiceAccountAPILifecycle(t *testing.T) {
	router, svc := newAPI(t)
	root, err := svc.Create(context.Background(), admin, serviceaccounts.CreateInput{Name: "root", Scopes: []string{auth.ScopeAdminFull}})
	require.NoError(t, err)

	rr := call(router, http.MethodPost, "/api/admin/service-accounts", root.Token, `{"name":"ci","scopes":["posts:read"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	var body struct {
		Data serviceaccounts.Created `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, auth.IsValidFormat(body.Data.Token))
	assert.Equal(t, "admin-1", body.Data.Account.CreatedByID)
	id := body.Data.Account.ID

	rr = call(router, http.MethodPost, "/api/admin/service-accounts", root.Token, `{"name":"ci","scopes":["nope"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(router, http.MethodPost, "/api/admin/service-accounts/"+id+"/revoke", root.Token, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = call(router, http.MethodPost, "/api/admin/service-accounts/"+id+"/revoke", root.Token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), serviceaccounts.CodeAlreadyRevoked)

	rr = call(router, http.MethodDelete, "/api/admin/service-accounts/"+id, root.Token, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = call(router, http.MethodDelete, "/api/admin/service-accounts/"+id, root.Token, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), serviceaccounts.CodeNotFound)
}
