package auth

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// Service-account scopes.
const (
	ScopePostsRead   = "posts:read"
	ScopePostsWrite  = "posts:write"
	ScopePostsDelete = "posts:delete"
	ScopeTagsRead    = "tags:read"
	ScopeTagsWrite   = "tags:write"
	ScopeUsersRead   = "users:read"
	ScopeAdminFull   = "admin:full"
)

var allowedScopes = []string{
	ScopePostsRead,
	ScopePostsWrite,
	ScopePostsDelete,
	ScopeTagsRead,
	ScopeTagsWrite,
	ScopeUsersRead,
	ScopeAdminFull,
}

// AllowedScopes returns the fixed scope allow-list.
func AllowedScopes() []string {
	return slices.Clone(allowedScopes)
}

// IsAllowedScope reports whether scope is on the allow-list.
func IsAllowedScope(scope string) bool {
	return slices.Contains(allowedScopes, scope)
}

// NormalizeScopes validates requested scopes against the allow-list and returns them
// de-duplicated in first-seen order. Blank entries are not on the allow-list either.
func NormalizeScopes(requested []string) ([]string, error) {
	out := make([]string, 0, len(requested))
	var unknown []string
	for _, raw := range requested {
		scope := strings.TrimSpace(raw)
		if !IsAllowedScope(scope) {
			unknown = append(unknown, strconv.Quote(scope))
			continue
		}
		if !slices.Contains(out, scope) {
			out = append(out, scope)
		}
	}
	if len(unknown) > 0 {
		return nil, httpx.BadRequest(httpx.CodeInvalidInput, fmt.Sprintf("unknown scopes: %s", strings.Join(unknown, ", ")))
	}
	if len(out) == 0 {
		return nil, httpx.BadRequest(httpx.CodeMissingRequiredField, "at least one scope is required")
	}
	return out, nil
}
