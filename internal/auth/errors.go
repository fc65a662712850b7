package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// UnauthorizedError means no identity could be resolved for the request. The message is
// the same whichever authentication method was attempted.
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string   { return "authentication required" }
func (e *UnauthorizedError) HTTPStatus() int { return http.StatusUnauthorized }
func (e *UnauthorizedError) Code() string    { return httpx.CodeUnauthorized }

// ForbiddenError means an identity was resolved but lacks the role or scope required, or
// authenticated by a method the route does not accept.
type ForbiddenError struct {
	Allowed         []Role
	Scope           string
	SessionRequired bool
}

func (e *ForbiddenError) Error() string {
	if e.SessionRequired {
		return "a signed-in browser session is required"
	}
	if e.Scope != "" {
		return fmt.Sprintf("insufficient scope: %s required", e.Scope)
	}
	names := make([]string, 0, len(e.Allowed))
	for _, r := range e.Allowed {
		names = append(names, string(r))
	}
	return fmt.Sprintf("insufficient role: requires one of [%s]", strings.Join(names, ", "))
}

func (e *ForbiddenError) HTTPStatus() int { return http.StatusForbidden }
func (e *ForbiddenError) Code() string    { return httpx.CodeForbidden }

var (
	_ httpx.StatusCoder = (*UnauthorizedError)(nil)
	_ httpx.StatusCoder = (*ForbiddenError)(nil)
)
