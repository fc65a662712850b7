package auth

import (
	"strings"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// Role is the single authoritative role enum. Other packages consume it and never
// declare their own.
type Role string

const (
	RoleReader Role = "READER"
	RoleAdmin  Role = "ADMIN"
)

// Roles lists every role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleReader, RoleAdmin}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleReader || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ParseRole accepts a role name in any case.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", httpx.BadRequest(httpx.CodeInvalidRole, "role must be one of READER, ADMIN")
	}
	return role, nil
}
