// Package users lists accounts and manages their roles.
package users

import (
	"time"

	"github.com/inkwell-blog/inkwell/internal/auth"
)

// User represents a user account for management. Password hashes never reach this type.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput describes a new account.
type CreateInput struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"max=100"`
	Password string `validate:"required,min=8"`
	Role     auth.Role
}
