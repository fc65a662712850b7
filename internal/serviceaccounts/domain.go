// Package serviceaccounts manages long-lived API credentials owned by admin users.
package serviceaccounts

import "time"

// Error codes specific to service accounts.
const (
	CodeNotFound       = "SERVICE_ACCOUNT_NOT_FOUND"
	CodeAlreadyRevoked = "ALREADY_REVOKED"
)

// ServiceAccount is a non-human credential. The token itself is never stored; TokenHash
// is written once at creation and never leaves the process.
type ServiceAccount struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	TokenHash   string     `json:"-"`
	Scopes      []string   `json:"scopes"`
	Revoked     bool       `json:"revoked"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	CreatedByID string     `json:"createdById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateInput is the payload for a new service account. Scopes are checked against the
// allow-list separately.
type CreateInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Scopes      []string `json:"scopes"`
}

// Created carries the plaintext token. It is returned by Create only and cannot be
// produced again.
type Created struct {
	Account   ServiceAccount `json:"serviceAccount"`
	Token     string         `json:"token"`
	ShownOnce bool           `json:"shownOnce"`
}
