package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/db"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// ErrEmailTaken is returned when an account with the same email exists.
var ErrEmailTaken = httpx.Conflict(httpx.CodeConflict, "email is already registered")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, email, name, role, is_active, created_at, updated_at
FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
		return u, err
	})
}

// SetRole updates a user's role and reports whether the user exists.
func (r *Repository) SetRole(ctx context.Context, id string, role auth.Role) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CreateUser inserts an account with an already hashed password.
func (r *Repository) CreateUser(ctx context.Context, u *User, passwordHash string) error {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := r.pool.QueryRow(ctx, `INSERT INTO users (id, email, name, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5, TRUE)
RETURNING is_active, created_at, updated_at`,
		u.ID, u.Email, u.Name, passwordHash, string(u.Role),
	).Scan(&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	return err
}
