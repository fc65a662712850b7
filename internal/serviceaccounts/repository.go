package serviceaccounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/auth"
)

// Repository persists service accounts.
type Repository interface {
	auth.CredentialStore
	Insert(ctx context.Context, sa *ServiceAccount) error
	List(ctx context.Context) ([]ServiceAccount, error)
	Get(ctx context.Context, id string) (*ServiceAccount, bool, error)
	// Revoke flips revoked to true. It reports false when the account is missing or was
	// already revoked.
	Revoke(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id::text, name, COALESCE(description, ''), token_hash, scopes, revoked, last_used_at, created_by_id::text, created_at, updated_at`

// Insert stores a new account.
func (r *PGRepository) Insert(ctx context.Context, sa *ServiceAccount) error {
	return r.pool.QueryRow(ctx, `INSERT INTO service_accounts (id, name, description, token_hash, scopes, revoked, created_by_id)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, FALSE, $6)
RETURNING created_at, updated_at`,
		sa.ID, sa.Name, sa.Description, sa.TokenHash, sa.Scopes, sa.CreatedByID,
	).Scan(&sa.CreatedAt, &sa.UpdatedAt)
}

// List returns every account, newest first.
func (r *PGRepository) List(ctx context.Context) ([]ServiceAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM service_accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAccount)
}

// Get fetches one account.
func (r *PGRepository) Get(ctx context.Context, id string) (*ServiceAccount, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM service_accounts WHERE id = $1`, id)
	if err != nil {
		return nil, false, err
	}
	sa, err := pgx.CollectOneRow(rows, scanAccount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &sa, true, nil
}

// Revoke is conditional on the account still being active, so of two concurrent
// revocations exactly one succeeds.
func (r *PGRepository) Revoke(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `UPDATE service_accounts SET revoked = TRUE, updated_at = NOW() WHERE id = $1 AND revoked = FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes an account permanently.
func (r *PGRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM service_accounts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListActiveCredentials implements auth.CredentialStore.
func (r *PGRepository) ListActiveCredentials(ctx context.Context) ([]auth.Credential, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, token_hash, scopes, created_by_id::text, revoked
FROM service_accounts WHERE revoked = FALSE ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.Credential, error) {
		var c auth.Credential
		err := row.Scan(&c.ServiceAccountID, &c.Name, &c.TokenHash, &c.Scopes, &c.CreatedByID, &c.Revoked)
		return c, err
	})
}

// TouchLastUsed implements auth.CredentialStore.
func (r *PGRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE service_accounts SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

func scanAccount(row pgx.CollectableRow) (ServiceAccount, error) {
	var sa ServiceAccount
	err := row.Scan(&sa.ID, &sa.Name, &sa.Description, &sa.TokenHash, &sa.Scopes, &sa.Revoked,
		&sa.LastUsedAt, &sa.CreatedByID, &sa.CreatedAt, &sa.UpdatedAt)
	return sa, err
}

var _ Repository = (*PGRepository)(nil)
