package taxonomy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/platform/db"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// Repository persists tags and categories.
type Repository interface {
	ListTags(ctx context.Context, locale string) ([]Tag, error)
	ListCategories(ctx context.Context, locale string) ([]Category, error)
	FindTag(ctx context.Context, slug string) (*Tag, error)
	FindCategory(ctx context.Context, slug string) (*Category, error)
	InsertTag(ctx context.Context, tag *Tag) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListTags returns every tag with its published post count in locale.
func (r *PGRepository) ListTags(ctx context.Context, locale string) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id::text, t.name, t.slug, COUNT(p.id)
FROM tags t
LEFT JOIN post_tags pt ON pt.tag_id = t.id
LEFT JOIN posts p ON p.id = pt.post_id AND p.published AND p.locale = $1
GROUP BY t.id
ORDER BY COUNT(p.id) DESC, t.name`, locale)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Tag, error) {
		var t Tag
		err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.PostCount)
		return t, err
	})
}

// ListCategories returns every category with its published post count in locale.
func (r *PGRepository) ListCategories(ctx context.Context, locale string) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id::text, c.name, c.slug, c.description, COUNT(p.id)
FROM categories c
LEFT JOIN post_categories pc ON pc.category_id = c.id
LEFT JOIN posts p ON p.id = pc.post_id AND p.published AND p.locale = $1
GROUP BY c.id
ORDER BY c.name`, locale)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.PostCount)
		return c, err
	})
}

// FindTag fetches a tag by slug.
func (r *PGRepository) FindTag(ctx context.Context, slug string) (*Tag, error) {
	var t Tag
	err := r.pool.QueryRow(ctx, `SELECT id::text, name, slug FROM tags WHERE slug = $1`, slug).Scan(&t.ID, &t.Name, &t.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound(httpx.CodeNotFound, "tag not found")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindCategory fetches a category by slug.
func (r *PGRepository) FindCategory(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id::text, name, slug, description FROM categories WHERE slug = $1`, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound(httpx.CodeNotFound, "category not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertTag creates a tag; a taken slug is a conflict.
func (r *PGRepository) InsertTag(ctx context.Context, tag *Tag) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO tags (id, name, slug) VALUES ($1, $2, $3)`, tag.ID, tag.Name, tag.Slug)
	if db.IsUniqueViolation(err, "tags_slug_key") {
		return httpx.Conflict(httpx.CodeConflict, "a tag with this slug already exists")
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
