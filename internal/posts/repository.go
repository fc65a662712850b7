package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/platform/db"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

const slugConstraint = "posts_slug_key"

// Repository persists posts and their tag/category associations.
type Repository interface {
	SlugLookup
	ViewStore
	Insert(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Post, error)
	GetBySlug(ctx context.Context, locale, slug string, publishedOnly bool) (*Post, error)
	List(ctx context.Context, filter ListFilter) ([]Post, int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ErrSlugConflict is returned when another post already holds the slug.
var ErrSlugConflict = httpx.Conflict(CodeSlugConflict, "another post already uses this slug")

// FindIDBySlug implements SlugLookup.
func (r *PGRepository) FindIDBySlug(ctx context.Context, slug string) (string, bool, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id::text FROM posts WHERE slug = $1`, slug).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Insert creates the post and its associations in one transaction.
func (r *PGRepository) Insert(ctx context.Context, post *Post) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO posts (id, slug, locale, title, excerpt, content, cover_image, published, published_at, author_id)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
RETURNING created_at, updated_at`,
			post.ID, post.Slug, post.Locale, post.Title, post.Excerpt, post.Content, post.CoverImage, post.Published, post.PublishedAt, post.AuthorID,
		).Scan(&post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			return err
		}
		return connectTerms(ctx, tx, post)
	})
	return mapWriteError(err)
}

// Update rewrites the post's fields and replaces its associations: the existing links
// are cleared, then the new set is connected, creating tags and categories by slug as
// needed. Both steps share one transaction.
func (r *PGRepository) Update(ctx context.Context, post *Post) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, post.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM post_categories WHERE post_id = $1`, post.ID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `UPDATE posts
SET slug = $2, locale = $3, title = $4, excerpt = $5, content = $6, cover_image = NULLIF($7, ''),
    published = $8, published_at = $9, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at, views, author_id::text`,
			post.ID, post.Slug, post.Locale, post.Title, post.Excerpt, post.Content, post.CoverImage, post.Published, post.PublishedAt,
		).Scan(&post.CreatedAt, &post.UpdatedAt, &post.Views, &post.AuthorID)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound()
		}
		if err != nil {
			return err
		}
		return connectTerms(ctx, tx, post)
	})
	return mapWriteError(err)
}

// Delete removes a post; its links cascade.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound()
	}
	return nil
}

// IncrementViews adds one view in a single statement.
func (r *PGRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, id)
	return err
}

const postColumns = `p.id::text, p.slug, p.locale, p.title, p.excerpt, p.content, COALESCE(p.cover_image, ''),
p.published, p.published_at, p.views, p.author_id::text, p.created_at, p.updated_at`

// GetByID fetches a post with its associations.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound()
	}
	return r.getOne(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id)
}

// GetBySlug fetches a post by locale and slug.
func (r *PGRepository) GetBySlug(ctx context.Context, locale, slug string, publishedOnly bool) (*Post, error) {
	return r.getOne(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.locale = $1 AND p.slug = $2 AND (p.published OR NOT $3)`, locale, slug, publishedOnly)
}

func (r *PGRepository) getOne(ctx context.Context, sql string, args ...any) (*Post, error) {
	post, err := scanPost(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, err
	}
	posts := []Post{*post}
	if err := r.loadTerms(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// List returns one page of posts, newest first, and the total matching count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Post, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Locale != "" {
		where = append(where, "p.locale = "+arg(filter.Locale))
	}
	if filter.PublishedOnly {
		where = append(where, "p.published")
	}
	if filter.TagSlug != "" {
		where = append(where, "EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id AND t.slug = "+arg(filter.TagSlug)+")")
	}
	if filter.CategorySlug != "" {
		where = append(where, "EXISTS (SELECT 1 FROM post_categories pc JOIN categories c ON c.id = pc.category_id WHERE pc.post_id = p.id AND c.slug = "+arg(filter.CategorySlug)+")")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + postColumns + ` FROM posts p` + clause +
		` ORDER BY COALESCE(p.published_at, p.created_at) DESC, p.id LIMIT ` + arg(limit) + ` OFFSET ` + arg(filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadTerms(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Slug, &p.Locale, &p.Title, &p.Excerpt, &p.Content, &p.CoverImage,
		&p.Published, &p.PublishedAt, &p.Views, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) loadTerms(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[string]int, len(posts))
	ids := make([]string, 0, len(posts))
	for i := range posts {
		index[posts[i].ID] = i
		ids = append(ids, posts[i].ID)
		posts[i].Tags = []Term{}
		posts[i].Categories = []Term{}
	}

	load := func(sql string, attach func(*Post, Term)) error {
		rows, err := r.pool.Query(ctx, sql, ids)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				postID string
				term   Term
			)
			if err := rows.Scan(&postID, &term.ID, &term.Name, &term.Slug); err != nil {
				return err
			}
			if i, ok := index[postID]; ok {
				attach(&posts[i], term)
			}
		}
		return rows.Err()
	}

	if err := load(`SELECT pt.post_id::text, t.id::text, t.name, t.slug FROM post_tags pt
JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = ANY($1::uuid[]) ORDER BY t.name`,
		func(p *Post, t Term) { p.Tags = append(p.Tags, t) }); err != nil {
		return err
	}
	return load(`SELECT pc.post_id::text, c.id::text, c.name, c.slug FROM post_categories pc
JOIN categories c ON c.id = pc.category_id WHERE pc.post_id = ANY($1::uuid[]) ORDER BY c.name`,
		func(p *Post, t Term) { p.Categories = append(p.Categories, t) })
}

// connectTerms upserts the post's tags and categories by slug and links them.
func connectTerms(ctx context.Context, q db.Querier, post *Post) error {
	for i, term := range post.Tags {
		id, err := upsertTerm(ctx, q, "tags", term)
		if err != nil {
			return fmt.Errorf("posts: upsert tag %q: %w", term.Slug, err)
		}
		post.Tags[i].ID = id
		if _, err := q.Exec(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, post.ID, id); err != nil {
			return err
		}
	}
	for i, term := range post.Categories {
		id, err := upsertTerm(ctx, q, "categories", term)
		if err != nil {
			return fmt.Errorf("posts: upsert category %q: %w", term.Slug, err)
		}
		post.Categories[i].ID = id
		if _, err := q.Exec(ctx, `INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, post.ID, id); err != nil {
			return err
		}
	}
	return nil
}

// upsertTerm returns the id of the term with term.Slug, creating it when absent. table is
// one of the two fixed taxonomy tables.
func upsertTerm(ctx context.Context, q db.Querier, table string, term Term) (string, error) {
	var id string
	err := q.QueryRow(ctx, `INSERT INTO `+table+` (id, name, slug) VALUES ($1, $2, $3)
ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
RETURNING id::text`, uuid.NewString(), term.Name, term.Slug).Scan(&id)
	return id, err
}

func mapWriteError(err error) error {
	if err != nil && db.IsUniqueViolation(err, slugConstraint) {
		return ErrSlugConflict
	}
	return err
}

func notFound() error {
	return httpx.NotFound(httpx.CodePostNotFound, "post not found")
}

var _ Repository = (*PGRepository)(nil)
