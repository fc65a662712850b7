package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TimelineParams filters audit_logs. Null text fields match everything.
type TimelineParams struct {
	FromAt pgtype.Timestamptz
	ToAt   pgtype.Timestamptz
	Actor  pgtype.Text
	Entity pgtype.Text
	Action pgtype.Text
}

// WindowParams is TimelineParams plus a page window.
type WindowParams struct {
	TimelineParams
	OffsetRows int32
	LimitRows  int32
}

// PGRepository queries audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineQuery = `SELECT a.occurred_at, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, COALESCE(a.meta->>'method', '')
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id
WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR a.occurred_at < $2)
  AND ($3::text IS NULL OR u.email ILIKE '%' || $3 || '%')
  AND ($4::text IS NULL OR a.entity = $4)
  AND ($5::text IS NULL OR a.action = $5)
ORDER BY a.occurred_at DESC, a.id DESC`

// TimelineWindow returns one page of entries, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery+` LIMIT $6 OFFSET $7`,
		arg.FromAt, arg.ToAt, arg.Actor, arg.Entity, arg.Action, arg.LimitRows, arg.OffsetRows)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRow)
}

// TimelineAll returns every matching entry.
func (r *PGRepository) TimelineAll(ctx context.Context, arg TimelineParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery, arg.FromAt, arg.ToAt, arg.Actor, arg.Entity, arg.Action)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRow)
}

func scanRow(row pgx.CollectableRow) (TimelineRow, error) {
	var t TimelineRow
	err := row.Scan(&t.At, &t.Actor, &t.Action, &t.Entity, &t.EntityID, &t.Method)
	return t, err
}
