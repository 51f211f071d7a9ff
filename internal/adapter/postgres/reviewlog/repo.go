// Package reviewlog implements the scheduler's Review Log Writer gateway
// using PostgreSQL. The review_logs table is append-only (§4.9); this
// package exposes only AppendReviewLog and the read paths a review history view
// would need, no Update.
package reviewlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mothlight/srscore/internal/adapter/postgres"
	"github.com/mothlight/srscore/internal/domain"
)

// Repo provides review log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new review log repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

const createSQL = `
INSERT INTO review_logs (time_ms, card_id, ease, ivl, last_ivl, factor, taken_ms, log_type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// AppendReviewLog inserts one immutable row. time_ms is the primary key; a
// collision surfaces as domain.ErrAlreadyExists so the scheduler's writer can
// restamp and retry (§4.9).
func (r *Repo) AppendReviewLog(ctx context.Context, row domain.ReviewLogRow) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	_, err := q.Exec(ctx, createSQL, row.TimeMS, row.CardID, row.Ease, row.Ivl,
		row.LastIvl, row.Factor, row.TakenMS, row.LogType)
	if err != nil {
		return mapError(err, "review_log", row.CardID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

const getByCardIDSQL = `
SELECT time_ms, card_id, ease, ivl, last_ivl, factor, taken_ms, log_type
FROM review_logs
WHERE card_id = $1
ORDER BY time_ms DESC
LIMIT $2`

// GetByCardID returns a card's review history, most recent first.
func (r *Repo) GetByCardID(ctx context.Context, cardID uuid.UUID, limit int) ([]domain.ReviewLogRow, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx, getByCardIDSQL, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("get review_logs for card %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLogRow
	for rows.Next() {
		var row domain.ReviewLogRow
		if err := rows.Scan(&row.TimeMS, &row.CardID, &row.Ease, &row.Ivl,
			&row.LastIvl, &row.Factor, &row.TakenMS, &row.LogType); err != nil {
			return nil, fmt.Errorf("scan review_log: %w", err)
		}
		logs = append(logs, row)
	}
	return logs, rows.Err()
}

const countTodaySQL = `
SELECT count(*) FROM review_logs WHERE time_ms >= $1`

// CountSince returns the number of review log rows at or after sinceMS, used
// to report reviews-done-today against a group's report limit.
func (r *Repo) CountSince(ctx context.Context, sinceMS int64) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	var count int
	if err := q.QueryRow(ctx, countTodaySQL, sinceMS).Scan(&count); err != nil {
		return 0, fmt.Errorf("count review_logs since %d: %w", sinceMS, err)
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrAlreadyExists)
		case "23503":
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case "23514":
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}
