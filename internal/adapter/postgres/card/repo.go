// Package card implements the scheduler's Card Store Gateway using
// PostgreSQL. The group-filtered queue reads (CountNew/ListNew, CountLrn/
// ListLrn, CountRev/ListRev), SuspendCards and Unbury build their SQL with
// squirrel; every other query and update is raw SQL against the pool/tx
// querier.
package card

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mothlight/srscore/internal/adapter/postgres"
	"github.com/mothlight/srscore/internal/adapter/postgres/reviewlog"
	"github.com/mothlight/srscore/internal/domain"
	"github.com/mothlight/srscore/internal/scheduler"
)

// Repo provides scheduler.Gateway persistence backed by PostgreSQL. It
// composes the review log writer so one Repo satisfies the full Gateway
// contract, letting UpdateCard and AppendReviewLog share a transaction via
// the caller's postgres.TxManager (§5).
type Repo struct {
	pool *pgxpool.Pool
	log  *reviewlog.Repo
}

// New creates a new card repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, log: reviewlog.New(pool)}
}

// AppendReviewLog delegates to the review log writer so callers only need
// the card Gateway to satisfy scheduler.Gateway in full.
func (r *Repo) AppendReviewLog(ctx context.Context, row domain.ReviewLogRow) error {
	return r.log.AppendReviewLog(ctx, row)
}

var _ scheduler.Gateway = (*Repo)(nil)

const cardColumns = `id, fid, gid, queue, type, due, ivl, factor, grade, cycles,
       lapses, last_ivl, edue, reps, mod`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

func (r *Repo) CountNew(ctx context.Context, groups []uuid.UUID, limit int) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	builder := sq.Select("count(*)").From("cards").Where(sq.Eq{"queue": domain.QueueNew}).
		PlaceholderFormat(sq.Dollar)
	builder = applyGroupFilter(builder, groups)
	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("count new cards: %w", err)
	}
	var count int
	if err := q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count new cards: %w", err)
	}
	if count > limit {
		count = limit
	}
	return count, nil
}

func (r *Repo) ListNew(ctx context.Context, groups []uuid.UUID, limit int) ([]scheduler.CardRef, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	builder := sq.Select("id", "due").From("cards").Where(sq.Eq{"queue": domain.QueueNew}).
		OrderBy("due ASC").Limit(uint64(limit)).PlaceholderFormat(sq.Dollar)
	builder = applyGroupFilter(builder, groups)
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list new cards: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list new cards: %w", err)
	}
	defer rows.Close()
	return scanCardRefs(rows)
}

func (r *Repo) CountLrn(ctx context.Context, groups []uuid.UUID, before int64, limit int) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	builder := sq.Select("count(*)").From("cards").
		Where(sq.Eq{"queue": domain.QueueLrn}).Where(sq.Lt{"due": before}).
		PlaceholderFormat(sq.Dollar)
	builder = applyGroupFilter(builder, groups)
	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("count learning cards: %w", err)
	}
	var count int
	if err := q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count learning cards: %w", err)
	}
	if count > limit {
		count = limit
	}
	return count, nil
}

func (r *Repo) ListLrn(ctx context.Context, groups []uuid.UUID, dayCutoff int64, limit int) ([]scheduler.CardRef, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	builder := sq.Select("id", "due").From("cards").
		Where(sq.Eq{"queue": domain.QueueLrn}).Where(sq.Lt{"due": dayCutoff}).
		OrderBy("due ASC").Limit(uint64(limit)).PlaceholderFormat(sq.Dollar)
	builder = applyGroupFilter(builder, groups)
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list learning cards: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list learning cards: %w", err)
	}
	defer rows.Close()
	return scanCardRefs(rows)
}

func (r *Repo) CountRev(ctx context.Context, groups []uuid.UUID, today int64, limit int) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	builder := sq.Select("count(*)").From("cards").
		Where(sq.Eq{"queue": domain.QueueRev}).Where(sq.LtOrEq{"due": today}).
		PlaceholderFormat(sq.Dollar)
	builder = applyGroupFilter(builder, groups)
	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("count review cards: %w", err)
	}
	var count int
	if err := q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count review cards: %w", err)
	}
	if count > limit {
		count = limit
	}
	return count, nil
}

func (r *Repo) ListRev(ctx context.Context, groups []uuid.UUID, today int64, order domain.RevOrder, limit int) ([]uuid.UUID, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	builder := sq.Select("id").From("cards").
		Where(sq.Eq{"queue": domain.QueueRev}).Where(sq.LtOrEq{"due": today}).
		Limit(uint64(limit)).PlaceholderFormat(sq.Dollar)
	builder = applyGroupFilter(builder, groups)

	switch order {
	case domain.RevOrderNewFirst:
		builder = builder.OrderBy("ivl ASC", "due ASC")
	case domain.RevOrderOldFirst:
		builder = builder.OrderBy("ivl DESC", "due ASC")
	default: // DUE, RANDOM: the latter is shuffled in memory by the scheduler
		builder = builder.OrderBy("due ASC")
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list review cards: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list review cards: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan review card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repo) SiblingDues(ctx context.Context, fid, excludeID uuid.UUID) ([]int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `SELECT due FROM cards WHERE fid = $1 AND id != $2 AND queue = $3`
	rows, err := q.Query(ctx, query, fid, excludeID, domain.QueueRev)
	if err != nil {
		return nil, fmt.Errorf("sibling dues for fact %s: %w", fid, err)
	}
	defer rows.Close()

	var dues []int64
	for rows.Next() {
		var due int64
		if err := rows.Scan(&due); err != nil {
			return nil, fmt.Errorf("scan sibling due: %w", err)
		}
		dues = append(dues, due)
	}
	return dues, rows.Err()
}

func (r *Repo) GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	c, err := scanCard(row)
	if err != nil {
		return domain.Card{}, mapError(err, "card", id)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

func (r *Repo) UpdateCard(ctx context.Context, u scheduler.CardUpdate) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `UPDATE cards SET queue=$2, type=$3, due=$4, ivl=$5, factor=$6,
		grade=$7, cycles=$8, lapses=$9, last_ivl=$10, edue=$11, reps=$12, mod=$13
		WHERE id=$1`
	tag, err := q.Exec(ctx, query, u.ID, u.Queue, u.Type, u.Due, u.Ivl, u.Factor,
		u.Grade, u.Cycles, u.Lapses, u.LastIvl, u.EDue, u.Reps, u.Mod)
	if err != nil {
		return mapError(err, "card", u.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", u.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *Repo) SuspendCards(ctx context.Context, ids []uuid.UUID, mod int64) error {
	return r.bulkUpdate(ctx, ids, sq.Eq{"queue": domain.QueueSuspended, "mod": mod})
}

func (r *Repo) UnsuspendCards(ctx context.Context, ids []uuid.UUID, mod int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `UPDATE cards SET queue = type, mod = $2
		WHERE id = ANY($1) AND queue = $3`
	_, err := q.Exec(ctx, query, ids, mod, domain.QueueSuspended)
	if err != nil {
		return mapError(err, "cards", uuid.Nil)
	}
	return nil
}

func (r *Repo) BuryFact(ctx context.Context, fid uuid.UUID, mod int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `UPDATE cards SET queue = $2, mod = $3 WHERE fid = $1`
	_, err := q.Exec(ctx, query, fid, domain.QueueBuried, mod)
	if err != nil {
		return mapError(err, "fact", fid)
	}
	return nil
}

func (r *Repo) OnClose(ctx context.Context, mod int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `UPDATE cards SET queue = type, mod = $1
		WHERE queue IN ($2, $3)`
	_, err := q.Exec(ctx, query, mod, domain.QueueBuried, domain.QueueTempSuspended)
	if err != nil {
		return mapError(err, "cards", uuid.Nil)
	}
	return nil
}

func (r *Repo) Unbury(ctx context.Context, groups []uuid.UUID, mod int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	builder := sq.Update("cards").Set("queue", sq.Expr("type")).Set("mod", mod).
		Where(sq.Eq{"queue": domain.QueueBuried}).PlaceholderFormat(sq.Dollar)
	if len(groups) > 0 {
		builder = builder.Where(sq.Eq{"gid": groups})
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("unbury cards: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "cards", uuid.Nil)
	}
	return nil
}

func (r *Repo) RemoveFailed(ctx context.Context, ids []uuid.UUID, mod int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `UPDATE cards SET due = edue, queue = $3, mod = $4
		WHERE id = ANY($1) AND queue = $2 AND type = $3`
	_, err := q.Exec(ctx, query, ids, domain.QueueLrn, domain.TypeRev, mod)
	if err != nil {
		return mapError(err, "cards", uuid.Nil)
	}
	return nil
}

func (r *Repo) ForgetCards(ctx context.Context, ids []uuid.UUID, mod int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `UPDATE cards SET type = $2, queue = $2, ivl = 0, mod = $3
		WHERE id = ANY($1)`
	_, err := q.Exec(ctx, query, ids, domain.TypeNew, mod)
	if err != nil {
		return mapError(err, "cards", uuid.Nil)
	}
	return nil
}

func (r *Repo) MaxNewDue(ctx context.Context) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	var maxDue *int64
	err := q.QueryRow(ctx, `SELECT max(due) FROM cards WHERE type = $1`, domain.TypeNew).Scan(&maxDue)
	if err != nil {
		return 0, fmt.Errorf("max new due: %w", err)
	}
	if maxDue == nil {
		return 0, nil
	}
	return *maxDue, nil
}

func (r *Repo) RescheduleCards(ctx context.Context, updates []scheduler.RescheduleUpdate, mod int64) error {
	if len(updates) == 0 {
		return nil
	}
	return postgres.NewTxManager(r.pool).RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)
		const query = `UPDATE cards SET type = $2, queue = $2, ivl = $3, due = $4, mod = $5
			WHERE id = $1`
		for _, u := range updates {
			if _, err := q.Exec(ctx, query, u.ID, domain.TypeRev, u.Ivl, u.Due, mod); err != nil {
				return mapError(err, "card", u.ID)
			}
		}
		return nil
	})
}

func (r *Repo) NewCardFIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `SELECT DISTINCT fid FROM cards WHERE id = ANY($1) AND type = $2 ORDER BY fid`
	rows, err := q.Query(ctx, query, ids, domain.TypeNew)
	if err != nil {
		return nil, fmt.Errorf("new card fids: %w", err)
	}
	defer rows.Close()

	var fids []uuid.UUID
	for rows.Next() {
		var fid uuid.UUID
		if err := rows.Scan(&fid); err != nil {
			return nil, fmt.Errorf("scan fid: %w", err)
		}
		fids = append(fids, fid)
	}
	return fids, rows.Err()
}

func (r *Repo) MinNewDueFrom(ctx context.Context, excludeIDs []uuid.UUID, from int64) (*int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `SELECT min(due) FROM cards
		WHERE type = $1 AND due >= $2 AND NOT (id = ANY($3))`
	var min *int64
	if err := q.QueryRow(ctx, query, domain.TypeNew, from, excludeIDs).Scan(&min); err != nil {
		return nil, fmt.Errorf("min new due from %d: %w", from, err)
	}
	return min, nil
}

func (r *Repo) ShiftNewCardsDue(ctx context.Context, excludeIDs []uuid.UUID, from, shiftBy, mod int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	const query = `UPDATE cards SET due = due + $4, mod = $5
		WHERE type = $1 AND due >= $2 AND NOT (id = ANY($3))`
	_, err := q.Exec(ctx, query, domain.TypeNew, from, excludeIDs, shiftBy, mod)
	if err != nil {
		return fmt.Errorf("shift new card due: %w", err)
	}
	return nil
}

func (r *Repo) PlaceNewCards(ctx context.Context, placements []scheduler.NewCardPlacement, mod int64) error {
	if len(placements) == 0 {
		return nil
	}
	return postgres.NewTxManager(r.pool).RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)
		const query = `UPDATE cards SET due = $2, mod = $3 WHERE id = $1`
		for _, p := range placements {
			if _, err := q.Exec(ctx, query, p.ID, p.Due, mod); err != nil {
				return mapError(err, "card", p.ID)
			}
		}
		return nil
	})
}

// EnsureCardsIndex (re)creates ix_cards_multi idempotently over the given
// columns (§6). Postgres has no CREATE INDEX IF NOT EXISTS... MATCHING
// COLUMNS primitive, so a stale index is dropped and recreated rather than
// diffed column-by-column.
func (r *Repo) EnsureCardsIndex(ctx context.Context, columns []string) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := q.Exec(ctx, `DROP INDEX IF EXISTS ix_cards_multi`); err != nil {
		return fmt.Errorf("ensure cards index: %w", err)
	}
	colList := ""
	for i, c := range columns {
		if i > 0 {
			colList += ", "
		}
		colList += pgx.Identifier{c}.Sanitize()
	}
	ddl := fmt.Sprintf("CREATE INDEX ix_cards_multi ON cards (%s)", colList)
	if _, err := q.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure cards index: %w", err)
	}
	return nil
}

func (r *Repo) bulkUpdate(ctx context.Context, ids []uuid.UUID, set sq.Eq) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	sql, args, err := sq.Update("cards").SetMap(set).Where(sq.Eq{"id": ids}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("bulk update cards: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "cards", uuid.Nil)
	}
	return nil
}

func applyGroupFilter(builder sq.SelectBuilder, groups []uuid.UUID) sq.SelectBuilder {
	if len(groups) == 0 {
		return builder
	}
	return builder.Where(sq.Eq{"gid": groups})
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

// rowScanner abstracts pgx.Row and pgx.Rows' shared Scan method.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var c domain.Card
	err := row.Scan(&c.ID, &c.FID, &c.GID, &c.Queue, &c.Type, &c.Due, &c.Ivl, &c.Factor,
		&c.Grade, &c.Cycles, &c.Lapses, &c.LastIvl, &c.EDue, &c.Reps, &c.Mod)
	return c, err
}

func scanCardRefs(rows pgx.Rows) ([]scheduler.CardRef, error) {
	var refs []scheduler.CardRef
	for rows.Next() {
		var ref scheduler.CardRef
		if err := rows.Scan(&ref.ID, &ref.Due); err != nil {
			return nil, fmt.Errorf("scan card ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
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
