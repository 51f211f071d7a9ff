// Package groupconfig implements the scheduler's Config Gateway using
// PostgreSQL. group_configs rows are small and rarely written; every read
// uses a single-row SELECT, no query builder needed.
package groupconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mothlight/srscore/internal/adapter/postgres"
	"github.com/mothlight/srscore/internal/domain"
	"github.com/mothlight/srscore/internal/scheduler"
)

// Repo provides group configuration persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new group config repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ scheduler.ConfigGateway = (*Repo)(nil)

const groupConfigSQL = `
SELECT gid, new_delays, new_ints, new_initial_factor, new_per_day, new_spread, new_order,
       lapse_delays, lapse_mult, lapse_relearn, lapse_leech_fails, lapse_leech_action,
       rev_ease4, rev_min_space, rev_fuzz, rev_order,
       new_today_day, new_today_used,
       max_taken_secs, collapse_time_secs
FROM group_configs
WHERE gid = $1`

// GroupConfig loads a group's scheduling configuration (§4.3).
func (r *Repo) GroupConfig(ctx context.Context, gid uuid.UUID) (domain.GroupConfig, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var (
		conf                       domain.GroupConfig
		newInts                    []int32
		maxTakenSecs, collapseSecs int32
	)
	conf.GID = gid

	err := q.QueryRow(ctx, groupConfigSQL, gid).Scan(
		&conf.GID, &conf.New.Delays, &newInts, &conf.New.InitialFactor, &conf.New.PerDay,
		&conf.New.Spread, &conf.New.Order,
		&conf.Lapse.Delays, &conf.Lapse.Mult, &conf.Lapse.Relearn, &conf.Lapse.LeechFails, &conf.Lapse.LeechAction,
		&conf.Rev.Ease4, &conf.Rev.MinSpace, &conf.Rev.Fuzz, &conf.Rev.Order,
		&conf.NewToday.DayIndex, &conf.NewToday.Used,
		&maxTakenSecs, &collapseSecs,
	)
	if err != nil {
		return domain.GroupConfig{}, mapError(err, "group_config", gid)
	}

	if len(newInts) == 3 {
		conf.New.Ints = [3]int{int(newInts[0]), int(newInts[1]), int(newInts[2])}
	}
	conf.MaxTaken = time.Duration(maxTakenSecs) * time.Second
	conf.CollapseTime = time.Duration(collapseSecs) * time.Second

	return conf, nil
}

const saveNewTodaySQL = `
UPDATE group_configs SET new_today_day = $2, new_today_used = $3 WHERE gid = $1`

// SaveNewToday persists the per-day new-card budget counter (§4.4).
func (r *Repo) SaveNewToday(ctx context.Context, gid uuid.UUID, nt domain.NewToday) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, saveNewTodaySQL, gid, nt.DayIndex, nt.Used)
	if err != nil {
		return mapError(err, "group_config", gid)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("group_config %s: %w", gid, domain.ErrNotFound)
	}
	return nil
}

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
