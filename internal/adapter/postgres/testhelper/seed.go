package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mothlight/srscore/internal/domain"
)

// SeedGroupConfig inserts a group_configs row with Anki-style default
// parameters and returns the populated domain.GroupConfig.
func SeedGroupConfig(t *testing.T, pool *pgxpool.Pool) domain.GroupConfig {
	t.Helper()
	ctx := context.Background()

	conf := domain.GroupConfig{
		GID: uuid.New(),
		New: domain.NewConf{
			Delays:        []int{1, 10},
			Ints:          [3]int{1, 4, 7},
			InitialFactor: 2500,
			PerDay:        20,
		},
		Lapse: domain.LapseConf{
			Delays:      []int{10},
			Mult:        0,
			Relearn:     true,
			LeechFails:  8,
			LeechAction: domain.LeechActionSuspend,
		},
		Rev: domain.RevConf{
			Ease4:    1.3,
			MinSpace: 1,
			Fuzz:     0.05,
		},
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO group_configs (gid, new_delays, new_ints, new_initial_factor, new_per_day,
			lapse_delays, lapse_mult, lapse_relearn, lapse_leech_fails, lapse_leech_action,
			rev_ease4, rev_min_space, rev_fuzz)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		conf.GID, conf.New.Delays, conf.New.Ints[:], conf.New.InitialFactor, conf.New.PerDay,
		conf.Lapse.Delays, conf.Lapse.Mult, conf.Lapse.Relearn, conf.Lapse.LeechFails, conf.Lapse.LeechAction,
		conf.Rev.Ease4, conf.Rev.MinSpace, conf.Rev.Fuzz,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedGroupConfig insert: %v", err)
	}

	return conf
}

// SeedNewCard inserts a single QueueNew/TypeNew card under gid and returns
// it. due is the new-card sort ordinal.
func SeedNewCard(t *testing.T, pool *pgxpool.Pool, gid uuid.UUID, due int64) domain.Card {
	t.Helper()
	ctx := context.Background()

	card := domain.Card{
		ID:  uuid.New(),
		FID: uuid.New(),
		GID: gid,

		Queue: domain.QueueNew,
		Type:  domain.TypeNew,
		Due:   due,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO cards (id, fid, gid, queue, type, due, ivl, factor, grade, cycles,
			lapses, last_ivl, edue, reps, mod)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, 0, 0, 0, 0, 0, 0)`,
		card.ID, card.FID, card.GID, card.Queue, card.Type, card.Due,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedNewCard insert: %v", err)
	}

	return card
}

// SeedRevCard inserts a single QueueRev/TypeRev card under gid, due on day
// dueDay with the given interval and ease factor.
func SeedRevCard(t *testing.T, pool *pgxpool.Pool, gid uuid.UUID, dueDay int64, ivl, factor int) domain.Card {
	t.Helper()
	ctx := context.Background()

	card := domain.Card{
		ID:  uuid.New(),
		FID: uuid.New(),
		GID: gid,

		Queue:  domain.QueueRev,
		Type:   domain.TypeRev,
		Due:    dueDay,
		Ivl:    ivl,
		Factor: factor,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO cards (id, fid, gid, queue, type, due, ivl, factor, grade, cycles,
			lapses, last_ivl, edue, reps, mod)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, 0, 0, 0, 0)`,
		card.ID, card.FID, card.GID, card.Queue, card.Type, card.Due, card.Ivl, card.Factor,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedRevCard insert: %v", err)
	}

	return card
}
