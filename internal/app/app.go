package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mothlight/srscore/internal/adapter/postgres"
	"github.com/mothlight/srscore/internal/adapter/postgres/card"
	"github.com/mothlight/srscore/internal/adapter/postgres/groupconfig"
	"github.com/mothlight/srscore/internal/config"
	"github.com/mothlight/srscore/internal/scheduler"
)

// Deps bundles the wired dependencies every schedcli subcommand needs: a
// loaded config, a logger, a connection pool, and the two Postgres gateways
// the scheduler core talks to (§4.2, §4.3). There is no HTTP/GraphQL layer
// here — the scheduler is a library driven by a CLI, not a server.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger

	Pool  *pgxpool.Pool
	Cards *card.Repo
	Confs *groupconfig.Repo
	TxMgr *postgres.TxManager
}

// Bootstrap loads configuration, connects to PostgreSQL, and wires the
// Card Store Gateway and Config Resolver adapters. Callers must Close() the
// returned Deps once done.
func Bootstrap(ctx context.Context) (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting schedcli",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info("database connected", slog.Int("max_conns", int(cfg.Database.MaxConns)))

	return &Deps{
		Config: cfg,
		Logger: logger,
		Pool:   pool,
		Cards:  card.New(pool),
		Confs:  groupconfig.New(pool),
		TxMgr:  postgres.NewTxManager(pool),
	}, nil
}

// Close releases the connection pool.
func (d *Deps) Close() {
	d.Pool.Close()
}

// NewScheduler builds a study session scheduler over the given groups
// (empty means all groups, §4.2), using the system clock and the
// configured deck creation epoch (§4.1).
func (d *Deps) NewScheduler(groups []uuid.UUID) *scheduler.Scheduler {
	return scheduler.NewScheduler(
		d.Cards, d.Confs, scheduler.SystemClock{}, d.TxMgr,
		groups, d.Config.Scheduler.DeckCreationEpoch,
	)
}
