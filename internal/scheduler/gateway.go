package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

// CardRef is the minimal (id, due) pair returned by queue-listing queries.
type CardRef struct {
	ID  uuid.UUID
	Due int64
}

// CardUpdate is the full field set the answer handler writes back after a
// single answerCard call. The scheduler writes it and the matching review
// log row in one transaction through its Transactor (§5).
type CardUpdate struct {
	ID      uuid.UUID
	Queue   domain.Queue
	Type    domain.CardType
	Due     int64
	Ivl     int
	Factor  int
	Grade   int
	Cycles  int
	Lapses  int
	LastIvl int
	EDue    int64
	Reps    int
	Mod     int64
}

// RescheduleUpdate is one row of a reschedCards bulk write (§4.10).
type RescheduleUpdate struct {
	ID  uuid.UUID
	Ivl int
	Due int64
}

// NewCardPlacement is one row of a sortCards reorder (§4.10).
type NewCardPlacement struct {
	ID  uuid.UUID
	Due int64
}

// Gateway is the Card Store Gateway consumer interface (§4.2, §6, §1): the
// scheduler's only path to persistent state. It never builds SQL from
// untrusted input — every method here takes already-typed parameters, and
// concrete adapters are expected to use parameter binding or a query builder
// (never string concatenation) to satisfy that contract.
type Gateway interface {
	CountNew(ctx context.Context, groups []uuid.UUID, limit int) (int, error)
	ListNew(ctx context.Context, groups []uuid.UUID, limit int) ([]CardRef, error)

	CountLrn(ctx context.Context, groups []uuid.UUID, before int64, limit int) (int, error)
	ListLrn(ctx context.Context, groups []uuid.UUID, dayCutoff int64, limit int) ([]CardRef, error)

	CountRev(ctx context.Context, groups []uuid.UUID, today int64, limit int) (int, error)
	ListRev(ctx context.Context, groups []uuid.UUID, today int64, order domain.RevOrder, limit int) ([]uuid.UUID, error)

	// SiblingDues returns the due days of REV-queue cards sharing fid,
	// excluding the card identified by excludeID.
	SiblingDues(ctx context.Context, fid, excludeID uuid.UUID) ([]int64, error)

	GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error)

	// UpdateCard and AppendReviewLog are called together from one answerCard
	// invocation and must be run inside the same transaction by the caller
	// (see internal/adapter/postgres.TxManager).
	UpdateCard(ctx context.Context, u CardUpdate) error
	AppendReviewLog(ctx context.Context, row domain.ReviewLogRow) error

	// Administrative bulk operations (§4.10).
	SuspendCards(ctx context.Context, ids []uuid.UUID, mod int64) error
	UnsuspendCards(ctx context.Context, ids []uuid.UUID, mod int64) error
	BuryFact(ctx context.Context, fid uuid.UUID, mod int64) error
	OnClose(ctx context.Context, mod int64) error
	Unbury(ctx context.Context, groups []uuid.UUID, mod int64) error
	RemoveFailed(ctx context.Context, ids []uuid.UUID, mod int64) error
	ForgetCards(ctx context.Context, ids []uuid.UUID, mod int64) error
	MaxNewDue(ctx context.Context) (int64, error)
	RescheduleCards(ctx context.Context, updates []RescheduleUpdate, mod int64) error

	// NewCardFIDs returns the distinct fact ids, in fid order, for cards of
	// type=New among ids — used by sortCards.
	NewCardFIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	// MinNewDueFrom returns the smallest due >= from among type=New cards not
	// in excludeIDs, or nil if none exist.
	MinNewDueFrom(ctx context.Context, excludeIDs []uuid.UUID, from int64) (*int64, error)
	// ShiftNewCardsDue adds shiftBy to due for type=New cards not in
	// excludeIDs whose due >= from.
	ShiftNewCardsDue(ctx context.Context, excludeIDs []uuid.UUID, from, shiftBy, mod int64) error
	// PlaceNewCards assigns an explicit due to each listed card.
	PlaceNewCards(ctx context.Context, placements []NewCardPlacement, mod int64) error

	// EnsureCardsIndex drops ix_cards_multi if present and recreates it over
	// the given columns (§6); repeated calls leave the same index.
	EnsureCardsIndex(ctx context.Context, columns []string) error
}

// ConfigGateway resolves and persists per-group configuration (§4.3).
type ConfigGateway interface {
	GroupConfig(ctx context.Context, gid uuid.UUID) (domain.GroupConfig, error)
	SaveNewToday(ctx context.Context, gid uuid.UUID, nt domain.NewToday) error
}
