package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewConf holds new-card scheduling parameters for a group.
type NewConf struct {
	// Delays are learning-step delays, in minutes, smallest step first.
	Delays []int
	// Ints is [graduateIvl, firstTimeBonusIvl, earlyRemoveIvl], in days.
	Ints [3]int
	// InitialFactor is the ease factor (thousandths) assigned at graduation.
	InitialFactor int
	// PerDay bounds how many new cards may be introduced in a calendar day.
	PerDay int
	Spread NewSpread
	Order  NewTodayOrder
}

// LapseConf holds relearning and leech parameters for a group.
type LapseConf struct {
	// Delays are relearning-step delays, in minutes.
	Delays []int
	// Mult is applied to the old Ivl when a review card lapses.
	Mult float64
	// Relearn, when true, pushes a lapsed card back into the learning queue.
	Relearn bool
	// LeechFails is the lapse-count threshold that starts leech checks.
	LeechFails int
	LeechAction LeechAction
}

// RevConf holds review-queue ordering and ease-arithmetic parameters.
type RevConf struct {
	// Ease4 is the bonus multiplier applied on an "easy" review answer.
	Ease4 float64
	// MinSpace and Fuzz bound the sibling-spacing search window (§4.7).
	MinSpace int
	Fuzz     float64
	Order    RevOrder
}

// NewToday tracks the per-day new-card budget already spent for a group.
type NewToday struct {
	DayIndex int64
	Used     int
}

// GroupConfig is the per-group scheduling configuration, cached by GID for
// the lifetime of a session (§4.3).
type GroupConfig struct {
	GID uuid.UUID

	New   NewConf
	Lapse LapseConf
	Rev   RevConf

	NewToday NewToday

	// MaxTaken caps the logged answer duration.
	MaxTaken time.Duration
	// CollapseTime is the threshold under which learning-queue cards are
	// collapsed into the current session tail.
	CollapseTime time.Duration
}
