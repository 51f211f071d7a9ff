package domain

import "github.com/google/uuid"

// Card is one schedulable unit. Queue and Type persist across session resets;
// Due's meaning depends on Queue (see field doc below).
type Card struct {
	ID   uuid.UUID
	FID  uuid.UUID // fact id; cards sharing an FID are siblings
	GID  uuid.UUID // group id, resolves to a GroupConfig

	Queue Queue
	Type  CardType

	// Due is a sort ordinal for Queue=New, a day index for Queue=Rev, and
	// absolute epoch seconds for Queue=Lrn.
	Due int64

	Ivl     int // current review interval, in days
	Factor  int // ease factor in thousandths; floor 1300 whenever set
	Grade   int // 0-based step index within the learning sequence
	Cycles  int // learning loops completed
	Lapses  int // review lapses so far
	LastIvl int // previous Ivl, carried for the review log
	EDue    int64 // pre-lapse due day, restored when a lapsed card re-graduates
	Reps    int   // total answers this card has received

	Mod int64 // last modification time, epoch seconds
}

// IsDue reports whether the card belongs in front of the selector at the
// given moment, per §8's testable invariant 1.
func (c Card) IsDue(now, today int64, collapseTime int64) bool {
	switch c.Queue {
	case QueueLrn:
		return c.Due < now+collapseTime
	case QueueNew:
		return true
	case QueueRev:
		return c.Due <= today
	default:
		return false
	}
}

// ValidFactor reports whether Factor respects the floor invariant. A Factor
// of 0 is allowed, meaning "not yet set" (new cards before first graduation).
func (c Card) ValidFactor() bool {
	return c.Factor == 0 || c.Factor >= 1300
}
