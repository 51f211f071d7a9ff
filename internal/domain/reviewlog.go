package domain

import "github.com/google/uuid"

// ReviewLogRow is one append-only review log entry. TimeMS is the primary
// key; on collision the writer sleeps 10ms and retries once (§4.9).
type ReviewLogRow struct {
	TimeMS  int64
	CardID  uuid.UUID
	Ease    Ease
	// Ivl is positive days for review outcomes, negative seconds for
	// learning outcomes.
	Ivl      int
	LastIvl  int
	Factor   int
	TakenMS  int64
	LogType  LogType
}
