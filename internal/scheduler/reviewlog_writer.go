package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mothlight/srscore/internal/domain"
)

// writeReviewLog appends one immutable row (§4.9). TimeMS doubles as the
// primary key; on a collision (another write landed in the same
// millisecond) the writer sleeps 10ms, restamps, and retries exactly once.
func (s *Scheduler) writeReviewLog(ctx context.Context, row domain.ReviewLogRow) error {
	row.TimeMS = s.clock.Now().UnixMilli()
	if err := s.gw.AppendReviewLog(ctx, row); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("write review log: %w: %v", domain.ErrStorageError, err)
	}

	time.Sleep(10 * time.Millisecond)
	row.TimeMS = s.clock.Now().UnixMilli()
	if err := s.gw.AppendReviewLog(ctx, row); err != nil {
		return fmt.Errorf("write review log: %w: %v", domain.ErrLogWriteConflict, err)
	}
	return nil
}

// takenMS caps a card's elapsed-answer duration at the group's configured
// maximum (§4.9).
func takenMS(elapsed time.Duration, maxTaken time.Duration) int64 {
	if elapsed > maxTaken {
		return maxTaken.Milliseconds()
	}
	return elapsed.Milliseconds()
}
