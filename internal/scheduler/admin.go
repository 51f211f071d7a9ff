package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

// SuspendCards implements §4.10 suspend: learning-queue cards that are
// mid-relearn (type=REV) are first unwound back to REV before the blanket
// queue:=SUSPENDED write, so resuming never strands a card mid-step.
func (s *Scheduler) SuspendCards(ctx context.Context, ids []uuid.UUID) error {
	mod := s.clock.Now().Unix()
	if err := s.gw.RemoveFailed(ctx, ids, mod); err != nil {
		return fmt.Errorf("suspend cards: %w: %v", domain.ErrStorageError, err)
	}
	if err := s.gw.SuspendCards(ctx, ids, mod); err != nil {
		return fmt.Errorf("suspend cards: %w: %v", domain.ErrStorageError, err)
	}
	return nil
}

// UnsuspendCards implements §4.10 unsuspend: queue := type for SUSPENDED
// cards.
func (s *Scheduler) UnsuspendCards(ctx context.Context, ids []uuid.UUID) error {
	if err := s.gw.UnsuspendCards(ctx, ids, s.clock.Now().Unix()); err != nil {
		return fmt.Errorf("unsuspend cards: %w: %v", domain.ErrStorageError, err)
	}
	return nil
}

// BuryFact implements §4.10 buryFact: every card of the fact moves to
// queue=BURIED, reverting to its persisted type on the next OnClose.
func (s *Scheduler) BuryFact(ctx context.Context, fid uuid.UUID) error {
	if err := s.gw.BuryFact(ctx, fid, s.clock.Now().Unix()); err != nil {
		return fmt.Errorf("bury fact %s: %w: %v", fid, domain.ErrStorageError, err)
	}
	return nil
}

// OnClose implements §4.10: queue := type for every BURIED or
// TEMP_SUSPENDED card, mirroring the original's end-of-session cleanup.
func (s *Scheduler) OnClose(ctx context.Context) error {
	if err := s.gw.OnClose(ctx, s.clock.Now().Unix()); err != nil {
		return fmt.Errorf("close session: %w: %v", domain.ErrStorageError, err)
	}
	return nil
}

// Unbury implements §4.10's mid-session convenience form of OnClose, scoped
// to the given groups.
func (s *Scheduler) Unbury(ctx context.Context, groups []uuid.UUID) error {
	if err := s.gw.Unbury(ctx, groups, s.clock.Now().Unix()); err != nil {
		return fmt.Errorf("unbury cards: %w: %v", domain.ErrStorageError, err)
	}
	return nil
}

// ForgetCards implements §4.10 forgetCards: resets the listed cards to
// type=NEW, queue=NEW, ivl=0, repositioning them after the current maximum
// new-card due. When randomNew is true the cards are shuffled before
// placement; otherwise they are placed in the order ids lists them, which
// is not re-sorted by fid.
func (s *Scheduler) ForgetCards(ctx context.Context, ids []uuid.UUID, randomNew bool) error {
	mod := s.clock.Now().Unix()
	if err := s.gw.ForgetCards(ctx, ids, mod); err != nil {
		return fmt.Errorf("forget cards: %w: %v", domain.ErrStorageError, err)
	}

	maxDue, err := s.gw.MaxNewDue(ctx)
	if err != nil {
		return fmt.Errorf("forget cards: %w: %v", domain.ErrStorageError, err)
	}

	order := append([]uuid.UUID(nil), ids...)
	if randomNew {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	placements := make([]NewCardPlacement, len(order))
	for i, id := range order {
		placements[i] = NewCardPlacement{ID: id, Due: maxDue + int64(i) + 1}
	}
	if err := s.gw.PlaceNewCards(ctx, placements, mod); err != nil {
		return fmt.Errorf("forget cards: %w: %v", domain.ErrStorageError, err)
	}
	return nil
}

// RescheduleCards implements §4.10 reschedCards: each card gets an interval
// drawn uniformly from [imin, imax], floored at one day, and is set to
// type=REV, queue=REV with due := today + interval.
func (s *Scheduler) RescheduleCards(ctx context.Context, ids []uuid.UUID, imin, imax int) error {
	if imax < imin {
		imin, imax = imax, imin
	}
	mod := s.clock.Now().Unix()
	updates := make([]RescheduleUpdate, len(ids))
	span := imax - imin + 1
	for i, id := range ids {
		r := imin
		if span > 0 {
			r = imin + rand.IntN(span)
		}
		if r < 1 {
			r = 1
		}
		updates[i] = RescheduleUpdate{ID: id, Ivl: r, Due: s.today() + int64(r)}
	}
	if err := s.gw.RescheduleCards(ctx, updates, mod); err != nil {
		return fmt.Errorf("reschedule cards: %w: %v", domain.ErrStorageError, err)
	}
	return nil
}

// SortCards implements §4.10 sortCards: assigns a stable ordering to new
// cards by distinct fid, optionally shifting later-due new cards out of the
// way first. Per §9, the distinct-fid derivation guards the empty case
// explicitly: with zero distinct fids there is nothing to place, and the
// function returns before any loop-carried high-water-mark variable would
// otherwise be read uninitialized.
func (s *Scheduler) SortCards(ctx context.Context, ids []uuid.UUID, start, step int, shuffle, shift bool) error {
	fids, err := s.gw.NewCardFIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("sort cards: %w: %v", domain.ErrStorageError, err)
	}
	if len(fids) == 0 {
		return nil
	}

	groups := splitIntoGroups(ids, len(fids))
	if shuffle {
		rand.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })
	}

	mod := s.clock.Now().Unix()
	due := int64(start)

	if shift {
		low := due
		high := due + int64(len(fids)-1)*int64(step)
		minDue, err := s.gw.MinNewDueFrom(ctx, ids, low)
		if err != nil {
			return fmt.Errorf("sort cards: %w: %v", domain.ErrStorageError, err)
		}
		if minDue != nil {
			shiftBy := high - *minDue + 1
			if shiftBy > 0 {
				if err := s.gw.ShiftNewCardsDue(ctx, ids, low, shiftBy, mod); err != nil {
					return fmt.Errorf("sort cards: %w: %v", domain.ErrStorageError, err)
				}
			}
		}
	}

	placements := make([]NewCardPlacement, 0, len(ids))
	for i, group := range groups {
		fidDue := int64(start) + int64(i*step)
		for _, id := range group {
			placements = append(placements, NewCardPlacement{ID: id, Due: fidDue})
		}
	}
	if err := s.gw.PlaceNewCards(ctx, placements, mod); err != nil {
		return fmt.Errorf("sort cards: %w: %v", domain.ErrStorageError, err)
	}
	return nil
}

// splitIntoGroups partitions ids into n contiguous, near-equal runs. ids is
// assumed pre-ordered by fid, so each run approximates one sibling group.
func splitIntoGroups(ids []uuid.UUID, n int) [][]uuid.UUID {
	if n <= 0 {
		return nil
	}
	groups := make([][]uuid.UUID, 0, n)
	base := len(ids) / n
	rem := len(ids) % n
	idx := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		groups = append(groups, ids[idx:idx+size])
		idx += size
	}
	return groups
}

// RandomizeCards is sortCards with shuffle=true, matching the original's
// separate entry point (§2A).
func (s *Scheduler) RandomizeCards(ctx context.Context, ids []uuid.UUID, start, step int) error {
	return s.SortCards(ctx, ids, start, step, true, false)
}

// OrderCards is sortCards with shuffle=false (§2A).
func (s *Scheduler) OrderCards(ctx context.Context, ids []uuid.UUID, start, step int) error {
	return s.SortCards(ctx, ids, start, step, false, false)
}
