package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

// Hooks are optional callbacks a caller can set on a Scheduler to observe
// events the gateway surface does not report on its own (§6).
type Hooks struct {
	// Leech fires once a card crosses the leech threshold, after the lapse
	// that triggered it has already been applied in memory.
	Leech func(card *domain.Card)
	// MarkReview fires after every AnswerCard call whose card update was
	// persisted, including one that returns ErrInvariantViolation, with the
	// card's post-answer in-memory state.
	MarkReview func(card *domain.Card)
}

// Scheduler is a single study session over one or more groups. It is not
// safe for concurrent use (§5: single-threaded, synchronous use per
// session) and holds no long-lived connection of its own beyond what gw,
// cgw and tx provide.
type Scheduler struct {
	gw   Gateway
	conf *configResolver
	clock Clock
	tx   Transactor
	cal  *dayCalendar

	groups []uuid.UUID
	Hooks  Hooks

	newCount, lrnCount, revCount int
	reps                         int
	newCardModulus               int

	// newToday/newTodayGID track the §4.4 per-day new-card budget for the
	// session's representative group (s.groups[0]); newTodayGID is uuid.Nil
	// when the session spans all groups and no single budget applies.
	newToday    domain.NewToday
	newTodayGID uuid.UUID

	newQ *newQueue
	lrnQ lrnHeap
	revQ *revQueue

	queueLimit  int
	reportLimit int
}

const (
	defaultQueueLimit  = 200
	defaultReportLimit = 1000
)

// NewScheduler constructs a session over the given groups. deckCreationEpoch
// is the external constant §4.1 anchors day boundaries to.
func NewScheduler(gw Gateway, cgw ConfigGateway, clock Clock, tx Transactor, groups []uuid.UUID, deckCreationEpoch int64) *Scheduler {
	return &Scheduler{
		gw:          gw,
		conf:        newConfigResolver(cgw),
		clock:       clock,
		tx:          tx,
		cal:         newDayCalendar(clock, deckCreationEpoch),
		groups:      append([]uuid.UUID(nil), groups...),
		queueLimit:  defaultQueueLimit,
		reportLimit: defaultReportLimit,
	}
}

func (s *Scheduler) today() int64 { return s.cal.today }

// Reset rebuilds every queue from the gateway and must be called before the
// first GetCard, and again whenever a gateway call returns ErrStorageError
// (§5, §7).
func (s *Scheduler) Reset(ctx context.Context) error {
	s.conf.reset()
	s.cal.update()

	if err := s.resetNew(ctx); err != nil {
		return err
	}
	if err := s.resetLrn(ctx); err != nil {
		return err
	}
	if err := s.resetRev(ctx); err != nil {
		return err
	}
	s.reps = 0
	s.newCardModulus = computeNewCardModulus(s.newCount, s.revCount)
	return nil
}

func (s *Scheduler) resetNew(ctx context.Context) error {
	newLimit := s.reportLimit
	s.newToday = domain.NewToday{}
	s.newTodayGID = uuid.Nil

	if len(s.groups) > 0 {
		conf, err := s.conf.configFor(ctx, s.groups[0])
		if err == nil {
			nt := newTodayBudget(conf.NewToday, s.cal.today)
			newLimit = effectiveNewLimit(s.reportLimit, conf.New.PerDay, nt.Used)
			s.newToday = nt
			s.newTodayGID = s.groups[0]
		}
	}

	n, err := s.gw.CountNew(ctx, s.groups, newLimit)
	if err != nil {
		return fmt.Errorf("reset new queue: %w: %v", domain.ErrStorageError, err)
	}
	s.newCount = n

	lim := s.queueLimit
	if lim > n {
		lim = n
	}
	refs, err := s.gw.ListNew(ctx, s.groups, lim)
	if err != nil {
		return fmt.Errorf("reset new queue: %w: %v", domain.ErrStorageError, err)
	}
	s.newQ = newNewQueue(refs)
	return nil
}

func (s *Scheduler) resetLrn(ctx context.Context) error {
	n, err := s.gw.CountLrn(ctx, s.groups, s.cal.dayCutoff, s.reportLimit)
	if err != nil {
		return fmt.Errorf("reset learning queue: %w: %v", domain.ErrStorageError, err)
	}
	s.lrnCount = n

	refs, err := s.gw.ListLrn(ctx, s.groups, s.cal.dayCutoff, s.queueLimit)
	if err != nil {
		return fmt.Errorf("reset learning queue: %w: %v", domain.ErrStorageError, err)
	}
	s.lrnQ = s.lrnQ[:0]
	for _, r := range refs {
		s.lrnQ.push(r.Due, r.ID)
	}
	return nil
}

func (s *Scheduler) resetRev(ctx context.Context) error {
	n, err := s.gw.CountRev(ctx, s.groups, s.cal.today, s.reportLimit)
	if err != nil {
		return fmt.Errorf("reset review queue: %w: %v", domain.ErrStorageError, err)
	}
	s.revCount = n

	order := domain.RevOrderDue
	if len(s.groups) > 0 {
		if conf, err := s.conf.configFor(ctx, s.groups[0]); err == nil {
			order = conf.Rev.Order
		}
	}

	lim := s.queueLimit
	if lim > n {
		lim = n
	}
	ids, err := s.gw.ListRev(ctx, s.groups, s.cal.today, order, lim)
	if err != nil {
		return fmt.Errorf("reset review queue: %w: %v", domain.ErrStorageError, err)
	}
	s.revQ = newRevQueue(ids, order, s.cal.today)
	return nil
}

// Counts reports the three queue sizes as displayed by a study-session
// caller (§4.4).
func (s *Scheduler) Counts() (newCount, lrnCount, revCount int) {
	return s.newCount, s.lrnCount, s.revCount
}

// GetCard selects the next card to show, following the selection order of
// §4.4: due learning cards first, then the new/review interleave, then
// remaining learning cards due later today.
func (s *Scheduler) GetCard(ctx context.Context) (*domain.Card, error) {
	if s.cal.rolledOver() {
		if err := s.Reset(ctx); err != nil {
			return nil, err
		}
	}

	if id, ok := s.dueLrnCard(); ok {
		return s.fetchCard(ctx, id)
	}

	if timeForNewCard(s.newCount, s.reps, s.newCardModulus, s.newSpread(ctx)) {
		id, ok, err := s.popNewCard(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.fetchCard(ctx, id)
		}
	}

	if id, ok := s.revQ.pop(); ok {
		s.revCount--
		return s.fetchCard(ctx, id)
	}

	if id, ok, err := s.popNewCard(ctx); err != nil {
		return nil, err
	} else if ok {
		return s.fetchCard(ctx, id)
	}

	if id, ok := s.anyLrnCard(); ok {
		return s.fetchCard(ctx, id)
	}

	return nil, nil
}

func (s *Scheduler) newSpread(ctx context.Context) domain.NewSpread {
	if len(s.groups) == 0 {
		return domain.NewCardsDistribute
	}
	conf, err := s.conf.configFor(ctx, s.groups[0])
	if err != nil {
		return domain.NewCardsDistribute
	}
	return conf.New.Spread
}

// popNewCard pops the next new card and, when this session has a
// representative group's daily budget in play, advances and persists its
// newToday.Used counter (§4.4, §7: storage failures here are ErrStorageError
// since the budget can no longer be trusted without a reset).
func (s *Scheduler) popNewCard(ctx context.Context) (uuid.UUID, bool, error) {
	order := domain.NewTodayOrderNone
	ref, ok := s.newQ.pop(order)
	if !ok {
		return uuid.Nil, false, nil
	}
	s.newCount--

	if s.newTodayGID != uuid.Nil {
		s.newToday.Used++
		if err := s.conf.saveNewToday(ctx, s.newTodayGID, s.newToday); err != nil {
			return uuid.Nil, false, fmt.Errorf("save new-card budget: %w: %v", domain.ErrStorageError, err)
		}
	}

	return ref.ID, true, nil
}

// dueLrnCard returns a learning-queue card only if its due has already
// passed (collapsed into "now"), per §4.4 step 1.
func (s *Scheduler) dueLrnCard() (uuid.UUID, bool) {
	item, ok := s.lrnQ.peek()
	if !ok {
		return uuid.Nil, false
	}
	cutoff := s.clock.Now().Unix()
	if item.due >= cutoff {
		return uuid.Nil, false
	}
	popped := s.lrnQ.popMin()
	s.lrnCount--
	return popped.id, true
}

// anyLrnCard returns the soonest learning-queue card, collapsing the
// learning queue into the session tail once new and review cards are
// exhausted (§4.4 step 5). A card due further out than collapseTime is left
// in the queue so GetCard reports the session finished instead.
func (s *Scheduler) anyLrnCard() (uuid.UUID, bool) {
	item, ok := s.lrnQ.peek()
	if !ok {
		return uuid.Nil, false
	}
	if item.due >= s.clock.Now().Unix()+s.collapseSeconds() {
		return uuid.Nil, false
	}
	popped := s.lrnQ.popMin()
	s.lrnCount--
	return popped.id, true
}

func (s *Scheduler) collapseSeconds() int64 {
	if len(s.groups) == 0 {
		return 1200
	}
	conf, err := s.conf.configFor(context.Background(), s.groups[0])
	if err != nil {
		return 1200
	}
	return int64(conf.CollapseTime.Seconds())
}

func (s *Scheduler) fetchCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := s.gw.GetCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch card %s: %w: %v", id, domain.ErrStorageError, err)
	}
	return &card, nil
}

// AnswerTimeStats summarizes recent answer durations, used by ETA. Callers
// typically derive this from the last handful of review log rows.
type AnswerTimeStats struct {
	AvgTaken time.Duration
}

// ETA gives a rough remaining-study-time estimate (§2A): new cards are
// assumed to cost 3x a review card's average answer time, mirroring the
// original scheduler's "new/lrn require 3x the reviews" rule of thumb.
func (s *Scheduler) ETA(newCards, revCards int, stats AnswerTimeStats) time.Duration {
	if stats.AvgTaken <= 0 {
		return 0
	}
	return stats.AvgTaken*time.Duration(newCards)*3 + stats.AvgTaken*time.Duration(revCards)
}

// FinishedState reports why GetCard returned nil (§3 session state).
func (s *Scheduler) FinishedState() domain.FinishedState {
	switch {
	case s.newCount == 0 && s.lrnCount == 0 && s.revCount == 0:
		return domain.FinishedCongratulations
	case s.lrnQ.Len() > 0:
		return domain.FinishedMoreToStudyLater
	default:
		return domain.FinishedLimitsReached
	}
}
