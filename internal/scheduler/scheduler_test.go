package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

// fakeClock is a Clock fixed to an explicit instant, advanced manually by
// tests that need to observe elapsed time.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// fakeGateway is a minimal in-memory Gateway, enough to drive the answer
// handler in isolation. Administrative and queue-listing methods are unused
// by these tests and return zero values.
type fakeGateway struct {
	cards       map[uuid.UUID]domain.Card
	reviewLogs  []domain.ReviewLogRow
	siblingDues map[uuid.UUID][]int64
	newRefs     []CardRef
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{cards: make(map[uuid.UUID]domain.Card)}
}

func (g *fakeGateway) CountNew(_ context.Context, _ []uuid.UUID, limit int) (int, error) {
	n := len(g.newRefs)
	if n > limit {
		n = limit
	}
	return n, nil
}
func (g *fakeGateway) ListNew(_ context.Context, _ []uuid.UUID, limit int) ([]CardRef, error) {
	if limit > len(g.newRefs) {
		limit = len(g.newRefs)
	}
	return g.newRefs[:limit], nil
}
func (g *fakeGateway) CountLrn(context.Context, []uuid.UUID, int64, int) (int, error) {
	return 0, nil
}
func (g *fakeGateway) ListLrn(context.Context, []uuid.UUID, int64, int) ([]CardRef, error) {
	return nil, nil
}
func (g *fakeGateway) CountRev(context.Context, []uuid.UUID, int64, int) (int, error) {
	return 0, nil
}
func (g *fakeGateway) ListRev(context.Context, []uuid.UUID, int64, domain.RevOrder, int) ([]uuid.UUID, error) {
	return nil, nil
}

func (g *fakeGateway) SiblingDues(_ context.Context, fid, excludeID uuid.UUID) ([]int64, error) {
	return g.siblingDues[fid], nil
}

func (g *fakeGateway) GetCard(_ context.Context, id uuid.UUID) (domain.Card, error) {
	c, ok := g.cards[id]
	if !ok {
		return domain.Card{}, domain.ErrNotFound
	}
	return c, nil
}

func (g *fakeGateway) UpdateCard(_ context.Context, u CardUpdate) error {
	c := g.cards[u.ID]
	c.Queue, c.Type, c.Due = u.Queue, u.Type, u.Due
	c.Ivl, c.Factor, c.Grade = u.Ivl, u.Factor, u.Grade
	c.Cycles, c.Lapses, c.LastIvl = u.Cycles, u.Lapses, u.LastIvl
	c.EDue, c.Reps, c.Mod = u.EDue, u.Reps, u.Mod
	g.cards[u.ID] = c
	return nil
}

func (g *fakeGateway) AppendReviewLog(_ context.Context, row domain.ReviewLogRow) error {
	g.reviewLogs = append(g.reviewLogs, row)
	return nil
}

func (g *fakeGateway) SuspendCards(context.Context, []uuid.UUID, int64) error   { return nil }
func (g *fakeGateway) UnsuspendCards(context.Context, []uuid.UUID, int64) error { return nil }
func (g *fakeGateway) BuryFact(context.Context, uuid.UUID, int64) error        { return nil }
func (g *fakeGateway) OnClose(context.Context, int64) error                    { return nil }
func (g *fakeGateway) Unbury(context.Context, []uuid.UUID, int64) error        { return nil }
func (g *fakeGateway) RemoveFailed(context.Context, []uuid.UUID, int64) error  { return nil }
func (g *fakeGateway) ForgetCards(context.Context, []uuid.UUID, int64) error   { return nil }
func (g *fakeGateway) MaxNewDue(context.Context) (int64, error)                { return 0, nil }
func (g *fakeGateway) RescheduleCards(context.Context, []RescheduleUpdate, int64) error {
	return nil
}
func (g *fakeGateway) NewCardFIDs(context.Context, []uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (g *fakeGateway) MinNewDueFrom(context.Context, []uuid.UUID, int64) (*int64, error) {
	return nil, nil
}
func (g *fakeGateway) ShiftNewCardsDue(context.Context, []uuid.UUID, int64, int64, int64) error {
	return nil
}
func (g *fakeGateway) PlaceNewCards(context.Context, []NewCardPlacement, int64) error {
	return nil
}
func (g *fakeGateway) EnsureCardsIndex(context.Context, []string) error { return nil }

type fakeConfigGateway struct {
	conf          domain.GroupConfig
	savedNewToday []domain.NewToday
}

func (g *fakeConfigGateway) GroupConfig(context.Context, uuid.UUID) (domain.GroupConfig, error) {
	return g.conf, nil
}
func (g *fakeConfigGateway) SaveNewToday(_ context.Context, _ uuid.UUID, nt domain.NewToday) error {
	g.savedNewToday = append(g.savedNewToday, nt)
	return nil
}

func newTestScheduler(t *testing.T, gw *fakeGateway, conf domain.GroupConfig, now time.Time) *Scheduler {
	t.Helper()
	clock := &fakeClock{now: now}
	cgw := &fakeConfigGateway{conf: conf}
	return NewScheduler(gw, cgw, clock, nil, nil, 0)
}

// newTestSchedulerWithConfGW is like newTestScheduler but scopes the session
// to conf.GID and hands back the fake ConfigGateway so tests can inspect
// persisted newToday budget writes (§4.4).
func newTestSchedulerWithConfGW(t *testing.T, gw *fakeGateway, conf domain.GroupConfig, now time.Time) (*Scheduler, *fakeConfigGateway) {
	t.Helper()
	clock := &fakeClock{now: now}
	cgw := &fakeConfigGateway{conf: conf}
	return NewScheduler(gw, cgw, clock, nil, []uuid.UUID{conf.GID}, 0), cgw
}

// TestAnswerCard_S1_NewCardGraduates mirrors SPEC_FULL.md scenario S1: a new
// card under delays=[1,10] minutes and ints=[1,4,7] days graduates to REV
// after two "good" answers.
func TestAnswerCard_S1_NewCardGraduates(t *testing.T) {
	t.Parallel()

	gid := uuid.New()
	conf := domain.GroupConfig{
		GID: gid,
		New: domain.NewConf{
			Delays:        []int{1, 10},
			Ints:          [3]int{1, 4, 7},
			InitialFactor: 2500,
		},
	}

	now := time.Unix(100_000, 0)
	gw := newFakeGateway()
	// Due is set to "now", not in the past, so the first answer's learning
	// delay is not collapse-fuzzed (§9: fuzz only applies when due < now).
	card := domain.Card{ID: uuid.New(), GID: gid, Queue: domain.QueueLrn, Type: domain.TypeLrn, Grade: 0, Due: now.Unix()}
	gw.cards[card.ID] = card

	s := newTestScheduler(t, gw, conf, now)

	if err := s.AnswerCard(context.Background(), card.ID, domain.EaseHard, time.Second); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	mid := gw.cards[card.ID]
	if mid.Grade != 1 {
		t.Errorf("after first ease=2 answer, grade = %d, want 1", mid.Grade)
	}
	if mid.Due != now.Unix()+600 {
		t.Errorf("after first ease=2 answer, due = %d, want %d", mid.Due, now.Unix()+600)
	}
	if mid.Queue != domain.QueueLrn {
		t.Errorf("card should still be in LRN queue, got %v", mid.Queue)
	}

	if err := s.AnswerCard(context.Background(), card.ID, domain.EaseHard, time.Second); err != nil {
		t.Fatalf("second answer: %v", err)
	}
	final := gw.cards[card.ID]
	if final.Queue != domain.QueueRev {
		t.Errorf("card should have graduated to REV, got %v", final.Queue)
	}
	if final.Ivl != 1 {
		t.Errorf("graduated ivl = %d, want 1", final.Ivl)
	}
	if final.Factor != 2500 {
		t.Errorf("graduated factor = %d, want 2500 (initialFactor)", final.Factor)
	}
	if final.Due != s.today()+1 {
		t.Errorf("graduated due = %d, want today+1 = %d", final.Due, s.today()+1)
	}
}

// TestAnswerCard_S2_ReviewLapseWithRelearn mirrors SPEC_FULL.md scenario S2.
func TestAnswerCard_S2_ReviewLapseWithRelearn(t *testing.T) {
	t.Parallel()

	gid := uuid.New()
	conf := domain.GroupConfig{
		GID: gid,
		Lapse: domain.LapseConf{
			Mult:    0.5,
			Relearn: true,
			Delays:  []int{10},
		},
	}

	now := time.Unix(200_000, 0)
	gw := newFakeGateway()
	card := domain.Card{
		ID: uuid.New(), GID: gid, Queue: domain.QueueRev, Type: domain.TypeRev,
		Ivl: 20, Factor: 2500,
	}
	gw.cards[card.ID] = card

	s := newTestScheduler(t, gw, conf, now)

	if err := s.AnswerCard(context.Background(), card.ID, domain.EaseAgain, time.Second); err != nil {
		t.Fatalf("answer: %v", err)
	}

	got := gw.cards[card.ID]
	if got.Lapses != 1 {
		t.Errorf("lapses = %d, want 1", got.Lapses)
	}
	if got.Ivl != 11 {
		t.Errorf("post-lapse ivl = %d, want 11", got.Ivl)
	}
	if got.Factor != 2300 {
		t.Errorf("post-lapse factor = %d, want 2300", got.Factor)
	}
	if got.EDue != s.today()+11 {
		t.Errorf("edue = %d, want today+11 = %d", got.EDue, s.today()+11)
	}
	if got.Due != now.Unix()+600 {
		t.Errorf("relearn due = %d, want now+600 = %d", got.Due, now.Unix()+600)
	}
	if got.Queue != domain.QueueLrn {
		t.Errorf("relearning card should sit in LRN queue, got %v", got.Queue)
	}

	if len(gw.reviewLogs) != 1 {
		t.Fatalf("expected exactly one review log row, got %d", len(gw.reviewLogs))
	}
}

// TestResetNew_AppliesPerDayBudget covers testable property #7 (§8): the
// session's new-card count is capped by newPerDay minus the already-used
// portion of the day's budget, not just by reportLimit.
func TestResetNew_AppliesPerDayBudget(t *testing.T) {
	t.Parallel()

	gid := uuid.New()
	conf := domain.GroupConfig{
		GID:      gid,
		New:      domain.NewConf{PerDay: 3, Spread: domain.NewCardsDistribute},
		NewToday: domain.NewToday{DayIndex: 0, Used: 1},
	}

	gw := newFakeGateway()
	for i := 0; i < 5; i++ {
		id := uuid.New()
		gw.newRefs = append(gw.newRefs, CardRef{ID: id, Due: int64(i)})
		gw.cards[id] = domain.Card{ID: id, GID: gid, Queue: domain.QueueNew, Type: domain.TypeNew, Due: int64(i)}
	}

	s, _ := newTestSchedulerWithConfGW(t, gw, conf, time.Unix(0, 0))
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}

	newCount, _, _ := s.Counts()
	if newCount != 2 {
		t.Errorf("newCount = %d, want 2 (perDay=3 minus used=1)", newCount)
	}
}

// TestGetCard_NewCard_AdvancesAndPersistsNewTodayBudget drives a full new
// card draw through GetCard and checks the per-day budget counter is both
// advanced in memory and persisted via ConfigGateway.SaveNewToday.
func TestGetCard_NewCard_AdvancesAndPersistsNewTodayBudget(t *testing.T) {
	t.Parallel()

	gid := uuid.New()
	conf := domain.GroupConfig{
		GID:      gid,
		New:      domain.NewConf{PerDay: 5, Spread: domain.NewCardsFirst},
		NewToday: domain.NewToday{DayIndex: 0, Used: 0},
	}

	gw := newFakeGateway()
	id := uuid.New()
	gw.newRefs = append(gw.newRefs, CardRef{ID: id, Due: 0})
	gw.cards[id] = domain.Card{ID: id, GID: gid, Queue: domain.QueueNew, Type: domain.TypeNew, Due: 0}

	s, cgw := newTestSchedulerWithConfGW(t, gw, conf, time.Unix(0, 0))
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}

	card, err := s.GetCard(context.Background())
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if card == nil || card.ID != id {
		t.Fatalf("expected new card %s, got %+v", id, card)
	}

	if len(cgw.savedNewToday) != 1 || cgw.savedNewToday[0].Used != 1 {
		t.Fatalf("expected newToday.Used persisted as 1, got %+v", cgw.savedNewToday)
	}
}
