package scheduler

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

func TestLrnHeap_PopsMinDueFirst(t *testing.T) {
	t.Parallel()

	var h lrnHeap
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
	}
	h.push(300, ids[0])
	h.push(100, ids[1])
	h.push(200, ids[2])

	first := h.popMin()
	if first.due != 100 || first.id != ids[1] {
		t.Fatalf("expected due 100 first, got due %d", first.due)
	}
	second := h.popMin()
	if second.due != 200 {
		t.Fatalf("expected due 200 second, got %d", second.due)
	}
	third := h.popMin()
	if third.due != 300 {
		t.Fatalf("expected due 300 third, got %d", third.due)
	}
}

func TestLrnHeap_PeekDoesNotRemove(t *testing.T) {
	t.Parallel()

	var h lrnHeap
	h.push(50, uuid.New())

	item, ok := h.peek()
	if !ok || item.due != 50 {
		t.Fatalf("expected peek to find due 50, got %+v ok=%v", item, ok)
	}
	if h.Len() != 1 {
		t.Fatalf("peek must not remove, heap len = %d", h.Len())
	}
}

func TestNewQueue_PopsSmallestDueFirst(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	refs := []CardRef{{ID: a, Due: 1}, {ID: b, Due: 2}, {ID: c, Due: 3}}
	q := newNewQueue(refs)

	got, ok := q.pop(domain.NewTodayOrderNone)
	if !ok || got.ID != a {
		t.Fatalf("expected smallest-due card a first, got %v", got)
	}
	got, ok = q.pop(domain.NewTodayOrderNone)
	if !ok || got.ID != b {
		t.Fatalf("expected card b second, got %v", got)
	}
	got, ok = q.pop(domain.NewTodayOrderNone)
	if !ok || got.ID != c {
		t.Fatalf("expected card c third, got %v", got)
	}
	if !q.empty() {
		t.Fatal("queue should be empty after draining all entries")
	}
}

func TestRevQueue_NonRandomOrderPreservesQuerySequence(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	q := newRevQueue([]uuid.UUID{a, b, c}, domain.RevOrderDue, 42)

	first, _ := q.pop()
	second, _ := q.pop()
	third, _ := q.pop()
	if first != a || second != b || third != c {
		t.Fatalf("expected pop order a,b,c; got %v,%v,%v", first, second, third)
	}
}

func TestRevQueue_RandomOrderIsSeedStable(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	q1 := newRevQueue(ids, domain.RevOrderRandom, 7)
	q2 := newRevQueue(ids, domain.RevOrderRandom, 7)

	for i := 0; i < len(ids); i++ {
		a, okA := q1.pop()
		b, okB := q2.pop()
		if !okA || !okB || a != b {
			t.Fatalf("same seed (today=7) must produce identical pop order, mismatch at index %d", i)
		}
	}
}

func TestComputeNewCardModulus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name               string
		newCount, revCount int
		want               int
	}{
		{"no new cards", 0, 10, 0},
		{"no review cards", 10, 0, 0},
		{"ratio below floor of two", 9, 1, 2},
		{"ratio above floor", 2, 10, 6},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := computeNewCardModulus(tc.newCount, tc.revCount)
			if got != tc.want {
				t.Errorf("computeNewCardModulus(%d,%d) = %d, want %d", tc.newCount, tc.revCount, got, tc.want)
			}
		})
	}
}

func TestTimeForNewCard(t *testing.T) {
	t.Parallel()

	if timeForNewCard(0, 5, 3, domain.NewCardsDistribute) {
		t.Error("no new cards left, must never claim it's time for one")
	}
	if timeForNewCard(5, 1, 3, domain.NewCardsLast) {
		t.Error("NewCardsLast must never interleave early")
	}
	if !timeForNewCard(5, 1, 3, domain.NewCardsFirst) {
		t.Error("NewCardsFirst must always claim it's time for one")
	}
	if !timeForNewCard(5, 3, 3, domain.NewCardsDistribute) {
		t.Error("reps divisible by modulus should trigger a new card")
	}
	if timeForNewCard(5, 2, 3, domain.NewCardsDistribute) {
		t.Error("reps not divisible by modulus should not trigger a new card")
	}
}
