package scheduler

import (
	"container/heap"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

// lrnItem is one entry of the learning min-heap, keyed by absolute due
// epoch seconds (§9: "learning queue as min-heap").
type lrnItem struct {
	due int64
	id  uuid.UUID
}

// lrnHeap implements container/heap.Interface over lrnItem, min-due first.
type lrnHeap []lrnItem

func (h lrnHeap) Len() int            { return len(h) }
func (h lrnHeap) Less(i, j int) bool  { return h[i].due < h[j].due }
func (h lrnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *lrnHeap) Push(x interface{}) { *h = append(*h, x.(lrnItem)) }
func (h *lrnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *lrnHeap) push(due int64, id uuid.UUID) {
	heap.Push(h, lrnItem{due: due, id: id})
}

// peek returns the minimum-due entry without removing it.
func (h lrnHeap) peek() (lrnItem, bool) {
	if len(h) == 0 {
		return lrnItem{}, false
	}
	return h[0], true
}

func (h *lrnHeap) popMin() lrnItem {
	return heap.Pop(h).(lrnItem)
}

// newQueue is the bounded new-card queue, ordered so pop() yields the
// smallest due first (§4.4: "reverse so pop() returns smallest due first").
type newQueue struct {
	entries []CardRef // stored reversed: entries[len-1] has the smallest due
}

func newNewQueue(refs []CardRef) *newQueue {
	q := &newQueue{entries: append([]CardRef(nil), refs...)}
	// refs arrives ordered by due ASC; reverse so the tail is the smallest.
	for i, j := 0, len(q.entries)-1; i < j; i, j = i+1, j-1 {
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	}
	return q
}

func (q *newQueue) empty() bool { return len(q.entries) == 0 }

// pop removes and returns the smallest-due entry, applying the sibling
// rotation described in §4.4 when order requires it.
func (q *newQueue) pop(order domain.NewTodayOrder) (CardRef, bool) {
	if q.empty() {
		return CardRef{}, false
	}
	last := len(q.entries) - 1
	card := q.entries[last]
	q.entries = q.entries[:last]

	if order == domain.NewTodayOrderOrd {
		n := len(q.entries)
		for n > 0 && len(q.entries) > 0 && q.entries[len(q.entries)-1].Due == card.Due {
			tail := len(q.entries) - 1
			rotated := q.entries[tail]
			q.entries = append([]CardRef{rotated}, q.entries[:tail]...)
			n--
		}
	}
	return card, true
}

// revQueue is the bounded review queue, ordered per the group's revOrder.
type revQueue struct {
	ids []uuid.UUID
}

func newRevQueue(ids []uuid.UUID, order domain.RevOrder, today int64) *revQueue {
	q := &revQueue{ids: append([]uuid.UUID(nil), ids...)}
	if order == domain.RevOrderRandom {
		r := rand.New(rand.NewPCG(uint64(today), uint64(today)))
		r.Shuffle(len(q.ids), func(i, j int) { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] })
	} else {
		// OLD_FIRST/NEW_FIRST/DUE arrive already ordered ASC/DESC by the
		// gateway query; the original reverses so pop() (from the tail)
		// yields the query's first row first.
		for i, j := 0, len(q.ids)-1; i < j; i, j = i+1, j-1 {
			q.ids[i], q.ids[j] = q.ids[j], q.ids[i]
		}
	}
	return q
}

func (q *revQueue) empty() bool { return len(q.ids) == 0 }

func (q *revQueue) pop() (uuid.UUID, bool) {
	if q.empty() {
		return uuid.Nil, false
	}
	last := len(q.ids) - 1
	id := q.ids[last]
	q.ids = q.ids[:last]
	return id, true
}

// computeNewCardModulus implements §4.4's newCardModulus formula: only
// defined when both new and review cards exist under NEW_CARDS_DISTRIBUTE.
func computeNewCardModulus(newCount, revCount int) int {
	if newCount == 0 || revCount == 0 {
		return 0
	}
	m := (newCount + revCount) / newCount
	if m < 2 {
		m = 2
	}
	return m
}

// timeForNewCard decides, per §4.4's selection step 2, whether a new card
// should preempt a review this turn.
func timeForNewCard(newCount, reps, modulus int, spread domain.NewSpread) bool {
	if newCount == 0 {
		return false
	}
	switch spread {
	case domain.NewCardsLast:
		return false
	case domain.NewCardsFirst:
		return true
	default: // NewCardsDistribute
		if modulus == 0 {
			return false
		}
		return reps > 0 && reps%modulus == 0
	}
}
