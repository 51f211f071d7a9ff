package scheduler

import "time"

// Clock abstracts wall time so the scheduler can be driven deterministically
// in tests (§9: "a plain object parameterized by a Clock and a Gateway").
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// dayCalendar derives today/dayCutoff from a fixed per-deck creation epoch
// (§4.1). It holds no gateway state and has no I/O.
type dayCalendar struct {
	clock     Clock
	createdAt int64 // deckCreationEpoch, seconds
	today     int64
	dayCutoff int64
}

func newDayCalendar(clock Clock, createdAt int64) *dayCalendar {
	d := &dayCalendar{clock: clock, createdAt: createdAt}
	d.update()
	return d
}

func (d *dayCalendar) nowSeconds() int64 {
	return d.clock.Now().Unix()
}

// update recomputes today and dayCutoff from the current time (§4.1).
func (d *dayCalendar) update() {
	now := d.nowSeconds()
	d.today = (now - d.createdAt) / 86400
	d.dayCutoff = d.createdAt + (d.today+1)*86400
}

// rolledOver reports whether now has passed dayCutoff, in which case the
// caller must update() and rebuild every queue.
func (d *dayCalendar) rolledOver() bool {
	return d.nowSeconds() > d.dayCutoff
}
