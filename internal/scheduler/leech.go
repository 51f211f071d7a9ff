package scheduler

import "github.com/mothlight/srscore/internal/domain"

// isLeech evaluates the leech condition from §4.8: fires once lapses reaches
// leechFails, and again every half-threshold lapses after that.
func isLeech(lapses, leechFails int) bool {
	if leechFails <= 0 {
		return false
	}
	if lapses < leechFails {
		return false
	}
	half := leechFails / 2
	if half < 1 {
		half = 1
	}
	return (lapses-leechFails)%half == 0
}

// checkLeech runs the leech detector after a lapse (§4.8) and, when the card
// crosses the threshold, applies the configured leech action. It returns
// whether the card became a leech on this call, so the caller can fire the
// "leech" hook.
func checkLeech(card *domain.Card, conf domain.LapseConf) bool {
	if !isLeech(card.Lapses, conf.LeechFails) {
		return false
	}
	if conf.LeechAction == domain.LeechActionSuspend {
		card.Queue = domain.QueueSuspended
	}
	return true
}
