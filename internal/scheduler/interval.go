package scheduler

import "github.com/mothlight/srscore/internal/domain"

// nextRevIvl computes the ideal next review interval in days (§4.7). It is a
// pure function: no I/O, no randomness, so it is directly unit-testable.
func nextRevIvl(ivl, factor int, late int64, ease domain.Ease, ease4Bonus float64) int {
	fct := float64(factor) / 1000.0
	var interval float64
	switch ease {
	case domain.EaseHard:
		interval = float64(ivl+int(late)/4) * 1.2
	case domain.EaseGood:
		interval = float64(ivl+int(late)/2) * fct
	case domain.EaseEasy:
		interval = float64(ivl+int(late)) * fct * ease4Bonus
	default:
		interval = float64(ivl)
	}
	minBound := ivl + 1
	if ease == domain.EaseEasy {
		minBound = ivl + 2
	}
	if v := int(interval); v > minBound {
		return v
	}
	return minBound
}

// daysLate returns how many days past due a card is, never negative.
func daysLate(today, due int64) int64 {
	if d := today - due; d > 0 {
		return d
	}
	return 0
}

// nextFactor applies the ease-factor delta for a review answer, floored at
// 1300 (§4.7).
func nextFactor(factor int, ease domain.Ease) int {
	delta := 0
	switch ease {
	case domain.EaseHard:
		delta = -150
	case domain.EaseEasy:
		delta = 150
	}
	f := factor + delta
	if f < 1300 {
		return 1300
	}
	return f
}

// adjRevIvl nudges an ideal interval away from sibling due-days (§4.7,
// "_adjRevIvl"). dues holds the due-days of REV-queue siblings, excluding the
// card itself; it may be empty.
func adjRevIvl(today int64, idealIvl int, dues []int64, minSpace int, fuzz float64) int {
	idealDue := today + int64(idealIvl)
	if !containsInt64(dues, idealDue) {
		return idealIvl
	}

	leeway := int(float64(idealIvl) * fuzz)
	if minSpace > leeway {
		leeway = minSpace
	}
	if leeway <= 0 {
		return idealIvl
	}

	for diff := 1; diff <= leeway; diff++ {
		if idealDue-int64(diff) >= 1 && !containsInt64(dues, idealDue-int64(diff)) {
			return idealIvl - diff
		}
		if !containsInt64(dues, idealDue+int64(diff)) {
			return idealIvl + diff
		}
	}
	return idealIvl
}

func containsInt64(haystack []int64, needle int64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// lapseIvl computes the post-lapse review interval, floored at one day
// (§4.7 lapse path step 2).
func lapseIvl(ivl int, mult float64) int {
	v := int(float64(ivl)*mult) + 1
	if v < 1 {
		return 1
	}
	return v
}

// delayForGrade returns the learning-step delay, in seconds, for the given
// grade, clamping to the last configured step when grade runs past the end
// of the sequence (mirrors the original's IndexError fallback).
func delayForGrade(delays []int, grade int) int {
	if len(delays) == 0 {
		return 0
	}
	if grade < 0 {
		grade = 0
	}
	if grade >= len(delays) {
		grade = len(delays) - 1
	}
	return delays[grade] * 60
}
