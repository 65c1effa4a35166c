// Package streak recomputes consecutive-day activity streaks from the logged
// action history.
package streak

import (
	"time"
)

// Result is a recomputed streak.
type Result struct {
	Current int
	Longest int
}

// dateKey collapses a timestamp onto its calendar day in the given location.
func dateKey(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Compute walks backward one day at a time from referenceDate, counting while
// each consecutive day has at least one action, and stopping at the first gap.
// The streak is always recomputed from the full action set rather than
// incrementally mutated, so missed updates cannot make it drift.
//
// A reference day without actions does not break a streak that ran through
// yesterday: the user still has today to extend it.
func Compute(actionTimes []time.Time, referenceDate time.Time) Result {
	loc := referenceDate.Location()

	days := make(map[time.Time]bool, len(actionTimes))
	for _, t := range actionTimes {
		days[dateKey(t, loc)] = true
	}

	ref := dateKey(referenceDate, loc)

	// Current streak anchored at the reference day, or at yesterday if the
	// reference day has no action yet.
	day := ref
	if !days[day] {
		day = day.AddDate(0, 0, -1)
	}
	current := 0
	for days[day] {
		current++
		day = day.AddDate(0, 0, -1)
	}

	return Result{
		Current: current,
		Longest: longestRun(days),
	}
}

// longestRun finds the longest consecutive-day run anywhere in the set.
func longestRun(days map[time.Time]bool) int {
	longest := 0
	for day := range days {
		// Only start counting at the beginning of a run.
		if days[day.AddDate(0, 0, -1)] {
			continue
		}
		length := 0
		for d := day; days[d]; d = d.AddDate(0, 0, 1) {
			length++
		}
		if length > longest {
			longest = length
		}
	}
	return longest
}
