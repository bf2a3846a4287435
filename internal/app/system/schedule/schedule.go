// Package schedule decides whether a scheduler tick is a valid moment to
// send a membership its activity digest.
//
// Each cadence is a set of eligible UTC weekdays plus a minimum gap since
// the last digest. Pinning cadences to weekdays keeps "twice a week" on
// the same two days every week; the gap stops repeat sends when the sweep
// runs more than once on an eligible day.
package schedule

import (
	"time"

	"github.com/dalemusser/groupdigest/internal/domain/models"
)

const day = 24 * time.Hour

// Rule is the (weekday set, minimum gap) pair for one cadence.
// A zero MinGap disables the gap check.
type Rule struct {
	Weekdays []time.Weekday
	MinGap   time.Duration
}

// rules has no entry for CadenceNone, CadenceUnset or unrecognized values.
var rules = map[models.Cadence]Rule{
	models.CadenceDaily: {
		Weekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	},
	models.CadenceTwiceWeekly: {
		Weekdays: []time.Weekday{time.Tuesday, time.Thursday},
		MinGap:   2 * day,
	},
	models.CadenceOnceWeekly: {
		Weekdays: []time.Weekday{time.Wednesday},
		MinGap:   6 * day,
	},
	models.CadenceTwiceMonthly: {
		Weekdays: []time.Weekday{time.Wednesday},
		MinGap:   13 * day,
	},
}

// RuleFor returns the rule for c. ok is false for cadences that are never
// scheduled.
func RuleFor(c models.Cadence) (Rule, bool) {
	r, ok := rules[c]
	return r, ok
}

// IsScheduledNow reports whether now is a send moment for cadence given
// the last digest time (nil when never notified).
//
// The weekday is taken in UTC. A lastNotification later than now gives a
// negative gap and so reads as "not yet due".
func IsScheduledNow(cadence models.Cadence, now time.Time, lastNotification *time.Time) bool {
	r, ok := rules[cadence]
	if !ok {
		return false
	}
	if !r.onWeekday(now.UTC().Weekday()) {
		return false
	}
	if r.MinGap == 0 || lastNotification == nil {
		return true
	}
	return now.Sub(*lastNotification) >= r.MinGap
}

func (r Rule) onWeekday(wd time.Weekday) bool {
	for _, d := range r.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// NextEligibleDay returns the start (00:00 UTC) of the first day on or
// after from whose weekday the cadence allows, ignoring the gap. ok is
// false when the cadence is never scheduled.
func NextEligibleDay(cadence models.Cadence, from time.Time) (time.Time, bool) {
	r, ok := rules[cadence]
	if !ok {
		return time.Time{}, false
	}
	from = from.UTC()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		if r.onWeekday(d.Weekday()) {
			return d, true
		}
	}
	return time.Time{}, false
}
