// internal/domain/models/cadence.go
package models

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Cadence is the recurrence rule that controls how often a membership
// receives activity digests.
//
// Cadence is stored as an integer. The set of values is closed: anything
// outside the declared constants decodes to an unrecognized cadence, which
// is never scheduled.
type Cadence int

const (
	// CadenceUnrecognized marks a label or stored value that does not map
	// to a known cadence.
	CadenceUnrecognized Cadence = -1

	// CadenceUnset means the membership inherits its group's default.
	CadenceUnset        Cadence = 0
	CadenceDaily        Cadence = 1
	CadenceTwiceWeekly  Cadence = 2
	CadenceOnceWeekly   Cadence = 3
	CadenceTwiceMonthly Cadence = 4
	CadenceNone         Cadence = 5
)

var cadenceLabels = map[Cadence]string{
	CadenceDaily:        "Once a day",
	CadenceTwiceWeekly:  "Twice a week",
	CadenceOnceWeekly:   "Once a week",
	CadenceTwiceMonthly: "Twice a month",
	CadenceNone:         "Never",
}

var cadenceKeys = map[Cadence]string{
	CadenceDaily:        "daily",
	CadenceTwiceWeekly:  "twice_weekly",
	CadenceOnceWeekly:   "once_weekly",
	CadenceTwiceMonthly: "twice_monthly",
	CadenceNone:         "none",
}

// Cadences lists the selectable cadences in display order.
var Cadences = []Cadence{
	CadenceDaily,
	CadenceTwiceWeekly,
	CadenceOnceWeekly,
	CadenceTwiceMonthly,
	CadenceNone,
}

// Valid reports whether c is one of the selectable cadences.
// CadenceUnset and out-of-range values are not valid.
func (c Cadence) Valid() bool {
	_, ok := cadenceLabels[c]
	return ok
}

// IsSet reports whether c carries an explicit choice, i.e. it should not
// fall back to the group default. Unrecognized stored values count as set
// so that they resolve to "never scheduled" instead of silently inheriting.
func (c Cadence) IsSet() bool {
	return c != CadenceUnset
}

// Label returns the human-readable label ("Once a week"), or "" when c is
// not a selectable cadence.
func (c Cadence) Label() string {
	return cadenceLabels[c]
}

// String returns the short key ("once_weekly"), "unset", or "unrecognized".
func (c Cadence) String() string {
	if k, ok := cadenceKeys[c]; ok {
		return k
	}
	if c == CadenceUnset {
		return "unset"
	}
	return "unrecognized"
}

// ParseCadence maps a label or short key to a Cadence. Matching ignores
// case, surrounding whitespace and diacritics. Unknown input returns
// CadenceUnrecognized and false.
func ParseCadence(s string) (Cadence, bool) {
	folded := text.Fold(strings.TrimSpace(s))
	if folded == "" {
		return CadenceUnrecognized, false
	}
	for _, c := range Cadences {
		if folded == text.Fold(cadenceLabels[c]) || folded == cadenceKeys[c] {
			return c, true
		}
	}
	return CadenceUnrecognized, false
}
