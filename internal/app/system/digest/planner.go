// Package digest plans activity digests for memberships.
//
// Planning is pure: Plan looks at already-loaded records and returns what
// should be sent and which watermark to persist. Writing the digest and
// moving the watermark is the caller's job and must happen together.
package digest

import (
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/eligibility"
	"github.com/dalemusser/groupdigest/internal/app/system/schedule"
	"github.com/dalemusser/groupdigest/internal/app/system/visibility"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Options configures a Planner.
type Options struct {
	// SendEmptyDigests produces a plan on scheduled ticks even when no
	// audit is eligible. Off by default.
	SendEmptyDigests bool
}

// Planner decides, per membership, whether to send a digest now and what
// it contains. A Planner holds no mutable state.
type Planner struct {
	opts Options
}

// NewPlanner returns a Planner with the given options.
func NewPlanner(opts Options) *Planner {
	return &Planner{opts: opts}
}

// Input is everything Plan needs for one membership.
type Input struct {
	Membership          models.Membership
	Group               models.Group
	SubgroupMemberships []models.SubgroupMembership

	// Audits are the candidate events in the order they should appear.
	Audits []models.AuditEvent

	// Sets, when non-nil, is used instead of resolving visibility from
	// Group and SubgroupMemberships.
	Sets *visibility.Sets
}

// Result is a planned digest.
type Result struct {
	MembershipID primitive.ObjectID
	Cadence      models.Cadence
	Categorized  eligibility.Categorized

	// NewWatermark is the value to persist as the membership's
	// last_notification once the digest has been handed off. It is always
	// the planning time, not the newest audit time.
	NewWatermark time.Time
}

// EffectiveCadence returns the membership's own schedule, or the group
// default when the membership has none.
func EffectiveCadence(m models.Membership, g models.Group) models.Cadence {
	if m.NotificationSchedule.IsSet() {
		return m.NotificationSchedule
	}
	return g.DefaultNotificationSchedule
}

// Plan returns the digest to send for in at now, and false when nothing
// should be sent this tick.
func (p *Planner) Plan(in Input, now time.Time) (Result, bool) {
	cadence := EffectiveCadence(in.Membership, in.Group)
	if !schedule.IsScheduledNow(cadence, now, in.Membership.LastNotification) {
		return Result{}, false
	}

	var sets visibility.Sets
	if in.Sets != nil {
		sets = *in.Sets
	} else {
		sets = visibility.Resolve(in.Group, in.SubgroupMemberships)
	}

	categorized := eligibility.CategorizeEligible(in.Membership, sets, in.Audits, now)
	if categorized.Empty() && !p.opts.SendEmptyDigests {
		return Result{}, false
	}

	return Result{
		MembershipID: in.Membership.ID,
		Cadence:      cadence,
		Categorized:  categorized,
		NewWatermark: now,
	}, true
}
