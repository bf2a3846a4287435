// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership is one user's participation in one group.
// Exactly one document per (user_id, group_id).
type Membership struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Manager   bool               `bson:"manager" json:"manager"`
	Suspended bool               `bson:"suspended" json:"suspended"`

	// NotificationSchedule is CadenceUnset when the membership follows the
	// group default.
	NotificationSchedule Cadence `bson:"notification_schedule" json:"notification_schedule"`

	// LastNotification is the digest watermark. It only moves forward.
	LastNotification *time.Time `bson:"last_notification,omitempty" json:"last_notification,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// LastNotifiedBefore reports whether the membership has never been
// notified or was last notified strictly before t.
func (m Membership) LastNotifiedBefore(t time.Time) bool {
	return m.LastNotification == nil || m.LastNotification.Before(t)
}

// SubgroupMembership joins a Membership to a Subgroup of the same group.
// Manager is independent of the parent membership's Manager flag.
type SubgroupMembership struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MembershipID primitive.ObjectID `bson:"membership_id" json:"membership_id"`
	GroupID      primitive.ObjectID `bson:"group_id" json:"group_id"`
	SubgroupID   primitive.ObjectID `bson:"subgroup_id" json:"subgroup_id"`
	Manager      bool               `bson:"manager" json:"manager"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
