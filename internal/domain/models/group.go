// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group owns subgroups and memberships.
//
// NOTE:
//   - VisibleSubgroupIDs lists subgroups every member of the group can
//     see, whether or not they belong to the subgroup.
//   - DefaultNotificationSchedule applies to memberships whose own
//     schedule is unset.
type Group struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"`

	DefaultNotificationSchedule Cadence              `bson:"default_notification_schedule" json:"default_notification_schedule"`
	VisibleSubgroupIDs          []primitive.ObjectID `bson:"visible_subgroup_ids,omitempty" json:"visible_subgroup_ids,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Subgroup belongs to exactly one Group.
type Subgroup struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	GroupID    primitive.ObjectID `bson:"group_id" json:"group_id"`
	Identifier string             `bson:"identifier" json:"identifier"`
	Deleted    bool               `bson:"deleted" json:"deleted"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}
