// internal/domain/models/auditevent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditEvent is a recorded group activity that members may be notified
// about. Category is an opaque key (e.g. "posts", "events").
type AuditEvent struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GroupID      primitive.ObjectID  `bson:"group_id" json:"group_id"`
	Category     string              `bson:"category" json:"category"`
	SubgroupID   *primitive.ObjectID `bson:"subgroup_id,omitempty" json:"subgroup_id,omitempty"`
	OnlyManagers bool                `bson:"only_managers" json:"only_managers"`

	// DeletedSubgroup is set when the referenced subgroup no longer exists.
	DeletedSubgroup bool `bson:"deleted_subgroup" json:"deleted_subgroup"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
