// internal/domain/models/digest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Digest statuses.
const (
	DigestStatusPending = "pending"
)

// DigestCategory is one category of a digest with its audit ids in the
// order they were seen.
type DigestCategory struct {
	Category string               `bson:"category" json:"category"`
	AuditIDs []primitive.ObjectID `bson:"audit_ids" json:"audit_ids"`
}

// Digest is an outbox record handed to the delivery service. Writing it
// and advancing the membership watermark happen together.
type Digest struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RunID        string             `bson:"run_id" json:"run_id"`
	MembershipID primitive.ObjectID `bson:"membership_id" json:"membership_id"`
	GroupID      primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Cadence      Cadence            `bson:"cadence" json:"cadence"`
	Categories   []DigestCategory   `bson:"categories" json:"categories"`
	Watermark    time.Time          `bson:"watermark" json:"watermark"`
	Status       string             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
