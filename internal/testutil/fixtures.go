package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/groupdigest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateGroup creates a group with the given default schedule and visible
// subgroups.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, def models.Cadence, visible ...primitive.ObjectID) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:                          primitive.NewObjectID(),
		Name:                        name,
		NameCI:                      text.Fold(name),
		DefaultNotificationSchedule: def,
		VisibleSubgroupIDs:          visible,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
	f.insert(ctx, "groups", g)
	return g
}

// CreateSubgroup creates a live subgroup of groupID.
func (f *Fixtures) CreateSubgroup(ctx context.Context, groupID primitive.ObjectID, identifier string) models.Subgroup {
	f.t.Helper()

	s := models.Subgroup{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		Identifier: identifier,
		CreatedAt:  time.Now().UTC(),
	}
	f.insert(ctx, "subgroups", s)
	return s
}

// MembershipOpts customises CreateMembership. The zero value is an
// ordinary, never-notified, unsuspended member with no schedule of its own.
type MembershipOpts struct {
	Manager          bool
	Suspended        bool
	Schedule         models.Cadence
	LastNotification *time.Time
}

// CreateMembership creates a membership of a fresh user in groupID.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID primitive.ObjectID, opts MembershipOpts) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:                   primitive.NewObjectID(),
		GroupID:              groupID,
		UserID:               primitive.NewObjectID(),
		Manager:              opts.Manager,
		Suspended:            opts.Suspended,
		NotificationSchedule: opts.Schedule,
		LastNotification:     opts.LastNotification,
		CreatedAt:            time.Now().UTC(),
	}
	f.insert(ctx, "memberships", m)
	return m
}

// AddToSubgroup links a membership to a subgroup of the same group.
func (f *Fixtures) AddToSubgroup(ctx context.Context, m models.Membership, subgroupID primitive.ObjectID, manager bool) models.SubgroupMembership {
	f.t.Helper()

	sm := models.SubgroupMembership{
		ID:           primitive.NewObjectID(),
		MembershipID: m.ID,
		GroupID:      m.GroupID,
		SubgroupID:   subgroupID,
		Manager:      manager,
		CreatedAt:    time.Now().UTC(),
	}
	f.insert(ctx, "subgroup_memberships", sm)
	return sm
}

// CreateAudit inserts an activity audit. ID is generated when empty.
func (f *Fixtures) CreateAudit(ctx context.Context, a models.AuditEvent) models.AuditEvent {
	f.t.Helper()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	f.insert(ctx, "activity_audits", a)
	return a
}
