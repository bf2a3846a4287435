// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/groupdigest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Common activity categories. Categories are opaque to the digest
// planner; these are the ones the group features record.
const (
	CategoryPosts    = "posts"
	CategoryEvents   = "events"
	CategoryFiles    = "files"
	CategoryMembers  = "members"
	CategoryRequests = "requests"
)

// QueryFilter defines filters for querying activity audits.
type QueryFilter struct {
	GroupID   *primitive.ObjectID
	Category  string
	StartTime *time.Time // exclusive
	EndTime   *time.Time // inclusive
	Limit     int64
	Offset    int64
}

// Store manages activity audit records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activity_audits")}
}

// Log records an activity audit.
func (s *Store) Log(ctx context.Context, event models.AuditEvent) (models.AuditEvent, error) {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return event, err
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}
	if filter.GroupID != nil {
		query["group_id"] = *filter.GroupID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gt"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["created_at"] = timeQuery
	}
	return query
}

// Query retrieves audits matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]models.AuditEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.AuditEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of audits matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(filter))
}

// ListCandidates returns a group's audits created after since (all, when
// since is nil) and at or before until, oldest first. The result is the
// candidate set for digest planning; callers widen since by a retry margin.
func (s *Store) ListCandidates(ctx context.Context, groupID primitive.ObjectID, since *time.Time, until time.Time) ([]models.AuditEvent, error) {
	filter := QueryFilter{GroupID: &groupID, StartTime: since, EndTime: &until}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.AuditEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// MarkSubgroupDeleted flags every audit scoped to subgroupID so it is no
// longer eligible for digests. Returns the number of audits updated.
func (s *Store) MarkSubgroupDeleted(ctx context.Context, subgroupID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"subgroup_id": subgroupID, "deleted_subgroup": false},
		bson.M{"$set": bson.M{"deleted_subgroup": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
