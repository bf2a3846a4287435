// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupdigest/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c      *mongo.Collection
	groups *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("memberships"),
		groups: db.Collection("groups"),
	}
}

var (
	ErrNotFound            = errors.New("membership not found")
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	ErrInvalidCadence      = errors.New("notification schedule must be unset or a selectable cadence")
	ErrGroupNotFound       = errors.New("group not found")

	// ErrStaleWatermark is returned when a watermark update would not move
	// last_notification forward.
	ErrStaleWatermark = errors.New("membership was already notified at or after this time")
)

// Create inserts a membership. When NotificationSchedule is unset it is
// filled from the group's default, so later changes to the group default
// do not retroactively change existing members.
func (s *Store) Create(ctx context.Context, m models.Membership) (models.Membership, error) {
	if !m.NotificationSchedule.IsSet() {
		var g models.Group
		if err := s.groups.FindOne(ctx, bson.M{"_id": m.GroupID}).Decode(&g); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return models.Membership{}, ErrGroupNotFound
			}
			return models.Membership{}, err
		}
		m.NotificationSchedule = g.DefaultNotificationSchedule
	} else if !m.NotificationSchedule.Valid() {
		return models.Membership{}, ErrInvalidCadence
	}

	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Membership{}, ErrNotFound
		}
		return models.Membership{}, err
	}
	return m, nil
}

// SetSchedule changes a membership's cadence. CadenceUnset makes it follow
// the group default again.
func (s *Store) SetSchedule(ctx context.Context, id primitive.ObjectID, c models.Cadence) error {
	if c.IsSet() && !c.Valid() {
		return ErrInvalidCadence
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"notification_schedule": c}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSuspended suspends or reinstates a membership.
func (s *Store) SetSuspended(ctx context.Context, id primitive.ObjectID, suspended bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"suspended": suspended}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceWatermark sets last_notification to `to` only if it is currently
// unset or older. The check and the write are a single update, so two
// concurrent committers cannot move the watermark backwards.
// Pass a session context to run it inside a transaction.
func (s *Store) AdvanceWatermark(ctx context.Context, id primitive.ObjectID, to time.Time) error {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"last_notification": nil},
			bson.M{"last_notification": bson.M{"$lt": to}},
		},
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"last_notification": to.UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if exists, err := s.exists(ctx, id); err != nil {
			return err
		} else if !exists {
			return ErrNotFound
		}
		return ErrStaleWatermark
	}
	return nil
}

func (s *Store) exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NotNotifiedSince lists memberships of a group that were never notified
// or were last notified before t.
func (s *Store) NotNotifiedSince(ctx context.Context, groupID primitive.ObjectID, t time.Time) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"group_id": groupID,
		"$or": bson.A{
			bson.M{"last_notification": nil},
			bson.M{"last_notification": bson.M{"$lt": t}},
		},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActivePage returns up to limit non-suspended memberships with _id
// greater than after, in _id order. Pass primitive.NilObjectID to start.
// An empty page means the scan is complete.
func (s *Store) ListActivePage(ctx context.Context, after primitive.ObjectID, limit int64) ([]models.Membership, error) {
	filter := bson.M{"suspended": false}
	if !after.IsZero() {
		filter["_id"] = bson.M{"$gt": after}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByGroup returns the number of memberships in a group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID})
}
