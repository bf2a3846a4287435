// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupdigest/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound           = errors.New("group not found")
	ErrDuplicateGroupName = errors.New("a group with this name already exists")
	ErrInvalidCadence     = errors.New("default notification schedule must be a selectable cadence")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// GetMany loads the groups with the given ids keyed by id.
// Missing ids are simply absent from the result.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Group, error) {
	out := make(map[primitive.ObjectID]models.Group, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var g models.Group
		if err := cur.Decode(&g); err != nil {
			return nil, err
		}
		out[g.ID] = g
	}
	return out, cur.Err()
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	if !g.DefaultNotificationSchedule.Valid() {
		return models.Group{}, ErrInvalidCadence
	}
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroupName
		}
		return models.Group{}, err
	}
	return g, nil
}

// SetDefaultSchedule changes the cadence inherited by memberships that
// have no schedule of their own.
func (s *Store) SetDefaultSchedule(ctx context.Context, id primitive.ObjectID, c models.Cadence) error {
	if !c.Valid() {
		return ErrInvalidCadence
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"default_notification_schedule": c,
		"updated_at":                    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSubgroupVisible adds or removes subgroupID from the group's globally
// visible subgroups.
func (s *Store) SetSubgroupVisible(ctx context.Context, id, subgroupID primitive.ObjectID, visible bool) error {
	op := "$pull"
	if visible {
		op = "$addToSet"
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		op:     bson.M{"visible_subgroup_ids": subgroupID},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
