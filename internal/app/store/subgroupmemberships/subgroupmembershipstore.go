// internal/app/store/subgroupmemberships/subgroupmembershipstore.go
package subgroupmembershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupdigest/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c         *mongo.Collection
	subgroups *mongo.Collection
}

var (
	ErrDuplicate     = errors.New("membership already belongs to this subgroup")
	ErrGroupMismatch = errors.New("subgroup belongs to a different group than the membership")

	ErrSubgroupNotFound = errors.New("subgroup not found")
)

func New(db *mongo.Database) *Store {
	return &Store{
		c:         db.Collection("subgroup_memberships"),
		subgroups: db.Collection("subgroups"),
	}
}

// Add links a membership to a subgroup of the same group.
func (s *Store) Add(ctx context.Context, m models.Membership, subgroupID primitive.ObjectID, manager bool) (models.SubgroupMembership, error) {
	var sg models.Subgroup
	if err := s.subgroups.FindOne(ctx, bson.M{"_id": subgroupID}).Decode(&sg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.SubgroupMembership{}, ErrSubgroupNotFound
		}
		return models.SubgroupMembership{}, err
	}
	if sg.GroupID != m.GroupID {
		return models.SubgroupMembership{}, ErrGroupMismatch
	}

	sm := models.SubgroupMembership{
		ID:           primitive.NewObjectID(),
		MembershipID: m.ID,
		GroupID:      m.GroupID,
		SubgroupID:   subgroupID,
		Manager:      manager,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, sm); err != nil {
		if wafflemongo.IsDup(err) {
			return models.SubgroupMembership{}, ErrDuplicate
		}
		return models.SubgroupMembership{}, err
	}
	return sm, nil
}

// Remove deletes the link between membershipID and subgroupID.
func (s *Store) Remove(ctx context.Context, membershipID, subgroupID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"membership_id": membershipID, "subgroup_id": subgroupID})
	return err
}

// DeleteByMembership removes every subgroup link of a membership.
func (s *Store) DeleteByMembership(ctx context.Context, membershipID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"membership_id": membershipID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByMembership returns the subgroup links of one membership.
func (s *Store) ListByMembership(ctx context.Context, membershipID primitive.ObjectID) ([]models.SubgroupMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{"membership_id": membershipID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SubgroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByMemberships returns subgroup links for several memberships in one
// query, keyed by membership id.
func (s *Store) ListByMemberships(ctx context.Context, membershipIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.SubgroupMembership, error) {
	out := make(map[primitive.ObjectID][]models.SubgroupMembership, len(membershipIDs))
	if len(membershipIDs) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"membership_id": bson.M{"$in": membershipIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var sm models.SubgroupMembership
		if err := cur.Decode(&sm); err != nil {
			return nil, err
		}
		out[sm.MembershipID] = append(out[sm.MembershipID], sm)
	}
	return out, cur.Err()
}
