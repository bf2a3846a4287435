// internal/app/store/subgroups/subgroupstore.go
package subgroupstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditstore "github.com/dalemusser/groupdigest/internal/app/store/audit"
	"github.com/dalemusser/groupdigest/internal/app/system/txn"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c      *mongo.Collection
	audits *auditstore.Store
}

var (
	ErrNotFound            = errors.New("subgroup not found")
	ErrDuplicateIdentifier = errors.New("a subgroup with this identifier already exists in the group")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("subgroups"), audits: auditstore.New(db)}
}

func (s *Store) Create(ctx context.Context, groupID primitive.ObjectID, identifier string) (models.Subgroup, error) {
	sg := models.Subgroup{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		Identifier: identifier,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, sg); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Subgroup{}, ErrDuplicateIdentifier
		}
		return models.Subgroup{}, err
	}
	return sg, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Subgroup, error) {
	var sg models.Subgroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Subgroup{}, ErrNotFound
		}
		return models.Subgroup{}, err
	}
	return sg, nil
}

// ListByGroup returns the group's subgroups sorted by identifier.
// Deleted subgroups are included only when includeDeleted is true.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, includeDeleted bool) ([]models.Subgroup, error) {
	filter := bson.M{"group_id": groupID}
	if !includeDeleted {
		filter["deleted"] = false
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "identifier", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Subgroup
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkDeleted soft-deletes a subgroup and flags every audit scoped to it
// as deleted_subgroup, in one transaction where the server supports it.
// Flagged audits are never eligible for digests.
func (s *Store) MarkDeleted(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	return txn.Run(ctx, s.c.Database().Client(), nil, func(ctx context.Context) error {
		res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"deleted": true, "deleted_at": now}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		if _, err := s.audits.MarkSubgroupDeleted(ctx, id); err != nil {
			return fmt.Errorf("flag audits of subgroup %s: %w", id.Hex(), err)
		}
		return nil
	})
}
