// internal/app/store/digests/digeststore.go
package digeststore

import (
	"context"
	"errors"

	"github.com/dalemusser/groupdigest/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateDigest is returned when a digest for the same membership and
// watermark already exists.
var ErrDuplicateDigest = errors.New("digest already recorded for this membership and watermark")

// Store is the digest outbox. A delivery service reads pending digests
// from it; this service only writes them.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("digest_outbox")}
}

// Insert writes a digest. Pass a session context to run it inside a
// transaction with the watermark update.
func (s *Store) Insert(ctx context.Context, d models.Digest) (models.Digest, error) {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if d.Status == "" {
		d.Status = models.DigestStatusPending
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Digest{}, ErrDuplicateDigest
		}
		return models.Digest{}, err
	}
	return d, nil
}

// ListByMembership returns a membership's digests, newest first.
func (s *Store) ListByMembership(ctx context.Context, membershipID primitive.ObjectID, limit int64) ([]models.Digest, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "watermark", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"membership_id": membershipID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Digest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByRun returns the number of digests a sweep run produced.
func (s *Store) CountByRun(ctx context.Context, runID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"run_id": runID})
}

// DeleteByMembership removes a membership's digests.
func (s *Store) DeleteByMembership(ctx context.Context, membershipID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"membership_id": membershipID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
