package sweep

import (
	"context"
	"errors"
	"time"

	digeststore "github.com/dalemusser/groupdigest/internal/app/store/digests"
	membershipstore "github.com/dalemusser/groupdigest/internal/app/store/memberships"
	"github.com/dalemusser/groupdigest/internal/app/system/txn"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type watermarkWriter interface {
	AdvanceWatermark(ctx context.Context, id primitive.ObjectID, to time.Time) error
}

type outboxWriter interface {
	Insert(ctx context.Context, d models.Digest) (models.Digest, error)
}

// MongoCommitter advances the watermark and writes the outbox digest in
// one transaction. The watermark goes first: its conditional update is
// what stops two committers from producing the same digest.
type MongoCommitter struct {
	client      *mongo.Client
	memberships watermarkWriter
	digests     outboxWriter
	log         *zap.Logger
}

// NewMongoCommitter builds a committer over the memberships and outbox
// collections of client.
func NewMongoCommitter(client *mongo.Client, memberships *membershipstore.Store, digests *digeststore.Store, logger *zap.Logger) *MongoCommitter {
	return &MongoCommitter{client: client, memberships: memberships, digests: digests, log: logger}
}

// Commit implements Committer.
func (c *MongoCommitter) Commit(ctx context.Context, m models.Membership, d models.Digest) error {
	err := txn.Run(ctx, c.client, c.log, func(ctx context.Context) error {
		return commitOne(ctx, c.memberships, c.digests, m, d, c.log)
	})
	if errors.Is(err, membershipstore.ErrStaleWatermark) || errors.Is(err, digeststore.ErrDuplicateDigest) {
		return ErrStaleWatermark
	}
	return err
}

func commitOne(ctx context.Context, memberships watermarkWriter, digests outboxWriter, m models.Membership, d models.Digest, logger *zap.Logger) error {
	if err := memberships.AdvanceWatermark(ctx, m.ID, d.Watermark); err != nil {
		return err
	}
	_, err := digests.Insert(ctx, d)
	if err != nil && !txn.InTransaction(ctx) && !errors.Is(err, digeststore.ErrDuplicateDigest) {
		// Without a transaction the watermark stays advanced, so this
		// membership's audits up to the watermark will not be sent.
		logger.Error("digest lost: watermark advanced but outbox insert failed",
			zap.String("membership_id", m.ID.Hex()),
			zap.Time("watermark", d.Watermark),
			zap.String("run_id", d.RunID),
			zap.Error(err))
	}
	return err
}
