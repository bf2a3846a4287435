package sweeplock

import (
	"context"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLock claims sweep slots by inserting one sweep_runs document per
// slot. The unique index on slot (uniq_sweep_runs_slot) makes the insert
// the claim. Claims do not expire; a slot is a UTC day, so the next day
// uses a new document.
type MongoLock struct {
	c *mongo.Collection
}

type sweepRun struct {
	ID        primitive.ObjectID `bson:"_id"`
	Slot      string             `bson:"slot"`
	Token     string             `bson:"token"`
	ClaimedAt time.Time          `bson:"claimed_at"`
}

// NewMongo returns a MongoLock over db's sweep_runs collection.
func NewMongo(db *mongo.Database) *MongoLock {
	return &MongoLock{c: db.Collection("sweep_runs")}
}

// Acquire claims slot. acquired is false when a sweep_runs document for
// slot already exists.
func (l *MongoLock) Acquire(ctx context.Context, slot string) (func(context.Context) error, bool, error) {
	run := sweepRun{
		ID:        primitive.NewObjectID(),
		Slot:      slot,
		Token:     uuid.NewString(),
		ClaimedAt: time.Now().UTC(),
	}
	if _, err := l.c.InsertOne(ctx, run); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("claim sweep slot %q: %w", slot, err)
	}

	release := func(ctx context.Context) error {
		_, err := l.c.DeleteOne(ctx, bson.M{"slot": slot, "token": run.Token})
		return err
	}
	return release, true, nil
}
