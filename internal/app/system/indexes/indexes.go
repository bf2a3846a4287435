// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from EnsureSchema at startup. Each ensure* function is
idempotent. Problems are aggregated so every broken collection shows up in
one error and startup fails fast.

Several stores depend on the unique indexes here to report duplicates
(groups, memberships, subgroups, subgroup_memberships) and the digest
outbox relies on uniq_outbox_membership_watermark so a digest can be
written at most once per watermark. sweep_runs relies on
uniq_sweep_runs_slot so one sweep claims each UTC day.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		name   string
		ensure func(context.Context, *mongo.Database) error
	}{
		{"groups", ensureGroups},
		{"subgroups", ensureSubgroups},
		{"memberships", ensureMemberships},
		{"subgroup_memberships", ensureSubgroupMemberships},
		{"activity_audits", ensureActivityAudits},
		{"digest_outbox", ensureDigestOutbox},
		{"sweep_runs", ensureSweepRuns},
	}

	var problems []string
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

// keySig renders a key pattern as "a:1,b:-1" for comparison.
func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, e := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", e.Key, e.Value))
	}
	return strings.Join(parts, ",")
}

func isUnique(b *bool) bool { return b != nil && *b }

func isDuplicateKeyErr(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

// 85 IndexOptionsConflict, 86 IndexKeySpecsConflict
func isOptionsConflictErr(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code == 85 || ce.Code == 86
	}
	return false
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates each model unless an index with the same keys,
// uniqueness and name is already present. A same-keys index with a
// different name or uniqueness is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A missing collection lists as an error on some servers; treat as empty.
		existing = map[string]existingIndex{}
	}

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if isUnique(unique) == isUnique(ex.Unique) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			zap.L().Info("replacing index",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.Bool("unique", isUnique(unique)))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			switch {
			case isDuplicateKeyErr(err) && isUnique(unique):
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			case isOptionsConflictErr(err):
				errs = append(errs, fmt.Sprintf("%s(%s): conflicts with an existing index: %v", coll.Name(), name, err))
			default:
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", created),
			zap.String("keys", sig),
			zap.Bool("unique", isUnique(unique)),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("groups"), []mongo.IndexModel{
		// Group names are unique after case/diacritic folding.
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_groups_nameci"),
		},
	})
}

func ensureSubgroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("subgroups"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "identifier", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_subgroups_group_identifier"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "deleted", Value: 1}},
			Options: options.Index().SetName("idx_subgroups_group_deleted"),
		},
	})
}

func ensureMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("memberships"), []mongo.IndexModel{
		// One membership per (user, group).
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_memberships_user_group"),
		},
		// Sweep paging: active memberships in _id order.
		{
			Keys:    bson.D{{Key: "suspended", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_memberships_suspended__id"),
		},
		// not_notified_since and per-group counts.
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "last_notification", Value: 1}},
			Options: options.Index().SetName("idx_memberships_group_lastnotification"),
		},
	})
}

func ensureSubgroupMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("subgroup_memberships"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "membership_id", Value: 1}, {Key: "subgroup_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_sgm_membership_subgroup"),
		},
		{
			Keys:    bson.D{{Key: "subgroup_id", Value: 1}},
			Options: options.Index().SetName("idx_sgm_subgroup"),
		},
	})
}

func ensureActivityAudits(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("activity_audits"), []mongo.IndexModel{
		// Candidate windows: one group, created_at range, ascending.
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_audits_group_created__id"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audits_group_category_created"),
		},
		{
			Keys:    bson.D{{Key: "subgroup_id", Value: 1}},
			Options: options.Index().SetName("idx_audits_subgroup"),
		},
	})
}

func ensureDigestOutbox(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("digest_outbox"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "membership_id", Value: 1}, {Key: "watermark", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_outbox_membership_watermark"),
		},
		{
			Keys:    bson.D{{Key: "run_id", Value: 1}},
			Options: options.Index().SetName("idx_outbox_run"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_outbox_status_created"),
		},
	})
}

func ensureSweepRuns(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("sweep_runs"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slot", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_sweep_runs_slot"),
		},
	})
}
