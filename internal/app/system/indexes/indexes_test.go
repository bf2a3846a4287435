package indexes_test

import (
	"testing"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/indexes"
	"github.com/dalemusser/groupdigest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		coll  string
		names []string
	}{
		{"groups", []string{"uniq_groups_nameci"}},
		{"subgroups", []string{"uniq_subgroups_group_identifier", "idx_subgroups_group_deleted"}},
		{"memberships", []string{"uniq_memberships_user_group", "idx_memberships_suspended__id", "idx_memberships_group_lastnotification"}},
		{"subgroup_memberships", []string{"uniq_sgm_membership_subgroup", "idx_sgm_subgroup"}},
		{"activity_audits", []string{"idx_audits_group_created__id", "idx_audits_group_category_created", "idx_audits_subgroup"}},
		{"digest_outbox", []string{"uniq_outbox_membership_watermark", "idx_outbox_run", "idx_outbox_status_created"}},
		{"sweep_runs", []string{"uniq_sweep_runs_slot"}},
	}
	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			got := indexNames(t, db, tt.coll)
			for _, name := range tt.names {
				if !got[name] {
					t.Errorf("expected index %q on %s", name, tt.coll)
				}
			}
		})
	}
}

func TestEnsureAll_RenamesMismatchedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys as uniq_groups_nameci, wrong name and not unique.
	_, err := db.Collection("groups").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name_ci", Value: 1}},
	})
	if err != nil {
		t.Fatalf("create legacy index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, db, "groups")
	if !got["uniq_groups_nameci"] {
		t.Error("expected uniq_groups_nameci after replacement")
	}
	if got["name_ci_1"] {
		t.Error("legacy index name_ci_1 should have been dropped")
	}
}

func TestEnsureAll_OutboxUniquePerWatermark(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	mid := primitive.NewObjectID()
	wm := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)
	if _, err := db.Collection("digest_outbox").InsertOne(ctx, bson.M{"membership_id": mid, "watermark": wm, "run_id": "a"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := db.Collection("digest_outbox").InsertOne(ctx, bson.M{"membership_id": mid, "watermark": wm, "run_id": "b"}); err == nil {
		t.Error("expected duplicate key error for the same membership and watermark")
	}
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	uid, gid := primitive.NewObjectID(), primitive.NewObjectID()
	for i := 0; i < 2; i++ {
		if _, err := db.Collection("memberships").InsertOne(ctx, bson.M{"user_id": uid, "group_id": gid}); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}

	if err := indexes.EnsureAll(ctx, db); err == nil {
		t.Error("expected EnsureAll to report duplicate memberships")
	}
}
