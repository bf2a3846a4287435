package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/store/audit"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	"github.com/dalemusser/groupdigest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var base = time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gid := primitive.NewObjectID()
	sid := primitive.NewObjectID()
	ev, err := store.Log(ctx, models.AuditEvent{
		GroupID:      gid,
		Category:     audit.CategoryPosts,
		SubgroupID:   &sid,
		OnlyManagers: true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if ev.ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if ev.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := store.Query(ctx, audit.QueryFilter{GroupID: &gid})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d audits, want 1", len(got))
	}
	if got[0].SubgroupID == nil || *got[0].SubgroupID != sid || !got[0].OnlyManagers {
		t.Errorf("scope not round-tripped: %+v", got[0])
	}
}

func TestStore_QueryAndCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gid := primitive.NewObjectID()
	for i, cat := range []string{audit.CategoryPosts, audit.CategoryFiles, audit.CategoryPosts} {
		fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: cat, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: primitive.NewObjectID(), Category: audit.CategoryPosts, CreatedAt: base})

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"group", audit.QueryFilter{GroupID: &gid}, 3},
		{"group and category", audit.QueryFilter{GroupID: &gid, Category: audit.CategoryPosts}, 2},
		{"category across groups", audit.QueryFilter{Category: audit.CategoryPosts}, 3},
		{"limit", audit.QueryFilter{GroupID: &gid, Limit: 1}, 1},
		{"offset", audit.QueryFilter{GroupID: &gid, Offset: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d audits, want %d", len(got), tt.want)
			}
		})
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{GroupID: &gid, Category: audit.CategoryFiles})
	if err != nil || n != 1 {
		t.Errorf("CountByFilter: got %d, %v", n, err)
	}

	recent, _ := store.Query(ctx, audit.QueryFilter{GroupID: &gid})
	if len(recent) == 3 && !recent[0].CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("expected most recent first, got %s", recent[0].CreatedAt)
	}
}

func TestStore_ListCandidates_Window(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gid := primitive.NewObjectID()
	atSince := fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: "posts", CreatedAt: base})
	inside := fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: "posts", CreatedAt: base.Add(time.Hour)})
	atUntil := fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: "files", CreatedAt: base.Add(2 * time.Hour)})
	fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: "posts", CreatedAt: base.Add(3 * time.Hour)})

	until := base.Add(2 * time.Hour)

	got, err := store.ListCandidates(ctx, gid, &base, until)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != inside.ID || got[1].ID != atUntil.ID {
		t.Errorf("(since, until]: got %+v", got)
	}

	all, err := store.ListCandidates(ctx, gid, nil, until)
	if err != nil {
		t.Fatalf("ListCandidates(nil) failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != atSince.ID {
		t.Errorf("open window: got %+v", all)
	}
}

func TestStore_MarkSubgroupDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gid := primitive.NewObjectID()
	sid := primitive.NewObjectID()
	fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: "posts", SubgroupID: &sid, CreatedAt: base})
	fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: "posts", SubgroupID: &sid, CreatedAt: base})
	fixtures.CreateAudit(ctx, models.AuditEvent{GroupID: gid, Category: "posts", CreatedAt: base})

	n, err := store.MarkSubgroupDeleted(ctx, sid)
	if err != nil {
		t.Fatalf("MarkSubgroupDeleted failed: %v", err)
	}
	if n != 2 {
		t.Errorf("updated: got %d, want 2", n)
	}

	n, err = store.MarkSubgroupDeleted(ctx, sid)
	if err != nil || n != 0 {
		t.Errorf("second call: got %d, %v", n, err)
	}

	all, _ := store.ListCandidates(ctx, gid, nil, base)
	flagged := 0
	for _, a := range all {
		if a.DeletedSubgroup {
			flagged++
		}
	}
	if flagged != 2 {
		t.Errorf("flagged audits: got %d, want 2", flagged)
	}
}
