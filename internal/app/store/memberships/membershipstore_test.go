package membershipstore_test

import (
	"errors"
	"testing"
	"time"

	membershipstore "github.com/dalemusser/groupdigest/internal/app/store/memberships"
	"github.com/dalemusser/groupdigest/internal/app/system/indexes"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	"github.com/dalemusser/groupdigest/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create_InheritsGroupDefault(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Chess Club", models.CadenceTwiceWeekly)

	created, err := store.Create(ctx, models.Membership{GroupID: group.ID, UserID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if created.NotificationSchedule != models.CadenceTwiceWeekly {
		t.Errorf("NotificationSchedule: got %v, want twice_weekly", created.NotificationSchedule)
	}

	// A later change to the group default does not touch the stored value.
	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.NotificationSchedule != models.CadenceTwiceWeekly {
		t.Errorf("stored schedule: got %v", got.NotificationSchedule)
	}
}

func TestStore_Create_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	group := fixtures.CreateGroup(ctx, "Chess Club", models.CadenceDaily)
	user := primitive.NewObjectID()

	if _, err := store.Create(ctx, models.Membership{GroupID: group.ID, UserID: user}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	tests := []struct {
		name string
		m    models.Membership
		want error
	}{
		{"duplicate", models.Membership{GroupID: group.ID, UserID: user}, membershipstore.ErrDuplicateMembership},
		{"invalid cadence", models.Membership{GroupID: group.ID, UserID: primitive.NewObjectID(), NotificationSchedule: models.CadenceUnrecognized}, membershipstore.ErrInvalidCadence},
		{"missing group", models.Membership{GroupID: primitive.NewObjectID(), UserID: primitive.NewObjectID()}, membershipstore.ErrGroupNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.m); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_SetScheduleAndSuspended(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Chess Club", models.CadenceDaily)
	m := fixtures.CreateMembership(ctx, group.ID, testutil.MembershipOpts{Schedule: models.CadenceDaily})

	if err := store.SetSchedule(ctx, m.ID, models.CadenceNone); err != nil {
		t.Fatalf("SetSchedule failed: %v", err)
	}
	if err := store.SetSuspended(ctx, m.ID, true); err != nil {
		t.Fatalf("SetSuspended failed: %v", err)
	}
	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.NotificationSchedule != models.CadenceNone || !got.Suspended {
		t.Errorf("got schedule %v suspended %v", got.NotificationSchedule, got.Suspended)
	}

	if err := store.SetSchedule(ctx, m.ID, models.CadenceUnrecognized); !errors.Is(err, membershipstore.ErrInvalidCadence) {
		t.Errorf("invalid cadence: got %v", err)
	}
	if err := store.SetSchedule(ctx, primitive.NewObjectID(), models.CadenceDaily); !errors.Is(err, membershipstore.ErrNotFound) {
		t.Errorf("missing membership: got %v", err)
	}
}

func TestStore_AdvanceWatermark(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Chess Club", models.CadenceDaily)
	m := fixtures.CreateMembership(ctx, group.ID, testutil.MembershipOpts{})

	t1 := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	t2 := t1.Add(time.Hour)

	if err := store.AdvanceWatermark(ctx, m.ID, t1); err != nil {
		t.Fatalf("first advance failed: %v", err)
	}
	if err := store.AdvanceWatermark(ctx, m.ID, t1); !errors.Is(err, membershipstore.ErrStaleWatermark) {
		t.Errorf("same watermark: got %v, want ErrStaleWatermark", err)
	}
	if err := store.AdvanceWatermark(ctx, m.ID, t0); !errors.Is(err, membershipstore.ErrStaleWatermark) {
		t.Errorf("older watermark: got %v, want ErrStaleWatermark", err)
	}
	if err := store.AdvanceWatermark(ctx, m.ID, t2); err != nil {
		t.Errorf("newer watermark failed: %v", err)
	}
	if err := store.AdvanceWatermark(ctx, primitive.NewObjectID(), t2); !errors.Is(err, membershipstore.ErrNotFound) {
		t.Errorf("missing membership: got %v, want ErrNotFound", err)
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.LastNotification == nil || !got.LastNotification.Equal(t2) {
		t.Errorf("LastNotification: got %v, want %s", got.LastNotification, t2)
	}
}

func TestStore_NotNotifiedSince(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Chess Club", models.CadenceDaily)
	other := fixtures.CreateGroup(ctx, "Go Club", models.CadenceDaily)
	cutoff := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	before := cutoff.Add(-time.Hour)
	after := cutoff.Add(time.Hour)

	never := fixtures.CreateMembership(ctx, group.ID, testutil.MembershipOpts{})
	old := fixtures.CreateMembership(ctx, group.ID, testutil.MembershipOpts{LastNotification: &before})
	fixtures.CreateMembership(ctx, group.ID, testutil.MembershipOpts{LastNotification: &after})
	fixtures.CreateMembership(ctx, other.ID, testutil.MembershipOpts{})

	got, err := store.NotNotifiedSince(ctx, group.ID, cutoff)
	if err != nil {
		t.Fatalf("NotNotifiedSince failed: %v", err)
	}
	ids := map[primitive.ObjectID]bool{}
	for _, m := range got {
		ids[m.ID] = true
	}
	if len(got) != 2 || !ids[never.ID] || !ids[old.ID] {
		t.Errorf("got %d memberships %v, want never and old", len(got), ids)
	}
}

func TestStore_ListActivePage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Chess Club", models.CadenceDaily)
	var want []primitive.ObjectID
	for i := 0; i < 5; i++ {
		m := fixtures.CreateMembership(ctx, group.ID, testutil.MembershipOpts{})
		want = append(want, m.ID)
	}
	fixtures.CreateMembership(ctx, group.ID, testutil.MembershipOpts{Suspended: true})

	var got []primitive.ObjectID
	after := primitive.NilObjectID
	for {
		page, err := store.ListActivePage(ctx, after, 2)
		if err != nil {
			t.Fatalf("ListActivePage failed: %v", err)
		}
		if len(page) == 0 {
			break
		}
		if len(page) > 2 {
			t.Fatalf("page larger than limit: %d", len(page))
		}
		for _, m := range page {
			got = append(got, m.ID)
		}
		after = page[len(page)-1].ID
	}

	if len(got) != len(want) {
		t.Fatalf("got %d memberships, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].Hex(), want[i].Hex())
		}
	}

	n, err := store.CountByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("CountByGroup failed: %v", err)
	}
	if n != 6 {
		t.Errorf("CountByGroup: got %d, want 6", n)
	}
}
