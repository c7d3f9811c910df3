package settingsstore_test

import (
	"testing"

	settingsstore "github.com/dalemusser/larder/internal/app/store/notifysettings"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/larder/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Get_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	uid := primitive.NewObjectID()
	ns, found, err := store.Get(ctx, uid, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected found=false")
	}
	if ns.NotificationTime != "09:00:00" || !ns.PushEnabled || ns.EmailEnabled {
		t.Errorf("unexpected defaults: %+v", ns)
	}
	if len(ns.DaysBeforeExpiry) != 3 {
		t.Errorf("days: %v", ns.DaysBeforeExpiry)
	}
}

func TestStore_Upsert_ScopesByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	uid := primitive.NewObjectID()
	gid := primitive.NewObjectID()

	global := models.DefaultNotificationSettings(uid, nil)
	global.EmailEnabled = true
	saved, err := store.Upsert(ctx, global)
	if err != nil {
		t.Fatalf("Upsert(global) failed: %v", err)
	}
	if saved.ID.IsZero() || saved.CreatedAt.IsZero() {
		t.Errorf("expected id and created_at, got %+v", saved)
	}

	group := models.DefaultNotificationSettings(uid, &gid)
	group.DaysBeforeExpiry = []int{2}
	if _, err := store.Upsert(ctx, group); err != nil {
		t.Fatalf("Upsert(group) failed: %v", err)
	}

	// Upserting again updates in place.
	global.NotificationTime = "18:30:00"
	again, err := store.Upsert(ctx, global)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if again.ID != saved.ID {
		t.Errorf("expected same row, got %v vs %v", again.ID, saved.ID)
	}

	g, found, _ := store.Get(ctx, uid, &gid)
	if !found || len(g.DaysBeforeExpiry) != 1 || g.DaysBeforeExpiry[0] != 2 {
		t.Errorf("group row: found=%v %+v", found, g)
	}
	gl, _, _ := store.Get(ctx, uid, nil)
	if gl.NotificationTime != "18:30:00" || !gl.EmailEnabled {
		t.Errorf("global row: %+v", gl)
	}

	if n, err := store.DeleteByGroup(ctx, gid); err != nil || n != 1 {
		t.Errorf("DeleteByGroup = %d, %v", n, err)
	}
}

func TestStore_ListDue_AndMarkNotified(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	morning := models.DefaultNotificationSettings(primitive.NewObjectID(), nil)
	evening := models.DefaultNotificationSettings(primitive.NewObjectID(), nil)
	evening.NotificationTime = "18:00:00"
	muted := models.DefaultNotificationSettings(primitive.NewObjectID(), nil)
	muted.PushEnabled = false
	for _, ns := range []models.NotificationSettings{morning, evening, muted} {
		if _, err := store.Upsert(ctx, ns); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	due, err := store.ListDue(ctx, "09:00", "2026-05-01")
	if err != nil {
		t.Fatalf("ListDue failed: %v", err)
	}
	if len(due) != 1 || due[0].UserID != morning.UserID {
		t.Fatalf("due = %+v", due)
	}

	ok, err := store.MarkNotified(ctx, due[0].ID, "2026-05-01")
	if err != nil || !ok {
		t.Fatalf("MarkNotified = %v, %v", ok, err)
	}
	ok, _ = store.MarkNotified(ctx, due[0].ID, "2026-05-01")
	if ok {
		t.Error("expected second claim on the same day to fail")
	}

	due, _ = store.ListDue(ctx, "09:00", "2026-05-01")
	if len(due) != 0 {
		t.Errorf("expected no rows after notify, got %d", len(due))
	}
	due, _ = store.ListDue(ctx, "09:00", "2026-05-02")
	if len(due) != 1 {
		t.Errorf("expected row due again next day, got %d", len(due))
	}

	if _, err := store.ListDue(ctx, "9am", "2026-05-01"); err == nil {
		t.Error("expected error for malformed minute")
	}
}

func TestStore_DeleteForMember_KeepsOthers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leaving := primitive.NewObjectID()
	staying := primitive.NewObjectID()
	gid := primitive.NewObjectID()

	for _, ns := range []models.NotificationSettings{
		models.DefaultNotificationSettings(leaving, &gid),
		models.DefaultNotificationSettings(leaving, nil),
		models.DefaultNotificationSettings(staying, &gid),
	} {
		if _, err := store.Upsert(ctx, ns); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	if n, err := store.DeleteForMember(ctx, gid, leaving); err != nil || n != 1 {
		t.Fatalf("DeleteForMember = %d, %v", n, err)
	}
	if _, found, _ := store.Get(ctx, leaving, &gid); found {
		t.Error("leaving user's group row should be gone")
	}
	if _, found, _ := store.Get(ctx, leaving, nil); !found {
		t.Error("leaving user's global row should remain")
	}
	if _, found, _ := store.Get(ctx, staying, &gid); !found {
		t.Error("other member's group row should remain")
	}
}
