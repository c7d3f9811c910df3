package membershipstore_test

import (
	"errors"
	"testing"
	"time"

	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/larder/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Add_AndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Ana", "ana@example.com")
	g := fixtures.CreateGroup(ctx, "Home")

	m, err := store.Add(ctx, g.ID, u.ID, models.RoleOwner)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if m.JoinedAt.IsZero() {
		t.Error("expected JoinedAt to be set")
	}

	got, err := store.Get(ctx, g.ID, u.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Role != models.RoleOwner {
		t.Errorf("Role: got %q", got.Role)
	}

	if _, err := store.Add(ctx, g.ID, u.ID, models.RoleMember); !errors.Is(err, membershipstore.ErrDuplicateMembership) {
		t.Errorf("expected ErrDuplicateMembership, got %v", err)
	}
	if _, err := store.Add(ctx, g.ID, primitive.NewObjectID(), "admin"); err == nil {
		t.Error("expected error for invalid role")
	}
	if _, err := store.Get(ctx, g.ID, primitive.NewObjectID()); !errors.Is(err, membershipstore.ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestStore_ListByUser_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Ana", "ana@example.com")
	first := fixtures.CreateGroup(ctx, "First")
	second := fixtures.CreateGroup(ctx, "Second")
	fixtures.CreateMembershipAt(ctx, first.ID, u.ID, models.RoleOwner, time.Now().Add(-time.Hour))
	fixtures.CreateMembershipAt(ctx, second.ID, u.ID, models.RoleMember, time.Now())

	got, err := store.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 2 || got[0].GroupID != second.ID {
		t.Errorf("expected newest membership first, got %+v", got)
	}

	ids, err := store.GroupIDsForUser(ctx, u.ID)
	if err != nil || len(ids) != 2 {
		t.Errorf("GroupIDsForUser: %v %v", ids, err)
	}
}

func TestStore_ListMembers_WithEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Home")
	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")
	fixtures.CreateMembershipAt(ctx, g.ID, owner.ID, models.RoleOwner, time.Now().Add(-time.Hour))
	fixtures.CreateMembershipAt(ctx, g.ID, member.ID, models.RoleMember, time.Now())

	got, err := store.ListMembers(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 members, got %d", len(got))
	}
	if got[0].Email != "owner@example.com" || got[0].Role != models.RoleOwner {
		t.Errorf("first member: %+v", got[0])
	}
	if got[1].FullName != "Member" {
		t.Errorf("second member: %+v", got[1])
	}
}

func TestStore_Remove_LastOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Home")
	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")
	fixtures.CreateMembership(ctx, g.ID, owner.ID, models.RoleOwner)
	fixtures.CreateMembership(ctx, g.ID, member.ID, models.RoleMember)

	if err := store.Remove(ctx, g.ID, owner.ID); !errors.Is(err, membershipstore.ErrLastOwner) {
		t.Errorf("expected ErrLastOwner, got %v", err)
	}
	if err := store.Remove(ctx, g.ID, member.ID); err != nil {
		t.Errorf("Remove member failed: %v", err)
	}
	if err := store.Remove(ctx, g.ID, member.ID); !errors.Is(err, membershipstore.ErrNotMember) {
		t.Errorf("expected ErrNotMember on second remove, got %v", err)
	}

	n, err := store.DeleteByGroup(ctx, g.ID)
	if err != nil || n != 1 {
		t.Errorf("DeleteByGroup: n=%d err=%v", n, err)
	}
}
