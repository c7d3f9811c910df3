package groupstore_test

import (
	"errors"
	"testing"

	groupstore "github.com/dalemusser/larder/internal/app/store/groups"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/larder/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Group{Name: "  The   Flat "})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Name != "The Flat" {
		t.Errorf("Name: got %q", created.Name)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_NameRequired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.Group{Name: "  "}); !errors.Is(err, groupstore.ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
}

func TestStore_Rename(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Old")

	got, err := store.Rename(ctx, g.ID, "New name")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if got.Name != "New name" {
		t.Errorf("Name: got %q", got.Name)
	}

	if _, err := store.Rename(ctx, primitive.NewObjectID(), "x"); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_GetManyAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateGroup(ctx, "A")
	b := fixtures.CreateGroup(ctx, "B")

	got, err := store.GetMany(ctx, []primitive.ObjectID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(got) != 2 || got[b.ID].Name != "B" {
		t.Errorf("unexpected groups: %v", got)
	}

	n, err := store.Delete(ctx, a.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete: n=%d err=%v", n, err)
	}
	if _, err := store.GetByID(ctx, a.ID); err != mongo.ErrNoDocuments {
		t.Errorf("expected deleted group to be gone, got %v", err)
	}
}
