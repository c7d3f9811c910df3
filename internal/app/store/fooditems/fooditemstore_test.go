package fooditemstore_test

import (
	"errors"
	"testing"
	"time"

	fooditemstore "github.com/dalemusser/larder/internal/app/store/fooditems"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/larder/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestStore_List_OrdersByExpiryUndatedLast(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := fooditemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Home")
	other := fixtures.CreateGroup(ctx, "Other")
	fixtures.CreateFoodItem(ctx, g.ID, "Rice", nil)
	fixtures.CreateFoodItem(ctx, g.ID, "Yogurt", date(2026, 5, 10))
	fixtures.CreateFoodItem(ctx, g.ID, "Milk", date(2026, 5, 2))
	fixtures.CreateFoodItem(ctx, other.ID, "Cheese", date(2026, 5, 1))

	items, err := store.List(ctx, g.ID, fooditemstore.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"Milk", "Yogurt", "Rice"}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, name := range want {
		if items[i].Name != name {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Name, name)
		}
	}
}

func TestStore_List_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := fooditemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Home")
	dairy := fixtures.CreateCategory(ctx, "Dairy", 1)

	u := primitive.NewObjectID()
	_, err := store.Create(ctx, models.FoodItem{
		GroupID: g.ID, Name: "Milk", Quantity: 1, CategoryID: &dairy.ID,
		StorageLocation: models.StorageRefrigerator, CreatedBy: u,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err = store.Create(ctx, models.FoodItem{
		GroupID: g.ID, Name: "Peas", Quantity: 2, StorageLocation: models.StorageFreezer, CreatedBy: u,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	items, err := store.List(ctx, g.ID, fooditemstore.Filter{Location: models.StorageFreezer})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Peas" {
		t.Errorf("location filter: got %+v", items)
	}

	items, err = store.List(ctx, g.ID, fooditemstore.Filter{CategoryID: &dairy.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Milk" {
		t.Fatalf("category filter: got %+v", items)
	}
	if items[0].Category == nil || items[0].Category.Name != "Dairy" {
		t.Errorf("expected embedded category, got %+v", items[0].Category)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := fooditemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gid := primitive.NewObjectID()
	tests := []struct {
		name string
		item models.FoodItem
		want error
	}{
		{"blank name", models.FoodItem{GroupID: gid, Name: "   "}, fooditemstore.ErrNameRequired},
		{"negative quantity", models.FoodItem{GroupID: gid, Name: "Eggs", Quantity: -1}, fooditemstore.ErrNegativeQuantity},
		{"bad location", models.FoodItem{GroupID: gid, Name: "Eggs", StorageLocation: "garage"}, fooditemstore.ErrBadLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.item); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := fooditemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Home")
	it := fixtures.CreateFoodItem(ctx, g.ID, "Milk", date(2026, 5, 2))

	name := "Oat Milk"
	qty := 3.0
	notes := "top shelf"
	got, err := store.Update(ctx, it.ID, fooditemstore.Patch{
		Name:        &name,
		Quantity:    &qty,
		Notes:       &notes,
		ClearExpiry: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Name != "Oat Milk" || got.Quantity != 3 || got.Notes != "top shelf" {
		t.Errorf("unexpected update result: %+v", got)
	}
	if got.ExpiryDate != nil {
		t.Errorf("expected expiry cleared, got %v", got.ExpiryDate)
	}

	neg := -2.0
	if _, err := store.Update(ctx, it.ID, fooditemstore.Patch{Quantity: &neg}); !errors.Is(err, fooditemstore.ErrNegativeQuantity) {
		t.Errorf("expected ErrNegativeQuantity, got %v", err)
	}
	if _, err := store.Update(ctx, primitive.NewObjectID(), fooditemstore.Patch{Name: &name}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_ListWithExpiry_AndDeleteByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := fooditemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateGroup(ctx, "A")
	b := fixtures.CreateGroup(ctx, "B")
	fixtures.CreateFoodItem(ctx, a.ID, "Milk", date(2026, 5, 2))
	fixtures.CreateFoodItem(ctx, a.ID, "Rice", nil)
	fixtures.CreateFoodItem(ctx, b.ID, "Ham", date(2026, 5, 1))

	items, err := store.ListWithExpiry(ctx, []primitive.ObjectID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("ListWithExpiry failed: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Ham" {
		t.Errorf("unexpected items: %+v", items)
	}

	n, err := store.DeleteByGroup(ctx, a.ID)
	if err != nil {
		t.Fatalf("DeleteByGroup failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if _, err := store.Get(ctx, items[1].ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected group A item gone, got %v", err)
	}
}
