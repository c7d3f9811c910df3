package shopping

import (
	"net/http"
	"testing"

	itemstore "github.com/dalemusser/larder/internal/app/store/listitems"
	liststore "github.com/dalemusser/larder/internal/app/store/shoppinglists"
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/larder/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	h        *Handler
	hub      *realtime.Hub
	router   chi.Router
	fixtures *testutil.Fixtures
	group    models.Group
	owner    models.User
	list     models.ShoppingList
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	client := testutil.SetupTestClient(t)
	hub := realtime.NewHub(nil, zap.NewNop())
	h := NewHandler(db, client, hub, zap.NewNop())

	sm := testutil.NewSessionManager(t)
	r := chi.NewRouter()
	r.Mount("/groups/{gid}/lists", GroupRoutes(h, sm))
	r.Mount("/lists", ListRoutes(h, sm))
	r.Mount("/list-items", ItemRoutes(h, sm))

	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures := testutil.NewFixtures(t, db)
	g, owner := fixtures.CreateGroupWithOwner(ctx, "Home", "owner@example.com")
	l := fixtures.CreateList(ctx, g.ID, "Weekly")

	return &env{h: h, hub: hub, router: r, fixtures: fixtures, group: g, owner: owner, list: l}
}

func (e *env) do(method, target string, body any) *testutil.ResponseRecorder {
	return e.doAs(e.owner, method, target, body)
}

func (e *env) doAs(u models.User, method, target string, body any) *testutil.ResponseRecorder {
	return testutil.Serve(e.router, testutil.NewAuthenticatedRequest(method, target, body, testutil.UserFrom(u)))
}

func (e *env) listURL() string { return "/lists/" + e.list.ID.Hex() }

func ptr[T any](v T) *T { return &v }

func nextEvent(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	default:
		t.Fatal("no change event published")
	}
	return realtime.Event{}
}

func TestCreateList(t *testing.T) {
	e := newEnv(t)
	sub := e.hub.Subscribe(realtime.ListsTopic(e.group.ID))
	defer sub.Close()

	rec := e.do(http.MethodPost, "/groups/"+e.group.ID.Hex()+"/lists", listInput{Name: ptr(" Party ")})
	rec.AssertStatus(t, http.StatusCreated)

	var got models.ShoppingList
	rec.DecodeJSON(t, &got)
	if got.Name != "Party" || !got.IsActive || got.CreatedBy != e.owner.ID {
		t.Errorf("list = %+v", got)
	}
	if ev := nextEvent(t, sub); ev.Type != realtime.Insert || ev.Table != realtime.TableShoppingLists {
		t.Errorf("event = %s/%s", ev.Type, ev.Table)
	}

	e.do(http.MethodPost, "/groups/"+e.group.ID.Hex()+"/lists", listInput{Name: ptr("  ")}).
		AssertStatus(t, http.StatusBadRequest)
}

func TestServeLists_ArchivedHiddenByDefault(t *testing.T) {
	e := newEnv(t)

	e.do(http.MethodPost, e.listURL()+"/archive", nil).AssertStatus(t, http.StatusOK)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fixtures.CreateList(ctx, e.group.ID, "Active")

	var lists []models.ShoppingList
	e.do(http.MethodGet, "/groups/"+e.group.ID.Hex()+"/lists", nil).DecodeJSON(t, &lists)
	if len(lists) != 1 || lists[0].Name != "Active" {
		t.Errorf("active lists = %+v", lists)
	}

	e.do(http.MethodGet, "/groups/"+e.group.ID.Hex()+"/lists?include_archived=true", nil).DecodeJSON(t, &lists)
	if len(lists) != 2 {
		t.Errorf("with archived: got %d lists, want 2", len(lists))
	}
}

func TestListAccess_NonMember(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	stranger := e.fixtures.CreateUser(ctx, "Stranger", "stranger@example.com")
	it := e.fixtures.CreateListItem(ctx, e.list.ID, "Eggs", 0)

	e.doAs(stranger, http.MethodGet, e.listURL(), nil).AssertStatus(t, http.StatusForbidden)
	e.doAs(stranger, http.MethodGet, e.listURL()+"/items", nil).AssertStatus(t, http.StatusForbidden)
	e.doAs(stranger, http.MethodPost, "/list-items/"+it.ID.Hex()+"/toggle", nil).AssertStatus(t, http.StatusForbidden)
	e.doAs(stranger, http.MethodGet, "/groups/"+e.group.ID.Hex()+"/lists", nil).AssertStatus(t, http.StatusForbidden)
}

func TestListNotFound(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodGet, "/lists/"+primitive.NewObjectID().Hex(), nil).AssertStatus(t, http.StatusNotFound)
	e.do(http.MethodGet, "/lists/nope", nil).AssertStatus(t, http.StatusBadRequest)
	e.do(http.MethodPatch, "/list-items/"+primitive.NewObjectID().Hex(), itemInput{Name: ptr("x")}).
		AssertStatus(t, http.StatusNotFound)
}

func TestUpdateList(t *testing.T) {
	e := newEnv(t)
	sub := e.hub.Subscribe(realtime.ListsTopic(e.group.ID))
	defer sub.Close()

	rec := e.do(http.MethodPatch, e.listURL(), listInput{Name: ptr("Costco"), IsActive: ptr(false)})
	rec.AssertStatus(t, http.StatusOK)
	var got models.ShoppingList
	rec.DecodeJSON(t, &got)
	if got.Name != "Costco" || got.IsActive {
		t.Errorf("list = %+v", got)
	}
	if ev := nextEvent(t, sub); ev.Type != realtime.Update {
		t.Errorf("event type = %s, want UPDATE", ev.Type)
	}
}

func TestDeleteList_RemovesItems(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fixtures.CreateListItem(ctx, e.list.ID, "Eggs", 0)
	e.fixtures.CreateListItem(ctx, e.list.ID, "Milk", 1)

	e.do(http.MethodDelete, e.listURL(), nil).AssertStatus(t, http.StatusNoContent)

	n, err := e.h.DB.Collection("shopping_list_items").CountDocuments(ctx, bson.M{"list_id": e.list.ID})
	if err != nil {
		t.Fatalf("count items: %v", err)
	}
	if n != 0 {
		t.Errorf("items left = %d, want 0", n)
	}
	if _, err := liststore.New(e.h.DB).Get(ctx, e.list.ID); err == nil {
		t.Error("list still exists")
	}
}

func TestAddItem_AppendsToEnd(t *testing.T) {
	e := newEnv(t)
	sub := e.hub.Subscribe(realtime.ListItemsTopic(e.list.ID))
	defer sub.Close()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fixtures.CreateListItem(ctx, e.list.ID, "Eggs", 4)
	produce := e.fixtures.CreateCategory(ctx, "Produce", 1)

	rec := e.do(http.MethodPost, e.listURL()+"/items", itemInput{
		Name:       ptr("Apples"),
		Quantity:   ptr("2 lbs"),
		CategoryID: ptr(produce.ID.Hex()),
	})
	rec.AssertStatus(t, http.StatusCreated)

	var got models.ShoppingListItem
	rec.DecodeJSON(t, &got)
	if got.SortOrder != 5 {
		t.Errorf("sort_order = %d, want 5", got.SortOrder)
	}
	if got.Quantity != "2 lbs" || got.Category == nil || got.Category.Name != "Produce" {
		t.Errorf("item = %+v", got)
	}
	if ev := nextEvent(t, sub); ev.Type != realtime.Insert || ev.Table != realtime.TableShoppingListItems {
		t.Errorf("event = %s/%s", ev.Type, ev.Table)
	}
}

func TestAddItem_Validation(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, e.listURL()+"/items", itemInput{}).AssertStatus(t, http.StatusBadRequest)
	e.do(http.MethodPost, e.listURL()+"/items", itemInput{Name: ptr("x"), CategoryID: ptr("bogus")}).
		AssertStatus(t, http.StatusBadRequest)
}

func TestUpdateItem_ClearCategory(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	cat := e.fixtures.CreateCategory(ctx, "Bakery", 1)

	var created models.ShoppingListItem
	e.do(http.MethodPost, e.listURL()+"/items", itemInput{Name: ptr("Bread"), CategoryID: ptr(cat.ID.Hex())}).
		DecodeJSON(t, &created)

	rec := e.do(http.MethodPatch, "/list-items/"+created.ID.Hex(), itemInput{CategoryID: ptr(""), Name: ptr("Rye bread")})
	rec.AssertStatus(t, http.StatusOK)
	var got models.ShoppingListItem
	rec.DecodeJSON(t, &got)
	if got.Name != "Rye bread" || got.CategoryID != nil || got.Category != nil {
		t.Errorf("item = %+v", got)
	}
}

func TestToggleItem(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	it := e.fixtures.CreateListItem(ctx, e.list.ID, "Eggs", 0)
	url := "/list-items/" + it.ID.Hex() + "/toggle"

	var got models.ShoppingListItem
	e.do(http.MethodPost, url, nil).DecodeJSON(t, &got)
	if !got.IsPurchased || got.PurchasedAt == nil || got.PurchasedBy == nil || *got.PurchasedBy != e.owner.ID {
		t.Errorf("after first toggle: %+v", got)
	}

	got = models.ShoppingListItem{}
	e.do(http.MethodPost, url, nil).DecodeJSON(t, &got)
	if got.IsPurchased || got.PurchasedAt != nil || got.PurchasedBy != nil {
		t.Errorf("after second toggle: %+v", got)
	}
}

func TestDeleteItem(t *testing.T) {
	e := newEnv(t)
	sub := e.hub.Subscribe(realtime.ListItemsTopic(e.list.ID))
	defer sub.Close()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	it := e.fixtures.CreateListItem(ctx, e.list.ID, "Eggs", 0)

	e.do(http.MethodDelete, "/list-items/"+it.ID.Hex(), nil).AssertStatus(t, http.StatusNoContent)
	ev := nextEvent(t, sub)
	if id, ok := ev.OldID(); ev.Type != realtime.Delete || !ok || id != it.ID {
		t.Errorf("event = %s old=%s", ev.Type, id.Hex())
	}
	e.do(http.MethodDelete, "/list-items/"+it.ID.Hex(), nil).AssertStatus(t, http.StatusNotFound)
}

func TestReorder(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := e.fixtures.CreateListItem(ctx, e.list.ID, "A", 0)
	b := e.fixtures.CreateListItem(ctx, e.list.ID, "B", 1)
	c := e.fixtures.CreateListItem(ctx, e.list.ID, "C", 2)

	rec := e.do(http.MethodPost, e.listURL()+"/items/reorder", reorderInput{
		ItemIDs: []string{c.ID.Hex(), a.ID.Hex(), b.ID.Hex()},
	})
	rec.AssertStatus(t, http.StatusOK)

	var items []models.ShoppingListItem
	rec.DecodeJSON(t, &items)
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	if len(names) != 3 || names[0] != "C" || names[1] != "A" || names[2] != "B" {
		t.Errorf("order = %v, want [C A B]", names)
	}

	e.do(http.MethodPost, e.listURL()+"/items/reorder", reorderInput{ItemIDs: []string{"zzz"}}).
		AssertStatus(t, http.StatusBadRequest)
}

func TestClearAndMarkAllPurchased(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fixtures.CreateListItem(ctx, e.list.ID, "A", 0)
	e.fixtures.CreateListItem(ctx, e.list.ID, "B", 1)
	keep := e.fixtures.CreateListItem(ctx, e.list.ID, "C", 2)

	rec := e.do(http.MethodPost, e.listURL()+"/items/mark-all-purchased", nil)
	rec.AssertStatus(t, http.StatusOK)
	var marked []models.ShoppingListItem
	rec.DecodeJSON(t, &marked)
	if len(marked) != 3 {
		t.Fatalf("marked %d items, want 3", len(marked))
	}

	// Put one back so clear-purchased leaves it.
	if _, err := itemstore.New(e.h.DB).SetPurchased(ctx, keep.ID, false, e.owner.ID); err != nil {
		t.Fatalf("unmark: %v", err)
	}

	var cleared map[string]int
	e.do(http.MethodPost, e.listURL()+"/items/clear-purchased", nil).DecodeJSON(t, &cleared)
	if cleared["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", cleared["deleted"])
	}

	var left []models.ShoppingListItem
	e.do(http.MethodGet, e.listURL()+"/items", nil).DecodeJSON(t, &left)
	if len(left) != 1 || left[0].ID != keep.ID {
		t.Errorf("remaining = %+v", left)
	}
}

func TestConvert(t *testing.T) {
	e := newEnv(t)
	foodSub := e.hub.Subscribe(realtime.FoodItemsTopic(e.group.ID))
	defer foodSub.Close()
	itemSub := e.hub.Subscribe(realtime.ListItemsTopic(e.list.ID))
	defer itemSub.Close()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	it := e.fixtures.CreateListItem(ctx, e.list.ID, "Yogurt", 0)

	rec := e.do(http.MethodPost, "/list-items/"+it.ID.Hex()+"/convert", convertInput{
		ExpiryDate:      "2026-11-01",
		StorageLocation: "refrigerator",
	})
	rec.AssertStatus(t, http.StatusCreated)

	var food models.FoodItemWithCategory
	rec.DecodeJSON(t, &food)
	if food.Name != "Yogurt" || food.Quantity != 1 || food.GroupID != e.group.ID {
		t.Errorf("food item = %+v", food)
	}
	if food.ExpiryDate == nil || food.ExpiryDate.Format("2006-01-02") != "2026-11-01" {
		t.Errorf("expiry = %v", food.ExpiryDate)
	}

	if _, err := itemstore.New(e.h.DB).Get(ctx, it.ID); err == nil {
		t.Error("list item still exists after convert")
	}
	if ev := nextEvent(t, foodSub); ev.Type != realtime.Insert {
		t.Errorf("food event = %s", ev.Type)
	}
	if ev := nextEvent(t, itemSub); ev.Type != realtime.Delete {
		t.Errorf("item event = %s", ev.Type)
	}
}

func TestConvert_EmptyBodyAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := e.fixtures.CreateListItem(ctx, e.list.ID, "Rice", 0)
	b := e.fixtures.CreateListItem(ctx, e.list.ID, "Beans", 1)

	e.do(http.MethodPost, "/list-items/"+a.ID.Hex()+"/convert", nil).AssertStatus(t, http.StatusCreated)

	e.do(http.MethodPost, "/list-items/"+b.ID.Hex()+"/convert", convertInput{Quantity: ptr(-2.0)}).
		AssertStatus(t, http.StatusBadRequest)
	if _, err := itemstore.New(e.h.DB).Get(ctx, b.ID); err != nil {
		t.Errorf("failed convert removed the list item: %v", err)
	}
}

func TestConvert_Quantity(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want float64
	}{
		{"unset", nil, 1},
		{"zero", ptr(0.0), 1},
		{"explicit", ptr(2.5), 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()
			it := e.fixtures.CreateListItem(ctx, e.list.ID, "Flour", 0)

			rec := e.do(http.MethodPost, "/list-items/"+it.ID.Hex()+"/convert", convertInput{Quantity: tt.in})
			rec.AssertStatus(t, http.StatusCreated)
			var food models.FoodItemWithCategory
			rec.DecodeJSON(t, &food)
			if food.Quantity != tt.want {
				t.Errorf("quantity = %v, want %v", food.Quantity, tt.want)
			}
		})
	}
}
