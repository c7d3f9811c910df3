package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	return WithChiURLParams(r, map[string]string{key: value})
}

// WithChiURLParams adds several chi URL parameters to the request context.
func WithChiURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestPassword is the password set on users created by CreateUser.
const TestPassword = "correct-horse-battery"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateUser creates a password user whose password is TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash test password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		AuthMethod:   models.AuthPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateGroup creates a group with no members.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()
	now := time.Now().UTC()
	g := models.Group{ID: primitive.NewObjectID(), Name: name, CreatedAt: now, UpdatedAt: now}
	f.insert(ctx, "groups", g)
	return g
}

// CreateMembership adds userID to groupID with role, joined now.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID, userID primitive.ObjectID, role string) models.GroupMember {
	f.t.Helper()
	return f.CreateMembershipAt(ctx, groupID, userID, role, time.Now().UTC())
}

// CreateMembershipAt adds a membership with an explicit joined_at.
func (f *Fixtures) CreateMembershipAt(ctx context.Context, groupID, userID primitive.ObjectID, role string, joinedAt time.Time) models.GroupMember {
	f.t.Helper()
	m := models.GroupMember{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: joinedAt.UTC(),
	}
	f.insert(ctx, "group_members", m)
	return m
}

// CreateGroupWithOwner creates a user, a group and the owner membership.
func (f *Fixtures) CreateGroupWithOwner(ctx context.Context, groupName, ownerEmail string) (models.Group, models.User) {
	f.t.Helper()
	u := f.CreateUser(ctx, "Owner", ownerEmail)
	g := f.CreateGroup(ctx, groupName)
	f.CreateMembership(ctx, g.ID, u.ID, models.RoleOwner)
	return g, u
}

// CreateCategory creates a category.
func (f *Fixtures) CreateCategory(ctx context.Context, name string, order int) models.Category {
	f.t.Helper()
	c := models.Category{
		ID:           primitive.NewObjectID(),
		Name:         name,
		DisplayOrder: order,
		CreatedAt:    time.Now().UTC(),
	}
	f.insert(ctx, "categories", c)
	return c
}

// CreateFoodItem creates a food item with quantity 1. A nil expiry leaves
// the item undated.
func (f *Fixtures) CreateFoodItem(ctx context.Context, groupID primitive.ObjectID, name string, expiry *time.Time) models.FoodItem {
	f.t.Helper()
	now := time.Now().UTC()
	it := models.FoodItem{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		Name:       name,
		Quantity:   1,
		ExpiryDate: expiry,
		CreatedBy:  primitive.NewObjectID(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "food_items", it)
	return it
}

// CreateList creates an active shopping list.
func (f *Fixtures) CreateList(ctx context.Context, groupID primitive.ObjectID, name string) models.ShoppingList {
	f.t.Helper()
	now := time.Now().UTC()
	l := models.ShoppingList{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Name:      name,
		IsActive:  true,
		CreatedBy: primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "shopping_lists", l)
	return l
}

// CreateListItem creates an unpurchased item at sortOrder.
func (f *Fixtures) CreateListItem(ctx context.Context, listID primitive.ObjectID, name string, sortOrder int) models.ShoppingListItem {
	f.t.Helper()
	now := time.Now().UTC()
	it := models.ShoppingListItem{
		ID:        primitive.NewObjectID(),
		ListID:    listID,
		Name:      name,
		SortOrder: sortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "shopping_list_items", it)
	return it
}
