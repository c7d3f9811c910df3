// internal/domain/models/shoppinglist.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShoppingList is a named list shared by a group. Archived lists have
// IsActive=false and are hidden from the default listing.
type ShoppingList struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	Name      string             `bson:"name" json:"name"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ShoppingListItem is one line on a shopping list. Quantity is free text
// ("2", "500g", "a bunch").
type ShoppingListItem struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	ListID      primitive.ObjectID  `bson:"list_id" json:"list_id"`
	Name        string              `bson:"name" json:"name"`
	Quantity    string              `bson:"quantity,omitempty" json:"quantity,omitempty"`
	CategoryID  *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	SortOrder   int                 `bson:"sort_order" json:"sort_order"`
	IsPurchased bool                `bson:"is_purchased" json:"is_purchased"`
	PurchasedAt *time.Time          `bson:"purchased_at,omitempty" json:"purchased_at,omitempty"`
	PurchasedBy *primitive.ObjectID `bson:"purchased_by,omitempty" json:"purchased_by,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`

	Category *Category `bson:"category,omitempty" json:"category,omitempty"`
}
