// internal/domain/models/category.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is a shared, global classification for food and shopping items.
type Category struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Icon         string             `bson:"icon,omitempty" json:"icon,omitempty"`
	DisplayOrder int                `bson:"display_order" json:"display_order"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// DefaultCategories is seeded into an empty categories collection.
var DefaultCategories = []Category{
	{Name: "Vegetables", Icon: "🥬", DisplayOrder: 1},
	{Name: "Fruit", Icon: "🍎", DisplayOrder: 2},
	{Name: "Meat", Icon: "🥩", DisplayOrder: 3},
	{Name: "Fish", Icon: "🐟", DisplayOrder: 4},
	{Name: "Dairy & Eggs", Icon: "🥚", DisplayOrder: 5},
	{Name: "Beverages", Icon: "🥤", DisplayOrder: 6},
	{Name: "Condiments", Icon: "🧂", DisplayOrder: 7},
	{Name: "Frozen", Icon: "🧊", DisplayOrder: 8},
	{Name: "Other", Icon: "📦", DisplayOrder: 99},
}
