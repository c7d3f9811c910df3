// internal/domain/models/fooditem.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StorageLocation is where a food item is kept.
type StorageLocation string

const (
	StorageRefrigerator StorageLocation = "refrigerator"
	StorageFreezer      StorageLocation = "freezer"
	StoragePantry       StorageLocation = "pantry"
	StorageOther        StorageLocation = "other"
)

// StorageLocations lists every valid location in display order.
var StorageLocations = []StorageLocation{
	StorageRefrigerator,
	StorageFreezer,
	StoragePantry,
	StorageOther,
}

// IsValid reports whether l is a known storage location. The empty
// location is valid and means "not specified".
func (l StorageLocation) IsValid() bool {
	if l == "" {
		return true
	}
	for _, v := range StorageLocations {
		if v == l {
			return true
		}
	}
	return false
}

// FoodItem is a perishable item tracked by a group.
//
// ExpiryDate holds a calendar date (midnight UTC); nil means unset.
type FoodItem struct {
	ID              primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID         primitive.ObjectID  `bson:"group_id" json:"group_id"`
	Name            string              `bson:"name" json:"name"`
	CategoryID      *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Quantity        float64             `bson:"quantity" json:"quantity"`
	Unit            string              `bson:"unit,omitempty" json:"unit,omitempty"`
	ExpiryDate      *time.Time          `bson:"expiry_date,omitempty" json:"expiry_date,omitempty"`
	StorageLocation StorageLocation     `bson:"storage_location,omitempty" json:"storage_location,omitempty"`
	Barcode         string              `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy       primitive.ObjectID  `bson:"created_by" json:"created_by"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// FoodItemWithCategory is a food item joined with its category.
type FoodItemWithCategory struct {
	FoodItem `bson:",inline"`
	Category *Category `bson:"category,omitempty" json:"category,omitempty"`
}

// ExpiringFoodItem is a food item annotated with its expiry classification.
type ExpiringFoodItem struct {
	FoodItemWithCategory
	CategoryName    string `json:"category_name,omitempty"`
	ExpiryStatus    string `json:"expiry_status"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}
