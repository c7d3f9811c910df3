// internal/app/system/realtime/apply.go
package realtime

import (
	"encoding/json"
	"sort"

	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplyFoodItemEvent folds a food_items event into a local slice and keeps
// it ordered by expiry date (undated items last). Unknown or malformed
// events leave the slice unchanged.
func ApplyFoodItemEvent(items []models.FoodItemWithCategory, ev Event) []models.FoodItemWithCategory {
	if ev.Table != TableFoodItems {
		return items
	}
	switch ev.Type {
	case Insert, Update:
		var row models.FoodItemWithCategory
		if err := json.Unmarshal(ev.New, &row); err != nil || row.ID.IsZero() {
			return items
		}
		items = upsert(items, row, func(it models.FoodItemWithCategory) primitive.ObjectID { return it.ID })
	case Delete:
		id, ok := ev.OldID()
		if !ok {
			return items
		}
		items = remove(items, id, func(it models.FoodItemWithCategory) primitive.ObjectID { return it.ID })
	default:
		return items
	}
	SortFoodItems(items)
	return items
}

// ApplyListItemEvent folds a shopping_list_items event into a local slice
// and re-sorts it unpurchased first, then by sort order.
func ApplyListItemEvent(items []models.ShoppingListItem, ev Event) []models.ShoppingListItem {
	if ev.Table != TableShoppingListItems {
		return items
	}
	switch ev.Type {
	case Insert, Update:
		var row models.ShoppingListItem
		if err := json.Unmarshal(ev.New, &row); err != nil || row.ID.IsZero() {
			return items
		}
		items = upsert(items, row, func(it models.ShoppingListItem) primitive.ObjectID { return it.ID })
	case Delete:
		id, ok := ev.OldID()
		if !ok {
			return items
		}
		items = remove(items, id, func(it models.ShoppingListItem) primitive.ObjectID { return it.ID })
	default:
		return items
	}
	SortListItems(items)
	return items
}

// SortFoodItems orders by expiry date ascending with undated items last.
func SortFoodItems(items []models.FoodItemWithCategory) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ExpiryDate, items[j].ExpiryDate
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// SortListItems orders unpurchased items first, then by sort order, then
// newest first.
func SortListItems(items []models.ShoppingListItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsPurchased != b.IsPurchased {
			return !a.IsPurchased
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func upsert[T any](items []T, row T, id func(T) primitive.ObjectID) []T {
	rid := id(row)
	for i := range items {
		if id(items[i]) == rid {
			items[i] = row
			return items
		}
	}
	return append(items, row)
}

func remove[T any](items []T, rid primitive.ObjectID, id func(T) primitive.ObjectID) []T {
	out := items[:0]
	for _, it := range items {
		if id(it) != rid {
			out = append(out, it)
		}
	}
	return out
}
