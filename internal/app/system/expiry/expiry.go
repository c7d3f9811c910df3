// Package expiry classifies food items by how close they are to their
// expiry date.
//
// Days are counted in whole calendar days: an item expiring today has 0
// days left and is in the warning band, not expired.
package expiry

import (
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/larder/internal/domain/models"
)

// Status is an expiry classification.
type Status string

const (
	Expired Status = "expired"
	Warning Status = "warning"
	Caution Status = "caution"
	Safe    Status = "safe"
	None    Status = "none"
)

// Band limits, in days left.
const (
	WarningDays = 3
	CautionDays = 7
)

// DateLayout is the wire format for expiry dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DaysUntil returns the calendar-day difference between now's date (in
// now's location) and the expiry date. ok is false when expiry is nil.
func DaysUntil(expiry *time.Time, now time.Time) (days int, ok bool) {
	if expiry == nil {
		return 0, false
	}
	ey, em, ed := expiry.UTC().Date()
	ny, nm, nd := now.Date()
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24), true
}

// FromDays maps a day count to a status.
func FromDays(days int) Status {
	switch {
	case days < 0:
		return Expired
	case days <= WarningDays:
		return Warning
	case days <= CautionDays:
		return Caution
	default:
		return Safe
	}
}

// StatusOf classifies an expiry date relative to now.
func StatusOf(expiry *time.Time, now time.Time) Status {
	days, ok := DaysUntil(expiry, now)
	if !ok {
		return None
	}
	return FromDays(days)
}

// Label returns a human label for s.
func Label(s Status) string {
	switch s {
	case Expired:
		return "Expired"
	case Warning:
		return "Within 3 days"
	case Caution:
		return "Within 7 days"
	case Safe:
		return "Safe"
	default:
		return "Not set"
	}
}

// LocationLabel returns a human label for a storage location.
func LocationLabel(l models.StorageLocation) string {
	switch l {
	case models.StorageRefrigerator:
		return "Refrigerator"
	case models.StorageFreezer:
		return "Freezer"
	case models.StoragePantry:
		return "Pantry"
	case models.StorageOther:
		return "Other"
	default:
		return "Unspecified"
	}
}

// DescribeDays renders a day count for messages.
func DescribeDays(days int) string {
	switch {
	case days < -1:
		return fmt.Sprintf("expired %d days ago", -days)
	case days == -1:
		return "expired yesterday"
	case days == 0:
		return "expires today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

// Annotate decorates items that have an expiry date with their status and
// days left. Items without a date are dropped. The result is ordered by
// days left ascending.
func Annotate(items []models.FoodItemWithCategory, now time.Time) []models.ExpiringFoodItem {
	out := make([]models.ExpiringFoodItem, 0, len(items))
	for _, it := range items {
		days, ok := DaysUntil(it.ExpiryDate, now)
		if !ok {
			continue
		}
		e := models.ExpiringFoodItem{
			FoodItemWithCategory: it,
			ExpiryStatus:         string(FromDays(days)),
			DaysUntilExpiry:      days,
		}
		if it.Category != nil {
			e.CategoryName = it.Category.Name
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntilExpiry < out[j].DaysUntilExpiry })
	return out
}

// FilterForAlert keeps expired items and any item whose days left is within
// one of the configured thresholds.
func FilterForAlert(items []models.ExpiringFoodItem, daysBefore []int) []models.ExpiringFoodItem {
	out := make([]models.ExpiringFoodItem, 0, len(items))
	for _, it := range items {
		if it.DaysUntilExpiry < 0 {
			out = append(out, it)
			continue
		}
		for _, d := range daysBefore {
			if it.DaysUntilExpiry <= d {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// Groups buckets items by status.
type Groups struct {
	Expired []models.ExpiringFoodItem
	Warning []models.ExpiringFoodItem
	Caution []models.ExpiringFoodItem
	Safe    []models.ExpiringFoodItem
}

// Group splits items into status buckets, preserving order.
func Group(items []models.ExpiringFoodItem) Groups {
	var g Groups
	for _, it := range items {
		switch Status(it.ExpiryStatus) {
		case Expired:
			g.Expired = append(g.Expired, it)
		case Warning:
			g.Warning = append(g.Warning, it)
		case Caution:
			g.Caution = append(g.Caution, it)
		case Safe:
			g.Safe = append(g.Safe, it)
		}
	}
	return g
}
