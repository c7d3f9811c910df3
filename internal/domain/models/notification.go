// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationSettings controls expiry alerts for one user, either for a
// specific group or globally (GroupID nil). One document per (user_id, group_id).
type NotificationSettings struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           primitive.ObjectID  `bson:"user_id" json:"user_id"`
	GroupID          *primitive.ObjectID `bson:"group_id" json:"group_id"`
	DaysBeforeExpiry []int               `bson:"days_before_expiry" json:"days_before_expiry"`
	PushEnabled      bool                `bson:"push_enabled" json:"push_enabled"`
	EmailEnabled     bool                `bson:"email_enabled" json:"email_enabled"`
	NotificationTime string              `bson:"notification_time" json:"notification_time"` // HH:MM:SS
	NotifyExpired    bool                `bson:"notify_expired" json:"notify_expired"`
	NotifyWarning    bool                `bson:"notify_warning" json:"notify_warning"`
	NotifyCaution    bool                `bson:"notify_caution" json:"notify_caution"`
	LastNotifiedOn   string              `bson:"last_notified_on,omitempty" json:"-"` // YYYY-MM-DD
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}

// DefaultNotificationSettings returns the settings used when a user has
// not saved any.
func DefaultNotificationSettings(userID primitive.ObjectID, groupID *primitive.ObjectID) NotificationSettings {
	return NotificationSettings{
		UserID:           userID,
		GroupID:          groupID,
		DaysBeforeExpiry: []int{1, 3, 7},
		PushEnabled:      true,
		EmailEnabled:     false,
		NotificationTime: "09:00:00",
		NotifyExpired:    true,
		NotifyWarning:    true,
		NotifyCaution:    true,
	}
}

// PushSubscription is a browser Web Push endpoint registered by a user.
// One document per (user_id, endpoint).
type PushSubscription struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Endpoint  string             `bson:"endpoint" json:"endpoint"`
	P256dh    string             `bson:"p256dh" json:"p256dh"`
	Auth      string             `bson:"auth" json:"auth"`
	UserAgent string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
