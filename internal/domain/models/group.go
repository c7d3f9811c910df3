// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a household: the unit that owns food items and shopping lists.
//
// NOTE:
//   - Members are not embedded on Group.
//     All membership is stored in the group_members collection.
type Group struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// GroupMember is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id); role is "owner" | "member".
type GroupMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role     string             `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// GroupMemberWithUser decorates a membership with the member's email.
type GroupMemberWithUser struct {
	GroupMember `bson:",inline"`
	Email       string `bson:"email,omitempty" json:"email,omitempty"`
	FullName    string `bson:"full_name,omitempty" json:"full_name,omitempty"`
}

// IsValidRole reports whether role is a known member role.
func IsValidRole(role string) bool {
	return role == RoleOwner || role == RoleMember
}
