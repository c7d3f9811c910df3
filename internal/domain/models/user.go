// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Auth methods a user account can sign in with.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

// User is an account that can belong to any number of groups.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the group_members collection to discover a user's groups.
//   - PasswordHash is empty for accounts created through Google sign-in.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // lowercase, trimmed
	FullName     string             `bson:"full_name,omitempty" json:"full_name,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method" json:"auth_method"` // password | google

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
