// internal/app/features/groups/types.go
package groups

import (
	"time"

	"github.com/dalemusser/larder/internal/domain/models"
)

// groupView is a group as seen by one of its members.
type groupView struct {
	models.Group
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type groupInput struct {
	Name string `json:"name"`
}

type addMemberInput struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}
