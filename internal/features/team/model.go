package team

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound      = errors.New("team not found")
	ErrUnknownRole   = errors.New("default role does not exist")
	ErrAlreadyMember = errors.New("user is already a member of the team")
)

// Team groups users for visibility and grants an optional default role
// to every member. Membership drives the engine's team-scope checks.
type Team struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	TenantID      primitive.ObjectID   `json:"tenant_id" bson:"tenant_id,omitempty"`
	Name          string               `json:"name" bson:"name"`
	Description   string               `json:"description" bson:"description"`
	DefaultRoleID *primitive.ObjectID  `json:"default_role_id,omitempty" bson:"default_role_id,omitempty"`
	Members       []primitive.ObjectID `json:"members" bson:"members"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}
