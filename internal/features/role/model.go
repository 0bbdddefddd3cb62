package role

import (
	"errors"
	"time"

	"crm-core/internal/features/authz"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound   = errors.New("role not found")
	ErrSystemRole = errors.New("cannot modify system role")
	ErrRoleInUse  = errors.New("role is referenced by a user assignment or a team default role")
)

// Role holds scope permissions per (entity type, operation) and access
// levels per (entity type, field). System roles are seeded at tenant
// provisioning and reject mutation of name and permissions.
type Role struct {
	ID               primitive.ObjectID           `json:"id" bson:"_id,omitempty"`
	TenantID         primitive.ObjectID           `json:"tenant_id" bson:"tenant_id,omitempty"`
	Name             string                       `json:"name" bson:"name"`
	Description      string                       `json:"description" bson:"description"`
	IsSystem         bool                         `json:"is_system" bson:"is_system"`
	IsTemplate       bool                         `json:"is_template" bson:"is_template"`
	Permissions      []authz.PermissionEntry      `json:"permissions" bson:"permissions"`
	FieldPermissions []authz.FieldPermissionEntry `json:"field_permissions" bson:"field_permissions"`
	CreatedAt        time.Time                    `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at" bson:"updated_at"`
}

// Grant projects the role onto the engine's read-model.
func (r *Role) Grant() authz.RoleGrant {
	return authz.RoleGrant{
		RoleID:           r.ID,
		Permissions:      r.Permissions,
		FieldPermissions: r.FieldPermissions,
	}
}
