package authz

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrUserNotFound = errors.New("user not found")

// PermissionEntry grants a scope for one (entity type, operation) pair.
// A role holds an ordered collection of these.
type PermissionEntry struct {
	EntityType string    `json:"entity_type" bson:"entity_type"`
	Operation  Operation `json:"operation" bson:"operation"`
	Scope      Scope     `json:"scope" bson:"scope"`
}

// FieldPermissionEntry restricts a single field of an entity type,
// irrespective of record ownership.
type FieldPermissionEntry struct {
	EntityType  string      `json:"entity_type" bson:"entity_type"`
	FieldName   string      `json:"field_name" bson:"field_name"`
	AccessLevel AccessLevel `json:"access_level" bson:"access_level"`
}

// EffectivePermission is the resolved scope for one user/entity/operation
// triple after combining all of the user's roles. Derived, never stored.
type EffectivePermission struct {
	EntityType string    `json:"entity_type"`
	Operation  Operation `json:"operation"`
	Scope      Scope     `json:"scope"`
}

// RoleGrant is the engine's read-model of a role: just the pieces
// resolution needs, detached from the role feature's full document.
type RoleGrant struct {
	RoleID           primitive.ObjectID
	Permissions      []PermissionEntry
	FieldPermissions []FieldPermissionEntry
}

// UserDirectory supplies a user's direct role assignments.
type UserDirectory interface {
	DirectRoleIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// TeamDirectory supplies team-derived data: the default roles a user
// inherits through membership, and the membership-based visibility group.
type TeamDirectory interface {
	DefaultRoleIDsFor(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	TeammatesOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// RoleDirectory loads role grants by ID.
type RoleDirectory interface {
	GrantsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]RoleGrant, error)
}

// Invalidator is the hook every mutating collaborator must call when a
// user's effective permissions may have changed. Satisfied by *Resolver.
type Invalidator interface {
	Invalidate(userID primitive.ObjectID)
}
