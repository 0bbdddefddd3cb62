package role

import (
	"context"
	"fmt"
	"time"

	common_models "crm-core/internal/common/models"
	"crm-core/internal/features/audit"
	"crm-core/internal/features/authz"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AssigneeSource answers which users hold a role directly; satisfied by
// the user repository.
type AssigneeSource interface {
	IDsWithRole(ctx context.Context, roleID primitive.ObjectID) ([]primitive.ObjectID, error)
	CountWithRole(ctx context.Context, roleID primitive.ObjectID) (int64, error)
}

// TeamSource answers which users inherit a role as a team default;
// satisfied by the team repository.
type TeamSource interface {
	MemberIDsByDefaultRole(ctx context.Context, roleID primitive.ObjectID) ([]primitive.ObjectID, error)
	CountByDefaultRole(ctx context.Context, roleID primitive.ObjectID) (int64, error)
}

type RoleService interface {
	CreateRole(ctx context.Context, role *Role) (*Role, error)
	GetRoleByID(ctx context.Context, id string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id string, role *Role) error
	DeleteRole(ctx context.Context, id string) error
}

type RoleServiceImpl struct {
	RoleRepo     RoleRepository
	Users        AssigneeSource
	Teams        TeamSource
	AuditService audit.AuditService
	Registry     *authz.Registry
	Invalidator  authz.Invalidator
	Log          *zap.Logger
}

func NewRoleService(
	roleRepo RoleRepository,
	users AssigneeSource,
	teams TeamSource,
	auditService audit.AuditService,
	registry *authz.Registry,
	invalidator authz.Invalidator,
	log *zap.Logger,
) RoleService {
	return &RoleServiceImpl{
		RoleRepo:     roleRepo,
		Users:        users,
		Teams:        teams,
		AuditService: auditService,
		Registry:     registry,
		Invalidator:  invalidator,
		Log:          log,
	}
}

func (s *RoleServiceImpl) CreateRole(ctx context.Context, role *Role) (*Role, error) {
	if err := s.validate(role); err != nil {
		return nil, err
	}

	role.ID = primitive.NewObjectID()
	role.IsSystem = false // custom roles only; system roles are seeded
	role.Permissions = normalizePermissions(role.Permissions)
	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()

	if err := s.RoleRepo.Create(ctx, role); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "role", role.ID.Hex(), map[string]common_models.Change{
		"name": {New: role.Name},
	})

	return role, nil
}

func (s *RoleServiceImpl) GetRoleByID(ctx context.Context, id string) (*Role, error) {
	return s.RoleRepo.FindByID(ctx, id)
}

func (s *RoleServiceImpl) ListRoles(ctx context.Context) ([]Role, error) {
	return s.RoleRepo.List(ctx)
}

// UpdateRole replaces a role's name, permissions and field permissions,
// then invalidates every user whose effective role set includes the role:
// direct assignees plus members of teams whose default role is this role.
func (s *RoleServiceImpl) UpdateRole(ctx context.Context, id string, role *Role) error {
	existing, err := s.RoleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}

	if err := s.validate(role); err != nil {
		return err
	}

	affected, err := s.affectedUserIDs(ctx, existing.ID)
	if err != nil {
		return err
	}

	// Invalidate even if the write below fails: over-invalidating costs a
	// cache miss, a stale grant leaks access.
	defer s.invalidateAll(affected)

	role.Permissions = normalizePermissions(role.Permissions)
	role.UpdatedAt = time.Now()

	if err := s.RoleRepo.Update(ctx, id, role); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "role", id, map[string]common_models.Change{
		"permissions":       {Old: existing.Permissions, New: role.Permissions},
		"field_permissions": {Old: existing.FieldPermissions, New: role.FieldPermissions},
	})

	s.Log.Info("role updated",
		zap.String("role_id", id),
		zap.Int("invalidated_users", len(affected)))

	return nil
}

// DeleteRole removes a role that nothing references. Deletion is rejected
// while any user assignment or team default role still points at it, so a
// successful delete never changes anyone's effective permissions.
func (s *RoleServiceImpl) DeleteRole(ctx context.Context, id string) error {
	existing, err := s.RoleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}

	assignees, err := s.Users.CountWithRole(ctx, existing.ID)
	if err != nil {
		return err
	}
	teams, err := s.Teams.CountByDefaultRole(ctx, existing.ID)
	if err != nil {
		return err
	}
	if assignees > 0 || teams > 0 {
		return ErrRoleInUse
	}

	if err := s.RoleRepo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "role", id, map[string]common_models.Change{
		"name": {Old: existing.Name},
	})

	return nil
}

func (s *RoleServiceImpl) validate(role *Role) error {
	if role.Name == "" {
		return fmt.Errorf("role name is required")
	}
	for _, p := range role.Permissions {
		if !s.Registry.Contains(p.EntityType) {
			return fmt.Errorf("unknown entity type: %s", p.EntityType)
		}
		if !p.Operation.Valid() {
			return fmt.Errorf("unknown operation: %s", p.Operation)
		}
		if !p.Scope.Valid() {
			return fmt.Errorf("unknown scope: %s", p.Scope)
		}
	}
	for _, fp := range role.FieldPermissions {
		if !s.Registry.Contains(fp.EntityType) {
			return fmt.Errorf("unknown entity type: %s", fp.EntityType)
		}
		if fp.FieldName == "" {
			return fmt.Errorf("field name is required")
		}
		if !fp.AccessLevel.Valid() {
			return fmt.Errorf("unknown access level: %s", fp.AccessLevel)
		}
	}
	return nil
}

func (s *RoleServiceImpl) affectedUserIDs(ctx context.Context, roleID primitive.ObjectID) ([]primitive.ObjectID, error) {
	direct, err := s.Users.IDsWithRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	inherited, err := s.Teams.MemberIDsByDefaultRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(append(direct, inherited...)), nil
}

func (s *RoleServiceImpl) invalidateAll(userIDs []primitive.ObjectID) {
	for _, id := range userIDs {
		s.Invalidator.Invalidate(id)
	}
}

// normalizePermissions collapses duplicate (entity type, operation) pairs,
// keeping the wider scope. A role should never hold two scopes for the
// same pair; if a payload does, the result is deterministic.
func normalizePermissions(entries []authz.PermissionEntry) []authz.PermissionEntry {
	type pair struct {
		entityType string
		operation  authz.Operation
	}

	index := make(map[pair]int)
	out := make([]authz.PermissionEntry, 0, len(entries))
	for _, e := range entries {
		key := pair{e.EntityType, e.Operation}
		if i, seen := index[key]; seen {
			out[i].Scope = authz.Wider(out[i].Scope, e.Scope)
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out
}
