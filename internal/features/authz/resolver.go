package authz

import (
	"context"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Resolver is the effective-permission resolver: it combines a user's
// direct role assignments with team-inherited default roles and answers
// scope and field-access questions from a cached per-user snapshot.
type Resolver struct {
	users    UserDirectory
	teams    TeamDirectory
	roles    RoleDirectory
	registry *Registry
	cache    *Cache
	index    *TeamMembershipIndex
	log      *zap.Logger
}

func NewResolver(
	users UserDirectory,
	teams TeamDirectory,
	roles RoleDirectory,
	registry *Registry,
	cache *Cache,
	log *zap.Logger,
) *Resolver {
	return &Resolver{
		users:    users,
		teams:    teams,
		roles:    roles,
		registry: registry,
		cache:    cache,
		index:    NewTeamMembershipIndex(teams),
		log:      log,
	}
}

// roleIDs gathers the roles effective for a user: direct assignments
// plus each team's default role for teams the user belongs to.
func (r *Resolver) roleIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	direct, err := r.users.DirectRoleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	inherited, err := r.teams.DefaultRoleIDsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return lo.Uniq(append(direct, inherited...)), nil
}

// load builds a user's permission set from scratch. Invalid scope,
// operation or access-level values on stored entries are skipped rather
// than erroring: a malformed entry must never widen access.
func (r *Resolver) load(ctx context.Context, userID primitive.ObjectID) (*permissionSet, error) {
	ids, err := r.roleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	grants, err := r.roles.GrantsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	ps := newPermissionSet()
	for _, grant := range grants {
		for _, p := range grant.Permissions {
			if !p.Scope.Valid() || !p.Operation.Valid() {
				r.log.Warn("skipping malformed permission entry",
					zap.String("role_id", grant.RoleID.Hex()),
					zap.String("entity_type", p.EntityType))
				continue
			}
			ps.addScope(p.EntityType, p.Operation, p.Scope)
		}
		for _, fp := range grant.FieldPermissions {
			if !fp.AccessLevel.Valid() {
				continue
			}
			ps.addField(fp.EntityType, fp.FieldName, fp.AccessLevel)
		}
	}

	return ps, nil
}

func (r *Resolver) snapshot(ctx context.Context, userID primitive.ObjectID) (*permissionSet, error) {
	return r.cache.GetOrLoad(ctx, userID, r.load)
}

// Resolve returns the widest scope any of the user's roles grants for the
// (entityType, operation) pair. Unknown entity types or operations
// resolve to ScopeNone rather than erroring.
func (r *Resolver) Resolve(ctx context.Context, userID primitive.ObjectID, entityType string, op Operation) (Scope, error) {
	ps, err := r.snapshot(ctx, userID)
	if err != nil {
		return ScopeNone, err
	}
	return ps.scope(entityType, op), nil
}

// AllPermissions resolves every governed (entity type, operation) pair for
// the user. It is a projection of the same snapshot Resolve reads, so the
// two can never drift.
func (r *Resolver) AllPermissions(ctx context.Context, userID primitive.ObjectID) ([]EffectivePermission, error) {
	ps, err := r.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	entityTypes := r.registry.EntityTypes()
	out := make([]EffectivePermission, 0, len(entityTypes)*len(allOperations))
	for _, entityType := range entityTypes {
		for _, op := range allOperations {
			out = append(out, EffectivePermission{
				EntityType: entityType,
				Operation:  op,
				Scope:      ps.scope(entityType, op),
			})
		}
	}
	return out, nil
}

// FieldAccess returns the most restrictive access level the user's roles
// define for the field, or AccessEdit when no role restricts it.
func (r *Resolver) FieldAccess(ctx context.Context, userID primitive.ObjectID, entityType, fieldName string) (AccessLevel, error) {
	ps, err := r.snapshot(ctx, userID)
	if err != nil {
		return AccessHidden, err
	}
	return ps.fieldAccess(entityType, fieldName), nil
}

// Teammates exposes the membership index. The set is recomputed on every
// call; team membership may change between requests.
func (r *Resolver) Teammates(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return r.index.TeammatesOf(ctx, userID)
}

// AccessFilter resolves the user's scope for the operation and returns the
// matching storage predicate for the entity type. Unknown entity types get
// the match-nothing predicate.
func (r *Resolver) AccessFilter(ctx context.Context, userID primitive.ObjectID, entityType string, op Operation) (bson.M, error) {
	def, ok := r.registry.Lookup(entityType)
	if !ok {
		return Predicate(ScopeNone, EntityDef{}, userID, nil), nil
	}

	scope, err := r.Resolve(ctx, userID, entityType, op)
	if err != nil {
		return nil, err
	}

	var teammates []primitive.ObjectID
	if scope == ScopeTeam {
		teammates, err = r.index.TeammatesOf(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	return Predicate(scope, def, userID, teammates), nil
}

// CanAccessRecord is the single-record counterpart of AccessFilter: it
// resolves the user's scope and applies the visibility rule to one
// record's ownership fields.
func (r *Resolver) CanAccessRecord(ctx context.Context, userID primitive.ObjectID, entityType string, op Operation, owners []*primitive.ObjectID) (bool, error) {
	scope, err := r.Resolve(ctx, userID, entityType, op)
	if err != nil {
		return false, err
	}

	var teammates []primitive.ObjectID
	if scope == ScopeTeam {
		teammates, err = r.index.TeammatesOf(ctx, userID)
		if err != nil {
			return false, err
		}
	}

	return IsVisible(scope, owners, userID, teammates), nil
}

// Invalidate evicts the user's cached permissions. Must be called by any
// mutation that can change the user's effective permissions, within the
// same unit of work that commits the mutation.
func (r *Resolver) Invalidate(userID primitive.ObjectID) {
	r.cache.Invalidate(userID)
}
