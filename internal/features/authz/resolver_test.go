package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeUsers struct {
	roles map[primitive.ObjectID][]primitive.ObjectID
}

func (f *fakeUsers) DirectRoleIDs(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	roles, ok := f.roles[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return roles, nil
}

type fakeTeams struct {
	defaultRoles map[primitive.ObjectID][]primitive.ObjectID
	teammates    map[primitive.ObjectID][]primitive.ObjectID
}

func (f *fakeTeams) DefaultRoleIDsFor(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f.defaultRoles[userID], nil
}

func (f *fakeTeams) TeammatesOf(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f.teammates[userID], nil
}

type fakeRoles struct {
	grants map[primitive.ObjectID]RoleGrant
	loads  int
}

func (f *fakeRoles) GrantsByIDs(_ context.Context, ids []primitive.ObjectID) ([]RoleGrant, error) {
	f.loads++
	out := make([]RoleGrant, 0, len(ids))
	for _, id := range ids {
		if g, ok := f.grants[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

type resolverFixture struct {
	users    *fakeUsers
	teams    *fakeTeams
	roles    *fakeRoles
	resolver *Resolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	cache, err := NewCache(64)
	require.NoError(t, err)

	f := &resolverFixture{
		users: &fakeUsers{roles: map[primitive.ObjectID][]primitive.ObjectID{}},
		teams: &fakeTeams{
			defaultRoles: map[primitive.ObjectID][]primitive.ObjectID{},
			teammates:    map[primitive.ObjectID][]primitive.ObjectID{},
		},
		roles: &fakeRoles{grants: map[primitive.ObjectID]RoleGrant{}},
	}
	f.resolver = NewResolver(f.users, f.teams, f.roles, DefaultRegistry(), cache, zap.NewNop())
	return f
}

func (f *resolverFixture) addRole(grant RoleGrant) primitive.ObjectID {
	if grant.RoleID.IsZero() {
		grant.RoleID = primitive.NewObjectID()
	}
	f.roles.grants[grant.RoleID] = grant
	return grant.RoleID
}

func TestResolveWidestWins(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()

	sales := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Contact", Operation: OperationView, Scope: ScopeOwn},
		{EntityType: "Contact", Operation: OperationDelete, Scope: ScopeNone},
	}})
	manager := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Contact", Operation: OperationView, Scope: ScopeAll},
	}})
	f.users.roles[user] = []primitive.ObjectID{sales, manager}

	scope, err := f.resolver.Resolve(context.Background(), user, "Contact", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, scope, "the widest grant across roles wins")

	scope, err = f.resolver.Resolve(context.Background(), user, "Contact", OperationDelete)
	require.NoError(t, err)
	assert.Equal(t, ScopeNone, scope, "an explicit none grant stays none when no role widens it")
}

func TestResolveDefaultsToNone(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()

	roleID := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Contact", Operation: OperationView, Scope: ScopeAll},
	}})
	f.users.roles[user] = []primitive.ObjectID{roleID}

	// No entry for the pair.
	scope, err := f.resolver.Resolve(context.Background(), user, "Contact", OperationDelete)
	require.NoError(t, err)
	assert.Equal(t, ScopeNone, scope)

	// Entity type outside the registry.
	scope, err = f.resolver.Resolve(context.Background(), user, "Invoice", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeNone, scope)

	// User with no roles at all.
	lurker := primitive.NewObjectID()
	f.users.roles[lurker] = nil
	scope, err = f.resolver.Resolve(context.Background(), lurker, "Contact", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeNone, scope)
}

func TestResolveIncludesTeamDefaultRole(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()

	teamRole := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Lead", Operation: OperationView, Scope: ScopeTeam},
	}})
	f.users.roles[user] = nil
	f.teams.defaultRoles[user] = []primitive.ObjectID{teamRole}

	scope, err := f.resolver.Resolve(context.Background(), user, "Lead", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeTeam, scope, "team default roles count like direct assignments")
}

func TestResolveSkipsMalformedEntries(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()

	roleID := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Contact", Operation: OperationView, Scope: Scope("everything")},
		{EntityType: "Contact", Operation: Operation("read"), Scope: ScopeAll},
		{EntityType: "Contact", Operation: OperationEdit, Scope: ScopeOwn},
	}})
	f.users.roles[user] = []primitive.ObjectID{roleID}

	scope, err := f.resolver.Resolve(context.Background(), user, "Contact", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeNone, scope, "a malformed scope value must not widen access")

	scope, err = f.resolver.Resolve(context.Background(), user, "Contact", OperationEdit)
	require.NoError(t, err)
	assert.Equal(t, ScopeOwn, scope, "valid entries in the same role still apply")
}

func TestAllPermissionsAgreesWithResolve(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()

	roleID := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Contact", Operation: OperationView, Scope: ScopeAll},
		{EntityType: "Deal", Operation: OperationEdit, Scope: ScopeTeam},
	}})
	f.users.roles[user] = []primitive.ObjectID{roleID}

	all, err := f.resolver.AllPermissions(context.Background(), user)
	require.NoError(t, err)

	registry := DefaultRegistry()
	assert.Len(t, all, len(registry.EntityTypes())*len(Operations()),
		"every governed pair appears exactly once")

	for _, p := range all {
		scope, err := f.resolver.Resolve(context.Background(), user, p.EntityType, p.Operation)
		require.NoError(t, err)
		assert.Equal(t, scope, p.Scope, "%s/%s", p.EntityType, p.Operation)
	}
}

func TestFieldAccess(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()

	lenient := f.addRole(RoleGrant{FieldPermissions: []FieldPermissionEntry{
		{EntityType: "Deal", FieldName: "amount", AccessLevel: AccessEdit},
	}})
	strict := f.addRole(RoleGrant{FieldPermissions: []FieldPermissionEntry{
		{EntityType: "Deal", FieldName: "amount", AccessLevel: AccessHidden},
		{EntityType: "Deal", FieldName: "stage", AccessLevel: AccessReadOnly},
	}})
	f.users.roles[user] = []primitive.ObjectID{lenient, strict}

	level, err := f.resolver.FieldAccess(context.Background(), user, "Deal", "amount")
	require.NoError(t, err)
	assert.Equal(t, AccessHidden, level, "the most restrictive level across roles wins")

	level, err = f.resolver.FieldAccess(context.Background(), user, "Deal", "stage")
	require.NoError(t, err)
	assert.Equal(t, AccessReadOnly, level)

	level, err = f.resolver.FieldAccess(context.Background(), user, "Deal", "name")
	require.NoError(t, err)
	assert.Equal(t, AccessEdit, level, "unrestricted fields default to edit")
}

func TestResolveUnknownUser(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.Resolve(context.Background(), primitive.NewObjectID(), "Contact", OperationView)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAccessFilterUnknownEntity(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()
	f.users.roles[user] = nil

	filter, err := f.resolver.AccessFilter(context.Background(), user, "Invoice", OperationView)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": -1}, filter)
}

func TestCanAccessRecord(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()
	teammate := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	roleID := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Deal", Operation: OperationView, Scope: ScopeTeam},
	}})
	f.users.roles[user] = []primitive.ObjectID{roleID}
	f.teams.teammates[user] = []primitive.ObjectID{user, teammate}

	ok, err := f.resolver.CanAccessRecord(context.Background(), user, "Deal", OperationView, []*primitive.ObjectID{&teammate})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.CanAccessRecord(context.Background(), user, "Deal", OperationView, []*primitive.ObjectID{&outsider})
	require.NoError(t, err)
	assert.False(t, ok)
}

// The cached snapshot must never outlive a membership change: removing the
// user from the team both drops the inherited role and shrinks the
// teammate set, and after Invalidate both take effect immediately.
func TestInvalidateAfterMembershipChange(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()
	teammate := primitive.NewObjectID()

	ownRole := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Deal", Operation: OperationView, Scope: ScopeOwn},
	}})
	allRole := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Deal", Operation: OperationView, Scope: ScopeAll},
	}})
	f.users.roles[user] = []primitive.ObjectID{ownRole}
	f.teams.defaultRoles[user] = []primitive.ObjectID{allRole}
	f.teams.teammates[user] = []primitive.ObjectID{user, teammate}

	scope, err := f.resolver.Resolve(context.Background(), user, "Deal", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, scope)

	// Remove the user from the team.
	f.teams.defaultRoles[user] = nil
	f.teams.teammates[user] = nil

	// Stale until invalidated; there is no TTL.
	scope, err = f.resolver.Resolve(context.Background(), user, "Deal", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, scope)

	f.resolver.Invalidate(user)

	scope, err = f.resolver.Resolve(context.Background(), user, "Deal", OperationView)
	require.NoError(t, err)
	assert.Equal(t, ScopeOwn, scope)

	mates, err := f.resolver.Teammates(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, mates, "teammates are recomputed per call, never cached")
}

func TestResolveUsesCache(t *testing.T) {
	f := newResolverFixture(t)
	user := primitive.NewObjectID()

	roleID := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Contact", Operation: OperationView, Scope: ScopeOwn},
	}})
	f.users.roles[user] = []primitive.ObjectID{roleID}

	for i := 0; i < 5; i++ {
		_, err := f.resolver.Resolve(context.Background(), user, "Contact", OperationView)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.roles.loads, "repeat resolutions hit the cache")
}
