package authz

// Scope is the breadth of records an operation applies to. The values form
// a total order none < own < team < all; combining a user's roles takes the
// maximum over this order (widest wins).
type Scope string

const (
	ScopeNone Scope = "none"
	ScopeOwn  Scope = "own"
	ScopeTeam Scope = "team"
	ScopeAll  Scope = "all"
)

var scopeRank = map[Scope]int{
	ScopeNone: 0,
	ScopeOwn:  1,
	ScopeTeam: 2,
	ScopeAll:  3,
}

// Rank returns the position of s in the scope order. Unknown values rank
// as none: permission denial is the safe default.
func (s Scope) Rank() int {
	return scopeRank[s]
}

func (s Scope) Valid() bool {
	_, ok := scopeRank[s]
	return ok
}

// Wider returns the more permissive of two scopes.
func Wider(a, b Scope) Scope {
	if b.Rank() > a.Rank() {
		return b
	}
	if !a.Valid() {
		return ScopeNone
	}
	return a
}

// AccessLevel is a per-field restriction, independent of record scope.
// The values form a total order edit < read_only < hidden; combining a
// user's roles takes the maximum over this order (most restrictive wins),
// deliberately the opposite of how scopes combine.
type AccessLevel string

const (
	AccessEdit     AccessLevel = "edit"
	AccessReadOnly AccessLevel = "read_only"
	AccessHidden   AccessLevel = "hidden"
)

var accessRank = map[AccessLevel]int{
	AccessEdit:     0,
	AccessReadOnly: 1,
	AccessHidden:   2,
}

func (l AccessLevel) Rank() int {
	return accessRank[l]
}

func (l AccessLevel) Valid() bool {
	_, ok := accessRank[l]
	return ok
}

// Narrower returns the more restrictive of two access levels.
func Narrower(a, b AccessLevel) AccessLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	if !a.Valid() {
		return AccessEdit
	}
	return a
}

// Operation is one of the governed actions on an entity type.
type Operation string

const (
	OperationView   Operation = "view"
	OperationCreate Operation = "create"
	OperationEdit   Operation = "edit"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

var allOperations = []Operation{
	OperationView,
	OperationCreate,
	OperationEdit,
	OperationUpdate,
	OperationDelete,
}

func (o Operation) Valid() bool {
	switch o {
	case OperationView, OperationCreate, OperationEdit, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Operations returns the closed set of governed operations.
func Operations() []Operation {
	out := make([]Operation, len(allOperations))
	copy(out, allOperations)
	return out
}
