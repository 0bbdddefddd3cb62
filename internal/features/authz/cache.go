package authz

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// permissionSet is one user's resolved permissions: record scopes per
// (entity type, operation) and access levels per (entity type, field).
// Built once on cache miss, shared read-only afterwards.
type permissionSet struct {
	scopes map[string]map[Operation]Scope
	fields map[string]map[string]AccessLevel
}

func newPermissionSet() *permissionSet {
	return &permissionSet{
		scopes: make(map[string]map[Operation]Scope),
		fields: make(map[string]map[string]AccessLevel),
	}
}

func (ps *permissionSet) addScope(entityType string, op Operation, scope Scope) {
	ops, ok := ps.scopes[entityType]
	if !ok {
		ops = make(map[Operation]Scope)
		ps.scopes[entityType] = ops
	}
	ops[op] = Wider(ops[op], scope)
}

func (ps *permissionSet) addField(entityType, field string, level AccessLevel) {
	fields, ok := ps.fields[entityType]
	if !ok {
		fields = make(map[string]AccessLevel)
		ps.fields[entityType] = fields
	}
	if current, exists := fields[field]; exists {
		fields[field] = Narrower(current, level)
	} else {
		fields[field] = level
	}
}

// scope returns ScopeNone for any pair no role has an entry for.
func (ps *permissionSet) scope(entityType string, op Operation) Scope {
	if ops, ok := ps.scopes[entityType]; ok {
		if s, ok := ops[op]; ok {
			return s
		}
	}
	return ScopeNone
}

// fieldAccess defaults to AccessEdit: fields are opt-in to restriction.
func (ps *permissionSet) fieldAccess(entityType, field string) AccessLevel {
	if fields, ok := ps.fields[entityType]; ok {
		if l, ok := fields[field]; ok {
			return l
		}
	}
	return AccessEdit
}

// Cache memoizes permission sets per user. There is no TTL: correctness
// depends entirely on mutating collaborators calling Invalidate. A
// per-key generation counter guards against a load that was in flight
// when Invalidate ran writing its stale result back afterwards.
type Cache struct {
	store *lru.Cache[string, *permissionSet]
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func NewCache(size int) (*Cache, error) {
	store, err := lru.New[string, *permissionSet](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		store: store,
		gens:  make(map[string]uint64),
	}, nil
}

type loadFunc func(ctx context.Context, userID primitive.ObjectID) (*permissionSet, error)

// loadResult pairs a loaded set with the generation current when the load
// began, so every caller that shared the flight judges staleness against
// the same point in time.
type loadResult struct {
	ps  *permissionSet
	gen uint64
}

// GetOrLoad returns the cached set for the user, or populates it via load.
// Concurrent loads for the same user are collapsed into one; loads for
// different users never serialize on each other.
func (c *Cache) GetOrLoad(ctx context.Context, userID primitive.ObjectID, load loadFunc) (*permissionSet, error) {
	key := userID.Hex()

	if ps, ok := c.store.Get(key); ok {
		return ps, nil
	}

	// The generation is captured inside the flight, at the moment the load
	// actually starts. Callers that join an in-flight load inherit that
	// generation rather than reading a fresher one of their own, so a set
	// loaded before an Invalidate can never be written back by a caller
	// that arrived after it.
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		gen := c.generation(key)
		ps, err := load(ctx, userID)
		if err != nil {
			return nil, err
		}
		return loadResult{ps: ps, gen: gen}, nil
	})
	if err != nil {
		return nil, err
	}
	res := v.(loadResult)

	// Only store if no invalidation happened while the flight was loading.
	c.mu.Lock()
	if c.gens[key] == res.gen {
		c.store.Add(key, res.ps)
	}
	c.mu.Unlock()

	return res.ps, nil
}

// Invalidate evicts the user's entry. Idempotent; safe to call even when
// the underlying mutation later rolls back (over-invalidating costs one
// cache miss, under-invalidating leaks access).
func (c *Cache) Invalidate(userID primitive.ObjectID) {
	key := userID.Hex()

	c.mu.Lock()
	c.gens[key]++
	c.mu.Unlock()

	c.store.Remove(key)
	c.group.Forget(key)
}

func (c *Cache) Len() int {
	return c.store.Len()
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}
