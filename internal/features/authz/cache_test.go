package authz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func constantLoad(calls *int32) loadFunc {
	return func(context.Context, primitive.ObjectID) (*permissionSet, error) {
		atomic.AddInt32(calls, 1)
		ps := newPermissionSet()
		ps.addScope("Contact", OperationView, ScopeOwn)
		return ps, nil
	}
}

func TestCacheGetOrLoad(t *testing.T) {
	cache, err := NewCache(8)
	require.NoError(t, err)
	user := primitive.NewObjectID()

	var calls int32
	load := constantLoad(&calls)

	ps, err := cache.GetOrLoad(context.Background(), user, load)
	require.NoError(t, err)
	assert.Equal(t, ScopeOwn, ps.scope("Contact", OperationView))

	_, err = cache.GetOrLoad(context.Background(), user, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls, "second call is a cache hit")
}

func TestCacheInvalidateForcesReload(t *testing.T) {
	cache, err := NewCache(8)
	require.NoError(t, err)
	user := primitive.NewObjectID()

	var calls int32
	load := constantLoad(&calls)

	_, err = cache.GetOrLoad(context.Background(), user, load)
	require.NoError(t, err)

	cache.Invalidate(user)
	cache.Invalidate(user) // idempotent

	_, err = cache.GetOrLoad(context.Background(), user, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestCacheInvalidateUnknownUser(t *testing.T) {
	cache, err := NewCache(8)
	require.NoError(t, err)

	// Never panics, never errors.
	cache.Invalidate(primitive.NewObjectID())
	assert.Equal(t, 0, cache.Len())
}

// A load already in flight when Invalidate runs must not park its stale
// result in the cache afterwards — neither through the goroutine that
// started the load nor through one that joined it mid-flight.
func TestCacheInvalidateDuringLoad(t *testing.T) {
	cache, err := NewCache(8)
	require.NoError(t, err)
	user := primitive.NewObjectID()

	var source atomic.Int64
	source.Store(1)

	started := make(chan struct{})
	release := make(chan struct{})

	// Reads the backing value when the load begins; the first (stale)
	// load parks until released.
	slowLoad := func(context.Context, primitive.ObjectID) (*permissionSet, error) {
		v := source.Load()
		if v == 1 {
			close(started)
			<-release
		}
		ps := newPermissionSet()
		if v >= 2 {
			ps.addScope("Contact", OperationView, ScopeAll)
		} else {
			ps.addScope("Contact", OperationView, ScopeOwn)
		}
		return ps, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { // leader: starts the flight
		defer wg.Done()
		_, err := cache.GetOrLoad(context.Background(), user, slowLoad)
		assert.NoError(t, err)
	}()
	<-started

	wg.Add(1)
	go func() { // joiner: shares the in-flight load
		defer wg.Done()
		_, err := cache.GetOrLoad(context.Background(), user, slowLoad)
		assert.NoError(t, err)
	}()

	// The mutation commits and invalidates while both callers wait.
	source.Store(2)
	cache.Invalidate(user)
	close(release)
	wg.Wait()

	// Whatever the racing callers saw, the cache must now serve current
	// data, not the pre-invalidation snapshot.
	ps, err := cache.GetOrLoad(context.Background(), user, slowLoad)
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, ps.scope("Contact", OperationView))
}

// Hammers GetOrLoad with concurrent readers while the backing value keeps
// changing, each change followed by an Invalidate. After everything
// settles the cache must reflect the final value; any earlier snapshot
// surviving means an invalidation lost to an in-flight load.
func TestCacheInvalidateStress(t *testing.T) {
	cache, err := NewCache(8)
	require.NoError(t, err)
	user := primitive.NewObjectID()

	var source atomic.Int64
	load := func(context.Context, primitive.ObjectID) (*permissionSet, error) {
		ps := newPermissionSet()
		ps.addField("Deal", fmt.Sprintf("v%d", source.Load()), AccessHidden)
		return ps, nil
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_, err := cache.GetOrLoad(context.Background(), user, load)
					assert.NoError(t, err)
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		source.Add(1)
		cache.Invalidate(user)
	}
	close(done)
	wg.Wait()

	// Every load started before the final Invalidate carries an older
	// generation and must not have been stored.
	ps, err := cache.GetOrLoad(context.Background(), user, load)
	require.NoError(t, err)
	current := fmt.Sprintf("v%d", source.Load())
	assert.Equal(t, AccessHidden, ps.fieldAccess("Deal", current),
		"cache serves the post-invalidation snapshot")
}

func TestCacheConcurrentLoadsCollapse(t *testing.T) {
	cache, err := NewCache(8)
	require.NoError(t, err)
	user := primitive.NewObjectID()

	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrLoad(context.Background(), user, constantLoad(&calls))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, calls, int32(2), "concurrent misses collapse into few loads")
}
