package authz

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	me       = primitive.NewObjectID()
	mate     = primitive.NewObjectID()
	stranger = primitive.NewObjectID()
)

func TestIsVisible(t *testing.T) {
	teammates := []primitive.ObjectID{me, mate}

	tests := []struct {
		name   string
		scope  Scope
		owners []*primitive.ObjectID
		want   bool
	}{
		{"all sees any owner", ScopeAll, []*primitive.ObjectID{&stranger}, true},
		{"all sees unassigned", ScopeAll, []*primitive.ObjectID{nil}, true},

		{"team sees own record", ScopeTeam, []*primitive.ObjectID{&me}, true},
		{"team sees teammate record", ScopeTeam, []*primitive.ObjectID{&mate}, true},
		{"team sees unassigned record", ScopeTeam, []*primitive.ObjectID{nil}, true},
		{"team blind to stranger record", ScopeTeam, []*primitive.ObjectID{&stranger}, false},
		{"team sees record assigned to teammate", ScopeTeam, []*primitive.ObjectID{&stranger, &mate}, true},

		{"own sees own record", ScopeOwn, []*primitive.ObjectID{&me}, true},
		{"own blind to teammate record", ScopeOwn, []*primitive.ObjectID{&mate}, false},
		{"own blind to unassigned record", ScopeOwn, []*primitive.ObjectID{nil}, false},
		{"own sees record via assignee field", ScopeOwn, []*primitive.ObjectID{&stranger, &me}, true},

		{"none sees nothing", ScopeNone, []*primitive.ObjectID{&me}, false},
		{"unknown scope sees nothing", Scope("everything"), []*primitive.ObjectID{&me}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(tt.scope, tt.owners, me, teammates))
		})
	}
}

func TestIsVisibleNoTeams(t *testing.T) {
	// A user with no team keeps Team scope working like Own, except
	// unassigned records stay visible.
	assert.True(t, IsVisible(ScopeTeam, []*primitive.ObjectID{&me}, me, nil))
	assert.True(t, IsVisible(ScopeTeam, []*primitive.ObjectID{nil}, me, nil))
	assert.False(t, IsVisible(ScopeTeam, []*primitive.ObjectID{&mate}, me, nil))
}

func TestPredicateEncodings(t *testing.T) {
	contact := EntityDef{Name: "Contact", OwnerFields: []string{"owner_id"}}
	activity := EntityDef{Name: "Activity", OwnerFields: []string{"owner_id", "assigned_to_id"}}

	t.Run("all matches everything", func(t *testing.T) {
		assert.Equal(t, bson.M{}, Predicate(ScopeAll, contact, me, nil))
	})

	t.Run("none matches nothing", func(t *testing.T) {
		assert.Equal(t, bson.M{"_id": -1}, Predicate(ScopeNone, contact, me, nil))
	})

	t.Run("unknown entity matches nothing", func(t *testing.T) {
		assert.Equal(t, bson.M{"_id": -1}, Predicate(ScopeOwn, EntityDef{}, me, nil))
	})

	t.Run("own single field", func(t *testing.T) {
		assert.Equal(t, bson.M{"owner_id": me}, Predicate(ScopeOwn, contact, me, nil))
	})

	t.Run("own dual field", func(t *testing.T) {
		got := Predicate(ScopeOwn, activity, me, nil)
		assert.Equal(t, bson.M{"$or": []bson.M{
			{"owner_id": me},
			{"assigned_to_id": me},
		}}, got)
	})

	t.Run("team includes self and nil branch", func(t *testing.T) {
		got := Predicate(ScopeTeam, contact, me, []primitive.ObjectID{mate})
		or, ok := got["$or"].([]bson.M)
		require.True(t, ok)
		require.Len(t, or, 2)
		in := or[0]["owner_id"].(bson.M)["$in"].([]primitive.ObjectID)
		assert.Contains(t, in, me)
		assert.Contains(t, in, mate)
		assert.Equal(t, bson.M{"owner_id": nil}, or[1])
	})
}

// evalPredicate interprets the subset of the query language Predicate
// emits against an in-memory record, so the single-record rule and the
// list filter can be cross-checked without a database.
func evalPredicate(filter bson.M, record map[string]*primitive.ObjectID) bool {
	if or, ok := filter["$or"]; ok {
		for _, cond := range or.([]bson.M) {
			if evalPredicate(cond, record) {
				return true
			}
		}
		return false
	}

	for field, want := range filter {
		if field == "_id" {
			return false // the match-nothing marker
		}
		value := record[field]
		switch w := want.(type) {
		case nil:
			if value != nil {
				return false
			}
		case primitive.ObjectID:
			if value == nil || *value != w {
				return false
			}
		case bson.M:
			in, ok := w["$in"].([]primitive.ObjectID)
			if !ok {
				return false
			}
			if value == nil || !lo.Contains(in, *value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// TestPredicateMatchesIsVisible feeds the same records through IsVisible
// and through the predicate for every scope, every entity shape, and every
// owner/assignee combination. Any divergence means list endpoints and
// single-record endpoints would disagree about visibility.
func TestPredicateMatchesIsVisible(t *testing.T) {
	teammates := []primitive.ObjectID{mate}
	defs := []EntityDef{
		{Name: "Contact", OwnerFields: []string{"owner_id"}},
		{Name: "Activity", OwnerFields: []string{"owner_id", "assigned_to_id"}},
	}
	ownerValues := []*primitive.ObjectID{nil, &me, &mate, &stranger}

	for _, def := range defs {
		for _, scope := range []Scope{ScopeNone, ScopeOwn, ScopeTeam, ScopeAll} {
			filter := Predicate(scope, def, me, teammates)

			for _, first := range ownerValues {
				for _, second := range ownerValues {
					owners := []*primitive.ObjectID{first}
					record := map[string]*primitive.ObjectID{"owner_id": first}
					if len(def.OwnerFields) == 2 {
						owners = append(owners, second)
						record["assigned_to_id"] = second
					}

					visible := IsVisible(scope, owners, me, teammates)
					matched := evalPredicate(filter, record)
					assert.Equal(t, visible, matched,
						"entity=%s scope=%s owners=%v", def.Name, scope, owners)
				}
			}
		}
	}
}
