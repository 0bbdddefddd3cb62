package authz

import (
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsVisible decides whether a single record is visible/actionable under the
// resolved scope. owners holds the record's ownership field values in
// registry order (owner, then assignee when the entity has one); a nil
// entry means the field is unset.
//
//	all:  always visible
//	team: visible if any ownership field is unset, equals the user, or
//	      belongs to the user's teammates — unassigned records stay
//	      discoverable by the whole team instead of becoming orphaned
//	own:  visible if any ownership field equals the user
//	none: never visible
func IsVisible(scope Scope, owners []*primitive.ObjectID, userID primitive.ObjectID, teammates []primitive.ObjectID) bool {
	switch scope {
	case ScopeAll:
		return true
	case ScopeTeam:
		for _, owner := range owners {
			if owner == nil {
				return true
			}
			if *owner == userID || lo.Contains(teammates, *owner) {
				return true
			}
		}
		return false
	case ScopeOwn:
		for _, owner := range owners {
			if owner != nil && *owner == userID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Predicate builds the storage filter equivalent of IsVisible, applied
// before pagination/sorting on list queries. The two must encode identical
// logic; authz tests cross-check them record by record.
//
// Encoding: {} matches everything, {"_id": -1} matches nothing (no record
// has a numeric _id).
func Predicate(scope Scope, def EntityDef, userID primitive.ObjectID, teammates []primitive.ObjectID) bson.M {
	switch scope {
	case ScopeAll:
		return bson.M{}

	case ScopeTeam:
		// The visibility group is the teammate set plus the user; in Mongo
		// {field: nil} also matches documents missing the field, which is
		// exactly the unassigned-record leniency IsVisible implements.
		group := lo.Uniq(append([]primitive.ObjectID{userID}, teammates...))
		conditions := make([]bson.M, 0, len(def.OwnerFields)*2)
		for _, field := range def.OwnerFields {
			conditions = append(conditions,
				bson.M{field: bson.M{"$in": group}},
				bson.M{field: nil},
			)
		}
		if len(conditions) == 0 {
			return bson.M{"_id": -1}
		}
		return bson.M{"$or": conditions}

	case ScopeOwn:
		conditions := make([]bson.M, 0, len(def.OwnerFields))
		for _, field := range def.OwnerFields {
			conditions = append(conditions, bson.M{field: userID})
		}
		if len(conditions) == 0 {
			return bson.M{"_id": -1}
		}
		if len(conditions) == 1 {
			return conditions[0]
		}
		return bson.M{"$or": conditions}

	default:
		return bson.M{"_id": -1}
	}
}
