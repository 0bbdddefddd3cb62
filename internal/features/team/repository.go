package team

import (
	"context"
	"fmt"
	"time"

	"crm-core/internal/common/models"
	"crm-core/internal/database"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	FindByID(ctx context.Context, id string) (*Team, error)
	FindAll(ctx context.Context) ([]Team, error)
	Update(ctx context.Context, id string, name, description string) error
	SetDefaultRole(ctx context.Context, id string, roleID *primitive.ObjectID) error
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, id string, userID primitive.ObjectID) error
	AddMembers(ctx context.Context, id string, userIDs []primitive.ObjectID) error
	RemoveMember(ctx context.Context, id string, userID primitive.ObjectID) error
	FindByMember(ctx context.Context, userID primitive.ObjectID) ([]Team, error)

	// DefaultRoleIDsFor and TeammatesOf implement authz.TeamDirectory.
	DefaultRoleIDsFor(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	TeammatesOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)

	// MemberIDsByDefaultRole and CountByDefaultRole implement role.TeamSource.
	MemberIDsByDefaultRole(ctx context.Context, roleID primitive.ObjectID) ([]primitive.ObjectID, error)
	CountByDefaultRole(ctx context.Context, roleID primitive.ObjectID) (int64, error)
}

type TeamRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTeamRepository(mongodb *database.MongodbDB) TeamRepository {
	return &TeamRepositoryImpl{
		Collection: mongodb.DB.Collection("teams"),
	}
}

func tenantFromContext(ctx context.Context) (primitive.ObjectID, error) {
	tenantID, ok := ctx.Value(models.TenantIDKey).(string)
	if !ok || tenantID == "" {
		return primitive.NilObjectID, fmt.Errorf("tenant context missing")
	}
	return primitive.ObjectIDFromHex(tenantID)
}

func (r *TeamRepositoryImpl) Create(ctx context.Context, team *Team) error {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}
	team.TenantID = oid
	if team.Members == nil {
		team.Members = []primitive.ObjectID{}
	}

	_, err = r.Collection.InsertOne(ctx, team)
	return err
}

func (r *TeamRepositoryImpl) FindByID(ctx context.Context, id string) (*Team, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var team Team
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&team)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *TeamRepositoryImpl) FindAll(ctx context.Context) ([]Team, error) {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := r.Collection.Find(ctx, bson.M{"tenant_id": oid})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []Team
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *TeamRepositoryImpl) Update(ctx context.Context, id string, name, description string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{
			"name":        name,
			"description": description,
			"updated_at":  time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TeamRepositoryImpl) SetDefaultRole(ctx context.Context, id string, roleID *primitive.ObjectID) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if roleID == nil {
		update["$unset"] = bson.M{"default_role_id": ""}
	} else {
		update["$set"].(bson.M)["default_role_id"] = *roleID
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TeamRepositoryImpl) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TeamRepositoryImpl) AddMember(ctx context.Context, id string, userID primitive.ObjectID) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (r *TeamRepositoryImpl) AddMembers(ctx context.Context, id string, userIDs []primitive.ObjectID) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": userIDs}},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TeamRepositoryImpl) RemoveMember(ctx context.Context, id string, userID primitive.ObjectID) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$pull": bson.M{"members": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TeamRepositoryImpl) FindByMember(ctx context.Context, userID primitive.ObjectID) ([]Team, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []Team
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *TeamRepositoryImpl) DefaultRoleIDsFor(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"members":         userID,
		"default_role_id": bson.M{"$exists": true},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []Team
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, err
	}

	roleIDs := make([]primitive.ObjectID, 0, len(teams))
	for i := range teams {
		if teams[i].DefaultRoleID != nil {
			roleIDs = append(roleIDs, *teams[i].DefaultRoleID)
		}
	}
	return lo.Uniq(roleIDs), nil
}

func (r *TeamRepositoryImpl) TeammatesOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	teams, err := r.FindByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	var group []primitive.ObjectID
	for i := range teams {
		group = append(group, teams[i].Members...)
	}
	return lo.Uniq(group), nil
}

func (r *TeamRepositoryImpl) MemberIDsByDefaultRole(ctx context.Context, roleID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"default_role_id": roleID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []Team
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, err
	}

	var members []primitive.ObjectID
	for i := range teams {
		members = append(members, teams[i].Members...)
	}
	return lo.Uniq(members), nil
}

func (r *TeamRepositoryImpl) CountByDefaultRole(ctx context.Context, roleID primitive.ObjectID) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"default_role_id": roleID})
}
