package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-core/internal/common/models"
	"crm-core/internal/database"
	"crm-core/internal/features/authz"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("user not found")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)

	AssignRole(ctx context.Context, userID, roleID primitive.ObjectID) error
	UnassignRole(ctx context.Context, userID, roleID primitive.ObjectID) error

	// DirectRoleIDs implements authz.UserDirectory.
	DirectRoleIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)

	// IDsWithRole and CountWithRole implement role.AssigneeSource.
	IDsWithRole(ctx context.Context, roleID primitive.ObjectID) ([]primitive.ObjectID, error)
	CountWithRole(ctx context.Context, roleID primitive.ObjectID) (int64, error)
}

type UserRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewUserRepository(mongodb *database.MongodbDB) UserRepository {
	return &UserRepositoryImpl{
		Collection: mongodb.DB.Collection("users"),
	}
}

func tenantFromContext(ctx context.Context) (primitive.ObjectID, error) {
	tenantID, ok := ctx.Value(models.TenantIDKey).(string)
	if !ok || tenantID == "" {
		return primitive.NilObjectID, fmt.Errorf("tenant context missing")
	}
	return primitive.ObjectIDFromHex(tenantID)
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *models.User) error {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}
	user.TenantID = oid
	if user.Roles == nil {
		user.Roles = []primitive.ObjectID{}
	}

	_, err = r.Collection.InsertOne(ctx, user)
	return err
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var user models.User
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	if len(objectIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]models.User, error) {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := r.Collection.Find(ctx, bson.M{"tenant_id": oid})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) AssignRole(ctx context.Context, userID, roleID primitive.ObjectID) error {
	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$addToSet": bson.M{"roles": roleID},
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

func (r *UserRepositoryImpl) UnassignRole(ctx context.Context, userID, roleID primitive.ObjectID) error {
	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"roles": roleID},
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

// DirectRoleIDs is the wired authz.UserDirectory: a miss surfaces the
// engine's sentinel, not this package's ErrNotFound, so callers matching
// errors.Is(err, authz.ErrUserNotFound) see it hold in production too.
func (r *UserRepositoryImpl) DirectRoleIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var user models.User
	err := r.Collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, authz.ErrUserNotFound
		}
		return nil, err
	}
	return user.Roles, nil
}

func (r *UserRepositoryImpl) IDsWithRole(ctx context.Context, roleID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"roles": roleID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
	}
	return ids, nil
}

func (r *UserRepositoryImpl) CountWithRole(ctx context.Context, roleID primitive.ObjectID) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"roles": roleID})
}
