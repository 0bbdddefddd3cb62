package role

import (
	"context"
	"fmt"

	"crm-core/internal/common/models"
	"crm-core/internal/database"
	"crm-core/internal/features/authz"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	FindByID(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]Role, error)
	Update(ctx context.Context, id string, role *Role) error
	Delete(ctx context.Context, id string) error
	ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error)

	// GrantsByIDs implements authz.RoleDirectory. The IDs come from user
	// and team documents, which are already tenant-scoped.
	GrantsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]authz.RoleGrant, error)
}

type RoleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRoleRepository(mongodb *database.MongodbDB) RoleRepository {
	return &RoleRepositoryImpl{
		Collection: mongodb.DB.Collection("roles"),
	}
}

func tenantFromContext(ctx context.Context) (primitive.ObjectID, error) {
	tenantID, ok := ctx.Value(models.TenantIDKey).(string)
	if !ok || tenantID == "" {
		return primitive.NilObjectID, fmt.Errorf("tenant context missing")
	}
	return primitive.ObjectIDFromHex(tenantID)
}

func (r *RoleRepositoryImpl) Create(ctx context.Context, role *Role) error {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}
	role.TenantID = oid

	_, err = r.Collection.InsertOne(ctx, role)
	return err
}

func (r *RoleRepositoryImpl) FindByID(ctx context.Context, id string) (*Role, error) {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var role Role
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID, "tenant_id": oid}).Decode(&role)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepositoryImpl) FindByName(ctx context.Context, name string) (*Role, error) {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var role Role
	err = r.Collection.FindOne(ctx, bson.M{"name": name, "tenant_id": oid}).Decode(&role)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepositoryImpl) List(ctx context.Context) ([]Role, error) {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := r.Collection.Find(ctx, bson.M{"tenant_id": oid})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []Role
	if err = cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepositoryImpl) Update(ctx context.Context, id string, role *Role) error {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"name":              role.Name,
			"description":       role.Description,
			"permissions":       role.Permissions,
			"field_permissions": role.FieldPermissions,
			"updated_at":        role.UpdatedAt,
		},
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": objectID, "tenant_id": oid}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RoleRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.Collection.DeleteOne(ctx, bson.M{"_id": objectID, "tenant_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByID gates role references created by other tenants' admins: a
// role ID from a foreign tenant must look nonexistent here, or its grants
// would flow into this tenant through assignment and team defaults.
func (r *RoleRepositoryImpl) ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	oid, err := tenantFromContext(ctx)
	if err != nil {
		return false, err
	}

	count, err := r.Collection.CountDocuments(ctx, bson.M{"_id": id, "tenant_id": oid})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RoleRepositoryImpl) GrantsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]authz.RoleGrant, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []Role
	if err = cursor.All(ctx, &roles); err != nil {
		return nil, err
	}

	grants := make([]authz.RoleGrant, 0, len(roles))
	for i := range roles {
		grants = append(grants, roles[i].Grant())
	}
	return grants, nil
}
