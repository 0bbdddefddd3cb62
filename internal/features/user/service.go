package user

import (
	"context"
	"fmt"
	"time"

	common_models "crm-core/internal/common/models"
	"crm-core/internal/features/audit"
	"crm-core/internal/features/authz"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RoleRef checks that a role exists before assignment; satisfied by the
// role repository.
type RoleRef interface {
	ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type UserService interface {
	CreateUser(ctx context.Context, user *common_models.User) (*common_models.User, error)
	GetUserByID(ctx context.Context, id string) (*common_models.User, error)
	ListUsers(ctx context.Context) ([]common_models.User, error)
	AssignRole(ctx context.Context, userID, roleID primitive.ObjectID) error
	UnassignRole(ctx context.Context, userID, roleID primitive.ObjectID) error
}

type UserServiceImpl struct {
	UserRepo     UserRepository
	Roles        RoleRef
	AuditService audit.AuditService
	Invalidator  authz.Invalidator
	Log          *zap.Logger
}

func NewUserService(
	userRepo UserRepository,
	roles RoleRef,
	auditService audit.AuditService,
	invalidator authz.Invalidator,
	log *zap.Logger,
) UserService {
	return &UserServiceImpl{
		UserRepo:     userRepo,
		Roles:        roles,
		AuditService: auditService,
		Invalidator:  invalidator,
		Log:          log,
	}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, user *common_models.User) (*common_models.User, error) {
	if user.Username == "" || user.Email == "" {
		return nil, fmt.Errorf("username and email are required")
	}

	user.ID = primitive.NewObjectID()
	user.Status = "active"
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "user", user.ID.Hex(), map[string]common_models.Change{
		"username": {New: user.Username},
	})

	return user, nil
}

func (s *UserServiceImpl) GetUserByID(ctx context.Context, id string) (*common_models.User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]common_models.User, error) {
	return s.UserRepo.List(ctx)
}

func (s *UserServiceImpl) AssignRole(ctx context.Context, userID, roleID primitive.ObjectID) error {
	exists, err := s.Roles.ExistsByID(ctx, roleID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("role %s does not exist", roleID.Hex())
	}

	// Invalidate even if the write fails; a spare cache miss is harmless.
	defer s.Invalidator.Invalidate(userID)

	if err := s.UserRepo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionAssign, "user", userID.Hex(), map[string]common_models.Change{
		"role": {New: roleID.Hex()},
	})

	s.Log.Info("role assigned",
		zap.String("user_id", userID.Hex()),
		zap.String("role_id", roleID.Hex()))
	return nil
}

func (s *UserServiceImpl) UnassignRole(ctx context.Context, userID, roleID primitive.ObjectID) error {
	defer s.Invalidator.Invalidate(userID)

	if err := s.UserRepo.UnassignRole(ctx, userID, roleID); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionRevoke, "user", userID.Hex(), map[string]common_models.Change{
		"role": {Old: roleID.Hex()},
	})

	s.Log.Info("role unassigned",
		zap.String("user_id", userID.Hex()),
		zap.String("role_id", roleID.Hex()))
	return nil
}
