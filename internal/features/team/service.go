package team

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

// RoleRef checks that a role exists before it becomes a team default;
// satisfied by the role repository.
type RoleRef interface {
	ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type TeamService interface {
	CreateTeam(ctx context.Context, team *Team) (*Team, error)
	GetTeamByID(ctx context.Context, id string) (*Team, error)
	ListTeams(ctx context.Context) ([]Team, error)
	UpdateTeam(ctx context.Context, id string, name, description string) error
	SetDefaultRole(ctx context.Context, id string, roleID *primitive.ObjectID) error
	AddMember(ctx context.Context, id string, userID primitive.ObjectID) error
	AddMembers(ctx context.Context, id string, userIDs []primitive.ObjectID) error
	RemoveMember(ctx context.Context, id string, userID primitive.ObjectID) error
	DeleteTeam(ctx context.Context, id string) error
}

type TeamServiceImpl struct {
	TeamRepo     TeamRepository
	Roles        RoleRef
	AuditService audit.AuditService
	Invalidator  authz.Invalidator
	Log          *zap.Logger
}

func NewTeamService(
	teamRepo TeamRepository,
	roles RoleRef,
	auditService audit.AuditService,
	invalidator authz.Invalidator,
	log *zap.Logger,
) TeamService {
	return &TeamServiceImpl{
		TeamRepo:     teamRepo,
		Roles:        roles,
		AuditService: auditService,
		Invalidator:  invalidator,
		Log:          log,
	}
}

func (s *TeamServiceImpl) CreateTeam(ctx context.Context, team *Team) (*Team, error) {
	if team.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	if team.DefaultRoleID != nil {
		if err := s.checkRole(ctx, *team.DefaultRoleID); err != nil {
			return nil, err
		}
	}

	team.ID = primitive.NewObjectID()
	team.CreatedAt = time.Now()
	team.UpdatedAt = time.Now()

	if err := s.TeamRepo.Create(ctx, team); err != nil {
		return nil, err
	}

	// Founding members gain teammate visibility and the default role.
	defer s.invalidateAll(team.Members)

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "team", team.ID.Hex(), map[string]common_models.Change{
		"name": {New: team.Name},
	})

	return team, nil
}

func (s *TeamServiceImpl) GetTeamByID(ctx context.Context, id string) (*Team, error) {
	return s.TeamRepo.FindByID(ctx, id)
}

func (s *TeamServiceImpl) ListTeams(ctx context.Context) ([]Team, error) {
	return s.TeamRepo.FindAll(ctx)
}

func (s *TeamServiceImpl) UpdateTeam(ctx context.Context, id string, name, description string) error {
	if name == "" {
		return fmt.Errorf("team name is required")
	}

	// Name and description carry no permission weight, nothing to invalidate.
	if err := s.TeamRepo.Update(ctx, id, name, description); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "team", id, map[string]common_models.Change{
		"name": {New: name},
	})
	return nil
}

// SetDefaultRole changes the role every member inherits. Both the old and
// the new role stop/start applying at once, so all current members are
// invalidated.
func (s *TeamServiceImpl) SetDefaultRole(ctx context.Context, id string, roleID *primitive.ObjectID) error {
	team, err := s.TeamRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if roleID != nil {
		if err := s.checkRole(ctx, *roleID); err != nil {
			return err
		}
	}

	defer s.invalidateAll(team.Members)

	if err := s.TeamRepo.SetDefaultRole(ctx, id, roleID); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTeam, "team", id, map[string]common_models.Change{
		"default_role_id": {Old: team.DefaultRoleID, New: roleID},
	})

	s.Log.Info("team default role changed",
		zap.String("team_id", id),
		zap.Int("invalidated_users", len(team.Members)))
	return nil
}

func (s *TeamServiceImpl) AddMember(ctx context.Context, id string, userID primitive.ObjectID) error {
	defer s.Invalidator.Invalidate(userID)

	if err := s.TeamRepo.AddMember(ctx, id, userID); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTeam, "team", id, map[string]common_models.Change{
		"member_added": {New: userID.Hex()},
	})
	return nil
}

func (s *TeamServiceImpl) AddMembers(ctx context.Context, id string, userIDs []primitive.ObjectID) error {
	if len(userIDs) == 0 {
		return nil
	}

	defer s.invalidateAll(userIDs)

	if err := s.TeamRepo.AddMembers(ctx, id, userIDs); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTeam, "team", id, map[string]common_models.Change{
		"members_added": {New: len(userIDs)},
	})
	return nil
}

func (s *TeamServiceImpl) RemoveMember(ctx context.Context, id string, userID primitive.ObjectID) error {
	defer s.Invalidator.Invalidate(userID)

	if err := s.TeamRepo.RemoveMember(ctx, id, userID); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTeam, "team", id, map[string]common_models.Change{
		"member_removed": {Old: userID.Hex()},
	})
	return nil
}

// DeleteTeam drops the team and with it every member's inherited default
// role and teammate visibility.
func (s *TeamServiceImpl) DeleteTeam(ctx context.Context, id string) error {
	team, err := s.TeamRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	defer s.invalidateAll(team.Members)

	if err := s.TeamRepo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "team", id, map[string]common_models.Change{
		"name": {Old: team.Name},
	})
	return nil
}

func (s *TeamServiceImpl) checkRole(ctx context.Context, roleID primitive.ObjectID) error {
	exists, err := s.Roles.ExistsByID(ctx, roleID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUnknownRole
	}
	return nil
}

func (s *TeamServiceImpl) invalidateAll(userIDs []primitive.ObjectID) {
	for _, id := range userIDs {
		s.Invalidator.Invalidate(id)
	}
}
