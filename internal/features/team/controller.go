package team

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TeamController struct {
	TeamService TeamService
}

func NewTeamController(teamService TeamService) *TeamController {
	return &TeamController{
		TeamService: teamService,
	}
}

type updateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type defaultRoleRequest struct {
	RoleID *string `json:"role_id"`
}

type membersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// CreateTeam godoc
// @Summary      Create a team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        team body Team true "Team"
// @Success      201  {object} Team
// @Router       /api/teams [post]
func (ctrl *TeamController) CreateTeam(c *fiber.Ctx) error {
	var team Team
	if err := c.BodyParser(&team); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	created, err := ctrl.TeamService.CreateTeam(c.UserContext(), &team)
	if err != nil {
		return teamError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetTeam godoc
// @Summary      Get a team
// @Tags         teams
// @Produce      json
// @Param        id path string true "Team ID"
// @Success      200  {object} Team
// @Router       /api/teams/{id} [get]
func (ctrl *TeamController) GetTeam(c *fiber.Ctx) error {
	team, err := ctrl.TeamService.GetTeamByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return teamError(c, err)
	}

	return c.JSON(team)
}

// ListTeams godoc
// @Summary      List teams
// @Tags         teams
// @Produce      json
// @Success      200  {array} Team
// @Router       /api/teams [get]
func (ctrl *TeamController) ListTeams(c *fiber.Ctx) error {
	teams, err := ctrl.TeamService.ListTeams(c.UserContext())
	if err != nil {
		return teamError(c, err)
	}

	return c.JSON(teams)
}

// UpdateTeam godoc
// @Summary      Rename a team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        id path string true "Team ID"
// @Param        team body updateTeamRequest true "Name and description"
// @Success      200  {object} fiber.Map
// @Router       /api/teams/{id} [put]
func (ctrl *TeamController) UpdateTeam(c *fiber.Ctx) error {
	var req updateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.TeamService.UpdateTeam(c.UserContext(), c.Params("id"), req.Name, req.Description); err != nil {
		return teamError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Team updated",
	})
}

// SetDefaultRole godoc
// @Summary      Set or clear a team's default role
// @Description  A null role_id clears the default role. Cached permissions
// @Description  of all members are invalidated.
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        id path string true "Team ID"
// @Param        body body defaultRoleRequest true "Role reference"
// @Success      200  {object} fiber.Map
// @Router       /api/teams/{id}/default-role [put]
func (ctrl *TeamController) SetDefaultRole(c *fiber.Ctx) error {
	var req defaultRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var roleID *primitive.ObjectID
	if req.RoleID != nil {
		oid, err := primitive.ObjectIDFromHex(*req.RoleID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid role id",
			})
		}
		roleID = &oid
	}

	if err := ctrl.TeamService.SetDefaultRole(c.UserContext(), c.Params("id"), roleID); err != nil {
		return teamError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Default role updated",
	})
}

// AddMembers godoc
// @Summary      Add members to a team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        id path string true "Team ID"
// @Param        body body membersRequest true "User IDs"
// @Success      200  {object} fiber.Map
// @Router       /api/teams/{id}/members [post]
func (ctrl *TeamController) AddMembers(c *fiber.Ctx) error {
	var req membersRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	userIDs := make([]primitive.ObjectID, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid user id: " + id,
			})
		}
		userIDs = append(userIDs, oid)
	}

	if err := ctrl.TeamService.AddMembers(c.UserContext(), c.Params("id"), userIDs); err != nil {
		return teamError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Members added",
	})
}

// RemoveMember godoc
// @Summary      Remove a member from a team
// @Tags         teams
// @Produce      json
// @Param        id path string true "Team ID"
// @Param        userId path string true "User ID"
// @Success      200  {object} fiber.Map
// @Router       /api/teams/{id}/members/{userId} [delete]
func (ctrl *TeamController) RemoveMember(c *fiber.Ctx) error {
	userID, err := primitive.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user id",
		})
	}

	if err := ctrl.TeamService.RemoveMember(c.UserContext(), c.Params("id"), userID); err != nil {
		return teamError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Member removed",
	})
}

// DeleteTeam godoc
// @Summary      Delete a team
// @Tags         teams
// @Produce      json
// @Param        id path string true "Team ID"
// @Success      200  {object} fiber.Map
// @Router       /api/teams/{id} [delete]
func (ctrl *TeamController) DeleteTeam(c *fiber.Ctx) error {
	if err := ctrl.TeamService.DeleteTeam(c.UserContext(), c.Params("id")); err != nil {
		return teamError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Team deleted",
	})
}

func teamError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrAlreadyMember):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
