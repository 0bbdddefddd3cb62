package role

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type RoleController struct {
	RoleService RoleService
}

func NewRoleController(roleService RoleService) *RoleController {
	return &RoleController{
		RoleService: roleService,
	}
}

// CreateRole godoc
// @Summary      Create a role
// @Description  Create a custom role with scope and field permissions
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        role body Role true "Role"
// @Success      201  {object} Role
// @Router       /api/roles [post]
func (ctrl *RoleController) CreateRole(c *fiber.Ctx) error {
	var role Role
	if err := c.BodyParser(&role); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	created, err := ctrl.RoleService.CreateRole(c.UserContext(), &role)
	if err != nil {
		return roleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetRole godoc
// @Summary      Get a role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID"
// @Success      200  {object} Role
// @Router       /api/roles/{id} [get]
func (ctrl *RoleController) GetRole(c *fiber.Ctx) error {
	role, err := ctrl.RoleService.GetRoleByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return roleError(c, err)
	}

	return c.JSON(role)
}

// ListRoles godoc
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Success      200  {array} Role
// @Router       /api/roles [get]
func (ctrl *RoleController) ListRoles(c *fiber.Ctx) error {
	roles, err := ctrl.RoleService.ListRoles(c.UserContext())
	if err != nil {
		return roleError(c, err)
	}

	return c.JSON(roles)
}

// UpdateRole godoc
// @Summary      Update a role
// @Description  Replace a role's name and permissions; cached permissions
// @Description  of every affected user are invalidated
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Role ID"
// @Param        role body Role true "Role"
// @Success      200  {object} fiber.Map
// @Router       /api/roles/{id} [put]
func (ctrl *RoleController) UpdateRole(c *fiber.Ctx) error {
	var role Role
	if err := c.BodyParser(&role); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.RoleService.UpdateRole(c.UserContext(), c.Params("id"), &role); err != nil {
		return roleError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role updated",
	})
}

// DeleteRole godoc
// @Summary      Delete a role
// @Description  Delete a role that no user assignment or team default references
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID"
// @Success      200  {object} fiber.Map
// @Router       /api/roles/{id} [delete]
func (ctrl *RoleController) DeleteRole(c *fiber.Ctx) error {
	if err := ctrl.RoleService.DeleteRole(c.UserContext(), c.Params("id")); err != nil {
		return roleError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role deleted",
	})
}

func roleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, ErrSystemRole), errors.Is(err, ErrRoleInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
