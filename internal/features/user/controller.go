package user

import (
	"errors"

	common_models "crm-core/internal/common/models"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserController struct {
	UserService UserService
}

func NewUserController(userService UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// CreateUser godoc
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user body models.User true "User"
// @Success      201  {object} models.User
// @Router       /api/users [post]
func (ctrl *UserController) CreateUser(c *fiber.Ctx) error {
	var user common_models.User
	if err := c.BodyParser(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	created, err := ctrl.UserService.CreateUser(c.UserContext(), &user)
	if err != nil {
		return userError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200  {object} models.User
// @Router       /api/users/{id} [get]
func (ctrl *UserController) GetUser(c *fiber.Ctx) error {
	user, err := ctrl.UserService.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return userError(c, err)
	}

	return c.JSON(user)
}

// ListUsers godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array} models.User
// @Router       /api/users [get]
func (ctrl *UserController) ListUsers(c *fiber.Ctx) error {
	users, err := ctrl.UserService.ListUsers(c.UserContext())
	if err != nil {
		return userError(c, err)
	}

	return c.JSON(users)
}

// AssignRole godoc
// @Summary      Assign a role to a user
// @Description  Adds a direct role assignment and invalidates the user's
// @Description  cached permissions
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Param        roleId path string true "Role ID"
// @Success      200  {object} fiber.Map
// @Router       /api/users/{id}/roles/{roleId} [post]
func (ctrl *UserController) AssignRole(c *fiber.Ctx) error {
	userID, roleID, err := parseUserRoleParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := ctrl.UserService.AssignRole(c.UserContext(), userID, roleID); err != nil {
		return userError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role assigned",
	})
}

// UnassignRole godoc
// @Summary      Remove a role from a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Param        roleId path string true "Role ID"
// @Success      200  {object} fiber.Map
// @Router       /api/users/{id}/roles/{roleId} [delete]
func (ctrl *UserController) UnassignRole(c *fiber.Ctx) error {
	userID, roleID, err := parseUserRoleParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := ctrl.UserService.UnassignRole(c.UserContext(), userID, roleID); err != nil {
		return userError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role unassigned",
	})
}

func parseUserRoleParams(c *fiber.Ctx) (primitive.ObjectID, primitive.ObjectID, error) {
	userID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, errors.New("invalid user id")
	}
	roleID, err := primitive.ObjectIDFromHex(c.Params("roleId"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, errors.New("invalid role id")
	}
	return userID, roleID, nil
}

func userError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
