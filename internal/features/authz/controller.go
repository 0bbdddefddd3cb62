package authz

import (
	"crm-core/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthzController struct {
	Resolver *Resolver
}

func NewAuthzController(resolver *Resolver) *AuthzController {
	return &AuthzController{
		Resolver: resolver,
	}
}

// GetMyPermissions godoc
// @Summary      Get the caller's effective permissions
// @Description  Returns the resolved scope for every governed entity type and operation, for UI affordances
// @Tags         permissions
// @Produce      json
// @Success      200  {array} EffectivePermission
// @Failure      401  {string} string "User context missing"
// @Router       /api/permissions/mine [get]
func (ctrl *AuthzController) GetMyPermissions(c *fiber.Ctx) error {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User context missing",
		})
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}

	permissions, err := ctrl.Resolver.AllPermissions(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"permissions": permissions,
	})
}
