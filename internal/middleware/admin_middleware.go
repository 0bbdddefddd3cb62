package middleware

import (
	"strings"

	"crm-core/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminMiddleware guards the administrative endpoints (role, team and
// assignment management) behind the admin role.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		isAdmin := false
		for _, role := range claims.Roles {
			if strings.ToLower(role) == "admin" {
				isAdmin = true
				break
			}
		}

		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: Admin role required",
			})
		}

		return c.Next()
	}
}
