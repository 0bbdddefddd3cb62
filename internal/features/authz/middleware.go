package authz

import (
	"crm-core/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessScopeKey is the fiber.Locals key under which RequireScope stores
// the resolved scope for downstream handlers to build predicates from.
const AccessScopeKey = "access_scope"

// RequireScope is the single choke point for record-level authorization:
// it resolves the caller's scope for (entityType, op), rejects ScopeNone
// with 403, and passes the scope along. Handlers never re-implement the
// scope switch themselves.
func RequireScope(resolver *Resolver, entityType string, op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid user ID",
			})
		}

		scope, err := resolver.Resolve(c.UserContext(), userID, entityType, op)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		}

		if scope == ScopeNone {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Insufficient permissions",
			})
		}

		c.Locals(AccessScopeKey, scope)
		return c.Next()
	}
}
