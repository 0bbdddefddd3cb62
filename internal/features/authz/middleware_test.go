package authz

import (
	"net/http/httptest"
	"testing"

	"crm-core/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRequireScope(t *testing.T) {
	f := newResolverFixture(t)

	viewer := primitive.NewObjectID()
	roleID := f.addRole(RoleGrant{Permissions: []PermissionEntry{
		{EntityType: "Contact", Operation: OperationView, Scope: ScopeTeam},
	}})
	f.users.roles[viewer] = []primitive.ObjectID{roleID}

	blocked := primitive.NewObjectID()
	f.users.roles[blocked] = nil

	newApp := func(claims *utils.UserClaims) *fiber.App {
		app := fiber.New()
		app.Get("/contacts",
			func(c *fiber.Ctx) error {
				if claims != nil {
					c.Locals(utils.UserClaimsKey, claims)
				}
				return c.Next()
			},
			RequireScope(f.resolver, "Contact", OperationView),
			func(c *fiber.Ctx) error {
				scope, _ := c.Locals(AccessScopeKey).(Scope)
				return c.JSON(fiber.Map{"scope": string(scope)})
			},
		)
		return app
	}

	t.Run("grants pass through with scope in locals", func(t *testing.T) {
		app := newApp(&utils.UserClaims{UserID: viewer.Hex()})
		resp, err := app.Test(httptest.NewRequest("GET", "/contacts", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("scope none is forbidden", func(t *testing.T) {
		app := newApp(&utils.UserClaims{UserID: blocked.Hex()})
		resp, err := app.Test(httptest.NewRequest("GET", "/contacts", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing claims is unauthorized", func(t *testing.T) {
		app := newApp(nil)
		resp, err := app.Test(httptest.NewRequest("GET", "/contacts", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("resolver failure is a server error", func(t *testing.T) {
		app := newApp(&utils.UserClaims{UserID: primitive.NewObjectID().Hex()})
		resp, err := app.Test(httptest.NewRequest("GET", "/contacts", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}
