package authz

import (
	"crm-core/internal/config"
	"crm-core/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthzApi struct {
	Controller *AuthzController
	config     *config.Config
}

func NewAuthzApi(controller *AuthzController, config *config.Config) *AuthzApi {
	return &AuthzApi{
		Controller: controller,
		config:     config,
	}
}

func (a *AuthzApi) Setup(app *fiber.App) {
	permissions := app.Group("/api/permissions", middleware.AuthMiddleware(a.config.SkipAuth))

	// Read-only reflection endpoint; roles/teams/assignments are mutated
	// through their own admin endpoints.
	permissions.Get("/mine", a.Controller.GetMyPermissions)
}
