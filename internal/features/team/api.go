package team

import (
	"crm-core/internal/config"
	"crm-core/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TeamApi struct {
	Controller *TeamController
	config     *config.Config
}

func NewTeamApi(controller *TeamController, config *config.Config) *TeamApi {
	return &TeamApi{
		Controller: controller,
		config:     config,
	}
}

func (a *TeamApi) Setup(app *fiber.App) {
	teams := app.Group("/api/teams", middleware.AuthMiddleware(a.config.SkipAuth), middleware.AdminMiddleware())

	teams.Post("/", a.Controller.CreateTeam)
	teams.Get("/", a.Controller.ListTeams)
	teams.Get("/:id", a.Controller.GetTeam)
	teams.Put("/:id", a.Controller.UpdateTeam)
	teams.Delete("/:id", a.Controller.DeleteTeam)
	teams.Put("/:id/default-role", a.Controller.SetDefaultRole)
	teams.Post("/:id/members", a.Controller.AddMembers)
	teams.Delete("/:id/members/:userId", a.Controller.RemoveMember)
}
