package user

import (
	"crm-core/internal/config"
	"crm-core/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	Controller *UserController
	config     *config.Config
}

func NewUserApi(controller *UserController, config *config.Config) *UserApi {
	return &UserApi{
		Controller: controller,
		config:     config,
	}
}

func (a *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users", middleware.AuthMiddleware(a.config.SkipAuth), middleware.AdminMiddleware())

	users.Post("/", a.Controller.CreateUser)
	users.Get("/", a.Controller.ListUsers)
	users.Get("/:id", a.Controller.GetUser)
	users.Post("/:id/roles/:roleId", a.Controller.AssignRole)
	users.Delete("/:id/roles/:roleId", a.Controller.UnassignRole)
}
