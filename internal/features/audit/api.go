package audit

import (
	"crm-core/internal/config"
	"crm-core/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	Controller *AuditController
	config     *config.Config
}

func NewAuditApi(controller *AuditController, config *config.Config) *AuditApi {
	return &AuditApi{
		Controller: controller,
		config:     config,
	}
}

func (a *AuditApi) Setup(app *fiber.App) {
	logs := app.Group("/api/audit-logs", middleware.AuthMiddleware(a.config.SkipAuth), middleware.AdminMiddleware())

	logs.Get("/", a.Controller.ListLogs)
}
