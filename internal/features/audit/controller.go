package audit

import (
	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	AuditService AuditService
}

func NewAuditController(auditService AuditService) *AuditController {
	return &AuditController{
		AuditService: auditService,
	}
}

// ListLogs godoc
// @Summary      List audit logs
// @Description  List audit trail entries, newest first
// @Tags         audit
// @Produce      json
// @Param        module query string false "Feature name"
// @Param        action query string false "Audit action"
// @Param        page query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200  {array} models.AuditLog
// @Router       /api/audit-logs [get]
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	filters := map[string]interface{}{
		"module": c.Query("module"),
		"action": c.Query("action"),
	}

	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 20))

	logs, err := ctrl.AuditService.ListLogs(c.UserContext(), filters, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(logs)
}
