package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/application/service"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

type createDepartmentRequest struct {
	Name            string          `json:"name"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
}

type updateDepartmentRequest struct {
	Name            *string          `json:"name"`
	AllocatedBudget *decimal.Decimal `json:"allocated_budget"`
}

type productionStatusRequest struct {
	Status string `json:"status"`
}

// ListDepartments handles GET /api/departments
func (h *Handlers) ListDepartments(c *gin.Context) {
	departments, err := h.services.Departments.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, departments)
}

// CreateDepartment handles POST /api/departments
func (h *Handlers) CreateDepartment(c *gin.Context) {
	var req createDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	department, err := h.services.Departments.Create(c.Request.Context(), actorFrom(c), service.CreateDepartmentInput{
		Name:            req.Name,
		AllocatedBudget: req.AllocatedBudget,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, department)
}

// GetDepartment handles GET /api/departments/:id
func (h *Handlers) GetDepartment(c *gin.Context) {
	department, err := h.services.Departments.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, department)
}

// UpdateDepartment handles PATCH /api/departments/:id
func (h *Handlers) UpdateDepartment(c *gin.Context) {
	var req updateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	department, err := h.services.Departments.Update(c.Request.Context(), actorFrom(c), c.Param("id"), service.UpdateDepartmentInput{
		Name:            req.Name,
		AllocatedBudget: req.AllocatedBudget,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, department)
}

// GetDepartmentBudget handles GET /api/departments/:id/budget
func (h *Handlers) GetDepartmentBudget(c *gin.Context) {
	budget, err := h.services.Departments.GetBudget(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, budget)
}

// BudgetReport handles GET /api/reports/budget
func (h *Handlers) BudgetReport(c *gin.Context) {
	report, err := h.services.Reports.BudgetReport(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, report)
}

// BudgetWorkbook handles GET /api/reports/budget.xlsx
func (h *Handlers) BudgetWorkbook(c *gin.Context) {
	report, err := h.services.Reports.BudgetWorkbook(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	c.Data(http.StatusOK, report.ContentType, report.Content)
}

// GetProduction handles GET /api/admin/production
func (h *Handlers) GetProduction(c *gin.Context) {
	production, err := h.services.Productions.Get(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, production)
}

// SetProductionStatus handles PATCH /api/admin/production/status
func (h *Handlers) SetProductionStatus(c *gin.Context) {
	var req productionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	production, err := h.services.Productions.SetStatus(c.Request.Context(), actorFrom(c), domainwf.ProductionStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, production)
}

// ListUsers handles GET /api/admin/users?role=
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.services.Productions.ListUsers(c.Request.Context(), actorFrom(c), entity.Role(c.Query("role")))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, users)
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	notifications, err := h.services.Notifications.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, notifications)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.services.Notifications.MarkRead(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}
