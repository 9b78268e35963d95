package http

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/application/service"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

type createExpenseRequest struct {
	DepartmentID string          `json:"department_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ExpenseDate  entity.Date     `json:"expense_date"`
	Description  string          `json:"description"`
}

type updateExpenseRequest struct {
	DepartmentID *string          `json:"department_id"`
	Amount       *decimal.Decimal `json:"amount"`
	ExpenseDate  *entity.Date     `json:"expense_date"`
	Description  *string          `json:"description"`
}

type listExpensesQuery struct {
	Status       string `form:"status"`
	DepartmentID string `form:"department_id"`
	SubmittedBy  string `form:"submitted_by"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type overrideRequest struct {
	Reason string `json:"reason"`
}

type markPaidRequest struct {
	PaymentMethod   entity.PaymentMethod `json:"payment_method"`
	ReferenceNumber string               `json:"reference_number"`
	PaymentDate     entity.Date          `json:"payment_date"`
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.services.Expenses.Create(c.Request.Context(), actorFrom(c), service.CreateExpenseInput{
		DepartmentID: req.DepartmentID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		ExpenseDate:  req.ExpenseDate,
		Description:  req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, result)
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	var q listExpensesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}

	expenses, err := h.services.Expenses.List(c.Request.Context(), actorFrom(c), entity.ExpenseFilter{
		Status:       domainwf.ExpenseStatus(q.Status),
		DepartmentID: q.DepartmentID,
		SubmittedBy:  q.SubmittedBy,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, expenses)
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	expense, err := h.services.Expenses.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, expense)
}

// UpdateExpense handles PATCH /api/expenses/:id
func (h *Handlers) UpdateExpense(c *gin.Context) {
	var req updateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	expense, err := h.services.Expenses.Update(c.Request.Context(), actorFrom(c), c.Param("id"), service.UpdateExpenseInput{
		DepartmentID: req.DepartmentID,
		Amount:       req.Amount,
		ExpenseDate:  req.ExpenseDate,
		Description:  req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, expense)
}

// ListHistory handles GET /api/expenses/:id/history
func (h *Handlers) ListHistory(c *gin.Context) {
	history, err := h.services.Expenses.ListHistory(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, history)
}

// GetPayment handles GET /api/expenses/:id/payment
func (h *Handlers) GetPayment(c *gin.Context) {
	payment, err := h.services.Expenses.GetPayment(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, payment)
}

// UploadReceipt handles POST /api/expenses/:id/receipts (multipart field "receipt")
func (h *Handlers) UploadReceipt(c *gin.Context) {
	header, err := c.FormFile("receipt")
	if err != nil {
		h.badRequest(c, errMissingReceipt)
		return
	}
	if header.Size > h.maxUploadBytes {
		h.fail(c, apperror.BadRequest("receipt exceeds %d bytes", h.maxUploadBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		h.fail(c, err)
		return
	}

	receipt, err := h.services.Expenses.UploadReceipt(c.Request.Context(), actorFrom(c), c.Param("id"), service.ReceiptUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, receipt)
}

// ListReceipts handles GET /api/expenses/:id/receipts
func (h *Handlers) ListReceipts(c *gin.Context) {
	receipts, err := h.services.Expenses.ListReceipts(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, receipts)
}

// Submit handles POST /api/expenses/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	h.transition(c, domainwf.StatusSubmitted)
}

// ManagerApprove handles POST /api/expenses/:id/manager/approve
func (h *Handlers) ManagerApprove(c *gin.Context) {
	h.transition(c, domainwf.StatusManagerApproved)
}

// ManagerReturn handles POST /api/expenses/:id/manager/return
func (h *Handlers) ManagerReturn(c *gin.Context) {
	h.transition(c, domainwf.StatusManagerReturned)
}

// ManagerReject handles POST /api/expenses/:id/manager/reject
func (h *Handlers) ManagerReject(c *gin.Context) {
	h.transition(c, domainwf.StatusManagerRejected)
}

// AccountsApprove handles POST /api/expenses/:id/accounts/approve
func (h *Handlers) AccountsApprove(c *gin.Context) {
	h.transition(c, domainwf.StatusAccountsApproved)
}

// AccountsReturn handles POST /api/expenses/:id/accounts/return
func (h *Handlers) AccountsReturn(c *gin.Context) {
	h.transition(c, domainwf.StatusAccountsReturned)
}

// transition applies one edge; the optional body carries the comment
func (h *Handlers) transition(c *gin.Context, target domainwf.ExpenseStatus) {
	var req commentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	expense, err := h.services.Expenses.Transition(c.Request.Context(), actorFrom(c), c.Param("id"), target, req.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, expense)
}

// MarkPaid handles POST /api/expenses/:id/accounts/mark-paid
func (h *Handlers) MarkPaid(c *gin.Context) {
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.services.Expenses.MarkPaid(c.Request.Context(), actorFrom(c), c.Param("id"), service.PaymentInput{
		Method:          req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		PaymentDate:     req.PaymentDate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, result)
}

// OverrideBudget handles POST /api/expenses/:id/producer/override-budget
func (h *Handlers) OverrideBudget(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	expense, err := h.services.Expenses.OverrideBudget(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, expense)
}
