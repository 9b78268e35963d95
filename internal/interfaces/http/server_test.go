package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/service"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/internal/infrastructure/export"
	"github.com/garyjia/cineexpense/internal/infrastructure/identity"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/repository"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/cineexpense/internal/infrastructure/storage"
	"github.com/garyjia/cineexpense/internal/testutil"
	"github.com/garyjia/cineexpense/pkg/utils"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	db     *sqldb.DB
	f      *testutil.Fixture
	tokens map[entity.Role]string
}

func newTestServer(t *testing.T, allocated string) *testServer {
	t.Helper()

	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, allocated)
	zl := zap.NewNop()
	logger := utils.NewKVLogger(zl)
	clock := utils.NewFixedClock(testutil.Today)

	users := repository.NewUserRepository(db, zl)
	repos := workflow.Repositories{
		Productions: repository.NewProductionRepository(db, zl),
		Departments: repository.NewDepartmentRepository(db, zl),
		Expenses:    repository.NewExpenseRepository(db, zl),
		Receipts:    repository.NewReceiptRepository(db, zl),
		History:     repository.NewHistoryRepository(db, zl),
		Payments:    repository.NewPaymentRepository(db, zl),
		Audit:       repository.NewAuditRepository(db, zl),
	}
	expenseEngine := workflow.NewExpenseEngine(repos, db, workflow.WithClock(clock))
	productionEngine := workflow.NewProductionEngine(repos.Productions, repos.Audit, db, workflow.WithClock(clock))

	services := Services{
		Expenses:      service.NewExpenseService(repos, expenseEngine, storage.NewLocalBlobStore(t.TempDir(), zl), db, clock, nil, logger),
		Departments:   service.NewDepartmentService(repos, db, clock, logger),
		Productions:   service.NewProductionService(repos.Productions, users, productionEngine, logger),
		Reports:       service.NewReportService(repos, export.NewBudgetWorkbook(zl), clock, logger),
		Notifications: service.NewNotificationService(repository.NewNotificationRepository(db, zl), users, repos, nil, clock, logger),
	}
	provider := identity.NewJWTProvider("test-secret", "cineexpense", time.Hour, clock, users)

	ts := &testServer{
		t:      t,
		router: NewServer(DefaultServerConfig(), services, provider, logger).Router(),
		db:     db,
		f:      f,
		tokens: make(map[entity.Role]string),
	}
	for role, user := range f.Users {
		token, err := provider.Issue(user)
		require.NoError(t, err)
		ts.tokens[role] = token
	}
	return ts
}

func (ts *testServer) do(role entity.Role, method, path string, body interface{}) (int, apiResponse) {
	ts.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.send(role, req)
}

func (ts *testServer) send(role entity.Role, req *http.Request) (int, apiResponse) {
	ts.t.Helper()
	if token, ok := ts.tokens[role]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func (ts *testServer) uploadReceipt(role entity.Role, expenseID string) (int, apiResponse) {
	ts.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("receipt", "taxi.pdf")
	require.NoError(ts.t, err)
	_, err = part.Write([]byte("%PDF-1.4 receipt"))
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/expenses/"+expenseID+"/receipts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return ts.send(role, req)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestServer_HealthCheckIsPublic(t *testing.T) {
	ts := newTestServer(t, "1000")
	code, resp := ts.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}

func TestServer_RequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, "1000")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			code, resp := ts.send("", req)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, "UNAUTHORIZED", resp.Kind)
		})
	}
}

func TestServer_ExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t, "1000")

	code, resp := ts.do(entity.RoleSupervisor, http.MethodPost, "/api/expenses", map[string]interface{}{
		"department_id": ts.f.Department.ID,
		"amount":        "120.50",
		"expense_date":  "2026-03-09",
		"description":   "Taxi to location",
	})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	created := decode[service.CreateExpenseResult](t, resp.Data)
	require.NotNil(t, created.Expense)
	assert.False(t, created.PossibleDuplicate)
	assert.Equal(t, domainwf.StatusDraft, created.Expense.Status)
	assert.Equal(t, "USD", created.Expense.Currency)
	id := created.Expense.ID

	code, resp = ts.uploadReceipt(entity.RoleSupervisor, id)
	require.Equal(t, http.StatusCreated, code, resp.Error)

	steps := []struct {
		role entity.Role
		path string
		want domainwf.ExpenseStatus
	}{
		{entity.RoleSupervisor, "/submit", domainwf.StatusSubmitted},
		{entity.RoleManager, "/manager/approve", domainwf.StatusManagerApproved},
		{entity.RoleAccounts, "/accounts/approve", domainwf.StatusAccountsApproved},
	}
	for _, step := range steps {
		code, resp = ts.do(step.role, http.MethodPost, "/api/expenses/"+id+step.path, nil)
		require.Equal(t, http.StatusOK, code, "%s: %s", step.path, resp.Error)
		assert.Equal(t, step.want, decode[entity.Expense](t, resp.Data).Status)
	}

	code, resp = ts.do(entity.RoleAccounts, http.MethodPost, "/api/expenses/"+id+"/accounts/mark-paid", map[string]string{
		"payment_method":   "bank",
		"reference_number": "TRX-42",
		"payment_date":     "2026-03-10",
	})
	require.Equal(t, http.StatusOK, code, resp.Error)
	paid := decode[workflow.PaymentResult](t, resp.Data)
	assert.Equal(t, domainwf.StatusPaid, paid.Expense.Status)
	assert.Equal(t, "TRX-42", paid.Payment.ReferenceNumber)

	code, resp = ts.do(entity.RoleSupervisor, http.MethodGet, "/api/expenses/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]entity.ExpenseStatusHistory](t, resp.Data), 5)

	code, resp = ts.do(entity.RoleAccounts, http.MethodPost, "/api/expenses/"+id+"/accounts/mark-paid", map[string]string{
		"payment_method":   "bank",
		"reference_number": "TRX-43",
		"payment_date":     "2026-03-10",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", resp.Kind)
}

func TestServer_ErrorKindsMapToStatus(t *testing.T) {
	ts := newTestServer(t, "1000")
	submitted := testutil.AddExpense(t, ts.db, ts.f, ts.f.Department.ID, "10", domainwf.StatusSubmitted)
	over := testutil.AddExpense(t, ts.db, ts.f, ts.f.Department.ID, "5000", domainwf.StatusSubmitted)

	tests := []struct {
		name     string
		role     entity.Role
		method   string
		path     string
		body     interface{}
		wantCode int
		wantKind string
	}{
		{"unknown expense", entity.RoleSupervisor, http.MethodGet, "/api/expenses/00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound, "NOT_FOUND"},
		{"malformed id", entity.RoleSupervisor, http.MethodGet, "/api/expenses/nope", nil, http.StatusNotFound, "NOT_FOUND"},
		{"wrong role creates", entity.RoleManager, http.MethodPost, "/api/expenses", map[string]string{
			"department_id": ts.f.Department.ID, "amount": "10", "expense_date": "2026-03-09", "description": "x",
		}, http.StatusForbidden, "FORBIDDEN"},
		{"zero amount", entity.RoleSupervisor, http.MethodPost, "/api/expenses", map[string]string{
			"department_id": ts.f.Department.ID, "amount": "0", "expense_date": "2026-03-09", "description": "x",
		}, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad date format", entity.RoleSupervisor, http.MethodPost, "/api/expenses", map[string]string{
			"department_id": ts.f.Department.ID, "amount": "10", "expense_date": "09/03/2026", "description": "x",
		}, http.StatusBadRequest, "BAD_REQUEST"},
		{"return needs a comment", entity.RoleManager, http.MethodPost, "/api/expenses/" + submitted.ID + "/manager/return", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"over budget approval", entity.RoleManager, http.MethodPost, "/api/expenses/" + over.ID + "/manager/approve", nil, http.StatusConflict, "CONFLICT"},
		{"accounts cannot override", entity.RoleAccounts, http.MethodPost, "/api/expenses/" + over.ID + "/producer/override-budget", map[string]string{
			"reason": "Studio approved the reshoot",
		}, http.StatusForbidden, "FORBIDDEN"},
		{"supervisor cannot see production settings", entity.RoleSupervisor, http.MethodGet, "/api/admin/production", nil, http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := ts.do(tt.role, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code, resp.Error)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_ReturnWithCommentAndOverride(t *testing.T) {
	ts := newTestServer(t, "1000")
	submitted := testutil.AddExpense(t, ts.db, ts.f, ts.f.Department.ID, "10", domainwf.StatusSubmitted)
	over := testutil.AddExpense(t, ts.db, ts.f, ts.f.Department.ID, "5000", domainwf.StatusSubmitted)

	code, resp := ts.do(entity.RoleManager, http.MethodPost, "/api/expenses/"+submitted.ID+"/manager/return",
		map[string]string{"comment": "Receipt is unreadable"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, domainwf.StatusManagerReturned, decode[entity.Expense](t, resp.Data).Status)

	code, resp = ts.do(entity.RoleProducer, http.MethodPost, "/api/expenses/"+over.ID+"/producer/override-budget",
		map[string]string{"reason": "Studio approved the reshoot"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, domainwf.StatusManagerApproved, decode[entity.Expense](t, resp.Data).Status)
}

func TestServer_DepartmentsAndBudgetWorkbook(t *testing.T) {
	ts := newTestServer(t, "1000")
	testutil.AddExpense(t, ts.db, ts.f, ts.f.Department.ID, "850", domainwf.StatusPaid)

	code, resp := ts.do(entity.RoleAdmin, http.MethodPost, "/api/departments",
		map[string]string{"name": "Catering", "allocated_budget": "400"})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	catering := decode[entity.Department](t, resp.Data)
	assert.Equal(t, "Catering", catering.Name)

	code, resp = ts.do(entity.RoleManager, http.MethodGet, "/api/departments", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]entity.Department](t, resp.Data), 2)

	code, resp = ts.do(entity.RoleProducer, http.MethodGet, "/api/departments/"+ts.f.Department.ID+"/budget", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	snapshot := decode[service.DepartmentBudget](t, resp.Data)
	assert.True(t, snapshot.IsThreshold)
	assert.True(t, snapshot.Committed.Equal(decimal.NewFromInt(850)), snapshot.Committed.String())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/budget.xlsx", nil)
	req.Header.Set("Authorization", "Bearer "+ts.tokens[entity.RoleProducer])
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "budget-20260310.xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestServer_ProductionLockBlocksWrites(t *testing.T) {
	ts := newTestServer(t, "1000")

	code, resp := ts.do(entity.RoleAdmin, http.MethodPatch, "/api/admin/production/status", map[string]string{"status": "locked"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, domainwf.ProductionLocked, decode[entity.Production](t, resp.Data).Status)

	code, resp = ts.do(entity.RoleSupervisor, http.MethodPost, "/api/expenses", map[string]string{
		"department_id": ts.f.Department.ID, "amount": "10", "expense_date": "2026-03-09", "description": "x",
	})
	assert.Equal(t, http.StatusForbidden, code, resp.Error)

	code, resp = ts.do(entity.RoleAdmin, http.MethodPatch, "/api/admin/production/status", map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, code, resp.Error)
}

func TestServer_Notifications(t *testing.T) {
	ts := newTestServer(t, "1000")

	code, resp := ts.do(entity.RoleSupervisor, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]entity.Notification](t, resp.Data))

	code, resp = ts.do(entity.RoleSupervisor, http.MethodPost, "/api/notifications/"+ts.f.Production.ID+"/read", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", resp.Kind)
}
