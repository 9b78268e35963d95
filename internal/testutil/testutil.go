// Package testutil opens throwaway databases and seeds a small production for tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/cineexpense/pkg/database"
)

// Today is the fixed "now" shared by fixtures and FixedClock-driven tests
var Today = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// NewDB opens a private in-memory SQLite database with the schema applied
func NewDB(t testing.TB) *sqldb.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on&_txlock=immediate", uuid.NewString())
	sqlDB, err := sql.Open(database.DialectSQLite.String(), dsn)
	require.NoError(t, err)
	// one connection keeps the shared-cache database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	logger := zap.NewNop()
	migrator := database.NewMigrator(database.Wrap(sqlDB, database.DialectSQLite, logger), logger)
	require.NoError(t, migrator.Run(""))

	return sqldb.NewDB(sqlDB, database.DialectSQLite, logger)
}

// Fixture is a seeded production with one department and one user per role
type Fixture struct {
	Production *entity.Production
	Department *entity.Department
	Users      map[entity.Role]*entity.User
	// OtherSupervisor is a second SUPERVISOR used for ownership checks
	OtherSupervisor *entity.User
}

// Actor returns the actor for the seeded user holding role
func (f *Fixture) Actor(role entity.Role) entity.Actor {
	u := f.Users[role]
	return entity.Actor{UserID: u.ID, Role: role, ProductionID: f.Production.ID}
}

// Seed inserts an active production whose department has the given budget
func Seed(t testing.TB, db *sqldb.DB, allocated string) *Fixture {
	t.Helper()
	ctx := context.Background()

	f := &Fixture{
		Production: &entity.Production{
			ID:                   uuid.NewString(),
			Name:                 "Night Shoot",
			Status:               workflow.ProductionActive,
			BaseCurrency:         "USD",
			BudgetAlertThreshold: decimal.RequireFromString("0.80"),
			CreatedAt:            Today,
		},
		Users: make(map[entity.Role]*entity.User),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO productions (id, name, status, base_currency, budget_alert_threshold, producer_override_enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.Production.ID, f.Production.Name, string(f.Production.Status), f.Production.BaseCurrency,
		"0.80", false, Today)
	require.NoError(t, err)

	f.Department = AddDepartment(t, db, f.Production.ID, "Camera", allocated)

	for _, role := range entity.Roles {
		f.Users[role] = AddUser(t, db, f.Production.ID, role)
	}
	f.OtherSupervisor = AddUser(t, db, f.Production.ID, entity.RoleSupervisor)

	return f
}

// AddDepartment inserts a department
func AddDepartment(t testing.TB, db *sqldb.DB, productionID, name, allocated string) *entity.Department {
	t.Helper()
	d := &entity.Department{
		ID:              uuid.NewString(),
		ProductionID:    productionID,
		Name:            name,
		AllocatedBudget: decimal.RequireFromString(allocated),
		CreatedAt:       Today,
	}
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO departments (id, production_id, name, allocated_budget, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.ProductionID, d.Name, d.AllocatedBudget.StringFixed(2), d.CreatedAt)
	require.NoError(t, err)
	return d
}

// AddUser inserts a directory user
func AddUser(t testing.TB, db *sqldb.DB, productionID string, role entity.Role) *entity.User {
	t.Helper()
	u := &entity.User{
		ID:           uuid.NewString(),
		ProductionID: productionID,
		Name:         string(role) + " " + uuid.NewString()[:8],
		Email:        uuid.NewString()[:8] + "@crew.test",
		Role:         role,
		CreatedAt:    Today,
	}
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, production_id, name, email, role, lark_open_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.ProductionID, u.Name, u.Email, string(u.Role), u.LarkOpenID, u.CreatedAt)
	require.NoError(t, err)
	return u
}

// AddExpense inserts an expense directly in the given status
func AddExpense(t testing.TB, db *sqldb.DB, f *Fixture, departmentID, amount string, status workflow.ExpenseStatus) *entity.Expense {
	t.Helper()
	e := &entity.Expense{
		ID:           uuid.NewString(),
		ProductionID: f.Production.ID,
		DepartmentID: departmentID,
		SubmittedBy:  f.Users[entity.RoleSupervisor].ID,
		Amount:       decimal.RequireFromString(amount),
		Currency:     "USD",
		ExpenseDate:  entity.NewDate(Today.AddDate(0, 0, -1)),
		Description:  "Lens rental",
		Status:       status,
		CreatedAt:    Today,
		UpdatedAt:    Today,
	}
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO expenses (id, production_id, department_id, submitted_by, amount, currency, expense_date, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProductionID, e.DepartmentID, e.SubmittedBy, e.Amount.StringFixed(2), e.Currency,
		e.ExpenseDate.String(), e.Description, string(e.Status), e.CreatedAt, e.UpdatedAt)
	require.NoError(t, err)
	return e
}

// AddReceipt attaches a receipt row to an expense
func AddReceipt(t testing.TB, db *sqldb.DB, expenseID, uploadedBy string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO expense_receipts (id, expense_id, file_path, file_name, content_type, size, uploaded_by, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), expenseID, "receipts/"+expenseID+"/r.pdf", "r.pdf", "application/pdf", 3, uploadedBy, Today)
	require.NoError(t, err)
}

// SetProductionStatus forces a production status
func SetProductionStatus(t testing.TB, db *sqldb.DB, productionID string, status workflow.ProductionStatus) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `UPDATE productions SET status = ? WHERE id = ?`, string(status), productionID)
	require.NoError(t, err)
}
