package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/internal/testutil"
)

func TestDepartmentService_CreateAndUpdate(t *testing.T) {
	e := newEnv(t, "1000")
	svc := NewDepartmentService(e.repos, e.db, e.clock, e.logger)
	ctx := context.Background()
	admin := e.f.Actor(entity.RoleAdmin)

	created, err := svc.Create(ctx, admin, CreateDepartmentInput{Name: " Wardrobe ", AllocatedBudget: decimal.NewFromInt(0)})
	require.NoError(t, err)
	assert.Equal(t, "Wardrobe", created.Name)

	budget := decimal.RequireFromString("2500.00")
	updated, err := svc.Update(ctx, admin, created.ID, UpdateDepartmentInput{AllocatedBudget: &budget})
	require.NoError(t, err)
	assert.Equal(t, "Wardrobe", updated.Name)
	assert.True(t, updated.AllocatedBudget.Equal(budget))

	got, err := svc.Get(ctx, e.f.Actor(entity.RoleSupervisor), created.ID)
	require.NoError(t, err)
	assert.True(t, got.AllocatedBudget.Equal(budget))

	all, err := svc.List(ctx, e.f.Actor(entity.RoleManager))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	entries, err := e.audit.ListByEntity(ctx, e.f.Production.ID, entity.AuditEntityDepartment, created.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDepartmentService_Rules(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	blank := "   "

	tests := []struct {
		name string
		run  func(t *testing.T, e *env, svc DepartmentService) error
		want apperror.Kind
	}{
		{"create requires admin", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Create(context.Background(), e.f.Actor(entity.RoleProducer), CreateDepartmentInput{Name: "Art"})
			return err
		}, apperror.KindForbidden},
		{"create rejects blank name", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Create(context.Background(), e.f.Actor(entity.RoleAdmin), CreateDepartmentInput{Name: blank})
			return err
		}, apperror.KindBadRequest},
		{"create rejects negative budget", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Create(context.Background(), e.f.Actor(entity.RoleAdmin), CreateDepartmentInput{Name: "Art", AllocatedBudget: negative})
			return err
		}, apperror.KindBadRequest},
		{"create rejects sub-cent budget", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Create(context.Background(), e.f.Actor(entity.RoleAdmin), CreateDepartmentInput{Name: "Art", AllocatedBudget: decimal.RequireFromString("99.999")})
			return err
		}, apperror.KindBadRequest},
		{"update requires admin", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Update(context.Background(), e.f.Actor(entity.RoleManager), e.f.Department.ID, UpdateDepartmentInput{})
			return err
		}, apperror.KindForbidden},
		{"update rejects negative budget", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Update(context.Background(), e.f.Actor(entity.RoleAdmin), e.f.Department.ID, UpdateDepartmentInput{AllocatedBudget: &negative})
			return err
		}, apperror.KindBadRequest},
		{"update unknown department", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Update(context.Background(), e.f.Actor(entity.RoleAdmin), "00000000-0000-4000-8000-000000000000", UpdateDepartmentInput{})
			return err
		}, apperror.KindNotFound},
		{"get malformed id", func(t *testing.T, e *env, svc DepartmentService) error {
			_, err := svc.Get(context.Background(), e.f.Actor(entity.RoleAdmin), "camera")
			return err
		}, apperror.KindNotFound},
		{"locked production refuses changes", func(t *testing.T, e *env, svc DepartmentService) error {
			testutil.SetProductionStatus(t, e.db, e.f.Production.ID, domainwf.ProductionLocked)
			_, err := svc.Create(context.Background(), e.f.Actor(entity.RoleAdmin), CreateDepartmentInput{Name: "Art"})
			return err
		}, apperror.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "1000")
			svc := NewDepartmentService(e.repos, e.db, e.clock, e.logger)
			assertKind(t, tt.run(t, e, svc), tt.want)
		})
	}
}

func TestDepartmentService_GetBudget(t *testing.T) {
	e := newEnv(t, "1000")
	svc := NewDepartmentService(e.repos, e.db, e.clock, e.logger)
	testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "700", domainwf.StatusPaid)
	testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "100", domainwf.StatusAccountsApproved)
	testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "900", domainwf.StatusSubmitted)

	b, err := svc.GetBudget(context.Background(), e.f.Actor(entity.RoleProducer), e.f.Department.ID)
	require.NoError(t, err)

	assert.Equal(t, "Camera", b.DepartmentName)
	assert.True(t, b.Committed.Equal(decimal.NewFromInt(800)), b.Committed.String())
	assert.True(t, b.Utilization.Equal(decimal.RequireFromString("0.8")), b.Utilization.String())
	assert.True(t, b.IsThreshold)
}
