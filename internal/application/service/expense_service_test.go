package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/internal/testutil"
)

func validInput(e *env) CreateExpenseInput {
	return CreateExpenseInput{
		DepartmentID: e.f.Department.ID,
		Amount:       decimal.RequireFromString("125.50"),
		ExpenseDate:  entity.NewDate(testutil.Today),
		Description:  "Lens rental",
	}
}

func TestExpenseService_Create(t *testing.T) {
	e := newEnv(t, "1000")
	svc := e.expenseService()
	ctx := context.Background()
	supervisor := e.f.Actor(entity.RoleSupervisor)

	first, err := svc.Create(ctx, supervisor, validInput(e))
	require.NoError(t, err)
	assert.False(t, first.PossibleDuplicate)
	assert.Equal(t, domainwf.StatusDraft, first.Expense.Status)
	assert.Equal(t, "USD", first.Expense.Currency, "defaults to the production currency")
	assert.Equal(t, supervisor.UserID, first.Expense.SubmittedBy)

	history, err := svc.ListHistory(ctx, supervisor, first.Expense.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, domainwf.StatusDraft, history[0].ToStatus)

	second, err := svc.Create(ctx, supervisor, validInput(e))
	require.NoError(t, err)
	assert.True(t, second.PossibleDuplicate, "same department, amount and date")

	in := validInput(e)
	in.Currency = "eur"
	third, err := svc.Create(ctx, supervisor, in)
	require.NoError(t, err)
	assert.Equal(t, "EUR", third.Expense.Currency)
}

func TestExpenseService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		role   entity.Role
		mutate func(in *CreateExpenseInput)
		want   apperror.Kind
	}{
		{"manager cannot create", entity.RoleManager, func(*CreateExpenseInput) {}, apperror.KindForbidden},
		{"zero amount", entity.RoleSupervisor, func(in *CreateExpenseInput) { in.Amount = decimal.Zero }, apperror.KindBadRequest},
		{"negative amount", entity.RoleSupervisor, func(in *CreateExpenseInput) { in.Amount = decimal.NewFromInt(-5) }, apperror.KindBadRequest},
		{"sub-cent amount", entity.RoleSupervisor, func(in *CreateExpenseInput) { in.Amount = decimal.RequireFromString("0.004") }, apperror.KindBadRequest},
		{"three decimal places", entity.RoleSupervisor, func(in *CreateExpenseInput) { in.Amount = decimal.RequireFromString("10.005") }, apperror.KindBadRequest},
		{"future date", entity.RoleSupervisor, func(in *CreateExpenseInput) {
			in.ExpenseDate = entity.NewDate(testutil.Today.AddDate(0, 0, 1))
		}, apperror.KindBadRequest},
		{"missing date", entity.RoleSupervisor, func(in *CreateExpenseInput) { in.ExpenseDate = entity.Date{} }, apperror.KindBadRequest},
		{"blank description", entity.RoleSupervisor, func(in *CreateExpenseInput) { in.Description = "  " }, apperror.KindBadRequest},
		{"malformed department", entity.RoleSupervisor, func(in *CreateExpenseInput) { in.DepartmentID = "camera" }, apperror.KindBadRequest},
		{"unknown department", entity.RoleSupervisor, func(in *CreateExpenseInput) {
			in.DepartmentID = "00000000-0000-4000-8000-000000000000"
		}, apperror.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "1000")
			in := validInput(e)
			tt.mutate(&in)

			_, err := e.expenseService().Create(context.Background(), e.f.Actor(tt.role), in)
			assertKind(t, err, tt.want)
		})
	}
}

func TestExpenseService_StoredAmountMatchesReturned(t *testing.T) {
	e := newEnv(t, "1000")
	svc := e.expenseService()
	ctx := context.Background()
	supervisor := e.f.Actor(entity.RoleSupervisor)

	in := validInput(e)
	in.Amount = decimal.RequireFromString("10.5")
	created, err := svc.Create(ctx, supervisor, in)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, supervisor, created.Expense.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(created.Expense.Amount), "stored %s returned %s", stored.Amount, created.Expense.Amount)
	assert.True(t, stored.Amount.IsPositive())
}

func TestExpenseService_CreateRespectsProductionGate(t *testing.T) {
	e := newEnv(t, "1000")
	testutil.SetProductionStatus(t, e.db, e.f.Production.ID, domainwf.ProductionLocked)

	_, err := e.expenseService().Create(context.Background(), e.f.Actor(entity.RoleSupervisor), validInput(e))
	assertKind(t, err, apperror.KindForbidden)
}

func TestExpenseService_ReceiptGate(t *testing.T) {
	e := newEnv(t, "1000")
	svc := e.expenseService()
	ctx := context.Background()
	supervisor := e.f.Actor(entity.RoleSupervisor)

	created, err := svc.Create(ctx, supervisor, validInput(e))
	require.NoError(t, err)
	id := created.Expense.ID

	_, err = svc.Transition(ctx, supervisor, id, domainwf.StatusSubmitted, "")
	assertKind(t, err, apperror.KindBadRequest)

	receipt, err := svc.UploadReceipt(ctx, supervisor, id, ReceiptUpload{
		FileName:    "../../Invoice.PDF",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Invoice.PDF", receipt.FileName)
	assert.True(t, strings.HasPrefix(receipt.FilePath, "mem://receipts/"+e.f.Production.ID+"/"+id+"/"), receipt.FilePath)
	assert.True(t, strings.HasSuffix(receipt.FilePath, ".pdf"), receipt.FilePath)
	assert.Equal(t, int64(8), receipt.Size)

	submitted, err := svc.Transition(ctx, supervisor, id, domainwf.StatusSubmitted, "")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusSubmitted, submitted.Status)

	receipts, err := svc.ListReceipts(ctx, supervisor, id)
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestExpenseService_UploadReceiptRules(t *testing.T) {
	e := newEnv(t, "1000")
	svc := e.expenseService()
	ctx := context.Background()
	upload := ReceiptUpload{FileName: "taxi.jpg", ContentType: "image/jpeg", Content: []byte{0xff, 0xd8}}

	draft := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", domainwf.StatusDraft)
	submitted := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", domainwf.StatusSubmitted)

	other := entity.Actor{UserID: e.f.OtherSupervisor.ID, Role: entity.RoleSupervisor, ProductionID: e.f.Production.ID}
	_, err := svc.UploadReceipt(ctx, other, draft.ID, upload)
	assertKind(t, err, apperror.KindForbidden)

	_, err = svc.UploadReceipt(ctx, e.f.Actor(entity.RoleSupervisor), submitted.ID, upload)
	assertKind(t, err, apperror.KindConflict)

	_, err = svc.UploadReceipt(ctx, e.f.Actor(entity.RoleSupervisor), draft.ID, ReceiptUpload{FileName: "empty.jpg"})
	assertKind(t, err, apperror.KindBadRequest)

	_, err = svc.UploadReceipt(ctx, e.f.Actor(entity.RoleSupervisor), "00000000-0000-4000-8000-000000000000", upload)
	assertKind(t, err, apperror.KindNotFound)

	assert.Zero(t, e.blobs.count(), "rejected uploads never reach the blob store")
}

func TestExpenseService_UploadReceiptRemovesBlobOnFailure(t *testing.T) {
	e := newEnv(t, "1000")
	e.repos.Receipts = failingReceipts{ReceiptRepository: e.repos.Receipts}
	svc := e.expenseService()
	draft := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", domainwf.StatusDraft)

	_, err := svc.UploadReceipt(context.Background(), e.f.Actor(entity.RoleSupervisor), draft.ID, ReceiptUpload{
		FileName: "taxi.jpg",
		Content:  []byte{1, 2, 3},
	})

	assertKind(t, err, apperror.KindInternal)
	assert.Zero(t, e.blobs.count())
	assert.Len(t, e.blobs.deleted, 1)
}

func TestExpenseService_UploadReceiptStoreFailure(t *testing.T) {
	e := newEnv(t, "1000")
	e.blobs.putErr = errors.New("bucket unavailable")
	draft := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", domainwf.StatusDraft)

	_, err := e.expenseService().UploadReceipt(context.Background(), e.f.Actor(entity.RoleSupervisor), draft.ID, ReceiptUpload{
		FileName: "taxi.jpg",
		Content:  []byte{1},
	})
	assertKind(t, err, apperror.KindInternal)
}

func TestExpenseService_Update(t *testing.T) {
	e := newEnv(t, "1000")
	svc := e.expenseService()
	ctx := context.Background()
	owner := e.f.Actor(entity.RoleSupervisor)

	returned := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", domainwf.StatusManagerReturned)
	lighting := testutil.AddDepartment(t, e.db, e.f.Production.ID, "Lighting", "500")

	amount := decimal.RequireFromString("42.10")
	description := "Corrected total"
	updated, err := svc.Update(ctx, owner, returned.ID, UpdateExpenseInput{
		DepartmentID: &lighting.ID,
		Amount:       &amount,
		Description:  &description,
	})
	require.NoError(t, err)
	assert.Equal(t, lighting.ID, updated.DepartmentID)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, domainwf.StatusManagerReturned, updated.Status, "edits never move the status")

	stored, err := svc.Get(ctx, owner, returned.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corrected total", stored.Description)

	history, err := svc.ListHistory(ctx, owner, returned.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "edits do not append history")
}

func TestExpenseService_UpdateRules(t *testing.T) {
	zero := decimal.Zero
	fine := decimal.RequireFromString("10.005")
	future := entity.NewDate(testutil.Today.AddDate(0, 1, 0))
	missing := "00000000-0000-4000-8000-000000000000"

	tests := []struct {
		name   string
		status domainwf.ExpenseStatus
		other  bool
		in     UpdateExpenseInput
		want   apperror.Kind
	}{
		{"not owner", domainwf.StatusDraft, true, UpdateExpenseInput{}, apperror.KindForbidden},
		{"not editable", domainwf.StatusManagerApproved, false, UpdateExpenseInput{}, apperror.KindConflict},
		{"paid is not editable", domainwf.StatusPaid, false, UpdateExpenseInput{}, apperror.KindConflict},
		{"zero amount", domainwf.StatusDraft, false, UpdateExpenseInput{Amount: &zero}, apperror.KindBadRequest},
		{"three decimal places", domainwf.StatusDraft, false, UpdateExpenseInput{Amount: &fine}, apperror.KindBadRequest},
		{"future date", domainwf.StatusAccountsReturned, false, UpdateExpenseInput{ExpenseDate: &future}, apperror.KindBadRequest},
		{"unknown department", domainwf.StatusManagerRejected, false, UpdateExpenseInput{DepartmentID: &missing}, apperror.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "1000")
			expense := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", tt.status)
			actor := e.f.Actor(entity.RoleSupervisor)
			if tt.other {
				actor.UserID = e.f.OtherSupervisor.ID
			}

			_, err := e.expenseService().Update(context.Background(), actor, expense.ID, tt.in)
			assertKind(t, err, tt.want)
		})
	}
}

func TestExpenseService_Queries(t *testing.T) {
	e := newEnv(t, "1000")
	svc := e.expenseService()
	ctx := context.Background()
	viewer := e.f.Actor(entity.RoleProducer)

	draft := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", domainwf.StatusDraft)
	testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "20", domainwf.StatusSubmitted)

	_, err := svc.Get(ctx, viewer, "not-a-uuid")
	assertKind(t, err, apperror.KindNotFound)

	outsider := viewer
	outsider.ProductionID = "00000000-0000-4000-8000-000000000000"
	_, err = svc.Get(ctx, outsider, draft.ID)
	assertKind(t, err, apperror.KindNotFound)

	drafts, err := svc.List(ctx, viewer, entity.ExpenseFilter{Status: domainwf.StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)

	_, err = svc.List(ctx, viewer, entity.ExpenseFilter{Status: "Pending"})
	assertKind(t, err, apperror.KindBadRequest)

	_, err = svc.GetPayment(ctx, viewer, draft.ID)
	assertKind(t, err, apperror.KindNotFound)
}

func TestExpenseService_Delegates(t *testing.T) {
	e := newEnv(t, "1000")
	svc := e.expenseService()
	ctx := context.Background()

	approved := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "10", domainwf.StatusAccountsApproved)
	result, err := svc.MarkPaid(ctx, e.f.Actor(entity.RoleAccounts), approved.ID, PaymentInput{
		Method:          entity.PaymentMethodCash,
		ReferenceNumber: "PETTY-7",
		PaymentDate:     entity.NewDate(testutil.Today),
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPaid, result.Expense.Status)

	payment, err := svc.GetPayment(ctx, e.f.Actor(entity.RoleAccounts), approved.ID)
	require.NoError(t, err)
	assert.Equal(t, "PETTY-7", payment.ReferenceNumber)

	submitted := testutil.AddExpense(t, e.db, e.f, e.f.Department.ID, "5000", domainwf.StatusSubmitted)
	_, err = svc.Transition(ctx, e.f.Actor(entity.RoleManager), submitted.ID, domainwf.StatusManagerApproved, "")
	assertKind(t, err, apperror.KindConflict)

	overridden, err := svc.OverrideBudget(ctx, e.f.Actor(entity.RoleProducer), submitted.ID, "Night exteriors added by studio")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusManagerApproved, overridden.Status)

	_, err = svc.Transition(ctx, e.f.Actor(entity.RoleManager), "bogus", domainwf.StatusManagerApproved, "")
	assertKind(t, err, apperror.KindNotFound)
}
