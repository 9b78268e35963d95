package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/budget"
)

func TestBudgetWorkbook_Render(t *testing.T) {
	threshold := decimal.RequireFromString("0.8")
	report := &port.BudgetReport{
		ProductionID:   "p-1",
		ProductionName: "Night Shoot",
		Currency:       "USD",
		GeneratedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Rows: []port.BudgetReportRow{
			{DepartmentID: "d-1", DepartmentName: "Camera", Snapshot: budget.NewSnapshot(decimal.NewFromInt(850), decimal.NewFromInt(1000), threshold)},
			{DepartmentID: "d-2", DepartmentName: "Catering", Snapshot: budget.NewSnapshot(decimal.NewFromInt(100), decimal.NewFromInt(400), threshold)},
		},
	}

	w := NewBudgetWorkbook(zap.NewNop())
	content, err := w.Render(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.ContentType())

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Budget"}, f.GetSheetList())

	cell := func(ref string) string {
		v, err := f.GetCellValue("Budget", ref)
		require.NoError(t, err)
		return v
	}
	rows, err := f.GetRows("Budget", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "Night Shoot", cell("A1"))
	assert.Equal(t, []string{"Department", "Allocated", "Committed", "Utilization", "Alert"}, rows[2])
	assert.Equal(t, []string{"Camera", "1000", "850", "0.85", "OVER THRESHOLD"}, rows[3])
	assert.Equal(t, []string{"Catering", "400", "100", "0.25"}, rows[4])
}

func TestBudgetWorkbook_EmptyReport(t *testing.T) {
	w := NewBudgetWorkbook(zap.NewNop())
	content, err := w.Render(context.Background(), &port.BudgetReport{ProductionName: "Empty", GeneratedAt: time.Now()})
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}
