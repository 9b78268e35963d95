// Package export renders reports into downloadable documents.
package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
)

const (
	budgetSheet     = "Budget"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	firstDataRow    = 4
)

var budgetHeaders = []string{"Department", "Allocated", "Committed", "Utilization", "Alert"}

// BudgetWorkbook implements port.BudgetReportRenderer with excelize
type BudgetWorkbook struct {
	logger *zap.Logger
}

// NewBudgetWorkbook creates a new workbook renderer
func NewBudgetWorkbook(logger *zap.Logger) *BudgetWorkbook {
	return &BudgetWorkbook{logger: logger}
}

func (w *BudgetWorkbook) ContentType() string {
	return xlsxContentType
}

// Render writes one row per department below a title block
func (w *BudgetWorkbook) Render(ctx context.Context, report *port.BudgetReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", budgetSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	w.setCell(f, "A1", report.ProductionName)
	w.setCell(f, "A2", fmt.Sprintf("Currency %s, generated %s", report.Currency, report.GeneratedAt.Format("2006-01-02 15:04 MST")))
	_ = f.SetCellStyle(budgetSheet, "A1", "A1", bold)

	for i, h := range budgetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, firstDataRow-1)
		w.setCell(f, cell, h)
	}
	_ = f.SetCellStyle(budgetSheet, "A3", "E3", bold)

	for i, row := range report.Rows {
		r := firstDataRow + i
		values := []interface{}{
			row.DepartmentName,
			row.Allocated.InexactFloat64(),
			row.Committed.InexactFloat64(),
			row.Utilization.InexactFloat64(),
		}
		if row.IsThreshold {
			values = append(values, "OVER THRESHOLD")
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			w.setCell(f, cell, v)
		}
		_ = f.SetCellStyle(budgetSheet, fmt.Sprintf("B%d", r), fmt.Sprintf("C%d", r), money)
		_ = f.SetCellStyle(budgetSheet, fmt.Sprintf("D%d", r), fmt.Sprintf("D%d", r), percent)
	}
	_ = f.SetColWidth(budgetSheet, "A", "A", 28)
	_ = f.SetColWidth(budgetSheet, "B", "E", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Debug("Budget workbook rendered",
		zap.String("production_id", report.ProductionID),
		zap.Int("rows", len(report.Rows)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (w *BudgetWorkbook) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(budgetSheet, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

var _ port.BudgetReportRenderer = (*BudgetWorkbook)(nil)
