package service

import (
	"context"
	"fmt"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
)

// Report is a rendered document ready to download
type Report struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportService builds budget reports
type ReportService interface {
	BudgetReport(ctx context.Context, actor entity.Actor) (*port.BudgetReport, error)
	BudgetWorkbook(ctx context.Context, actor entity.Actor) (*Report, error)
}

type reportServiceImpl struct {
	productions port.ProductionRepository
	departments port.DepartmentRepository
	guard       *workflow.BudgetGuard
	renderer    port.BudgetReportRenderer
	clock       port.Clock
	logger      Logger
}

// NewReportService creates a new ReportService
func NewReportService(repos workflow.Repositories, renderer port.BudgetReportRenderer, clock port.Clock, logger Logger) ReportService {
	return &reportServiceImpl{
		productions: repos.Productions,
		departments: repos.Departments,
		guard:       workflow.NewBudgetGuard(repos.Departments, repos.Expenses),
		renderer:    renderer,
		clock:       clock,
		logger:      loggerOrNop(logger),
	}
}

// BudgetReport computes utilization for every department of the production
func (s *reportServiceImpl) BudgetReport(ctx context.Context, actor entity.Actor) (*port.BudgetReport, error) {
	production, err := s.productions.GetByID(ctx, actor.ProductionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get production: %w", err)
	}
	if production == nil {
		return nil, apperror.NotFound("production %s not found", actor.ProductionID)
	}

	departments, err := s.departments.ListByProduction(ctx, production.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	report := &port.BudgetReport{
		ProductionID:   production.ID,
		ProductionName: production.Name,
		Currency:       production.BaseCurrency,
		GeneratedAt:    s.clock.Now().UTC(),
		Rows:           make([]port.BudgetReportRow, 0, len(departments)),
	}
	for _, d := range departments {
		snapshot, err := s.guard.Snapshot(ctx, d, production.BudgetAlertThreshold)
		if err != nil {
			return nil, err
		}
		report.Rows = append(report.Rows, port.BudgetReportRow{
			DepartmentID:   d.ID,
			DepartmentName: d.Name,
			Snapshot:       snapshot,
		})
	}
	return report, nil
}

// BudgetWorkbook renders BudgetReport with the configured renderer
func (s *reportServiceImpl) BudgetWorkbook(ctx context.Context, actor entity.Actor) (*Report, error) {
	report, err := s.BudgetReport(ctx, actor)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.Render(ctx, report)
	if err != nil {
		s.logger.Error("Failed to render budget workbook", "error", err, "production_id", report.ProductionID)
		return nil, fmt.Errorf("failed to render budget workbook: %w", err)
	}

	s.logger.Info("Budget workbook rendered", "production_id", report.ProductionID, "departments", len(report.Rows))
	return &Report{
		FileName:    fmt.Sprintf("budget-%s.xlsx", report.GeneratedAt.Format("20060102")),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}
