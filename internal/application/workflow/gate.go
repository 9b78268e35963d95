package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
)

// LifecycleGate refuses mutations on productions that are not active
type LifecycleGate struct {
	productions port.ProductionRepository
}

// NewLifecycleGate creates a gate reading production status from productions
func NewLifecycleGate(productions port.ProductionRepository) *LifecycleGate {
	return &LifecycleGate{productions: productions}
}

// AssertMutable fails closed with Forbidden when the production is missing, locked or archived
func (g *LifecycleGate) AssertMutable(ctx context.Context, productionID string) (*entity.Production, error) {
	production, err := g.productions.GetByID(ctx, productionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load production: %w", err)
	}
	if production == nil {
		return nil, apperror.Forbidden("production %s is not available", productionID)
	}
	if !production.Status.IsMutable() {
		return nil, apperror.Forbidden("production is %s; changes are not allowed", production.Status)
	}
	return production, nil
}
