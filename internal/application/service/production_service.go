package service

import (
	"context"
	"fmt"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

// ProductionService exposes the actor's production and its lifecycle
type ProductionService interface {
	Get(ctx context.Context, actor entity.Actor) (*entity.Production, error)
	SetStatus(ctx context.Context, actor entity.Actor, target domainwf.ProductionStatus) (*entity.Production, error)
	ListUsers(ctx context.Context, actor entity.Actor, role entity.Role) ([]*entity.User, error)
}

type productionServiceImpl struct {
	productions port.ProductionRepository
	users       port.UserRepository
	engine      workflow.ProductionEngine
	logger      Logger
}

// NewProductionService creates a new ProductionService
func NewProductionService(
	productions port.ProductionRepository,
	users port.UserRepository,
	engine workflow.ProductionEngine,
	logger Logger,
) ProductionService {
	return &productionServiceImpl{
		productions: productions,
		users:       users,
		engine:      engine,
		logger:      loggerOrNop(logger),
	}
}

// Get is restricted to administrators
func (s *productionServiceImpl) Get(ctx context.Context, actor entity.Actor) (*entity.Production, error) {
	if err := requireRole(actor, entity.RoleAdmin, "viewing production settings"); err != nil {
		return nil, err
	}
	production, err := s.productions.GetByID(ctx, actor.ProductionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get production: %w", err)
	}
	if production == nil {
		return nil, apperror.NotFound("production %s not found", actor.ProductionID)
	}
	return production, nil
}

func (s *productionServiceImpl) SetStatus(ctx context.Context, actor entity.Actor, target domainwf.ProductionStatus) (*entity.Production, error) {
	return s.engine.SetStatus(ctx, workflow.ProductionStatusRequest{Target: target, Actor: actor})
}

// ListUsers returns the production directory, optionally narrowed to one role
func (s *productionServiceImpl) ListUsers(ctx context.Context, actor entity.Actor, role entity.Role) ([]*entity.User, error) {
	var (
		users []*entity.User
		err   error
	)
	switch {
	case role == "":
		users, err = s.users.ListByProduction(ctx, actor.ProductionID)
	case role.IsValid():
		users, err = s.users.ListByRole(ctx, actor.ProductionID, role)
	default:
		return nil, apperror.BadRequest("unknown role %q", role)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
