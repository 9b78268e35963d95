package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/event"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

type productionEngine struct {
	productions port.ProductionRepository
	audit       port.AuditSink
	txManager   port.TransactionManager
	engineConfig
}

// NewProductionEngine creates the production status engine
func NewProductionEngine(productions port.ProductionRepository, audit port.AuditSink, txManager port.TransactionManager, opts ...EngineOption) ProductionEngine {
	return &productionEngine{
		productions:  productions,
		audit:        audit,
		txManager:    txManager,
		engineConfig: newEngineConfig(opts),
	}
}

// SetStatus moves the actor's production along the production table.
// Archived productions are terminal.
func (p *productionEngine) SetStatus(ctx context.Context, req ProductionStatusRequest) (*entity.Production, error) {
	if !req.Target.IsValid() {
		return nil, apperror.BadRequest("unknown production status %q", req.Target)
	}
	if !req.Actor.Is(entity.RoleAdmin) {
		return nil, apperror.Forbidden("only an ADMIN may change production status")
	}

	var (
		updated *entity.Production
		from    domainwf.ProductionStatus
	)
	err := p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		production, err := p.productions.GetByIDForUpdate(txCtx, req.Actor.ProductionID)
		if err != nil {
			return fmt.Errorf("failed to load production: %w", err)
		}
		if production == nil {
			return apperror.NotFound("production %s not found", req.Actor.ProductionID)
		}
		from = production.Status

		if domainwf.ProductionTable.IsTerminal(from) {
			return apperror.Conflict("archived productions cannot transition")
		}
		machine, err := domainwf.NewProductionMachine(from)
		if err != nil {
			return fmt.Errorf("production %s: %w", production.ID, err)
		}
		if err := machine.Transition(req.Target); err != nil {
			return apperror.Conflict("cannot transition production from %s to %s", from, req.Target)
		}

		if err := p.productions.UpdateStatus(txCtx, production.ID, machine.State()); err != nil {
			return fmt.Errorf("failed to update production status: %w", err)
		}

		err = p.audit.Record(txCtx, &entity.AuditLogEntry{
			ID:           uuid.NewString(),
			ProductionID: production.ID,
			EntityType:   entity.AuditEntityProduction,
			EntityID:     production.ID,
			Action:       productionAction(from, req.Target),
			Metadata: map[string]interface{}{
				"from": from.String(),
				"to":   req.Target.String(),
			},
			PerformedBy: req.Actor.UserID,
			PerformedAt: p.clock.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}

		cp := *production
		cp.Status = req.Target
		updated = &cp
		return nil
	})
	if err != nil {
		p.logger.Info("Production status change rejected",
			"production_id", req.Actor.ProductionID,
			"to", req.Target,
			"kind", apperror.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	p.logger.Info("Production status changed",
		"production_id", updated.ID,
		"from", from,
		"to", updated.Status,
		"performed_by", req.Actor.UserID,
	)

	if p.dispatcher != nil {
		p.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeProductionStatus, updated.ID, updated.ID, req.Actor.UserID,
			map[string]interface{}{
				event.KeyFrom: from.String(),
				event.KeyTo:   updated.Status.String(),
			}))
	}
	return updated, nil
}
