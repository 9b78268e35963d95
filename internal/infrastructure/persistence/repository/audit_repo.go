package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(db *sqldb.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends an audit entry
func (r *AuditRepository) Record(ctx context.Context, entry *entity.AuditLogEntry) error {
	metadata, err := encodeJSON(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (
			id, production_id, entity_type, entity_id, action, metadata, performed_by, performed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ProductionID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		metadata,
		entry.PerformedBy,
		entry.PerformedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record audit entry",
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// ListByEntity returns the audit trail of one entity, oldest first
func (r *AuditRepository) ListByEntity(ctx context.Context, productionID, entityType, entityID string) ([]*entity.AuditLogEntry, error) {
	query := `
		SELECT id, production_id, entity_type, entity_id, action, CAST(metadata AS TEXT), performed_by, performed_at
		FROM audit_logs
		WHERE production_id = ? AND entity_type = ? AND entity_id = ?
		ORDER BY performed_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productionID, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditLogEntry
	for rows.Next() {
		var e entity.AuditLogEntry
		var metadata sql.NullString
		err := rows.Scan(
			&e.ID,
			&e.ProductionID,
			&e.EntityType,
			&e.EntityID,
			&e.Action,
			&metadata,
			&e.PerformedBy,
			&e.PerformedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if e.Metadata, err = decodeJSON(metadata); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
