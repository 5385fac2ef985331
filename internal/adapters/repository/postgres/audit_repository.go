package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) ports.AuditLogger {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, event *domain.AuditEvent) error {
	var data []byte
	if event.Data != nil {
		var err error
		if data, err = json.Marshal(event.Data); err != nil {
			return fmt.Errorf("failed to marshal audit data: %w", err)
		}
	}

	var actor any
	if event.Actor != nil {
		actor = *event.Actor
	}

	query := `
		INSERT INTO audit_events (id, event, actor, ref_id, data, hash, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		uuid.New(), event.Event, actor, nullIfEmpty(event.RefID), data,
		event.Hash, event.Severity, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}
