package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/canonical"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

type auditCanonical struct {
	Event string         `json:"e"`
	Actor *string        `json:"u"`
	RefID string         `json:"r"`
	Data  map[string]any `json:"d"`
	TS    int64          `json:"t"`
}

// logAudit appends a hashed audit event. Audit writes are best-effort;
// a failure is logged and never fails the calling operation.
func logAudit(ctx context.Context, audit ports.AuditLogger, event string, actor *uuid.UUID, refID string, data map[string]any) {
	if audit == nil {
		return
	}
	now := time.Now()
	var actorStr *string
	if actor != nil {
		s := actor.String()
		actorStr = &s
	}
	hash, err := canonical.HashHex(auditCanonical{
		Event: event,
		Actor: actorStr,
		RefID: refID,
		Data:  data,
		TS:    now.UnixMilli(),
	})
	if err != nil {
		log.Printf("audit hash failed for %s: %v", event, err)
		return
	}
	e := &domain.AuditEvent{
		Event:     event,
		Actor:     actor,
		RefID:     refID,
		Data:      data,
		Severity:  "info",
		Hash:      hash,
		CreatedAt: now,
	}
	if err := audit.Log(ctx, e); err != nil {
		log.Printf("audit log failed for %s: %v", event, err)
	}
}
