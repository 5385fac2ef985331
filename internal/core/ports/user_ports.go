package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
)

type UserRepository interface {
	// GetByID returns nil, nil for an unknown user; eligibility checks
	// then fall back to the lowest tier.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// AuditLogger appends tamper-evident audit events. Implementations are
// best-effort; callers log and continue on failure.
type AuditLogger interface {
	Log(ctx context.Context, event *domain.AuditEvent) error
}
