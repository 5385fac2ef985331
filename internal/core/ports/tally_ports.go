package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
)

// TallyService orchestrates a ballot's count: loads votes, runs the
// engine for the ballot type, and appends the outcome to the
// transparency ledger exactly once per ballot.
type TallyService interface {
	Tally(ctx context.Context, ballotID, callerID uuid.UUID) (*domain.TallyResult, error)
}
