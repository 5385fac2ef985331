package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
)

type BallotRepository interface {
	Save(ctx context.Context, ballot *domain.Ballot) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ballot, error)
	HasOpenBallot(ctx context.Context, concernID uuid.UUID) (bool, error)
}

type ConcernRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type BallotOptionInput struct {
	ID    string
	Label string
}

type CreateBallotInput struct {
	CreatorID       uuid.UUID
	ConcernID       uuid.UUID
	Type            domain.BallotType
	Options         []BallotOptionInput
	DurationMinutes int
	MinTier         string
	Regions         []string
}

type BallotService interface {
	Create(ctx context.Context, input CreateBallotInput) (*domain.Ballot, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Ballot, error)
}
