package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
)

type VoteRepository interface {
	// Upsert writes the vote keyed by (ballot, voter); a resubmission
	// overwrites the prior record, last write wins.
	Upsert(ctx context.Context, vote *domain.Vote) error
	GetByBallotAndVoter(ctx context.Context, ballotID, voterID uuid.UUID) (*domain.Vote, error)
	ListByBallot(ctx context.Context, ballotID uuid.UUID) ([]domain.Vote, error)
	// FindByReceiptHash returns nil, nil when no vote carries the hash.
	FindByReceiptHash(ctx context.Context, receiptHash string, ballotID *uuid.UUID) (*domain.Vote, error)
}

type CastVoteInput struct {
	BallotID  uuid.UUID
	VoterID   uuid.UUID
	Choice    string
	Approvals []string
	Ranking   []string
}

// ReceiptVerification is the public answer to a receipt lookup. It
// never exposes voter identity.
type ReceiptVerification struct {
	Valid       bool              `json:"valid"`
	BallotID    string            `json:"ballot_id,omitempty"`
	ShortCode   string            `json:"short_code,omitempty"`
	Type        domain.BallotType `json:"type,omitempty"`
	VoteShape   string            `json:"vote_shape,omitempty"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
}

type VoteService interface {
	Cast(ctx context.Context, input CastVoteInput) (*domain.Receipt, error)
	VerifyReceipt(ctx context.Context, receiptHash string, ballotID *uuid.UUID) (*ReceiptVerification, error)
}
