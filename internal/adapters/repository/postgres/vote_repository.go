package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) Upsert(ctx context.Context, vote *domain.Vote) error {
	var signature []byte
	if vote.Signature != nil {
		var err error
		if signature, err = json.Marshal(vote.Signature); err != nil {
			return fmt.Errorf("failed to marshal signature: %w", err)
		}
	}

	query := `
		INSERT INTO votes (ballot_id, voter_id, voter_hash, choice, approvals, ranking, receipt_hash, signature, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ballot_id, voter_id) DO UPDATE SET
			choice = EXCLUDED.choice,
			approvals = EXCLUDED.approvals,
			ranking = EXCLUDED.ranking,
			receipt_hash = EXCLUDED.receipt_hash,
			signature = EXCLUDED.signature,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		vote.BallotID, vote.VoterID, vote.VoterHash,
		nullIfEmpty(vote.Payload.Choice), pq.Array(vote.Payload.Approvals),
		pq.Array(vote.Payload.Ranking), vote.ReceiptHash, signature,
		vote.CreatedAt, vote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) GetByBallotAndVoter(ctx context.Context, ballotID, voterID uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT ballot_id, voter_id, voter_hash, choice, approvals, ranking, receipt_hash, signature, created_at, updated_at
		FROM votes
		WHERE ballot_id = $1 AND voter_id = $2
	`
	vote, err := scanVote(r.db.QueryRowContext(ctx, query, ballotID, voterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return vote, nil
}

func (r *voteRepository) ListByBallot(ctx context.Context, ballotID uuid.UUID) ([]domain.Vote, error) {
	query := `
		SELECT ballot_id, voter_id, voter_hash, choice, approvals, ranking, receipt_hash, signature, created_at, updated_at
		FROM votes
		WHERE ballot_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, ballotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, *vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}

func (r *voteRepository) FindByReceiptHash(ctx context.Context, receiptHash string, ballotID *uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT ballot_id, voter_id, voter_hash, choice, approvals, ranking, receipt_hash, signature, created_at, updated_at
		FROM votes
		WHERE receipt_hash = $1 AND ($2::uuid IS NULL OR ballot_id = $2)
		LIMIT 1
	`
	var ballotArg any
	if ballotID != nil {
		ballotArg = *ballotID
	}
	vote, err := scanVote(r.db.QueryRowContext(ctx, query, receiptHash, ballotArg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return vote, nil
}

func scanVote(row rowScanner) (*domain.Vote, error) {
	var (
		vote      domain.Vote
		choice    sql.NullString
		approvals pq.StringArray
		ranking   pq.StringArray
		signature []byte
	)
	err := row.Scan(
		&vote.BallotID, &vote.VoterID, &vote.VoterHash, &choice, &approvals,
		&ranking, &vote.ReceiptHash, &signature, &vote.CreatedAt, &vote.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan vote: %w", err)
	}

	if choice.Valid {
		vote.Payload.Choice = choice.String
	}
	vote.Payload.Approvals = approvals
	vote.Payload.Ranking = ranking
	if len(signature) > 0 {
		vote.Signature = &domain.Signature{}
		if err := json.Unmarshal(signature, vote.Signature); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vote signature: %w", err)
		}
	}
	return &vote, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
