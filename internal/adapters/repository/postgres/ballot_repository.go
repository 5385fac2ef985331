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

type ballotRepository struct {
	db *sql.DB
}

func NewBallotRepository(db *sql.DB) ports.BallotRepository {
	return &ballotRepository{
		db: db,
	}
}

func (r *ballotRepository) Save(ctx context.Context, ballot *domain.Ballot) error {
	options, err := json.Marshal(ballot.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	query := `
		INSERT INTO ballots (id, concern_id, type, options, status, created_by, min_tier, min_tier_rank, allowed_regions, start_at, end_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.ExecContext(ctx, query,
		ballot.ID, ballot.ConcernID, ballot.Type, options, ballot.Status,
		ballot.CreatedBy, ballot.MinTier, ballot.MinTierRank,
		pq.Array(ballot.AllowedRegions), ballot.StartAt, ballot.EndAt,
		ballot.CreatedAt, ballot.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on open ballots backs the
		// one-open-ballot-per-concern invariant.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrOpenBallotExists
		}
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

func (r *ballotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ballot, error) {
	query := `
		SELECT id, concern_id, type, options, status, created_by, min_tier, min_tier_rank, allowed_regions, start_at, end_at, results, tally_hash, tally_signature, ledger_id, created_at, updated_at
		FROM ballots
		WHERE id = $1
	`
	return scanBallot(r.db.QueryRowContext(ctx, query, id))
}

func (r *ballotRepository) HasOpenBallot(ctx context.Context, concernID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM ballots WHERE concern_id = $1 AND status = 'open' LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, concernID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check open ballot: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBallot(row rowScanner) (*domain.Ballot, error) {
	var (
		ballot    domain.Ballot
		options   []byte
		regions   pq.StringArray
		results   []byte
		tallyHash sql.NullString
		tallySig  []byte
		ledgerID  uuid.NullUUID
	)
	err := row.Scan(
		&ballot.ID, &ballot.ConcernID, &ballot.Type, &options, &ballot.Status,
		&ballot.CreatedBy, &ballot.MinTier, &ballot.MinTierRank, &regions,
		&ballot.StartAt, &ballot.EndAt, &results, &tallyHash, &tallySig,
		&ledgerID, &ballot.CreatedAt, &ballot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBallotNotFound
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}

	if err := json.Unmarshal(options, &ballot.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	ballot.AllowedRegions = regions
	if len(results) > 0 {
		ballot.Results = &domain.TallyResult{}
		if err := json.Unmarshal(results, ballot.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}
	if tallyHash.Valid {
		ballot.TallyHash = tallyHash.String
	}
	if len(tallySig) > 0 {
		ballot.TallySignature = &domain.Signature{}
		if err := json.Unmarshal(tallySig, ballot.TallySignature); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tally signature: %w", err)
		}
	}
	if ledgerID.Valid {
		ballot.LedgerID = &ledgerID.UUID
	}

	return &ballot, nil
}
