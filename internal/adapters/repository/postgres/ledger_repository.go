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

// appendAttempts bounds the transparent retry on transactional
// conflicts (two appenders racing for the same seq).
const appendAttempts = 3

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) ports.LedgerRepository {
	return &ledgerRepository{
		db: db,
	}
}

// Append writes the next chain entry and marks the ballot tallied in
// one transaction. The ballot row is locked first, so concurrent tally
// calls for the same ballot serialize on it: the loser of the race
// observes the ledger_id marker and only refreshes the cached result
// fields. Seq collisions across ballots surface as unique violations
// and are retried a bounded number of times.
func (r *ledgerRepository) Append(ctx context.Context, input ports.LedgerAppendInput, build ports.LedgerEntryBuilder) (*domain.LedgerEntry, bool, error) {
	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		entry, appended, err := r.tryAppend(ctx, input, build)
		if err == nil {
			return entry, appended, nil
		}
		if !isSerializationConflict(err) {
			return nil, false, err
		}
		lastErr = err
	}
	return nil, false, fmt.Errorf("ledger append exhausted retries: %w", lastErr)
}

func (r *ledgerRepository) tryAppend(ctx context.Context, input ports.LedgerAppendInput, build ports.LedgerEntryBuilder) (*domain.LedgerEntry, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	results, err := json.Marshal(input.Results)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal results: %w", err)
	}
	var tallySig []byte
	if input.TallySignature != nil {
		if tallySig, err = json.Marshal(input.TallySignature); err != nil {
			return nil, false, fmt.Errorf("failed to marshal tally signature: %w", err)
		}
	}

	var existingLedgerID uuid.NullUUID
	err = tx.QueryRowContext(ctx, `SELECT ledger_id FROM ballots WHERE id = $1 FOR UPDATE`, input.BallotID).Scan(&existingLedgerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, domain.ErrBallotNotFound
		}
		return nil, false, fmt.Errorf("failed to lock ballot: %w", err)
	}

	if existingLedgerID.Valid {
		// Idempotency marker already set: refresh cached fields only,
		// never append a second entry.
		_, err = tx.ExecContext(ctx, `
			UPDATE ballots SET status = 'tallied', results = $2, tally_hash = $3, tally_signature = $4, updated_at = NOW()
			WHERE id = $1
		`, input.BallotID, results, input.TallyHash, tallySig)
		if err != nil {
			return nil, false, fmt.Errorf("failed to refresh ballot: %w", err)
		}

		entry, err := getEntry(ctx, tx, existingLedgerID.UUID)
		if err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return entry, false, nil
	}

	var (
		lastSeq  sql.NullInt64
		lastHash sql.NullString
	)
	err = tx.QueryRowContext(ctx, `SELECT seq, entry_hash FROM ledger_entries ORDER BY seq DESC LIMIT 1`).Scan(&lastSeq, &lastHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to read chain head: %w", err)
	}

	seq := int64(1)
	var prevHash *string
	if lastSeq.Valid {
		seq = lastSeq.Int64 + 1
		h := lastHash.String
		prevHash = &h
	}

	entry, err := build(seq, prevHash)
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(entry.Data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal entry data: %w", err)
	}
	var entrySig []byte
	if entry.Signature != nil {
		if entrySig, err = json.Marshal(entry.Signature); err != nil {
			return nil, false, fmt.Errorf("failed to marshal entry signature: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, seq, prev_hash, entry_hash, kind, ballot_id, data, canonical, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.Seq, entry.PrevHash, entry.EntryHash, entry.Data.Kind,
		input.BallotID, data, entry.Canonical, entrySig, entry.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE ballots SET status = 'tallied', results = $2, tally_hash = $3, tally_signature = $4, ledger_id = $5, updated_at = NOW()
		WHERE id = $1
	`, input.BallotID, results, input.TallyHash, tallySig, entry.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update ballot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, true, nil
}

func (r *ledgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	entry, err := getEntry(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *ledgerRepository) List(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, seq, prev_hash, entry_hash, data, canonical, signature, created_at
		FROM ledger_entries
		ORDER BY seq DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *ledgerRepository) All(ctx context.Context) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, seq, prev_hash, entry_hash, data, canonical, signature, created_at
		FROM ledger_entries
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEntry(ctx context.Context, q querier, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `
		SELECT id, seq, prev_hash, entry_hash, data, canonical, signature, created_at
		FROM ledger_entries
		WHERE id = $1
	`
	entry, err := scanEntry(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A set marker with no entry is a data-integrity fault.
			return nil, domain.ErrLedgerInconsistent
		}
		return nil, err
	}
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var (
		entry     domain.LedgerEntry
		prevHash  sql.NullString
		data      []byte
		signature []byte
	)
	err := row.Scan(&entry.ID, &entry.Seq, &prevHash, &entry.EntryHash, &data, &entry.Canonical, &signature, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	if prevHash.Valid {
		entry.PrevHash = &prevHash.String
	}
	if err := json.Unmarshal(data, &entry.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry data: %w", err)
	}
	if len(signature) > 0 {
		entry.Signature = &domain.Signature{}
		if err := json.Unmarshal(signature, entry.Signature); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry signature: %w", err)
		}
	}
	return &entry, nil
}

// isSerializationConflict reports whether err is a unique violation or
// serialization failure worth retrying.
func isSerializationConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" || pqErr.Code == "40001"
}
