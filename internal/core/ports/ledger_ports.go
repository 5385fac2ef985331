package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
)

// LedgerEntryBuilder builds the entry for the next chain position. It
// runs inside the append transaction, after the position (seq,
// prevHash) has been fixed.
type LedgerEntryBuilder func(seq int64, prevHash *string) (*domain.LedgerEntry, error)

// LedgerAppendInput carries the ballot fields cached alongside the
// ledger write.
type LedgerAppendInput struct {
	BallotID       uuid.UUID
	Results        *domain.TallyResult
	TallyHash      string
	TallySignature *domain.Signature
}

type LedgerRepository interface {
	// Append writes the next chain entry and flips the ballot to
	// tallied in one atomic transaction. If the ballot already carries
	// a ledger id the existing entry is returned, the cached result
	// fields are refreshed, and no second entry is written; the bool
	// reports whether a new entry was appended.
	Append(ctx context.Context, input LedgerAppendInput, build LedgerEntryBuilder) (*domain.LedgerEntry, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
	// All returns every entry ordered by seq ascending, for chain
	// verification and export.
	All(ctx context.Context) ([]domain.LedgerEntry, error)
}

// LedgerEntrySummary is the sanitized listing shape.
type LedgerEntrySummary struct {
	LedgerID     string  `json:"ledger_id"`
	Seq          int64   `json:"seq"`
	PrevHash     *string `json:"prev_hash"`
	EntryHash    string  `json:"entry_hash"`
	Kind         string  `json:"kind"`
	BallotID     string  `json:"ballot_id,omitempty"`
	TS           int64   `json:"ts"`
	HasSignature bool    `json:"has_signature"`
}

// AnonymizedVote is a vote stripped to its payload shape plus receipt
// hash for inclusion in an export bundle.
type AnonymizedVote struct {
	Choice      string   `json:"choice,omitempty"`
	Approvals   []string `json:"approvals,omitempty"`
	Ranking     []string `json:"ranking,omitempty"`
	ReceiptHash string   `json:"receipt_hash"`
}

// BallotReport is the export bundle the offline verifier consumes.
type BallotReport struct {
	Ballot struct {
		BallotID       string                `json:"ballotId"`
		ConcernID      string                `json:"concernId"`
		Type           domain.BallotType     `json:"type"`
		Options        []domain.BallotOption `json:"options"`
		Results        *domain.TallyResult   `json:"results"`
		Winner         *string               `json:"winner"`
		TallyHash      string                `json:"tallyHash"`
		TallySignature *domain.Signature     `json:"tallySignature"`
		LedgerID       string                `json:"ledgerId,omitempty"`
		MinTier        string                `json:"minTier"`
	} `json:"ballot"`
	LedgerEntry *struct {
		Seq          int64   `json:"seq"`
		PrevHash     *string `json:"prevHash"`
		EntryHash    string  `json:"entryHash"`
		HasSignature bool    `json:"hasSignature"`
	} `json:"ledgerEntry"`
	Votes         []AnonymizedVote `json:"votes"`
	ReceiptHashes []string         `json:"receiptHashes"`
	Algorithm     struct {
		Type       domain.BallotType `json:"type"`
		Version    string            `json:"version"`
		TieBreak   string            `json:"tieBreak"`
		HashInputs string            `json:"hashInputs"`
	} `json:"algorithm"`
	ExportedAt int64 `json:"exportedAt"`
}

type LedgerService interface {
	List(ctx context.Context, limit int) ([]LedgerEntrySummary, error)
	// Chain returns the full ledger ordered by seq ascending, the input
	// the offline verifier walks.
	Chain(ctx context.Context) ([]domain.LedgerEntry, error)
	Export(ctx context.Context, ballotID uuid.UUID) (*BallotReport, error)
}
