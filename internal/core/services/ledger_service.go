package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

const (
	defaultLedgerListLimit = 50
	maxLedgerListLimit     = 200
)

type ledgerService struct {
	ballotRepo ports.BallotRepository
	voteRepo   ports.VoteRepository
	ledgerRepo ports.LedgerRepository
}

func NewLedgerService(ballotRepo ports.BallotRepository, voteRepo ports.VoteRepository, ledgerRepo ports.LedgerRepository) ports.LedgerService {
	return &ledgerService{
		ballotRepo: ballotRepo,
		voteRepo:   voteRepo,
		ledgerRepo: ledgerRepo,
	}
}

func (s *ledgerService) List(ctx context.Context, limit int) ([]ports.LedgerEntrySummary, error) {
	if limit <= 0 || limit > maxLedgerListLimit {
		limit = defaultLedgerListLimit
	}

	entries, err := s.ledgerRepo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]ports.LedgerEntrySummary, len(entries))
	for i, e := range entries {
		summaries[i] = ports.LedgerEntrySummary{
			LedgerID:     e.ID.String(),
			Seq:          e.Seq,
			PrevHash:     e.PrevHash,
			EntryHash:    e.EntryHash,
			Kind:         e.Data.Kind,
			BallotID:     e.Data.BallotID,
			TS:           e.Data.TS,
			HasSignature: e.Signature != nil,
		}
	}
	return summaries, nil
}

func (s *ledgerService) Chain(ctx context.Context) ([]domain.LedgerEntry, error) {
	return s.ledgerRepo.All(ctx)
}

// Export assembles the bundle the offline verifier consumes: the
// sanitized ballot, its ledger entry, and anonymized votes with their
// receipt hashes. Voter identity never leaves the store.
func (s *ledgerService) Export(ctx context.Context, ballotID uuid.UUID) (*ports.BallotReport, error) {
	ballot, err := s.ballotRepo.GetByID(ctx, ballotID)
	if err != nil {
		return nil, err
	}
	if ballot.Status != domain.BallotTallied {
		return nil, domain.ErrBallotNotTallied
	}

	report := &ports.BallotReport{}
	report.Ballot.BallotID = ballot.ID.String()
	report.Ballot.ConcernID = ballot.ConcernID.String()
	report.Ballot.Type = ballot.Type
	report.Ballot.Options = ballot.Options
	report.Ballot.Results = ballot.Results
	if ballot.Results != nil {
		report.Ballot.Winner = ballot.Results.Winner
	}
	report.Ballot.TallyHash = ballot.TallyHash
	report.Ballot.TallySignature = ballot.TallySignature
	report.Ballot.MinTier = ballot.MinTier

	if ballot.LedgerID != nil {
		report.Ballot.LedgerID = ballot.LedgerID.String()
		entry, err := s.ledgerRepo.GetByID(ctx, *ballot.LedgerID)
		if err != nil {
			return nil, err
		}
		report.LedgerEntry = &struct {
			Seq          int64   `json:"seq"`
			PrevHash     *string `json:"prevHash"`
			EntryHash    string  `json:"entryHash"`
			HasSignature bool    `json:"hasSignature"`
		}{
			Seq:          entry.Seq,
			PrevHash:     entry.PrevHash,
			EntryHash:    entry.EntryHash,
			HasSignature: entry.Signature != nil,
		}
	}

	votes, err := s.voteRepo.ListByBallot(ctx, ballotID)
	if err != nil {
		return nil, err
	}
	report.Votes = make([]ports.AnonymizedVote, len(votes))
	seen := make(map[string]bool, len(votes))
	for i, v := range votes {
		av := ports.AnonymizedVote{ReceiptHash: v.ReceiptHash}
		switch ballot.Type {
		case domain.BallotRCV:
			av.Ranking = v.Payload.Ranking
		case domain.BallotApproval:
			av.Approvals = v.Payload.Approvals
		default:
			av.Choice = v.Payload.Choice
		}
		report.Votes[i] = av
		if v.ReceiptHash != "" && !seen[v.ReceiptHash] {
			seen[v.ReceiptHash] = true
			report.ReceiptHashes = append(report.ReceiptHashes, v.ReceiptHash)
		}
	}

	report.Algorithm.Type = ballot.Type
	report.Algorithm.Version = "1.0"
	if ballot.Type == domain.BallotRCV {
		report.Algorithm.TieBreak = "lexicographically-last-of-lowest"
	} else {
		report.Algorithm.TieBreak = "lexicographically-first-of-highest"
	}
	report.Algorithm.HashInputs = "sha256(canonicalize({ballotId, type, results}))"
	report.ExportedAt = time.Now().UnixMilli()

	return report, nil
}
