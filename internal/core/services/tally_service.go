package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/canonical"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ledger"
	"github.com/wevote/api/internal/core/ports"
	"github.com/wevote/api/internal/core/tally"
)

type tallyService struct {
	ballotRepo ports.BallotRepository
	voteRepo   ports.VoteRepository
	ledgerRepo ports.LedgerRepository
	signer     ports.Signer
	audit      ports.AuditLogger
}

func NewTallyService(ballotRepo ports.BallotRepository, voteRepo ports.VoteRepository, ledgerRepo ports.LedgerRepository, signer ports.Signer, audit ports.AuditLogger) ports.TallyService {
	return &tallyService{
		ballotRepo: ballotRepo,
		voteRepo:   voteRepo,
		ledgerRepo: ledgerRepo,
		signer:     signer,
		audit:      audit,
	}
}

type tallyHashInput struct {
	BallotID string              `json:"ballotId"`
	Type     domain.BallotType   `json:"type"`
	Results  *domain.TallyResult `json:"results"`
}

type tallySignInput struct {
	BallotID string              `json:"ballotId"`
	Results  *domain.TallyResult `json:"results"`
}

// Tally computes and records a ballot's outcome. Re-tallying a tallied
// ballot returns the stored results without touching the ledger; the
// ledger append itself carries a second idempotency guard, so a retry
// after a transient failure can never produce two chain entries for one
// ballot.
func (s *tallyService) Tally(ctx context.Context, ballotID, callerID uuid.UUID) (*domain.TallyResult, error) {
	ballot, err := s.ballotRepo.GetByID(ctx, ballotID)
	if err != nil {
		return nil, err
	}
	if ballot.Status == domain.BallotTallied {
		return ballot.Results, nil
	}
	if ballot.CreatedBy != callerID {
		return nil, domain.ErrNotBallotCreator
	}

	votes, err := s.voteRepo.ListByBallot(ctx, ballotID)
	if err != nil {
		return nil, err
	}

	results := s.count(ballot, votes)

	tallyHash, err := canonical.HashHex(tallyHashInput{
		BallotID: ballot.ID.String(),
		Type:     ballot.Type,
		Results:  results,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to hash tally: %w", err)
	}

	var tallySig *domain.Signature
	if s.signer != nil {
		signBytes, err := canonical.Marshal(tallySignInput{BallotID: ballot.ID.String(), Results: results})
		if err != nil {
			return nil, fmt.Errorf("failed to build tally sign input: %w", err)
		}
		if tallySig, err = s.signer.Sign(ctx, signBytes); err != nil {
			log.Printf("tally signature failed: %v", err)
			tallySig = nil
		}
	}

	appendInput := ports.LedgerAppendInput{
		BallotID:       ballot.ID,
		Results:        results,
		TallyHash:      tallyHash,
		TallySignature: tallySig,
	}
	entry, appended, err := s.ledgerRepo.Append(ctx, appendInput, func(seq int64, prevHash *string) (*domain.LedgerEntry, error) {
		data := domain.LedgerData{
			Kind:     "tally",
			BallotID: ballot.ID.String(),
			Results:  results,
			TS:       time.Now().UnixMilli(),
		}
		canonicalStr, entryHash, err := ledger.BuildCanonical(seq, prevHash, data)
		if err != nil {
			return nil, err
		}
		var entrySig *domain.Signature
		if s.signer != nil {
			if entrySig, err = s.signer.Sign(ctx, []byte(canonicalStr)); err != nil {
				log.Printf("ledger signature failed: %v", err)
				entrySig = nil
			}
		}
		return &domain.LedgerEntry{
			ID:        uuid.New(),
			Seq:       seq,
			PrevHash:  prevHash,
			EntryHash: entryHash,
			Data:      data,
			Canonical: canonicalStr,
			Signature: entrySig,
			CreatedAt: time.Now(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if !appended {
		log.Printf("ballot %s already in ledger at seq %d; refreshed cached results", ballot.ID, entry.Seq)
	}

	var winner any
	if results.Winner != nil {
		winner = *results.Winner
	}
	logAudit(ctx, s.audit, "tallyBallot", &callerID, ballot.ID.String(), map[string]any{"winner": winner})

	return results, nil
}

// count dispatches to the engine matching the ballot type.
func (s *tallyService) count(ballot *domain.Ballot, votes []domain.Vote) *domain.TallyResult {
	results := &domain.TallyResult{Counts: map[string]int{}, Total: len(votes)}
	optionIDs := ballot.OptionIDs()

	switch ballot.Type {
	case domain.BallotSimple:
		choices := make([]string, 0, len(votes))
		for _, v := range votes {
			if v.Payload.Choice != "" {
				choices = append(choices, v.Payload.Choice)
			}
		}
		results.Counts = tally.Simple(optionIDs, choices)
		results.Winner = tally.Winner(results.Counts)
	case domain.BallotApproval:
		approvals := make([][]string, 0, len(votes))
		for _, v := range votes {
			approvals = append(approvals, v.Payload.Approvals)
		}
		results.Counts = tally.Approval(optionIDs, approvals)
		results.Winner = tally.Winner(results.Counts)
	case domain.BallotRCV:
		valid := make(map[string]bool, len(optionIDs))
		for _, id := range optionIDs {
			valid[id] = true
		}
		rankings := make([][]string, 0, len(votes))
		for _, v := range votes {
			ranking := make([]string, 0, len(v.Payload.Ranking))
			for _, c := range v.Payload.Ranking {
				if valid[c] {
					ranking = append(ranking, c)
				}
			}
			rankings = append(rankings, ranking)
		}
		outcome := tally.RCV(rankings)
		results.Rounds = outcome.Rounds
		results.Winner = outcome.Winner
		exhausted := outcome.Exhausted
		results.Exhausted = &exhausted
	}

	return results
}
