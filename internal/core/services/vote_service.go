package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
	"github.com/wevote/api/internal/core/receipt"
)

const (
	voteLimit  = 10
	voteWindow = time.Hour
)

type voteService struct {
	ballotRepo ports.BallotRepository
	voteRepo   ports.VoteRepository
	userRepo   ports.UserRepository
	limiter    ports.RateLimiter
	signer     ports.Signer
	audit      ports.AuditLogger
	secret     []byte
}

func NewVoteService(ballotRepo ports.BallotRepository, voteRepo ports.VoteRepository, userRepo ports.UserRepository, limiter ports.RateLimiter, signer ports.Signer, audit ports.AuditLogger) ports.VoteService {
	secret := os.Getenv("RECEIPTS_SECRET")
	if secret == "" {
		log.Println("Warning: RECEIPTS_SECRET not set; vote casting will fail")
	}

	return &voteService{
		ballotRepo: ballotRepo,
		voteRepo:   voteRepo,
		userRepo:   userRepo,
		limiter:    limiter,
		signer:     signer,
		audit:      audit,
		secret:     []byte(secret),
	}
}

func (s *voteService) Cast(ctx context.Context, input ports.CastVoteInput) (*domain.Receipt, error) {
	ballot, err := s.ballotRepo.GetByID(ctx, input.BallotID)
	if err != nil {
		return nil, err
	}

	if err := s.checkEligibility(ctx, ballot, input.VoterID); err != nil {
		return nil, err
	}

	now := time.Now()
	if ballot.Status != domain.BallotOpen || ballot.EndAt.Before(now) {
		return nil, domain.ErrBallotClosed
	}

	err = s.limiter.Allow(ctx, ports.RateLimitCheck{
		Key:    fmt.Sprintf("votes_%s_%s", input.BallotID, input.VoterID),
		Limit:  voteLimit,
		Window: voteWindow,
	})
	if err != nil {
		return nil, err
	}

	// Receipts are mandatory proof of submission; without the keyed
	// hash secret a vote cannot be accepted.
	if len(s.secret) == 0 {
		return nil, domain.ErrReceiptSecretMissing
	}

	payload, err := buildPayload(ballot, input)
	if err != nil {
		return nil, err
	}

	tsMillis := now.UnixMilli()
	canonicalBytes, err := receipt.Canonical(ballot.ID.String(), input.VoterID.String(), payload, tsMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to build vote canonical: %w", err)
	}
	receiptHash := receipt.Hash(s.secret, canonicalBytes)

	var sig *domain.Signature
	if s.signer != nil {
		if sig, err = s.signer.Sign(ctx, canonicalBytes); err != nil {
			// Signatures are optional; a receipt degrades to HMAC-only.
			log.Printf("vote signature failed: %v", err)
			sig = nil
		}
	}

	voterHash := sha256.Sum256([]byte(input.VoterID.String() + ballot.ID.String()))
	vote := &domain.Vote{
		BallotID:    ballot.ID,
		VoterID:     input.VoterID,
		VoterHash:   hex.EncodeToString(voterHash[:]),
		Payload:     payload,
		ReceiptHash: receiptHash,
		Signature:   sig,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.voteRepo.Upsert(ctx, vote); err != nil {
		return nil, err
	}

	logAudit(ctx, s.audit, "castVote", &input.VoterID, ballot.ID.String(), map[string]any{"type": ballot.Type})

	return &domain.Receipt{
		ShortCode:   receipt.ShortCode(receiptHash),
		ReceiptHash: receiptHash,
		BallotID:    ballot.ID,
		Type:        ballot.Type,
		VoteShape:   voteShape(ballot.Type),
	}, nil
}

func (s *voteService) VerifyReceipt(ctx context.Context, receiptHash string, ballotID *uuid.UUID) (*ports.ReceiptVerification, error) {
	if len(receiptHash) < 8 {
		return nil, domain.ErrInvalidReceipt
	}
	if len(receiptHash) > receipt.HashLen {
		receiptHash = receiptHash[:receipt.HashLen]
	}

	vote, err := s.voteRepo.FindByReceiptHash(ctx, receiptHash, ballotID)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return &ports.ReceiptVerification{Valid: false}, nil
	}

	ballot, err := s.ballotRepo.GetByID(ctx, vote.BallotID)
	if err != nil {
		return nil, err
	}

	submitted := vote.UpdatedAt
	return &ports.ReceiptVerification{
		Valid:       true,
		BallotID:    vote.BallotID.String(),
		ShortCode:   receipt.ShortCode(receiptHash),
		Type:        ballot.Type,
		VoteShape:   voteShape(ballot.Type),
		SubmittedAt: &submitted,
	}, nil
}

func (s *voteService) checkEligibility(ctx context.Context, ballot *domain.Ballot, voterID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, voterID)
	if err != nil {
		return fmt.Errorf("eligibility check failed: %w", err)
	}

	tier := domain.TierOrder[0]
	var region domain.Region
	if user != nil {
		if user.Tier != "" {
			tier = user.Tier
		}
		region = user.Region
	}

	if ballot.MinTierRank > 0 && domain.TierRank(tier) < ballot.MinTierRank {
		return domain.ErrTierTooLow
	}

	if len(ballot.AllowedRegions) > 0 {
		allowed := make(map[string]bool, len(ballot.AllowedRegions))
		for _, r := range ballot.AllowedRegions {
			allowed[r] = true
		}
		match := false
		for _, t := range region.Tokens() {
			if allowed[t] {
				match = true
				break
			}
		}
		if !match {
			return domain.ErrRegionNotEligible
		}
	}

	return nil
}

// buildPayload validates the vote against the ballot type and strips
// duplicate and unknown option ids before anything is hashed.
func buildPayload(ballot *domain.Ballot, input ports.CastVoteInput) (domain.VotePayload, error) {
	switch ballot.Type {
	case domain.BallotRCV:
		ranking := filterOptions(ballot, input.Ranking)
		if len(input.Ranking) == 0 {
			return domain.VotePayload{}, fmt.Errorf("%w: ranking required", domain.ErrInvalidVote)
		}
		return domain.VotePayload{Ranking: ranking}, nil
	case domain.BallotApproval:
		approvals := filterOptions(ballot, input.Approvals)
		if len(input.Approvals) == 0 {
			return domain.VotePayload{}, fmt.Errorf("%w: approvals required", domain.ErrInvalidVote)
		}
		return domain.VotePayload{Approvals: approvals}, nil
	default:
		if input.Choice == "" {
			return domain.VotePayload{}, fmt.Errorf("%w: choice required", domain.ErrInvalidVote)
		}
		if !ballot.HasOption(input.Choice) {
			return domain.VotePayload{}, fmt.Errorf("%w: unknown choice", domain.ErrInvalidVote)
		}
		return domain.VotePayload{Choice: input.Choice}, nil
	}
}

func filterOptions(ballot *domain.Ballot, ids []string) []string {
	var out []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !ballot.HasOption(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func voteShape(t domain.BallotType) string {
	switch t {
	case domain.BallotRCV:
		return "ranking"
	case domain.BallotApproval:
		return "approvals"
	default:
		return "choice"
	}
}
