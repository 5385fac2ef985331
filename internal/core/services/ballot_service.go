package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

const (
	ballotCreateLimit  = 3
	ballotCreateWindow = 6 * time.Hour

	maxRegionFilters  = 25
	maxRegionTokenLen = 80
)

type ballotService struct {
	ballotRepo  ports.BallotRepository
	concernRepo ports.ConcernRepository
	limiter     ports.RateLimiter
	audit       ports.AuditLogger
}

func NewBallotService(ballotRepo ports.BallotRepository, concernRepo ports.ConcernRepository, limiter ports.RateLimiter, audit ports.AuditLogger) ports.BallotService {
	return &ballotService{
		ballotRepo:  ballotRepo,
		concernRepo: concernRepo,
		limiter:     limiter,
		audit:       audit,
	}
}

func (s *ballotService) Create(ctx context.Context, input ports.CreateBallotInput) (*domain.Ballot, error) {
	if !input.Type.Valid() {
		return nil, domain.ErrInvalidBallotType
	}
	if len(input.Options) < 2 {
		return nil, domain.ErrTooFewOptions
	}
	minTier := input.MinTier
	if minTier == "" {
		minTier = domain.TierOrder[0]
	}
	minTierRank := domain.TierRank(minTier)
	if minTierRank == 0 {
		return nil, domain.ErrInvalidMinTier
	}

	err := s.limiter.Allow(ctx, ports.RateLimitCheck{
		Key:    "ballots_" + input.CreatorID.String(),
		Limit:  ballotCreateLimit,
		Window: ballotCreateWindow,
	})
	if err != nil {
		return nil, err
	}

	exists, err := s.concernRepo.Exists(ctx, input.ConcernID)
	if err != nil {
		return nil, fmt.Errorf("failed to check concern: %w", err)
	}
	if !exists {
		return nil, domain.ErrConcernNotFound
	}

	open, err := s.ballotRepo.HasOpenBallot(ctx, input.ConcernID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open ballots: %w", err)
	}
	if open {
		return nil, domain.ErrOpenBallotExists
	}

	duration := input.DurationMinutes
	if duration <= 0 {
		duration = 60
	}

	now := time.Now()
	ballot := &domain.Ballot{
		ID:             uuid.New(),
		ConcernID:      input.ConcernID,
		Type:           input.Type,
		Options:        normalizeOptions(input.Options),
		Status:         domain.BallotOpen,
		CreatedBy:      input.CreatorID,
		MinTier:        minTier,
		MinTierRank:    minTierRank,
		AllowedRegions: normalizeRegions(input.Regions),
		StartAt:        now,
		EndAt:          now.Add(time.Duration(duration) * time.Minute),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.ballotRepo.Save(ctx, ballot); err != nil {
		return nil, err
	}

	logAudit(ctx, s.audit, "createBallot", &input.CreatorID, ballot.ID.String(), map[string]any{"type": ballot.Type})

	return ballot, nil
}

func (s *ballotService) Get(ctx context.Context, id uuid.UUID) (*domain.Ballot, error) {
	return s.ballotRepo.GetByID(ctx, id)
}

// normalizeOptions keeps option order, fills missing ids with opt_<i>
// and missing labels with Option <i+1>, and drops duplicate ids.
func normalizeOptions(inputs []ports.BallotOptionInput) []domain.BallotOption {
	options := make([]domain.BallotOption, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		id := in.ID
		if id == "" {
			id = fmt.Sprintf("opt_%d", i)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		label := in.Label
		if label == "" {
			label = fmt.Sprintf("Option %d", i+1)
		}
		options = append(options, domain.BallotOption{ID: id, Label: label})
	}
	return options
}

// normalizeRegions dedupes region tokens, drops oversized ones and caps
// the list.
func normalizeRegions(regions []string) []string {
	var out []string
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if r == "" || len(r) >= maxRegionTokenLen || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
		if len(out) == maxRegionFilters {
			break
		}
	}
	return out
}
