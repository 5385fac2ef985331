package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/api/internal/core/canonical"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ledger"
)

type tallyFixture struct {
	ballotRepo *fakeBallotRepo
	voteRepo   *fakeVoteRepo
	ledgerRepo *fakeLedgerRepo
	audit      *fakeAudit
}

func newTallyFixture() *tallyFixture {
	ballotRepo := newFakeBallotRepo()
	return &tallyFixture{
		ballotRepo: ballotRepo,
		voteRepo:   newFakeVoteRepo(),
		ledgerRepo: newFakeLedgerRepo(ballotRepo),
		audit:      &fakeAudit{},
	}
}

func (f *tallyFixture) openBallot(t *testing.T, ballotType domain.BallotType, creator uuid.UUID) *domain.Ballot {
	t.Helper()

	now := time.Now()
	ballot := &domain.Ballot{
		ID:        uuid.New(),
		ConcernID: uuid.New(),
		Type:      ballotType,
		Options: []domain.BallotOption{
			{ID: "a", Label: "A"},
			{ID: "b", Label: "B"},
			{ID: "c", Label: "C"},
		},
		Status:    domain.BallotOpen,
		CreatedBy: creator,
		StartAt:   now,
		EndAt:     now.Add(time.Hour),
	}
	require.NoError(t, f.ballotRepo.Save(context.Background(), ballot))
	return ballot
}

func (f *tallyFixture) addVote(t *testing.T, ballotID uuid.UUID, payload domain.VotePayload) {
	t.Helper()

	now := time.Now()
	require.NoError(t, f.voteRepo.Upsert(context.Background(), &domain.Vote{
		BallotID:    ballotID,
		VoterID:     uuid.New(),
		Payload:     payload,
		ReceiptHash: uuid.New().String()[:32],
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
}

func TestTallySimpleBallot(t *testing.T) {
	f := newTallyFixture()
	creator := uuid.New()
	ballot := f.openBallot(t, domain.BallotSimple, creator)
	f.addVote(t, ballot.ID, domain.VotePayload{Choice: "a"})
	f.addVote(t, ballot.ID, domain.VotePayload{Choice: "a"})
	f.addVote(t, ballot.ID, domain.VotePayload{Choice: "b"})

	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, nil, f.audit)
	results, err := svc.Tally(context.Background(), ballot.ID, creator)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 2, "b": 1, "c": 0}, results.Counts)
	assert.Equal(t, 3, results.Total)
	require.NotNil(t, results.Winner)
	assert.Equal(t, "a", *results.Winner)

	stored, err := f.ballotRepo.GetByID(context.Background(), ballot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BallotTallied, stored.Status)
	require.NotNil(t, stored.LedgerID)
	assert.Nil(t, stored.TallySignature)

	expectedHash, err := canonical.HashHex(tallyHashInput{
		BallotID: ballot.ID.String(),
		Type:     ballot.Type,
		Results:  results,
	})
	require.NoError(t, err)
	assert.Equal(t, expectedHash, stored.TallyHash)

	entries, err := f.ledgerRepo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Nil(t, entries[0].PrevHash)
	assert.Equal(t, "tally", entries[0].Data.Kind)
	assert.Empty(t, ledger.Verify(entries))

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, "tallyBallot", f.audit.events[0].Event)
}

func TestTallyRejectsNonCreator(t *testing.T) {
	f := newTallyFixture()
	ballot := f.openBallot(t, domain.BallotSimple, uuid.New())

	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, nil, f.audit)
	_, err := svc.Tally(context.Background(), ballot.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotBallotCreator)
}

func TestTallyUnknownBallot(t *testing.T) {
	f := newTallyFixture()

	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, nil, f.audit)
	_, err := svc.Tally(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrBallotNotFound)
}

func TestTallyIdempotent(t *testing.T) {
	f := newTallyFixture()
	creator := uuid.New()
	ballot := f.openBallot(t, domain.BallotSimple, creator)
	f.addVote(t, ballot.ID, domain.VotePayload{Choice: "b"})

	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, nil, f.audit)
	first, err := svc.Tally(context.Background(), ballot.ID, creator)
	require.NoError(t, err)

	// Another voter sneaking in after the tally must not change the
	// recorded outcome.
	f.addVote(t, ballot.ID, domain.VotePayload{Choice: "a"})

	second, err := svc.Tally(context.Background(), ballot.ID, creator)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := f.ledgerRepo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTallyRCVBallot(t *testing.T) {
	f := newTallyFixture()
	creator := uuid.New()
	ballot := f.openBallot(t, domain.BallotRCV, creator)
	f.addVote(t, ballot.ID, domain.VotePayload{Ranking: []string{"a", "b", "c"}})
	f.addVote(t, ballot.ID, domain.VotePayload{Ranking: []string{"b", "a", "c"}})
	f.addVote(t, ballot.ID, domain.VotePayload{Ranking: []string{"c", "a", "b"}})
	f.addVote(t, ballot.ID, domain.VotePayload{Ranking: []string{"c", "a", "b"}})

	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, nil, f.audit)
	results, err := svc.Tally(context.Background(), ballot.ID, creator)
	require.NoError(t, err)

	require.NotEmpty(t, results.Rounds)
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 2}, results.Rounds[0].Counts)
	assert.Equal(t, "b", results.Rounds[0].Eliminated)
	require.NotNil(t, results.Winner)
	assert.Equal(t, "a", *results.Winner)
	require.NotNil(t, results.Exhausted)
}

func TestTallyApprovalBallot(t *testing.T) {
	f := newTallyFixture()
	creator := uuid.New()
	ballot := f.openBallot(t, domain.BallotApproval, creator)
	f.addVote(t, ballot.ID, domain.VotePayload{Approvals: []string{"a", "b"}})
	f.addVote(t, ballot.ID, domain.VotePayload{Approvals: []string{"b"}})

	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, nil, f.audit)
	results, err := svc.Tally(context.Background(), ballot.ID, creator)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 0}, results.Counts)
	require.NotNil(t, results.Winner)
	assert.Equal(t, "b", *results.Winner)
}

func TestTallyWithSigner(t *testing.T) {
	f := newTallyFixture()
	creator := uuid.New()
	ballot := f.openBallot(t, domain.BallotSimple, creator)
	f.addVote(t, ballot.ID, domain.VotePayload{Choice: "a"})

	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, &fakeSigner{}, f.audit)
	_, err := svc.Tally(context.Background(), ballot.ID, creator)
	require.NoError(t, err)

	stored, err := f.ballotRepo.GetByID(context.Background(), ballot.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TallySignature)
	assert.Equal(t, "ed25519", stored.TallySignature.Algorithm)

	entries, err := f.ledgerRepo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].Signature)
}

func TestTallyChainsAcrossBallots(t *testing.T) {
	f := newTallyFixture()
	creator := uuid.New()
	svc := NewTallyService(f.ballotRepo, f.voteRepo, f.ledgerRepo, nil, f.audit)

	first := f.openBallot(t, domain.BallotSimple, creator)
	f.addVote(t, first.ID, domain.VotePayload{Choice: "a"})
	_, err := svc.Tally(context.Background(), first.ID, creator)
	require.NoError(t, err)

	second := f.openBallot(t, domain.BallotSimple, creator)
	f.addVote(t, second.ID, domain.VotePayload{Choice: "b"})
	_, err = svc.Tally(context.Background(), second.ID, creator)
	require.NoError(t, err)

	entries, err := f.ledgerRepo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[1].Seq)
	require.NotNil(t, entries[1].PrevHash)
	assert.Equal(t, entries[0].EntryHash, *entries[1].PrevHash)
	assert.Empty(t, ledger.Verify(entries))
}
