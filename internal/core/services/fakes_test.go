package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

type fakeBallotRepo struct {
	mu      sync.Mutex
	ballots map[uuid.UUID]*domain.Ballot
	open    map[uuid.UUID]bool
	saveErr error
}

func newFakeBallotRepo() *fakeBallotRepo {
	return &fakeBallotRepo{
		ballots: make(map[uuid.UUID]*domain.Ballot),
		open:    make(map[uuid.UUID]bool),
	}
}

func (r *fakeBallotRepo) Save(ctx context.Context, ballot *domain.Ballot) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *ballot
	r.ballots[ballot.ID] = &copied
	if ballot.Status == domain.BallotOpen {
		r.open[ballot.ConcernID] = true
	}
	return nil
}

func (r *fakeBallotRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ballot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.ballots[id]
	if !ok {
		return nil, domain.ErrBallotNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBallotRepo) HasOpenBallot(ctx context.Context, concernID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open[concernID], nil
}

type fakeConcernRepo struct {
	exists bool
}

func (r *fakeConcernRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists, nil
}

type fakeVoteRepo struct {
	mu    sync.Mutex
	votes map[string]*domain.Vote
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{votes: make(map[string]*domain.Vote)}
}

func voteKey(ballotID, voterID uuid.UUID) string {
	return ballotID.String() + "/" + voterID.String()
}

func (r *fakeVoteRepo) Upsert(ctx context.Context, vote *domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *vote
	r.votes[voteKey(vote.BallotID, vote.VoterID)] = &copied
	return nil
}

func (r *fakeVoteRepo) GetByBallotAndVoter(ctx context.Context, ballotID, voterID uuid.UUID) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.votes[voteKey(ballotID, voterID)]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (r *fakeVoteRepo) ListByBallot(ctx context.Context, ballotID uuid.UUID) ([]domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Vote
	for _, v := range r.votes {
		if v.BallotID == ballotID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeVoteRepo) FindByReceiptHash(ctx context.Context, receiptHash string, ballotID *uuid.UUID) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.votes {
		if v.ReceiptHash != receiptHash {
			continue
		}
		if ballotID != nil && v.BallotID != *ballotID {
			continue
		}
		copied := *v
		return &copied, nil
	}
	return nil, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

type fakeLimiter struct {
	err   error
	calls []ports.RateLimitCheck
}

func (l *fakeLimiter) Allow(ctx context.Context, checks ...ports.RateLimitCheck) error {
	l.calls = append(l.calls, checks...)
	return l.err
}

type fakeAudit struct {
	events []domain.AuditEvent
}

func (a *fakeAudit) Log(ctx context.Context, event *domain.AuditEvent) error {
	a.events = append(a.events, *event)
	return nil
}

// fakeLedgerRepo mirrors the store's append semantics: one entry per
// ballot, chain position fixed inside the call, ballot flipped to
// tallied.
type fakeLedgerRepo struct {
	ballots  *fakeBallotRepo
	entries  []domain.LedgerEntry
	byBallot map[uuid.UUID]uuid.UUID
}

func newFakeLedgerRepo(ballots *fakeBallotRepo) *fakeLedgerRepo {
	return &fakeLedgerRepo{
		ballots:  ballots,
		byBallot: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *fakeLedgerRepo) Append(ctx context.Context, input ports.LedgerAppendInput, build ports.LedgerEntryBuilder) (*domain.LedgerEntry, bool, error) {
	r.ballots.mu.Lock()
	defer r.ballots.mu.Unlock()

	ballot, ok := r.ballots.ballots[input.BallotID]
	if !ok {
		return nil, false, domain.ErrBallotNotFound
	}

	if id, done := r.byBallot[input.BallotID]; done {
		for i := range r.entries {
			if r.entries[i].ID == id {
				entry := r.entries[i]
				return &entry, false, nil
			}
		}
		return nil, false, domain.ErrLedgerInconsistent
	}

	seq := int64(len(r.entries) + 1)
	var prevHash *string
	if len(r.entries) > 0 {
		h := r.entries[len(r.entries)-1].EntryHash
		prevHash = &h
	}

	entry, err := build(seq, prevHash)
	if err != nil {
		return nil, false, err
	}
	r.entries = append(r.entries, *entry)
	r.byBallot[input.BallotID] = entry.ID

	ballot.Status = domain.BallotTallied
	ballot.Results = input.Results
	ballot.TallyHash = input.TallyHash
	ballot.TallySignature = input.TallySignature
	entryID := entry.ID
	ballot.LedgerID = &entryID

	copied := *entry
	return &copied, true, nil
}

func (r *fakeLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	for i := range r.entries {
		if r.entries[i].ID == id {
			entry := r.entries[i]
			return &entry, nil
		}
	}
	return nil, domain.ErrLedgerInconsistent
}

func (r *fakeLedgerRepo) List(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *fakeLedgerRepo) All(ctx context.Context) ([]domain.LedgerEntry, error) {
	return append([]domain.LedgerEntry(nil), r.entries...), nil
}

type fakeSigner struct {
	err error
}

func (s *fakeSigner) Sign(ctx context.Context, data []byte) (*domain.Signature, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Signature{SignatureBase64: "c2lnbmVk", Algorithm: "ed25519"}, nil
}
