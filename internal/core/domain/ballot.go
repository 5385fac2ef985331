package domain

import (
	"time"

	"github.com/google/uuid"
)

type BallotType string

const (
	BallotSimple   BallotType = "simple"
	BallotApproval BallotType = "approval"
	BallotRCV      BallotType = "rcv"
)

func (t BallotType) Valid() bool {
	switch t {
	case BallotSimple, BallotApproval, BallotRCV:
		return true
	}
	return false
}

type BallotStatus string

const (
	BallotOpen    BallotStatus = "open"
	BallotTallied BallotStatus = "tallied"
)

// TierOrder ranks user tiers from lowest to highest. Rank is 1-based;
// an unknown tier ranks 0.
var TierOrder = []string{"basic", "verified", "expert", "admin"}

func TierRank(tier string) int {
	for i, t := range TierOrder {
		if t == tier {
			return i + 1
		}
	}
	return 0
}

type BallotOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Ballot is a single election instance tied to one concern. Options are
// fixed at creation; LedgerID, once set, never changes and marks the
// ballot's entry in the transparency ledger.
type Ballot struct {
	ID             uuid.UUID      `json:"ballot_id"`
	ConcernID      uuid.UUID      `json:"concern_id"`
	Type           BallotType     `json:"type"`
	Options        []BallotOption `json:"options"`
	Status         BallotStatus   `json:"status"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	MinTier        string         `json:"min_tier"`
	MinTierRank    int            `json:"min_tier_rank"`
	AllowedRegions []string       `json:"allowed_regions,omitempty"`
	StartAt        time.Time      `json:"start_at"`
	EndAt          time.Time      `json:"end_at"`
	Results        *TallyResult   `json:"results,omitempty"`
	TallyHash      string         `json:"tally_hash,omitempty"`
	TallySignature *Signature     `json:"tally_signature,omitempty"`
	LedgerID       *uuid.UUID     `json:"ledger_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (b *Ballot) HasOption(id string) bool {
	for _, o := range b.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// OptionIDs returns the option ids in ballot order.
func (b *Ballot) OptionIDs() []string {
	ids := make([]string, len(b.Options))
	for i, o := range b.Options {
		ids[i] = o.ID
	}
	return ids
}

// Signature is a detached signature produced by an external signer.
type Signature struct {
	SignatureBase64 string `json:"signatureBase64"`
	Algorithm       string `json:"algorithm"`
}
