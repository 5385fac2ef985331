package domain

import (
	"time"

	"github.com/google/uuid"
)

// VotePayload is the tagged union of the three ballot-type payloads.
// Exactly one field is populated, matching the ballot's type. Field
// order here is the canonical serialization order for receipt hashing.
type VotePayload struct {
	Choice    string   `json:"choice,omitempty"`
	Approvals []string `json:"approvals,omitempty"`
	Ranking   []string `json:"ranking,omitempty"`
}

// Vote is keyed by (BallotID, VoterID); casting again overwrites the
// previous record, last write wins.
type Vote struct {
	BallotID    uuid.UUID   `json:"ballot_id"`
	VoterID     uuid.UUID   `json:"-"`
	VoterHash   string      `json:"voter_hash"`
	Payload     VotePayload `json:"payload"`
	ReceiptHash string      `json:"receipt_hash"`
	Signature   *Signature  `json:"signature,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Receipt is the voter-retained proof of submission. It is derived from
// the vote record and never stored as its own entity.
type Receipt struct {
	ShortCode   string     `json:"short_code"`
	ReceiptHash string     `json:"receipt_hash"`
	BallotID    uuid.UUID  `json:"ballot_id"`
	Type        BallotType `json:"type"`
	VoteShape   string     `json:"vote_shape"`
}
