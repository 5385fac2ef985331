package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerData is the payload a ledger entry commits to. TS is unix
// milliseconds so the canonical form is integer-valued.
type LedgerData struct {
	Kind     string       `json:"kind"`
	BallotID string       `json:"ballotId"`
	Results  *TallyResult `json:"results"`
	TS       int64        `json:"ts"`
}

// LedgerEntry is one record of the append-only transparency ledger.
// Seq starts at 1 and increases by one per entry; PrevHash is nil only
// for the first entry. EntryHash is sha256 of Canonical, and Canonical
// serializes {seq, prevHash, data}.
type LedgerEntry struct {
	ID        uuid.UUID  `json:"ledger_id"`
	Seq       int64      `json:"seq"`
	PrevHash  *string    `json:"prev_hash"`
	EntryHash string     `json:"entry_hash"`
	Data      LedgerData `json:"data"`
	Canonical string     `json:"canonical"`
	Signature *Signature `json:"signature,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
