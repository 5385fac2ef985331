// Package receipt derives voter-retained proofs of submission. A
// receipt is a truncated keyed hash over the canonical vote record; the
// same ballot, voter, payload and timestamp always produce the same
// receipt, and any change to one of them produces a different one.
package receipt

import (
	"github.com/wevote/api/internal/core/canonical"
	"github.com/wevote/api/internal/core/domain"
)

// ShortCodePrefix is the human-facing prefix on receipt short codes.
const ShortCodePrefix = "WeVote-RECEIPT-"

// HashLen is the hex length receipts are truncated to.
const HashLen = 32

type voteRecord struct {
	BallotID string             `json:"ballotId"`
	Voter    string             `json:"voter"`
	Vote     domain.VotePayload `json:"vote"`
	TS       int64              `json:"ts"`
}

// Canonical returns the canonical vote record bytes used for receipt
// hashing and optional signing.
func Canonical(ballotID, voterID string, payload domain.VotePayload, tsMillis int64) ([]byte, error) {
	return canonical.Marshal(voteRecord{
		BallotID: ballotID,
		Voter:    voterID,
		Vote:     payload,
		TS:       tsMillis,
	})
}

// Hash returns the receipt hash: hmac-sha256 over the canonical bytes,
// truncated to 32 hex characters.
func Hash(secret, canonicalBytes []byte) string {
	return canonical.HMACHex(secret, canonicalBytes)[:HashLen]
}

// ShortCode renders the short code a voter keeps, built from the first
// 8 hex characters of the receipt hash.
func ShortCode(receiptHash string) string {
	if len(receiptHash) > 8 {
		receiptHash = receiptHash[:8]
	}
	return ShortCodePrefix + receiptHash
}
