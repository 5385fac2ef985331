// Package ledger holds the pure chain logic of the transparency
// ledger: building an entry's canonical form and hash, and verifying a
// chain without trusting the server that produced it. Verification
// needs no secret material and can run offline.
package ledger

import (
	"fmt"

	"github.com/wevote/api/internal/core/canonical"
	"github.com/wevote/api/internal/core/domain"
)

type entryCanonical struct {
	Seq      int64             `json:"seq"`
	PrevHash *string           `json:"prevHash"`
	Data     domain.LedgerData `json:"data"`
}

// BuildCanonical serializes {seq, prevHash, data} and returns the
// canonical string together with its sha256 entry hash.
func BuildCanonical(seq int64, prevHash *string, data domain.LedgerData) (string, string, error) {
	b, err := canonical.Marshal(entryCanonical{Seq: seq, PrevHash: prevHash, Data: data})
	if err != nil {
		return "", "", err
	}
	return string(b), canonical.HashBytes(b), nil
}

// Issue reports one verification failure with the offending sequence
// number.
type Issue struct {
	Seq     int64  `json:"seq"`
	Problem string `json:"problem"`
}

func (i Issue) String() string {
	return fmt.Sprintf("seq %d: %s", i.Seq, i.Problem)
}

// Verify checks an ordered chain of entries: the first entry has no
// previous hash, every later entry links to its predecessor's entry
// hash, and every entry hash matches its canonical bytes. All entries
// are checked; verification never stops at the first failure.
func Verify(entries []domain.LedgerEntry) []Issue {
	var issues []Issue
	for i, e := range entries {
		if i == 0 {
			if e.PrevHash != nil {
				issues = append(issues, Issue{Seq: e.Seq, Problem: "first entry prevHash should be null"})
			}
		} else {
			prev := entries[i-1]
			if e.PrevHash == nil || *e.PrevHash != prev.EntryHash {
				issues = append(issues, Issue{Seq: e.Seq, Problem: "prevHash does not match previous entryHash"})
			}
			if e.Seq != prev.Seq+1 {
				issues = append(issues, Issue{Seq: e.Seq, Problem: "sequence number not contiguous"})
			}
		}
		if canonical.HashBytes([]byte(e.Canonical)) != e.EntryHash {
			issues = append(issues, Issue{Seq: e.Seq, Problem: "entryHash does not match canonical bytes"})
		}
	}
	return issues
}
