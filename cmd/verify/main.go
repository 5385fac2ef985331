package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wevote/api/internal/core/canonical"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ledger"
	"github.com/wevote/api/internal/core/ports"
	"github.com/wevote/api/internal/core/tally"
)

// Re-verifies published results without trusting the server: recomputes
// the tally hash and the recount from an exported ballot report, and
// walks a full ledger export checking every chain link.
func main() {
	reportPath := flag.String("report", "", "path to an exported ballot report (GET /api/ballots/{id}/report)")
	ledgerPath := flag.String("ledger", "", "path to a ledger export, a JSON array of entries ordered by seq")
	flag.Parse()

	if *reportPath == "" && *ledgerPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	failed := false

	if *reportPath != "" {
		report, err := readReport(*reportPath)
		if err != nil {
			log.Fatal(err)
		}
		if !verifyReport(report) {
			failed = true
		}
	}

	var entries []domain.LedgerEntry
	if *ledgerPath != "" {
		var err error
		entries, err = readLedger(*ledgerPath)
		if err != nil {
			log.Fatal(err)
		}
		if !verifyChain(entries) {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

func readReport(path string) (*ports.BallotReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report ports.BallotReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

func readLedger(path string) ([]domain.LedgerEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []domain.LedgerEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse ledger export: %w", err)
	}
	return entries, nil
}

// tallyHashInput mirrors the shape the server hashes; field order is
// part of the byte format.
type tallyHashInput struct {
	BallotID string              `json:"ballotId"`
	Type     domain.BallotType   `json:"type"`
	Results  *domain.TallyResult `json:"results"`
}

func verifyReport(report *ports.BallotReport) bool {
	ok := true

	hash, err := canonical.HashHex(tallyHashInput{
		BallotID: report.Ballot.BallotID,
		Type:     report.Ballot.Type,
		Results:  report.Ballot.Results,
	})
	if err != nil {
		log.Fatal(err)
	}
	ok = check("tally hash", hash == report.Ballot.TallyHash,
		fmt.Sprintf("expected %s, got %s", report.Ballot.TallyHash, hash)) && ok

	recount := recountVotes(report)
	published, err := canonical.Marshal(report.Ballot.Results)
	if err != nil {
		log.Fatal(err)
	}
	recomputed, err := canonical.Marshal(recount)
	if err != nil {
		log.Fatal(err)
	}
	ok = check("recount", bytes.Equal(published, recomputed),
		"recomputed results differ from the published results") && ok

	if report.LedgerEntry != nil {
		entryHash := report.LedgerEntry.EntryHash
		ok = check("ledger entry hash present", entryHash != "", "report names no entry hash") && ok
	}

	return ok
}

// recountVotes rebuilds the result from the anonymized votes the same
// way the server does at tally time.
func recountVotes(report *ports.BallotReport) *domain.TallyResult {
	results := &domain.TallyResult{Counts: map[string]int{}, Total: len(report.Votes)}

	optionIDs := make([]string, len(report.Ballot.Options))
	for i, o := range report.Ballot.Options {
		optionIDs[i] = o.ID
	}

	switch report.Ballot.Type {
	case domain.BallotSimple:
		choices := make([]string, 0, len(report.Votes))
		for _, v := range report.Votes {
			if v.Choice != "" {
				choices = append(choices, v.Choice)
			}
		}
		results.Counts = tally.Simple(optionIDs, choices)
		results.Winner = tally.Winner(results.Counts)
	case domain.BallotApproval:
		approvals := make([][]string, 0, len(report.Votes))
		for _, v := range report.Votes {
			approvals = append(approvals, v.Approvals)
		}
		results.Counts = tally.Approval(optionIDs, approvals)
		results.Winner = tally.Winner(results.Counts)
	case domain.BallotRCV:
		valid := make(map[string]bool, len(optionIDs))
		for _, id := range optionIDs {
			valid[id] = true
		}
		rankings := make([][]string, 0, len(report.Votes))
		for _, v := range report.Votes {
			ranking := make([]string, 0, len(v.Ranking))
			for _, c := range v.Ranking {
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

func verifyChain(entries []domain.LedgerEntry) bool {
	issues := ledger.Verify(entries)
	if len(issues) == 0 {
		fmt.Printf("PASS  ledger chain (%d entries)\n", len(entries))
		return true
	}
	for _, issue := range issues {
		fmt.Printf("FAIL  ledger chain: %s\n", issue)
	}
	return false
}

func check(name string, ok bool, detail string) bool {
	if ok {
		fmt.Printf("PASS  %s\n", name)
	} else {
		fmt.Printf("FAIL  %s: %s\n", name, detail)
	}
	return ok
}
