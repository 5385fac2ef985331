// Package tally holds the pure counting engines. Nothing here performs
// I/O; hashing and persistence happen upstream.
package tally

import (
	"sort"

	"github.com/wevote/api/internal/core/domain"
)

// maxRounds bounds the instant-runoff loop. Hitting it yields a nil
// winner, an unresolved election rather than an error.
const maxRounds = 20

// Outcome is the result of an instant-runoff count.
type Outcome struct {
	Rounds    []domain.RCVRound
	Winner    *string
	Exhausted int
}

// RCV runs an instant-runoff count over the given rankings. Rankings
// may be shorter than the option set and may name candidates filtered
// out upstream; a ballot with no remaining active candidate counts as
// exhausted for that round.
//
// Each round tallies first active preferences, declares a winner on a
// strict majority of that round's valid votes, and otherwise eliminates
// the lexicographically last candidate among those tied at the lowest
// count. The tie-break is deterministic and independent of input order.
func RCV(rankings [][]string) Outcome {
	var candidates []string
	seen := make(map[string]bool)
	for _, r := range rankings {
		for _, c := range r {
			if !seen[c] {
				seen[c] = true
				candidates = append(candidates, c)
			}
		}
	}

	active := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		active[c] = true
	}

	remaining := make([][]string, len(rankings))
	for i, r := range rankings {
		remaining[i] = append([]string(nil), r...)
	}

	var rounds []domain.RCVRound
	for round := 1; len(active) > 0 && round <= maxRounds; round++ {
		counts := make(map[string]int, len(active))
		for c := range active {
			counts[c] = 0
		}
		exhausted := 0
		for i, r := range remaining {
			for len(r) > 0 && !active[r[0]] {
				r = r[1:]
			}
			remaining[i] = r
			if len(r) == 0 {
				exhausted++
				continue
			}
			counts[r[0]]++
		}

		totalValid := 0
		leader, leaderCount := "", -1
		for _, c := range candidates {
			n, ok := counts[c]
			if !ok {
				continue
			}
			totalValid += n
			if n > leaderCount {
				leader, leaderCount = c, n
			}
		}
		if leaderCount*2 > totalValid {
			rounds = append(rounds, domain.RCVRound{Round: round, Counts: counts, Exhausted: exhausted})
			return Outcome{Rounds: rounds, Winner: &leader, Exhausted: exhausted}
		}

		lowest := -1
		for _, n := range counts {
			if lowest == -1 || n < lowest {
				lowest = n
			}
		}
		var tied []string
		for c, n := range counts {
			if n == lowest {
				tied = append(tied, c)
			}
		}
		sort.Strings(tied)
		eliminated := tied[len(tied)-1]
		delete(active, eliminated)
		rounds = append(rounds, domain.RCVRound{Round: round, Counts: counts, Eliminated: eliminated, Exhausted: exhausted})

		if len(active) == 1 {
			var winner string
			for c := range active {
				winner = c
			}
			return Outcome{Rounds: rounds, Winner: &winner, Exhausted: exhausted}
		}
	}

	return Outcome{Rounds: rounds, Winner: nil, Exhausted: 0}
}
