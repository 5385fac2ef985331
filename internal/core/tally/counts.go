package tally

import "sort"

// Simple counts one choice per ballot. Every ballot option appears in
// the result, zero-count options included; choices naming unknown
// options are ignored.
func Simple(optionIDs []string, choices []string) map[string]int {
	counts := make(map[string]int, len(optionIDs))
	for _, id := range optionIDs {
		counts[id] = 0
	}
	for _, c := range choices {
		if _, ok := counts[c]; ok {
			counts[c]++
		}
	}
	return counts
}

// Approval counts one vote toward every approved option per ballot.
func Approval(optionIDs []string, approvals [][]string) map[string]int {
	counts := make(map[string]int, len(optionIDs))
	for _, id := range optionIDs {
		counts[id] = 0
	}
	for _, set := range approvals {
		for _, a := range set {
			if _, ok := counts[a]; ok {
				counts[a]++
			}
		}
	}
	return counts
}

// Winner picks the highest-count option. Ties go to the
// lexicographically smallest option id, an explicit rule rather than
// map iteration order. Returns nil for an empty count set.
func Winner(counts map[string]int) *string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	winner := ids[0]
	for _, id := range ids[1:] {
		if counts[id] > counts[winner] {
			winner = id
		}
	}
	return &winner
}
