package domain

// TallyResult is the outcome of counting one ballot. Counts maps option
// id to vote count; for ranked-choice ballots the per-round breakdown
// lives in Rounds and Counts stays empty. Winner is nil when the count
// did not resolve (ranked-choice round limit) or no votes were cast.
//
// Field order is the canonical serialization order committed to by
// tallyHash and the ledger.
type TallyResult struct {
	Counts    map[string]int `json:"counts"`
	Total     int            `json:"total"`
	Winner    *string        `json:"winner"`
	Rounds    []RCVRound     `json:"rounds,omitempty"`
	Exhausted *int           `json:"exhausted,omitempty"`
}

// RCVRound records one instant-runoff round. Counts covers only the
// candidates still active that round; Eliminated is empty on a final
// majority round.
type RCVRound struct {
	Round      int            `json:"round"`
	Counts     map[string]int `json:"counts"`
	Eliminated string         `json:"eliminated,omitempty"`
	Exhausted  int            `json:"exhausted"`
}
