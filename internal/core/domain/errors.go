package domain

import "errors"

var (
	// Invalid argument
	ErrInvalidBallotID   = errors.New("invalid ballot id")
	ErrInvalidBallotType = errors.New("unsupported ballot type")
	ErrInvalidMinTier    = errors.New("invalid minimum tier")
	ErrTooFewOptions     = errors.New("at least two options are required")
	ErrInvalidVote       = errors.New("vote payload does not match ballot type")
	ErrInvalidReceipt    = errors.New("invalid receipt hash")

	// Not found
	ErrBallotNotFound  = errors.New("ballot not found")
	ErrConcernNotFound = errors.New("concern not found")

	// Failed precondition
	ErrBallotClosed         = errors.New("ballot closed")
	ErrOpenBallotExists     = errors.New("an open ballot already exists for this concern")
	ErrBallotNotTallied     = errors.New("ballot not tallied")
	ErrReceiptSecretMissing = errors.New("receipt secret not configured")

	// Permission denied
	ErrNotBallotCreator  = errors.New("only the ballot creator may tally")
	ErrTierTooLow        = errors.New("tier too low to vote on this ballot")
	ErrRegionNotEligible = errors.New("region not eligible for this ballot")

	// Resource exhausted
	ErrRateLimited = errors.New("rate limit exceeded")

	// Internal; a set ledger marker with no matching entry is a
	// data-integrity fault, never silently repaired.
	ErrLedgerInconsistent = errors.New("ledger marker set but entry missing")
	ErrInternal           = errors.New("internal server error")
)
