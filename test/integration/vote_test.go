package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

func (app *TestApp) createBallot(t *testing.T, token string, payload map[string]any) domain.Ballot {
	t.Helper()

	var ballot domain.Ballot
	resp := app.doJSON(t, "POST", "/api/ballots", token, payload, &ballot)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return ballot
}

// TestVoteFlow casts a vote, checks the receipt, re-votes and verifies
// last write wins with a fresh receipt.
func TestVoteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	creator := app.createUser(t, "basic", "", "", "")
	concernID := app.createConcern(t, creator.ID)
	ballot := app.createBallot(t, creator.Token, ballotPayload(concernID))

	voter := app.createUser(t, "basic", "", "", "")

	var rcpt domain.Receipt
	resp := app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", voter.Token,
		map[string]any{"choice": "yes"}, &rcpt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.True(t, strings.HasPrefix(rcpt.ShortCode, "WeVote-RECEIPT-"))
	assert.Len(t, rcpt.ReceiptHash, 32)
	assert.Equal(t, ballot.ID, rcpt.BallotID)

	// Voter identity is stored hashed only.
	var voterHash, choice string
	err := app.DB.QueryRow("SELECT voter_hash, choice FROM votes WHERE ballot_id = $1 AND voter_id = $2",
		ballot.ID, voter.ID).Scan(&voterHash, &choice)
	require.NoError(t, err)
	assert.Len(t, voterHash, 64)
	assert.Equal(t, "yes", choice)

	// Re-vote replaces the prior record.
	var second domain.Receipt
	resp = app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", voter.Token,
		map[string]any{"choice": "no"}, &second)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEqual(t, rcpt.ReceiptHash, second.ReceiptHash)

	var voteCount int
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM votes WHERE ballot_id = $1", ballot.ID).Scan(&voteCount))
	assert.Equal(t, 1, voteCount)

	err = app.DB.QueryRow("SELECT choice FROM votes WHERE ballot_id = $1 AND voter_id = $2",
		ballot.ID, voter.ID).Scan(&choice)
	require.NoError(t, err)
	assert.Equal(t, "no", choice)
}

func TestVoteValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	creator := app.createUser(t, "basic", "", "", "")
	concernID := app.createConcern(t, creator.ID)
	ballot := app.createBallot(t, creator.Token, ballotPayload(concernID))
	voter := app.createUser(t, "basic", "", "", "")

	resp := app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", voter.Token,
		map[string]any{"choice": "bogus"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.doJSON(t, "POST", "/api/ballots/"+uuid.New().String()+"/votes", voter.Token,
		map[string]any{"choice": "yes"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", "",
		map[string]any{"choice": "yes"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVoteEligibility(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	creator := app.createUser(t, "basic", "", "", "")
	concernID := app.createConcern(t, creator.ID)

	payload := ballotPayload(concernID)
	payload["min_tier"] = "verified"
	payload["regions"] = []string{"state:BR-SP"}
	ballot := app.createBallot(t, creator.Token, payload)

	lowTier := app.createUser(t, "basic", "BR", "SP", "")
	resp := app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", lowTier.Token,
		map[string]any{"choice": "yes"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	wrongRegion := app.createUser(t, "verified", "BR", "RJ", "")
	resp = app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", wrongRegion.Token,
		map[string]any{"choice": "yes"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	eligible := app.createUser(t, "verified", "BR", "SP", "Campinas")
	resp = app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", eligible.Token,
		map[string]any{"choice": "yes"}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

// TestReceiptVerification casts a vote and checks the public lookup in
// both directions: the real hash verifies, an unknown one does not.
func TestReceiptVerification(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	creator := app.createUser(t, "basic", "", "", "")
	concernID := app.createConcern(t, creator.ID)
	ballot := app.createBallot(t, creator.Token, ballotPayload(concernID))
	voter := app.createUser(t, "basic", "", "", "")

	var rcpt domain.Receipt
	resp := app.doJSON(t, "POST", "/api/ballots/"+ballot.ID.String()+"/votes", voter.Token,
		map[string]any{"choice": "yes"}, &rcpt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// No auth needed for verification.
	var verification ports.ReceiptVerification
	resp = app.doJSON(t, "POST", "/api/receipts/verify", "",
		map[string]any{"code": rcpt.ReceiptHash}, &verification)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, verification.Valid)
	assert.Equal(t, ballot.ID.String(), verification.BallotID)
	assert.Equal(t, rcpt.ShortCode, verification.ShortCode)

	resp = app.doJSON(t, "POST", "/api/receipts/verify", "",
		map[string]any{"code": strings.Repeat("0", 32)}, &verification)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, verification.Valid)

	resp = app.doJSON(t, "POST", "/api/receipts/verify", "",
		map[string]any{"code": "abc"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
