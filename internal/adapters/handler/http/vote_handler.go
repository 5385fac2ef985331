package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/ports"
	"github.com/wevote/api/internal/core/receipt"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type castVoteRequest struct {
	Choice    string   `json:"choice"`
	Approvals []string `json:"approvals"`
	Ranking   []string `json:"ranking"`
}

// CastVote godoc
// @Summary      Casts a vote on a ballot
// @Description  Records the caller's vote and returns a receipt. Re-voting replaces the previous vote and issues a new receipt.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      403
// @Failure      429
// @Router       /ballots/{id}/votes [post]
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	ballotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ballot id", http.StatusBadRequest)
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	input := ports.CastVoteInput{
		BallotID:  ballotID,
		VoterID:   userID,
		Choice:    req.Choice,
		Approvals: req.Approvals,
		Ranking:   req.Ranking,
	}

	receipt, err := h.service.Cast(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(receipt); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

type verifyReceiptRequest struct {
	Code     string `json:"code"`
	BallotID string `json:"ballot_id"`
}

// VerifyReceipt godoc
// @Summary      Verifies a vote receipt
// @Description  Accepts a short code or full receipt hash and reports whether a matching vote exists. No authentication required.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400
// @Router       /receipts/verify [post]
func (h *VoteHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var req verifyReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	code := strings.TrimSpace(req.Code)
	code = strings.TrimPrefix(code, receipt.ShortCodePrefix)

	var ballotID *uuid.UUID
	if req.BallotID != "" {
		id, err := uuid.Parse(req.BallotID)
		if err != nil {
			http.Error(w, "invalid ballot id", http.StatusBadRequest)
			return
		}
		ballotID = &id
	}

	verification, err := h.service.VerifyReceipt(r.Context(), code, ballotID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(verification); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
