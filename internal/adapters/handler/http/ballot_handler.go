package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

type BallotHandler struct {
	service      ports.BallotService
	tallyService ports.TallyService
}

func NewBallotHandler(service ports.BallotService, tallyService ports.TallyService) *BallotHandler {
	return &BallotHandler{
		service:      service,
		tallyService: tallyService,
	}
}

type ballotOptionRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type createBallotRequest struct {
	ConcernID       string                `json:"concern_id"`
	Type            string                `json:"type"`
	Options         []ballotOptionRequest `json:"options"`
	DurationMinutes int                   `json:"duration_minutes"`
	MinTier         string                `json:"min_tier"`
	Regions         []string              `json:"regions"`
}

// CreateBallot godoc
// @Summary      Opens a ballot on a concern
// @Description  Creates a ballot with a fixed option set. At most one open ballot may exist per concern.
// @Tags         ballots
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      409
// @Failure      429
// @Router       /ballots [post]
func (h *BallotHandler) CreateBallot(w http.ResponseWriter, r *http.Request) {
	var req createBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	concernID, err := uuid.Parse(req.ConcernID)
	if err != nil {
		http.Error(w, "invalid concern id", http.StatusBadRequest)
		return
	}

	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	options := make([]ports.BallotOptionInput, len(req.Options))
	for i, o := range req.Options {
		options[i] = ports.BallotOptionInput{ID: o.ID, Label: o.Label}
	}

	input := ports.CreateBallotInput{
		CreatorID:       userID,
		ConcernID:       concernID,
		Type:            domain.BallotType(req.Type),
		Options:         options,
		DurationMinutes: req.DurationMinutes,
		MinTier:         req.MinTier,
		Regions:         req.Regions,
	}

	ballot, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(ballot); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *BallotHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	ballotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ballot id", http.StatusBadRequest)
		return
	}

	ballot, err := h.service.Get(r.Context(), ballotID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ballot); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// TallyBallot godoc
// @Summary      Tallies a ballot
// @Description  Computes the outcome, appends it to the transparency ledger and closes the ballot. Idempotent; only the creator may tally.
// @Tags         ballots
// @Produce      json
// @Success      200
// @Failure      403
// @Failure      404
// @Router       /ballots/{id}/tally [post]
func (h *BallotHandler) TallyBallot(w http.ResponseWriter, r *http.Request) {
	ballotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ballot id", http.StatusBadRequest)
		return
	}

	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	results, err := h.tallyService.Tally(r.Context(), ballotID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"results": results}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidBallotType),
		errors.Is(err, domain.ErrInvalidMinTier),
		errors.Is(err, domain.ErrTooFewOptions),
		errors.Is(err, domain.ErrInvalidVote),
		errors.Is(err, domain.ErrInvalidReceipt):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrBallotNotFound),
		errors.Is(err, domain.ErrConcernNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrOpenBallotExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrBallotClosed),
		errors.Is(err, domain.ErrBallotNotTallied),
		errors.Is(err, domain.ErrReceiptSecretMissing):
		http.Error(w, err.Error(), http.StatusPreconditionFailed)
	case errors.Is(err, domain.ErrNotBallotCreator),
		errors.Is(err, domain.ErrTierTooLow),
		errors.Is(err, domain.ErrRegionNotEligible):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
