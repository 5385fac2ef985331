package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/ports"
)

type LedgerHandler struct {
	service ports.LedgerService
}

func NewLedgerHandler(service ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		service: service,
	}
}

// ListEntries godoc
// @Summary      Lists ledger entries
// @Description  Returns sanitized ledger entries, newest first. The limit query parameter caps the page size.
// @Tags         ledger
// @Produce      json
// @Success      200
// @Router       /ledger [get]
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"entries": entries}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// ExportChain godoc
// @Summary      Exports the full ledger
// @Description  Returns every ledger entry ordered by seq, including canonical bytes and signatures, for offline chain verification.
// @Tags         ledger
// @Produce      json
// @Success      200
// @Router       /ledger/export [get]
func (h *LedgerHandler) ExportChain(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Chain(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// ExportReport godoc
// @Summary      Exports a verification report for a tallied ballot
// @Description  Bundles the ballot outcome, its ledger entry, anonymized votes and receipt hashes so the result can be re-verified offline.
// @Tags         ledger
// @Produce      json
// @Success      200
// @Failure      404
// @Failure      412
// @Router       /ballots/{id}/report [get]
func (h *LedgerHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	ballotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ballot id", http.StatusBadRequest)
		return
	}

	report, err := h.service.Export(r.Context(), ballotID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
