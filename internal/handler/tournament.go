package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/protocol"
)

// batch bodies larger than this are rejected outright
const maxAwardBatchBytes = 1 << 20

// AwardProcessor ingests one tournament award batch.
type AwardProcessor interface {
	Process(ctx context.Context, awards []domain.TournamentAward) (*protocol.TournamentResult, error)
}

// TournamentHandler serves POST tournament/handle.
type TournamentHandler struct {
	processor AwardProcessor
	logger    *slog.Logger
}

// NewTournamentHandler creates the handler.
func NewTournamentHandler(processor AwardProcessor, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{processor: processor, logger: logger}
}

// Handle ingests an awards batch and answers with the fan-out summary.
func (h *TournamentHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAwardBatchBytes)

	var awards []domain.TournamentAward
	if err := DecodeJSON(r, &awards); err != nil {
		RespondError(w, domain.ErrValidation("invalid award batch"))
		return
	}

	result, err := h.processor.Process(r.Context(), awards)
	if err != nil {
		h.logger.Error("award batch rejected", "count", len(awards), "error", err)
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}
