package handler

import (
	"log/slog"
	"net/http"
)

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}

	events, err := h.audit.GetByTrip(r.Context(), tripID)
	if err != nil {
		slog.Error("failed to read audit events", "trip_id", tripID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
