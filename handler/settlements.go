package handler

import (
	"encoding/json"
	"net/http"

	"github.com/billbatista/tripledger/ledger"
	"github.com/google/uuid"
)

type memberBalance struct {
	MemberID uuid.UUID `json:"memberId"`
	Name     string    `json:"name,omitempty"`
	Amount   int64     `json:"amount"`
	Display  string    `json:"display"`
}

type balancesResponse struct {
	Balances map[uuid.UUID]int64 `json:"balances"`
	Members  []memberBalance     `json:"members"`
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}

	balances, err := h.ledger.GetBalances(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}

	names := h.names(r.Context(), tripID)
	resp := balancesResponse{Balances: balances, Members: []memberBalance{}}
	for _, b := range ledger.SortedBalances(balances) {
		resp.Members = append(resp.Members, memberBalance{
			MemberID: b.MemberID,
			Name:     names[b.MemberID],
			Amount:   b.Amount,
			Display:  h.display(b.Amount),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type transferResponse struct {
	From     uuid.UUID `json:"from"`
	FromName string    `json:"fromName,omitempty"`
	To       uuid.UUID `json:"to"`
	ToName   string    `json:"toName,omitempty"`
	Amount   int64     `json:"amount"`
	Display  string    `json:"display"`
}

func (h *Handler) settlementPlan(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}

	transfers, err := h.ledger.GetSettlementPlan(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}

	names := h.names(r.Context(), tripID)
	out := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, transferResponse{
			From:     t.From,
			FromName: names[t.From],
			To:       t.To,
			ToName:   names[t.To],
			Amount:   t.Amount,
			Display:  h.display(t.Amount),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": out})
}

type spendingResponse struct {
	Total      int64            `json:"total"`
	Display    string           `json:"display"`
	ByCategory map[string]int64 `json:"byCategory"`
}

func (h *Handler) spending(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}

	s, err := h.ledger.GetSpending(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spendingResponse{Total: s.Total, Display: h.display(s.Total), ByCategory: s.ByCategory})
}

type settleRequest struct {
	From   uuid.UUID `json:"from"`
	To     uuid.UUID `json:"to"`
	Amount int64     `json:"amount"`
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	id, err := h.ledger.Settle(r.Context(), tripID, req.From, req.To, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"settlementId": id})
}

func (h *Handler) undoSettle(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}
	settlementID, ok := idParam(r, "settlementID")
	if !ok {
		badRequest(w, "invalid settlement id")
		return
	}

	if err := h.ledger.UndoSettle(r.Context(), tripID, settlementID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
