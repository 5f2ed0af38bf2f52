package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/billbatista/tripledger/ledger"
	"github.com/google/uuid"
)

type expenseRequest struct {
	Title              string         `json:"title"`
	TotalAmount        int64          `json:"totalAmount"` // minor units
	CategoryID         string         `json:"categoryId"`
	Date               string         `json:"date"`
	PayerContributions []ledger.Entry `json:"payerContributions"`
	ParticipantShares  []ledger.Entry `json:"participantShares"`
	SplitEqually       []uuid.UUID    `json:"splitEqually"`
}

// input converts the request, rejecting members listed twice.
func (req expenseRequest) input() (ledger.ExpenseInput, error) {
	payers, err := ledger.EntriesToAmounts(req.PayerContributions)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	shares, err := ledger.EntriesToAmounts(req.ParticipantShares)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	return ledger.ExpenseInput{
		Title:              req.Title,
		CategoryID:         req.CategoryID,
		TotalAmount:        req.TotalAmount,
		Date:               date,
		PayerContributions: payers,
		ParticipantShares:  shares,
		SplitEqually:       req.SplitEqually,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type expenseResponse struct {
	ID                 uuid.UUID      `json:"id"`
	TripID             uuid.UUID      `json:"tripId"`
	Title              string         `json:"title"`
	CategoryID         string         `json:"categoryId"`
	TotalAmount        int64          `json:"totalAmount"`
	Display            string         `json:"display"`
	Date               *time.Time     `json:"date,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	IsSettlement       bool           `json:"isSettlement"`
	PayerContributions []ledger.Entry `json:"payerContributions"`
	ParticipantShares  []ledger.Entry `json:"participantShares"`
}

func (h *Handler) expenseResponse(e ledger.Expense) expenseResponse {
	resp := expenseResponse{
		ID:                 e.ID,
		TripID:             e.TripID,
		Title:              e.Title,
		CategoryID:         e.CategoryID,
		TotalAmount:        e.TotalAmount,
		Display:            h.display(e.TotalAmount),
		CreatedAt:          e.CreatedAt,
		IsSettlement:       e.IsSettlement(),
		PayerContributions: entries(e.PayerContributions),
		ParticipantShares:  entries(e.ParticipantShares),
	}
	if !e.Date.IsZero() {
		resp.Date = &e.Date
	}
	return resp
}

func entries(a ledger.Amounts) []ledger.Entry {
	out := make([]ledger.Entry, 0, len(a))
	for _, id := range a.Members() {
		out = append(out, ledger.Entry{MemberID: id, Amount: a[id]})
	}
	return out
}

func (h *Handler) decodeExpense(w http.ResponseWriter, r *http.Request) (ledger.ExpenseInput, bool) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return ledger.ExpenseInput{}, false
	}
	in, err := req.input()
	if err != nil {
		if ledger.IsValidation(err) {
			writeError(w, err)
		} else {
			badRequest(w, "invalid date")
		}
		return ledger.ExpenseInput{}, false
	}
	return in, true
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}

	expenses, err := h.ledger.ListExpenses(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, h.expenseResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}
	in, ok := h.decodeExpense(w, r)
	if !ok {
		return
	}

	expense, err := h.ledger.CreateExpense(r.Context(), tripID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.expenseResponse(expense))
}

func (h *Handler) editExpense(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}
	expenseID, ok := idParam(r, "expenseID")
	if !ok {
		badRequest(w, "invalid expense id")
		return
	}
	in, ok := h.decodeExpense(w, r)
	if !ok {
		return
	}

	expense, err := h.ledger.EditExpense(r.Context(), tripID, expenseID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.expenseResponse(expense))
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	tripID, ok := idParam(r, "tripID")
	if !ok {
		badRequest(w, "invalid trip id")
		return
	}
	expenseID, ok := idParam(r, "expenseID")
	if !ok {
		badRequest(w, "invalid expense id")
		return
	}

	if err := h.ledger.DeleteExpense(r.Context(), tripID, expenseID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
