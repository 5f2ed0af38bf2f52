// Package handler exposes the trip ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Rhymond/go-money"
	"github.com/billbatista/tripledger/eventlogger"
	"github.com/billbatista/tripledger/ledger"
	"github.com/billbatista/tripledger/member"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Ledger is the part of ledger.Coordinator the handlers use.
type Ledger interface {
	CreateExpense(ctx context.Context, tripID uuid.UUID, in ledger.ExpenseInput) (ledger.Expense, error)
	EditExpense(ctx context.Context, tripID, expenseID uuid.UUID, in ledger.ExpenseInput) (ledger.Expense, error)
	DeleteExpense(ctx context.Context, tripID, expenseID uuid.UUID) error
	ListExpenses(ctx context.Context, tripID uuid.UUID) ([]ledger.Expense, error)
	GetBalances(ctx context.Context, tripID uuid.UUID) (map[uuid.UUID]int64, error)
	GetSettlementPlan(ctx context.Context, tripID uuid.UUID) ([]ledger.Transfer, error)
	GetSpending(ctx context.Context, tripID uuid.UUID) (ledger.Spending, error)
	Settle(ctx context.Context, tripID, from, to uuid.UUID, amount int64) (uuid.UUID, error)
	UndoSettle(ctx context.Context, tripID, settlementID uuid.UUID) error
}

// AuditLog reads back the events recorded for a trip.
type AuditLog interface {
	GetByTrip(ctx context.Context, tripID uuid.UUID) ([]eventlogger.Event, error)
}

type Handler struct {
	ledger   Ledger
	members  member.Directory
	audit    AuditLog
	currency string
}

// New builds the handlers. members may be nil, in which case responses
// carry ids without names. audit may be nil, in which case the events
// endpoint is not mounted.
func New(l Ledger, members member.Directory, audit AuditLog, currency string) *Handler {
	if currency == "" {
		currency = money.EUR
	}
	return &Handler{ledger: l, members: members, audit: audit, currency: currency}
}

// Routes mounts the trip endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/trips/{tripID}", func(r chi.Router) {
		r.Use(requestMetadata)

		r.Get("/expenses", h.listExpenses)
		r.Post("/expenses", h.createExpense)
		r.Put("/expenses/{expenseID}", h.editExpense)
		r.Delete("/expenses/{expenseID}", h.deleteExpense)

		r.Get("/balances", h.balances)
		r.Get("/settlement-plan", h.settlementPlan)
		r.Get("/spending", h.spending)

		r.Post("/settlements", h.settle)
		r.Delete("/settlements/{settlementID}", h.undoSettle)

		if h.audit != nil {
			r.Get("/events", h.events)
		}
	})
}

// requestMetadata tags the audit events of a request with where it came
// from.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimiddleware.GetReqID(ctx); id != "" {
			ctx = eventlogger.ContextWithMetadata(ctx, "request_id", id)
		}
		ctx = eventlogger.ContextWithMetadata(ctx, "remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// display formats minor units in the configured currency.
func (h *Handler) display(amount int64) string {
	return money.New(amount, h.currency).Display()
}

func (h *Handler) names(ctx context.Context, tripID uuid.UUID) map[uuid.UUID]string {
	if h.members == nil {
		return nil
	}
	members, err := h.members.Members(ctx, tripID)
	if err != nil {
		slog.Warn("failed to resolve member names", "trip_id", tripID, "error", err)
		return nil
	}
	return member.Names(members)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errorCodes = map[error]string{
	ledger.ErrEmptyTitleOrAmount:    "empty_title_or_amount",
	ledger.ErrPayerSumMismatch:      "payer_sum_mismatch",
	ledger.ErrShareSumMismatch:      "share_sum_mismatch",
	ledger.ErrNoPayers:              "no_payers",
	ledger.ErrNoParticipants:        "no_participants",
	ledger.ErrNegativeAmount:        "negative_amount",
	ledger.ErrDuplicateMember:       "duplicate_member",
	ledger.ErrUnknownMember:         "unknown_member",
	ledger.ErrInvalidTransferAmount: "invalid_transfer_amount",
	ledger.ErrSelfTransfer:          "self_transfer",
	ledger.ErrSettlementNotEditable: "settlement_not_editable",
	ledger.ErrReservedCategory:      "reserved_category",
	ledger.ErrExpenseNotFound:       "expense_not_found",
	ledger.ErrSettlementNotFound:    "settlement_not_found",
	ledger.ErrConflict:              "conflict",
}

func codeOf(err error) string {
	for sentinel, code := range errorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// writeError maps ledger failures onto status codes. Store failures are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsCanceled(err):
		slog.Warn("ledger request canceled", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: "canceled"})
	case ledger.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: codeOf(err)})
	case ledger.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeOf(err)})
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: codeOf(err)})
	default:
		slog.Error("ledger request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func idParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
