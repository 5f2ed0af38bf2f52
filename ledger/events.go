package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventExpenseCreated     = "expense.created"
	EventExpenseEdited      = "expense.edited"
	EventExpenseDeleted     = "expense.deleted"
	EventSettlementRecorded = "settlement.recorded"
	EventSettlementUndone   = "settlement.undone"
)

// EventSink receives a notice after each committed mutation. It must not
// block; eventlogger.Worker satisfies it.
type EventSink interface {
	Record(ctx context.Context, eventType string, data any)
}

type ExpenseChangedEvent struct {
	TripID             uuid.UUID `json:"trip_id"`
	ExpenseID          uuid.UUID `json:"expense_id"`
	Title              string    `json:"title,omitempty"`
	Category           string    `json:"category,omitempty"`
	AmountCents        int64     `json:"amount_cents,omitempty"` // Total amount in cents
	PayerContributions Amounts   `json:"payer_contributions,omitempty"`
	ParticipantShares  Amounts   `json:"participant_shares,omitempty"`
	Date               time.Time `json:"date,omitzero"`
}

type SettlementEvent struct {
	TripID       uuid.UUID `json:"trip_id"`
	SettlementID uuid.UUID `json:"settlement_id"`
	From         uuid.UUID `json:"from"`
	To           uuid.UUID `json:"to"`
	AmountCents  int64     `json:"amount_cents"`
}

func (e ExpenseChangedEvent) Trip() uuid.UUID { return e.TripID }

func (e SettlementEvent) Trip() uuid.UUID { return e.TripID }

func expenseEvent(e Expense) ExpenseChangedEvent {
	return ExpenseChangedEvent{
		TripID:             e.TripID,
		ExpenseID:          e.ID,
		Title:              e.Title,
		Category:           e.CategoryID,
		AmountCents:        e.TotalAmount,
		PayerContributions: e.PayerContributions,
		ParticipantShares:  e.ParticipantShares,
		Date:               e.Date,
	}
}

type discardSink struct{}

func (discardSink) Record(context.Context, string, any) {}
