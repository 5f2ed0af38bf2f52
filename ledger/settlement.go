package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NewSettlement builds the record for from repaying amount to to. It is an
// ordinary expense paid by from with to as the only participant, so the
// balance fold treats it like any other record.
func NewSettlement(tripID, from, to uuid.UUID, amount int64, now time.Time) (Expense, error) {
	if amount <= 0 {
		return Expense{}, invalid(ErrInvalidTransferAmount, "got %d", amount)
	}
	if from == to {
		return Expense{}, &ValidationError{Reason: ErrSelfTransfer}
	}
	return Expense{
		ID:                 uuid.New(),
		TripID:             tripID,
		Title:              "Settlement",
		CategoryID:         CategorySettlement,
		TotalAmount:        amount,
		Date:               now,
		CreatedAt:          now,
		PayerContributions: Amounts{from: amount},
		ParticipantShares:  Amounts{to: amount},
	}, nil
}

// SettlementOf returns the transfer a settlement record represents.
func SettlementOf(e Expense) (Transfer, bool) {
	if !e.IsSettlement() || len(e.PayerContributions) != 1 || len(e.ParticipantShares) != 1 {
		return Transfer{}, false
	}
	var t Transfer
	for id := range e.PayerContributions {
		t.From = id
	}
	for id := range e.ParticipantShares {
		t.To = id
	}
	t.Amount = e.TotalAmount
	return t, true
}

// SettlementLedger records and reverses settlements through a Store. It
// doesn't lock; the Coordinator serializes calls per trip.
type SettlementLedger struct {
	store Store
	now   func() time.Time
}

func NewSettlementLedger(store Store) *SettlementLedger {
	return &SettlementLedger{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (l *SettlementLedger) Settle(ctx context.Context, tripID, from, to uuid.UUID, amount int64) (Expense, error) {
	settlement, err := NewSettlement(tripID, from, to, amount, l.now())
	if err != nil {
		return Expense{}, err
	}

	id, err := l.store.Create(ctx, settlement)
	if err != nil {
		return Expense{}, storeFailure("create settlement", err)
	}
	settlement.ID = id
	return settlement, nil
}

// UndoSettle deletes a settlement. Regular expenses are never matched, so
// an expense id yields ErrSettlementNotFound.
func (l *SettlementLedger) UndoSettle(ctx context.Context, tripID, settlementID uuid.UUID) (Expense, error) {
	existing, err := l.store.Get(ctx, tripID, settlementID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Expense{}, ErrSettlementNotFound
		}
		return Expense{}, storeFailure("get settlement", err)
	}
	if !existing.IsSettlement() {
		return Expense{}, ErrSettlementNotFound
	}

	if err := l.store.Delete(ctx, tripID, settlementID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Expense{}, ErrSettlementNotFound
		}
		return Expense{}, storeFailure("delete settlement", err)
	}
	return *existing, nil
}

// storeFailure makes sure anything coming back from a Store surfaces as a
// *StoreError, keeping the original error reachable. Context errors are
// passed through untouched.
func storeFailure(op string, err error) error {
	if IsCanceled(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
