package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettlement(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := NewSettlement(tripID, carol, alice, 150, now)
	require.NoError(t, err)

	assert.True(t, s.IsSettlement())
	assert.Equal(t, Amounts{carol: 150}, s.PayerContributions)
	assert.Equal(t, Amounts{alice: 150}, s.ParticipantShares)
	assert.Equal(t, int64(150), s.TotalAmount)
	assert.NoError(t, NewValidator(0).Validate(s.Title, s.TotalAmount, s.PayerContributions, s.ParticipantShares))

	tr, ok := SettlementOf(s)
	require.True(t, ok)
	assert.Equal(t, Transfer{From: carol, To: alice, Amount: 150}, tr)
}

func TestNewSettlement_Rejects(t *testing.T) {
	_, err := NewSettlement(tripID, carol, alice, 0, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransferAmount)

	_, err = NewSettlement(tripID, carol, alice, -5, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransferAmount)

	_, err = NewSettlement(tripID, alice, alice, 5, time.Now())
	assert.ErrorIs(t, err, ErrSelfTransfer)
}

func TestSettlementOf_RegularExpense(t *testing.T) {
	_, ok := SettlementOf(scenario()[0])
	assert.False(t, ok)
}

func TestSettlementLedger_SettleAndUndo(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, e := range scenario() {
		_, err := store.Create(ctx, e)
		require.NoError(t, err)
	}
	l := NewSettlementLedger(store)

	before := balancesOf(t, store)

	s, err := l.Settle(ctx, tripID, carol, alice, 150)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{alice: 0, bob: 0, carol: 0}, balancesOf(t, store))

	undone, err := l.UndoSettle(ctx, tripID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, undone.ID)
	assert.Equal(t, before, balancesOf(t, store))

	_, err = l.UndoSettle(ctx, tripID, s.ID)
	assert.ErrorIs(t, err, ErrSettlementNotFound)
}

func TestSettlementLedger_UndoRefusesRegularExpense(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	expense := scenario()[0]
	_, err := store.Create(ctx, expense)
	require.NoError(t, err)

	_, err = NewSettlementLedger(store).UndoSettle(ctx, tripID, expense.ID)
	assert.ErrorIs(t, err, ErrSettlementNotFound)

	all, err := store.ListByTrip(ctx, tripID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func balancesOf(t *testing.T, store Store) map[uuid.UUID]int64 {
	t.Helper()
	expenses, err := store.ListByTrip(context.Background(), tripID)
	require.NoError(t, err)
	return ComputeBalances(expenses)
}
