package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	first, second := scenario()[0], scenario()[1]

	id, err := s.Create(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)
	_, err = s.Create(ctx, second)
	require.NoError(t, err)

	_, err = s.Create(ctx, first)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.Get(ctx, tripID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got)

	edited := first
	edited.Title = "Late dinner"
	require.NoError(t, s.Replace(ctx, first.ID, edited))

	all, err := s.ListByTrip(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Late dinner", all[0].Title, "replace keeps position")
	assert.Equal(t, second.ID, all[1].ID)

	require.NoError(t, s.Delete(ctx, tripID, first.ID))
	assert.ErrorIs(t, s.Delete(ctx, tripID, first.ID), ErrNotFound)
	assert.ErrorIs(t, s.Replace(ctx, first.ID, edited), ErrNotFound)
	_, err = s.Get(ctx, tripID, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_AssignsIDs(t *testing.T) {
	s := NewMemoryStore()
	e := scenario()[0]
	e.ID = uuid.Nil

	id, err := s.Create(context.Background(), e)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	e := scenario()[0]
	_, err := s.Create(ctx, e)
	require.NoError(t, err)

	e.ParticipantShares[alice] = 1_000_000

	all, err := s.ListByTrip(ctx, tripID)
	require.NoError(t, err)
	all[0].PayerContributions[alice] = 0

	got, err := s.Get(ctx, tripID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ParticipantShares[alice])
	assert.Equal(t, int64(300), got.PayerContributions[alice])
}

func TestMemoryStore_TripsAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	e := scenario()[0]
	_, err := s.Create(ctx, e)
	require.NoError(t, err)

	other := uuid.New()
	all, err := s.ListByTrip(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, s.Delete(ctx, other, e.ID), ErrNotFound)
}
