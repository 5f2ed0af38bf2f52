package ledger

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(DefaultTolerance)

	tests := []struct {
		name   string
		title  string
		total  int64
		payers Amounts
		shares Amounts
		want   error
	}{
		{
			name:   "valid",
			title:  "Dinner",
			total:  300,
			payers: Amounts{alice: 300},
			shares: Amounts{alice: 100, bob: 100, carol: 100},
		},
		{
			name:   "within tolerance",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: 100},
			shares: Amounts{alice: 33, bob: 33, carol: 33},
		},
		{
			name:   "blank title",
			title:  "   ",
			total:  100,
			payers: Amounts{alice: 100},
			shares: Amounts{alice: 100},
			want:   ErrEmptyTitleOrAmount,
		},
		{
			name:   "zero total",
			title:  "Dinner",
			total:  0,
			payers: Amounts{alice: 0},
			shares: Amounts{alice: 0},
			want:   ErrEmptyTitleOrAmount,
		},
		{
			name:   "negative total",
			title:  "Dinner",
			total:  -10,
			payers: Amounts{alice: -10},
			shares: Amounts{alice: -10},
			want:   ErrEmptyTitleOrAmount,
		},
		{
			name:   "no payers",
			title:  "Dinner",
			total:  100,
			payers: Amounts{},
			shares: Amounts{alice: 100},
			want:   ErrNoPayers,
		},
		{
			name:   "only zero payers",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: 0},
			shares: Amounts{alice: 100},
			want:   ErrNoPayers,
		},
		{
			name:   "no participants",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: 100},
			shares: nil,
			want:   ErrNoParticipants,
		},
		{
			name:   "payer short by five",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: 95},
			shares: Amounts{alice: 50, bob: 50},
			want:   ErrPayerSumMismatch,
		},
		{
			name:   "shares over total",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: 100},
			shares: Amounts{alice: 60, bob: 60},
			want:   ErrShareSumMismatch,
		},
		{
			name:   "negative share",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: 100},
			shares: Amounts{alice: 150, bob: -50},
			want:   ErrNegativeAmount,
		},
		{
			name:   "payers wrap around to the total",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: math.MaxInt64, bob: math.MaxInt64, carol: 102},
			shares: Amounts{alice: 100},
			want:   ErrPayerSumMismatch,
		},
		{
			name:   "share larger than total",
			title:  "Dinner",
			total:  100,
			payers: Amounts{alice: 100},
			shares: Amounts{alice: 101},
			want:   ErrShareSumMismatch,
		},
		{
			name:   "shares overflow",
			title:  "Dinner",
			total:  math.MaxInt64,
			payers: Amounts{alice: math.MaxInt64},
			shares: Amounts{alice: math.MaxInt64, bob: math.MaxInt64, carol: 2},
			want:   ErrShareSumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.title, tt.total, tt.payers, tt.shares)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestValidator_ZeroTolerance(t *testing.T) {
	v := NewValidator(0)

	err := v.Validate("Dinner", 100, Amounts{alice: 100}, Amounts{alice: 50, bob: 49})
	assert.ErrorIs(t, err, ErrShareSumMismatch)

	assert.Equal(t, int64(0), NewValidator(-3).Tolerance)
}

func TestAverageSplit_SumsExactly(t *testing.T) {
	members := makeMembers(13)
	for n := 1; n <= len(members); n++ {
		for _, total := range []int64{1, 2, 7, 99, 100, 101, 1000, 999_999, 1_000_003} {
			shares, err := AverageSplit(total, members[:n])
			require.NoError(t, err)
			assert.Equal(t, total, shares.Sum(), "total %d among %d", total, n)
			assert.Len(t, shares, n)
		}
	}
}

func TestAverageSplit_RemainderGoesToLowestIDs(t *testing.T) {
	shares, err := AverageSplit(100, []uuid.UUID{carol, alice, bob})
	require.NoError(t, err)

	assert.Equal(t, Amounts{alice: 34, bob: 33, carol: 33}, shares)

	shares, err = AverageSplit(101, []uuid.UUID{dave, carol, bob, alice})
	require.NoError(t, err)
	assert.Equal(t, Amounts{alice: 26, bob: 25, carol: 25, dave: 25}, shares)
}

func TestAverageSplit_Errors(t *testing.T) {
	_, err := AverageSplit(100, nil)
	assert.ErrorIs(t, err, ErrNoParticipants)

	_, err = AverageSplit(0, []uuid.UUID{alice})
	assert.ErrorIs(t, err, ErrEmptyTitleOrAmount)

	_, err = AverageSplit(100, []uuid.UUID{alice, bob, alice})
	assert.ErrorIs(t, err, ErrDuplicateMember)
}

func TestReconcile(t *testing.T) {
	t.Run("exact input is unchanged", func(t *testing.T) {
		in := Amounts{alice: 60, bob: 40}
		assert.Equal(t, in, Reconcile(100, in))
	})

	t.Run("shortfall goes to the largest entry", func(t *testing.T) {
		got := Reconcile(100, Amounts{alice: 33, bob: 33, carol: 33})
		assert.Equal(t, Amounts{alice: 34, bob: 33, carol: 33}, got)
	})

	t.Run("excess comes off the largest entry", func(t *testing.T) {
		got := Reconcile(100, Amounts{alice: 20, bob: 81})
		assert.Equal(t, Amounts{alice: 20, bob: 80}, got)
	})

	t.Run("tie goes to the lowest id", func(t *testing.T) {
		got := Reconcile(10, Amounts{alice: 6, bob: 6})
		assert.Equal(t, Amounts{alice: 4, bob: 6}, got)
	})

	t.Run("excess larger than one entry", func(t *testing.T) {
		got := Reconcile(1, Amounts{alice: 1, bob: 1, carol: 1})
		assert.Equal(t, Amounts{carol: 1}, got)
	})

	t.Run("zero entries dropped", func(t *testing.T) {
		got := Reconcile(100, Amounts{alice: 100, bob: 0})
		assert.Equal(t, Amounts{alice: 100}, got)
	})

	t.Run("input not mutated", func(t *testing.T) {
		in := Amounts{alice: 33, bob: 33, carol: 33}
		Reconcile(100, in)
		assert.Equal(t, int64(99), in.Sum())
	})
}

func TestEntriesToAmounts(t *testing.T) {
	got, err := EntriesToAmounts([]Entry{{MemberID: alice, Amount: 10}, {MemberID: bob, Amount: 5}})
	require.NoError(t, err)
	assert.Equal(t, Amounts{alice: 10, bob: 5}, got)

	_, err = EntriesToAmounts([]Entry{{MemberID: alice, Amount: 10}, {MemberID: alice, Amount: 5}})
	assert.ErrorIs(t, err, ErrDuplicateMember)
}
