package ledger

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyTransfers(balances map[uuid.UUID]int64, transfers []Transfer) map[uuid.UUID]int64 {
	out := make(map[uuid.UUID]int64, len(balances))
	for id, b := range balances {
		out[id] = b
	}
	for _, t := range transfers {
		out[t.From] += t.Amount
		out[t.To] -= t.Amount
	}
	return out
}

func TestGreedyPlanner_Scenario(t *testing.T) {
	transfers := GreedyPlanner{}.Plan(ComputeBalances(scenario()))

	assert.Equal(t, []Transfer{{From: carol, To: alice, Amount: 150}}, transfers)
}

func TestGreedyPlanner_LargestFirst(t *testing.T) {
	balances := map[uuid.UUID]int64{alice: 100, bob: 50, carol: -120, dave: -30}

	transfers := GreedyPlanner{}.Plan(balances)

	assert.Equal(t, []Transfer{
		{From: carol, To: alice, Amount: 100},
		{From: carol, To: bob, Amount: 20},
		{From: dave, To: bob, Amount: 30},
	}, transfers)
}

func TestGreedyPlanner_TiesBreakByMemberID(t *testing.T) {
	balances := map[uuid.UUID]int64{dave: 50, bob: 50, carol: -50, alice: -50}

	for range 20 {
		transfers := GreedyPlanner{}.Plan(balances)
		assert.Equal(t, []Transfer{
			{From: alice, To: bob, Amount: 50},
			{From: carol, To: dave, Amount: 50},
		}, transfers)
	}
}

func TestGreedyPlanner_SettledMembersExcluded(t *testing.T) {
	assert.Empty(t, GreedyPlanner{}.Plan(map[uuid.UUID]int64{alice: 0, bob: 0}))
	assert.Empty(t, GreedyPlanner{}.Plan(nil))

	transfers := GreedyPlanner{Tolerance: 1}.Plan(map[uuid.UUID]int64{alice: 1, bob: -1})
	assert.Empty(t, transfers)
}

func TestGreedyPlanner_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for range 200 {
		members := makeMembers(r.IntN(12) + 1)
		balances := ComputeBalances(randomExpenses(r, members, r.IntN(20)+1), members...)

		transfers := GreedyPlanner{}.Plan(balances)

		require.LessOrEqual(t, len(transfers), len(members)-1)
		for _, tr := range transfers {
			assert.Positive(t, tr.Amount)
			assert.NotEqual(t, tr.From, tr.To)
		}
		for id, b := range applyTransfers(balances, transfers) {
			assert.Zero(t, b, "member %s left unsettled", id)
		}
	}
}

func TestGreedyPlanner_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	members := makeMembers(9)
	balances := ComputeBalances(randomExpenses(r, members, 25), members...)

	want := GreedyPlanner{}.Plan(balances)
	for range 20 {
		assert.Equal(t, want, GreedyPlanner{}.Plan(balances))
	}
}

func TestGreedyPlanner_ToleranceProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 10))
	for range 200 {
		members := makeMembers(r.IntN(12) + 1)
		balances := ComputeBalances(randomExpenses(r, members, r.IntN(20)+1), members...)
		tolerance := int64(r.IntN(5) + 1)

		transfers := GreedyPlanner{Tolerance: tolerance}.Plan(balances)

		require.LessOrEqual(t, len(transfers), max(len(members)-1, 0))
		for _, tr := range transfers {
			assert.Positive(t, tr.Amount)
			assert.Less(t, balances[tr.From], -tolerance, "only debtors pay")
			assert.Greater(t, balances[tr.To], tolerance, "only creditors receive")
		}

		bound := tolerance * int64(len(members)-1)
		for id, after := range applyTransfers(balances, transfers) {
			before := balances[id]
			if abs(before) <= tolerance {
				assert.Equal(t, before, after, "settled member %s was moved", id)
			}
			assert.False(t, before < 0 && after > 0 || before > 0 && after < 0, "member %s changed sign", id)
			assert.LessOrEqual(t, abs(after), max(bound, tolerance), "member %s left at %d", id, after)
		}
	}
}

func TestGreedyPlanner_ToleranceRemaindersAreNotRedistributed(t *testing.T) {
	erin := uuid.MustParse("00000000-0000-0000-0000-000000000005")
	balances := map[uuid.UUID]int64{alice: 3, bob: 3, carol: -2, dave: -2, erin: -2}

	transfers := GreedyPlanner{Tolerance: 1}.Plan(balances)

	assert.Equal(t, []Transfer{
		{From: carol, To: alice, Amount: 2},
		{From: dave, To: bob, Amount: 2},
	}, transfers)
	assert.Equal(t, map[uuid.UUID]int64{alice: 1, bob: 1, carol: 0, dave: 0, erin: -2}, applyTransfers(balances, transfers))
}
