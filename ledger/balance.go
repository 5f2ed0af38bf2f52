package ledger

import (
	"slices"

	"github.com/google/uuid"
)

// ComputeBalances folds a trip's records into one net amount per member.
// Payers are credited with what they paid and participants are debited
// their share. Every member in members starts at zero so members without
// records still appear.
func ComputeBalances(expenses []Expense, members ...uuid.UUID) map[uuid.UUID]int64 {
	balances := make(map[uuid.UUID]int64, len(members))

	for _, id := range members {
		balances[id] = 0
	}

	for _, expense := range expenses {
		for id, amount := range expense.PayerContributions {
			balances[id] += amount
		}
		for id, amount := range expense.ParticipantShares {
			balances[id] -= amount
		}
	}

	return balances
}

// SortedBalances returns balances ordered by member id.
func SortedBalances(balances map[uuid.UUID]int64) []Balance {
	out := make([]Balance, 0, len(balances))
	for id, amount := range balances {
		out = append(out, Balance{MemberID: id, Amount: amount})
	}
	slices.SortFunc(out, func(a, b Balance) int { return compareIDs(a.MemberID, b.MemberID) })
	return out
}
