package ledger

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// Planner turns balances into transfers that bring every member back to
// (near) zero.
type Planner interface {
	Plan(balances map[uuid.UUID]int64) []Transfer
}

// GreedyPlanner pairs the largest debtor with the largest creditor until
// one side runs out. It is deterministic and emits at most members-1
// transfers, but does not always find the fewest possible transfers; that
// problem is NP-hard and would need a different Planner.
//
// With Tolerance zero, applying the plan brings every balance to exactly
// zero. With a positive Tolerance, members within Tolerance of zero are left
// out and a side is done once it is within Tolerance, so those small
// remainders are not redistributed: no balance changes sign and every
// member ends within Tolerance*(members-1) of zero, but not necessarily
// within Tolerance.
type GreedyPlanner struct {
	// Balances within Tolerance of zero count as settled.
	Tolerance int64
}

type position struct {
	id     uuid.UUID
	amount int64 // magnitude still to move
}

func (p GreedyPlanner) Plan(balances map[uuid.UUID]int64) []Transfer {
	var debtors, creditors []position
	for id, b := range balances {
		switch {
		case b < -p.Tolerance:
			debtors = append(debtors, position{id: id, amount: -b})
		case b > p.Tolerance:
			creditors = append(creditors, position{id: id, amount: b})
		}
	}

	// Largest magnitude first, then member id.
	byMagnitude := func(a, b position) int {
		if c := cmp.Compare(b.amount, a.amount); c != 0 {
			return c
		}
		return compareIDs(a.id, b.id)
	}
	slices.SortFunc(debtors, byMagnitude)
	slices.SortFunc(creditors, byMagnitude)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]
		amount := min(d.amount, c.amount)
		transfers = append(transfers, Transfer{From: d.id, To: c.id, Amount: amount})
		d.amount -= amount
		c.amount -= amount
		if d.amount <= p.Tolerance {
			i++
		}
		if c.amount <= p.Tolerance {
			j++
		}
	}
	return transfers
}
