package ledger

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

var (
	alice = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bob   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	carol = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	dave  = uuid.MustParse("00000000-0000-0000-0000-000000000004")

	tripID = uuid.MustParse("10000000-0000-0000-0000-000000000001")
)

// scenario returns the two expenses of the three-member example:
// A paid 300 split three ways, B paid 150 split three ways.
func scenario() []Expense {
	return []Expense{
		{
			ID:                 uuid.New(),
			TripID:             tripID,
			Title:              "Dinner",
			TotalAmount:        300,
			PayerContributions: Amounts{alice: 300},
			ParticipantShares:  Amounts{alice: 100, bob: 100, carol: 100},
		},
		{
			ID:                 uuid.New(),
			TripID:             tripID,
			Title:              "Taxi",
			TotalAmount:        150,
			PayerContributions: Amounts{bob: 150},
			ParticipantShares:  Amounts{alice: 50, bob: 50, carol: 50},
		},
	}
}

// randomExpenses builds n exact expenses among members.
func randomExpenses(r *rand.Rand, members []uuid.UUID, n int) []Expense {
	expenses := make([]Expense, 0, n)
	for range n {
		total := r.Int64N(100_000) + 1
		payers := randomSplit(r, members, total)
		var participants []uuid.UUID
		for _, m := range members {
			if r.IntN(2) == 0 {
				participants = append(participants, m)
			}
		}
		if len(participants) == 0 {
			participants = members[:1]
		}
		shares, _ := AverageSplit(total, participants)
		expenses = append(expenses, Expense{
			ID:                 uuid.New(),
			TripID:             tripID,
			Title:              "random",
			TotalAmount:        total,
			PayerContributions: payers,
			ParticipantShares:  shares,
		})
	}
	return expenses
}

func randomSplit(r *rand.Rand, members []uuid.UUID, total int64) Amounts {
	out := Amounts{}
	left := total
	for i, m := range members {
		if i == len(members)-1 || left == 0 {
			out[m] += left
			break
		}
		part := r.Int64N(left + 1)
		out[m] += part
		left -= part
	}
	return out
}

func sumBalances(b map[uuid.UUID]int64) int64 {
	var total int64
	for _, v := range b {
		total += v
	}
	return total
}

func makeMembers(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}
