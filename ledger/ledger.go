package ledger

import (
	"bytes"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// CategorySettlement marks a record as a repayment between two members
// rather than spending. Settlements count toward balances but not toward
// spending totals.
const CategorySettlement = "settlement"

// DefaultTolerance is the slack, in minor units, allowed between a split and
// its declared total.
const DefaultTolerance int64 = 1

// Amounts maps a member to an amount in minor units (e.g. cents).
type Amounts map[uuid.UUID]int64

// Sum returns the total of all entries.
func (a Amounts) Sum() int64 {
	var total int64
	for _, v := range a {
		total += v
	}
	return total
}

// Clone returns a copy that is safe to mutate.
func (a Amounts) Clone() Amounts {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// Members returns the keys in ascending id order.
func (a Amounts) Members() []uuid.UUID {
	return sortedIDs(maps.Keys(a))
}

type Expense struct {
	ID                 uuid.UUID `json:"id,omitempty"`
	TripID             uuid.UUID `json:"trip_id,omitempty"`
	Title              string    `json:"title,omitempty"`
	CategoryID         string    `json:"category_id,omitempty"`
	TotalAmount        int64     `json:"total_amount,omitempty"` // Amount in cents
	Date               time.Time `json:"date,omitzero"`
	CreatedAt          time.Time `json:"created_at,omitzero"`
	PayerContributions Amounts   `json:"payer_contributions,omitempty"`
	ParticipantShares  Amounts   `json:"participant_shares,omitempty"`
}

// IsSettlement reports whether the record is a repayment.
func (e Expense) IsSettlement() bool {
	return e.CategoryID == CategorySettlement
}

// Clone returns a deep copy of the expense.
func (e Expense) Clone() Expense {
	e.PayerContributions = e.PayerContributions.Clone()
	e.ParticipantShares = e.ParticipantShares.Clone()
	return e
}

// Transfer is a suggested repayment. It becomes a settlement only once
// recorded through Settle.
type Transfer struct {
	From   uuid.UUID `json:"from"`
	To     uuid.UUID `json:"to"`
	Amount int64     `json:"amount"`
}

// Balance represents a member's net position in a trip.
// Positive = owed money, Negative = owes money.
type Balance struct {
	MemberID uuid.UUID
	Amount   int64
}

// Spending sums what a trip spent, leaving settlements out.
type Spending struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
}

// SummarizeSpending aggregates the non-settlement expenses of a trip.
func SummarizeSpending(expenses []Expense) Spending {
	s := Spending{ByCategory: make(map[string]int64)}
	for _, e := range expenses {
		if e.IsSettlement() {
			continue
		}
		s.Total += e.TotalAmount
		s.ByCategory[e.CategoryID] += e.TotalAmount
	}
	return s
}

func sortedIDs(seq iter.Seq[uuid.UUID]) []uuid.UUID {
	return slices.SortedFunc(seq, compareIDs)
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
