package ledger

import (
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Validator checks that an expense's payers and participants account for
// its total. Tolerance is the allowed difference in minor units.
type Validator struct {
	Tolerance int64
}

func NewValidator(tolerance int64) Validator {
	if tolerance < 0 {
		tolerance = 0
	}
	return Validator{Tolerance: tolerance}
}

// Validate returns a *ValidationError describing the first problem found,
// or nil if the split is consistent.
func (v Validator) Validate(title string, total int64, payers, shares Amounts) error {
	if strings.TrimSpace(title) == "" || total <= 0 {
		return &ValidationError{Reason: ErrEmptyTitleOrAmount}
	}
	if countPositive(payers) == 0 {
		return &ValidationError{Reason: ErrNoPayers}
	}
	if countPositive(shares) == 0 {
		return &ValidationError{Reason: ErrNoParticipants}
	}
	if id, ok := firstNegative(payers); ok {
		return invalid(ErrNegativeAmount, "payer %s", id)
	}
	if id, ok := firstNegative(shares); ok {
		return invalid(ErrNegativeAmount, "participant %s", id)
	}
	if err := v.checkSum(ErrPayerSumMismatch, total, payers); err != nil {
		return err
	}
	return v.checkSum(ErrShareSumMismatch, total, shares)
}

// checkSum compares the entries of a, all non-negative, against total. No
// entry may exceed the total, and a sum that would overflow int64 is a
// mismatch rather than a wrapped value.
func (v Validator) checkSum(reason error, total int64, a Amounts) error {
	var sum int64
	for _, id := range a.Members() {
		amount := a[id]
		if amount > total {
			return invalid(reason, "%s has %d, more than the total %d", id, amount, total)
		}
		if sum > math.MaxInt64-amount {
			return invalid(reason, "amounts overflow")
		}
		sum += amount
	}
	if abs(sum-total) > v.Tolerance {
		return invalid(reason, "got %d, want %d", sum, total)
	}
	return nil
}

// AverageSplit divides total equally among members. Each gets total/N and
// the remaining total%N units go one each to the members with the lowest
// ids, so the result always sums to total.
func AverageSplit(total int64, members []uuid.UUID) (Amounts, error) {
	if total <= 0 {
		return nil, &ValidationError{Reason: ErrEmptyTitleOrAmount}
	}
	if len(members) == 0 {
		return nil, &ValidationError{Reason: ErrNoParticipants}
	}

	ordered := slices.Clone(members)
	slices.SortFunc(ordered, compareIDs)
	for i := 1; i < len(ordered); i++ {
		if ordered[i] == ordered[i-1] {
			return nil, invalid(ErrDuplicateMember, "%s", ordered[i])
		}
	}

	n := int64(len(ordered))
	base := total / n
	remainder := total % n

	shares := make(Amounts, n)
	for i, id := range ordered {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[id] = share
	}
	return shares, nil
}

// Reconcile returns a copy of a with zero entries dropped and the
// difference between total and the sum absorbed so the result sums to
// total exactly. A positive difference goes to the largest entry; a
// negative one is taken from the largest entries first. Ties go to the
// lowest member id.
func Reconcile(total int64, a Amounts) Amounts {
	out := make(Amounts, len(a))
	for id, v := range a {
		if v != 0 {
			out[id] = v
		}
	}
	residual := total - out.Sum()
	if residual == 0 || len(out) == 0 {
		return out
	}

	ids := out.Members()
	slices.SortStableFunc(ids, func(x, y uuid.UUID) int {
		switch {
		case out[x] > out[y]:
			return -1
		case out[x] < out[y]:
			return 1
		}
		return 0
	})

	if residual > 0 {
		out[ids[0]] += residual
		return out
	}
	for _, id := range ids {
		take := min(out[id], -residual)
		out[id] -= take
		residual += take
		if out[id] == 0 {
			delete(out, id)
		}
		if residual == 0 {
			break
		}
	}
	return out
}

// EntriesToAmounts builds an Amounts from a list of pairs and rejects a
// member listed twice.
func EntriesToAmounts(entries []Entry) (Amounts, error) {
	out := make(Amounts, len(entries))
	for _, e := range entries {
		if _, dup := out[e.MemberID]; dup {
			return nil, invalid(ErrDuplicateMember, "%s", e.MemberID)
		}
		out[e.MemberID] = e.Amount
	}
	return out, nil
}

// Entry is one member's amount in a payer or participant list.
type Entry struct {
	MemberID uuid.UUID `json:"memberId"`
	Amount   int64     `json:"amount"`
}

func countPositive(a Amounts) int {
	n := 0
	for _, v := range a {
		if v > 0 {
			n++
		}
	}
	return n
}

func firstNegative(a Amounts) (uuid.UUID, bool) {
	for _, id := range a.Members() {
		if a[id] < 0 {
			return id, true
		}
	}
	return uuid.Nil, false
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
