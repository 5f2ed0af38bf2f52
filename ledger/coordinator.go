package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/billbatista/tripledger/lock"
	"github.com/google/uuid"
)

// DefaultWriteTimeout bounds how long a write may hold the trip lock. A
// shared lock's expiry must be longer.
const DefaultWriteTimeout = 5 * time.Second

// MemberLister returns the ids of a trip's members.
type MemberLister interface {
	MemberIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error)
}

// ExpenseInput is a create or edit request. When SplitEqually is set the
// participant shares are computed from it and ParticipantShares is ignored.
type ExpenseInput struct {
	Title              string
	CategoryID         string
	TotalAmount        int64
	Date               time.Time
	PayerContributions Amounts
	ParticipantShares  Amounts
	SplitEqually       []uuid.UUID
}

// Coordinator is the entry point to a trip's ledger. Writes to one trip are
// serialized through the Locker; reads go straight to the Store.
type Coordinator struct {
	store        Store
	settlements  *SettlementLedger
	locks        lock.Locker
	validator    Validator
	planner      Planner
	members      MemberLister
	events       EventSink
	logger       *slog.Logger
	now          func() time.Time
	writeTimeout time.Duration
}

type Option func(*Coordinator)

func WithLocker(l lock.Locker) Option {
	return func(c *Coordinator) {
		c.locks = l
	}
}

func WithTolerance(tolerance int64) Option {
	return func(c *Coordinator) {
		c.validator = NewValidator(tolerance)
	}
}

// WithWriteTimeout caps the time spent inside the trip lock. Zero removes
// the cap.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.writeTimeout = d
	}
}

func WithPlanner(p Planner) Option {
	return func(c *Coordinator) {
		c.planner = p
	}
}

// WithMembers turns on membership checks for every payer, participant and
// settlement party.
func WithMembers(m MemberLister) Option {
	return func(c *Coordinator) {
		c.members = m
	}
}

func WithEvents(sink EventSink) Option {
	return func(c *Coordinator) {
		c.events = sink
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:        store,
		locks:        lock.NewLocal(),
		validator:    NewValidator(DefaultTolerance),
		planner:      GreedyPlanner{},
		events:       discardSink{},
		logger:       slog.Default(),
		now:          func() time.Time { return time.Now().UTC() },
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.settlements = &SettlementLedger{store: store, now: c.now}
	return c
}

func (c *Coordinator) CreateExpense(ctx context.Context, tripID uuid.UUID, in ExpenseInput) (Expense, error) {
	var created Expense
	err := c.withTrip(ctx, tripID, func(ctx context.Context) error {
		expense, err := c.prepare(ctx, tripID, in)
		if err != nil {
			return err
		}
		expense.ID = uuid.New()
		expense.CreatedAt = c.now()

		id, err := c.store.Create(ctx, expense)
		if err != nil {
			return storeFailure("create expense", err)
		}
		expense.ID = id
		created = expense
		return nil
	})
	if err != nil {
		c.logFailure("create expense", tripID, err)
		return Expense{}, err
	}

	c.logger.Info("expense created", "trip_id", tripID, "expense_id", created.ID, "amount", created.TotalAmount)
	c.events.Record(ctx, EventExpenseCreated, expenseEvent(created))
	return created, nil
}

func (c *Coordinator) EditExpense(ctx context.Context, tripID, expenseID uuid.UUID, in ExpenseInput) (Expense, error) {
	var edited Expense
	err := c.withTrip(ctx, tripID, func(ctx context.Context) error {
		existing, err := c.existingExpense(ctx, tripID, expenseID)
		if err != nil {
			return err
		}

		expense, err := c.prepare(ctx, tripID, in)
		if err != nil {
			return err
		}
		expense.ID = expenseID
		expense.CreatedAt = existing.CreatedAt

		if err := c.store.Replace(ctx, expenseID, expense); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrExpenseNotFound
			}
			return storeFailure("replace expense", err)
		}
		edited = expense
		return nil
	})
	if err != nil {
		c.logFailure("edit expense", tripID, err)
		return Expense{}, err
	}

	c.logger.Info("expense edited", "trip_id", tripID, "expense_id", expenseID, "amount", edited.TotalAmount)
	c.events.Record(ctx, EventExpenseEdited, expenseEvent(edited))
	return edited, nil
}

func (c *Coordinator) DeleteExpense(ctx context.Context, tripID, expenseID uuid.UUID) error {
	var deleted *Expense
	err := c.withTrip(ctx, tripID, func(ctx context.Context) error {
		existing, err := c.existingExpense(ctx, tripID, expenseID)
		if err != nil {
			return err
		}
		if err := c.store.Delete(ctx, tripID, expenseID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrExpenseNotFound
			}
			return storeFailure("delete expense", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		c.logFailure("delete expense", tripID, err)
		return err
	}

	c.logger.Info("expense deleted", "trip_id", tripID, "expense_id", expenseID)
	c.events.Record(ctx, EventExpenseDeleted, expenseEvent(*deleted))
	return nil
}

// ListExpenses returns every record of the trip, settlements included,
// oldest first.
func (c *Coordinator) ListExpenses(ctx context.Context, tripID uuid.UUID) ([]Expense, error) {
	expenses, err := c.store.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, storeFailure("list expenses", err)
	}
	return expenses, nil
}

// GetBalances derives every member's net amount from the trip's records.
// Known members without records are reported at zero.
func (c *Coordinator) GetBalances(ctx context.Context, tripID uuid.UUID) (map[uuid.UUID]int64, error) {
	expenses, err := c.ListExpenses(ctx, tripID)
	if err != nil {
		return nil, err
	}

	var members []uuid.UUID
	if c.members != nil {
		members, err = c.members.MemberIDs(ctx, tripID)
		if err != nil {
			return nil, fmt.Errorf("listing trip members: %w", err)
		}
	}
	return ComputeBalances(expenses, members...), nil
}

func (c *Coordinator) GetSettlementPlan(ctx context.Context, tripID uuid.UUID) ([]Transfer, error) {
	balances, err := c.GetBalances(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return c.planner.Plan(balances), nil
}

func (c *Coordinator) GetSpending(ctx context.Context, tripID uuid.UUID) (Spending, error) {
	expenses, err := c.ListExpenses(ctx, tripID)
	if err != nil {
		return Spending{}, err
	}
	return SummarizeSpending(expenses), nil
}

// Settle records from paying amount to to and returns the settlement id.
func (c *Coordinator) Settle(ctx context.Context, tripID, from, to uuid.UUID, amount int64) (uuid.UUID, error) {
	var settlement Expense
	err := c.withTrip(ctx, tripID, func(ctx context.Context) error {
		if err := c.checkMembers(ctx, tripID, Amounts{from: amount, to: amount}); err != nil {
			return err
		}
		var err error
		settlement, err = c.settlements.Settle(ctx, tripID, from, to, amount)
		return err
	})
	if err != nil {
		c.logFailure("settle", tripID, err)
		return uuid.Nil, err
	}

	c.logger.Info("settlement recorded", "trip_id", tripID, "settlement_id", settlement.ID, "from", from, "to", to, "amount", amount)
	c.events.Record(ctx, EventSettlementRecorded, SettlementEvent{
		TripID:       tripID,
		SettlementID: settlement.ID,
		From:         from,
		To:           to,
		AmountCents:  amount,
	})
	return settlement.ID, nil
}

func (c *Coordinator) UndoSettle(ctx context.Context, tripID, settlementID uuid.UUID) error {
	var undone Expense
	err := c.withTrip(ctx, tripID, func(ctx context.Context) error {
		var err error
		undone, err = c.settlements.UndoSettle(ctx, tripID, settlementID)
		return err
	})
	if err != nil {
		c.logFailure("undo settlement", tripID, err)
		return err
	}

	t, _ := SettlementOf(undone)
	c.logger.Info("settlement undone", "trip_id", tripID, "settlement_id", settlementID)
	c.events.Record(ctx, EventSettlementUndone, SettlementEvent{
		TripID:       tripID,
		SettlementID: settlementID,
		From:         t.From,
		To:           t.To,
		AmountCents:  t.Amount,
	})
	return nil
}

// withTrip runs fn inside the trip's critical section, bounded by the write
// timeout. Failing to take the lock is reported as a conflict; an ended
// context is returned as is.
func (c *Coordinator) withTrip(ctx context.Context, tripID uuid.UUID, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.locks.WithLock(ctx, "lock:trip:"+tripID.String(), func(ctx context.Context) error {
		if c.writeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
			defer cancel()
		}
		return fn(ctx)
	})
	if IsCanceled(err) {
		return err
	}
	if errors.Is(err, lock.ErrNotAcquired) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

// prepare validates a request and returns the expense to store, with both
// maps reconciled to sum exactly to the total.
func (c *Coordinator) prepare(ctx context.Context, tripID uuid.UUID, in ExpenseInput) (Expense, error) {
	if strings.EqualFold(strings.TrimSpace(in.CategoryID), CategorySettlement) {
		return Expense{}, &ValidationError{Reason: ErrReservedCategory}
	}

	if strings.TrimSpace(in.Title) == "" || in.TotalAmount <= 0 {
		return Expense{}, &ValidationError{Reason: ErrEmptyTitleOrAmount}
	}

	shares := in.ParticipantShares
	if len(in.SplitEqually) > 0 {
		var err error
		if shares, err = AverageSplit(in.TotalAmount, in.SplitEqually); err != nil {
			return Expense{}, err
		}
	}

	if err := c.validator.Validate(in.Title, in.TotalAmount, in.PayerContributions, shares); err != nil {
		return Expense{}, err
	}
	if err := c.checkMembers(ctx, tripID, in.PayerContributions, shares); err != nil {
		return Expense{}, err
	}

	return Expense{
		TripID:             tripID,
		Title:              strings.TrimSpace(in.Title),
		CategoryID:         in.CategoryID,
		TotalAmount:        in.TotalAmount,
		Date:               in.Date,
		PayerContributions: Reconcile(in.TotalAmount, in.PayerContributions),
		ParticipantShares:  Reconcile(in.TotalAmount, shares),
	}, nil
}

func (c *Coordinator) checkMembers(ctx context.Context, tripID uuid.UUID, sets ...Amounts) error {
	if c.members == nil {
		return nil
	}
	ids, err := c.members.MemberIDs(ctx, tripID)
	if err != nil {
		return fmt.Errorf("listing trip members: %w", err)
	}
	known := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	for _, set := range sets {
		for _, id := range set.Members() {
			if !known[id] {
				return invalid(ErrUnknownMember, "%s", id)
			}
		}
	}
	return nil
}

// existingExpense loads a regular expense; settlements are refused.
func (c *Coordinator) existingExpense(ctx context.Context, tripID, expenseID uuid.UUID) (*Expense, error) {
	existing, err := c.store.Get(ctx, tripID, expenseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, storeFailure("get expense", err)
	}
	if existing.IsSettlement() {
		return nil, &ValidationError{Reason: ErrSettlementNotEditable}
	}
	return existing, nil
}

func (c *Coordinator) logFailure(op string, tripID uuid.UUID, err error) {
	switch {
	case IsCanceled(err):
		c.logger.Warn("ledger request canceled", "op", op, "trip_id", tripID, "error", err)
	case IsValidation(err), IsNotFound(err):
		c.logger.Warn("ledger request rejected", "op", op, "trip_id", tripID, "error", err)
	case IsConflict(err):
		c.logger.Warn("ledger write conflict", "op", op, "trip_id", tripID, "error", err)
	default:
		c.logger.Error("ledger write failed", "op", op, "trip_id", tripID, "error", err)
	}
}
