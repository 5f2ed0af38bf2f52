package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	rolePayer       = "payer"
	roleParticipant = "participant"
)

const schema = `
CREATE TABLE IF NOT EXISTS trip_expenses (
	id UUID PRIMARY KEY,
	trip_id UUID NOT NULL,
	title TEXT NOT NULL,
	category_id TEXT NOT NULL DEFAULT '',
	total_amount BIGINT NOT NULL CHECK (total_amount > 0),
	expense_date TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_trip_expenses_trip_id ON trip_expenses(trip_id, created_at);

CREATE TABLE IF NOT EXISTS trip_expense_entries (
	expense_id UUID NOT NULL REFERENCES trip_expenses(id) ON DELETE CASCADE,
	member_id UUID NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('payer', 'participant')),
	amount BIGINT NOT NULL,
	PRIMARY KEY (expense_id, member_id, role)
);`

// Migrate creates the ledger tables if they don't exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating ledger tables: %w", err)
	}
	return nil
}

// Repository is a Store backed by PostgreSQL.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, expense Expense) (uuid.UUID, error) {
	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, storeErr("create", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO trip_expenses (id, trip_id, title, category_id, total_amount, expense_date, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = tx.ExecContext(
		ctx,
		query,
		expense.ID,
		expense.TripID,
		expense.Title,
		expense.CategoryID,
		expense.TotalAmount,
		nullTime(expense.Date),
		expense.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, storeErr("create", err)
	}

	if err := insertEntries(ctx, tx, expense); err != nil {
		return uuid.Nil, storeErr("create", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, storeErr("create", err)
	}
	return expense.ID, nil
}

func (r *Repository) Replace(ctx context.Context, id uuid.UUID, expense Expense) error {
	expense.ID = id

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("replace", err)
	}
	defer tx.Rollback()

	query := `UPDATE trip_expenses SET title = $1, category_id = $2, total_amount = $3, expense_date = $4 WHERE id = $5 AND trip_id = $6`
	res, err := tx.ExecContext(
		ctx,
		query,
		expense.Title,
		expense.CategoryID,
		expense.TotalAmount,
		nullTime(expense.Date),
		id,
		expense.TripID,
	)
	if err != nil {
		return storeErr("replace", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storeErr("replace", err)
	} else if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_expense_entries WHERE expense_id = $1`, id); err != nil {
		return storeErr("replace", err)
	}
	if err := insertEntries(ctx, tx, expense); err != nil {
		return storeErr("replace", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("replace", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, tripID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trip_expenses WHERE id = $1 AND trip_id = $2`, id, tripID)
	if err != nil {
		return storeErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, tripID, id uuid.UUID) (*Expense, error) {
	tx, err := r.snapshot(ctx)
	if err != nil {
		return nil, storeErr("get", err)
	}
	defer tx.Rollback()

	query := `SELECT id, trip_id, title, category_id, total_amount, expense_date, created_at
              FROM trip_expenses
              WHERE id = $1 AND trip_id = $2`

	expense, err := scanExpense(tx.QueryRowContext(ctx, query, id, tripID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, storeErr("get", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT expense_id, member_id, role, amount FROM trip_expense_entries WHERE expense_id = $1`, id)
	if err != nil {
		return nil, storeErr("get", err)
	}
	byID := map[uuid.UUID]*Expense{expense.ID: &expense}
	if err := scanEntries(rows, byID); err != nil {
		return nil, storeErr("get", err)
	}

	return &expense, tx.Commit()
}

func (r *Repository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]Expense, error) {
	tx, err := r.snapshot(ctx)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer tx.Rollback()

	query := `SELECT id, trip_id, title, category_id, total_amount, expense_date, created_at
              FROM trip_expenses
              WHERE trip_id = $1
              ORDER BY created_at ASC, id ASC`

	rows, err := tx.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, storeErr("list", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", err)
	}

	byID := make(map[uuid.UUID]*Expense, len(expenses))
	for i := range expenses {
		byID[expenses[i].ID] = &expenses[i]
	}

	entries := `SELECT ee.expense_id, ee.member_id, ee.role, ee.amount
              FROM trip_expense_entries ee
              INNER JOIN trip_expenses e ON ee.expense_id = e.id
              WHERE e.trip_id = $1`

	entryRows, err := tx.QueryContext(ctx, entries, tripID)
	if err != nil {
		return nil, storeErr("list", err)
	}
	if err := scanEntries(entryRows, byID); err != nil {
		return nil, storeErr("list", err)
	}

	return expenses, tx.Commit()
}

// snapshot opens a read-only transaction so that expenses and their
// entries are read from the same point in time.
func (r *Repository) snapshot(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var expense Expense
	var date sql.NullTime
	err := row.Scan(
		&expense.ID,
		&expense.TripID,
		&expense.Title,
		&expense.CategoryID,
		&expense.TotalAmount,
		&date,
		&expense.CreatedAt,
	)
	if err != nil {
		return Expense{}, err
	}
	if date.Valid {
		expense.Date = date.Time
	}
	expense.PayerContributions = make(Amounts)
	expense.ParticipantShares = make(Amounts)
	return expense, nil
}

func scanEntries(rows *sql.Rows, byID map[uuid.UUID]*Expense) error {
	defer rows.Close()

	for rows.Next() {
		var expenseID, memberID uuid.UUID
		var role string
		var amount int64
		if err := rows.Scan(&expenseID, &memberID, &role, &amount); err != nil {
			return err
		}
		expense, ok := byID[expenseID]
		if !ok {
			continue
		}
		switch role {
		case rolePayer:
			expense.PayerContributions[memberID] = amount
		case roleParticipant:
			expense.ParticipantShares[memberID] = amount
		default:
			return fmt.Errorf("expense %s: unknown entry role %q", expenseID, role)
		}
	}
	return rows.Err()
}

func insertEntries(ctx context.Context, tx *sql.Tx, expense Expense) error {
	query := `INSERT INTO trip_expense_entries (expense_id, member_id, role, amount) VALUES ($1, $2, $3, $4)`
	for _, id := range expense.PayerContributions.Members() {
		if _, err := tx.ExecContext(ctx, query, expense.ID, id, rolePayer, expense.PayerContributions[id]); err != nil {
			return err
		}
	}
	for _, id := range expense.ParticipantShares.Members() {
		if _, err := tx.ExecContext(ctx, query, expense.ID, id, roleParticipant, expense.ParticipantShares[id]); err != nil {
			return err
		}
	}
	return nil
}

// storeErr classifies a database failure. Serialization failures,
// deadlocks and duplicate keys mean another writer got there first. An
// ended context is the caller's doing and is not a store failure.
func storeErr(op string, err error) error {
	if IsCanceled(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return &StoreError{Op: op, Err: fmt.Errorf("%w: %s", ErrConflict, pqErr.Message)}
		}
	}
	return &StoreError{Op: op, Err: err}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
