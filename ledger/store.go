package ledger

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Store persists a trip's records. Each write must be atomic: a reader
// sees either the whole record or none of it.
type Store interface {
	Create(ctx context.Context, expense Expense) (uuid.UUID, error)
	Replace(ctx context.Context, id uuid.UUID, expense Expense) error
	Delete(ctx context.Context, tripID, id uuid.UUID) error
	Get(ctx context.Context, tripID, id uuid.UUID) (*Expense, error)
	// ListByTrip returns the trip's records oldest first.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]Expense, error)
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	trips map[uuid.UUID][]Expense
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[uuid.UUID][]Expense)}
}

func (s *MemoryStore) Create(ctx context.Context, expense Expense) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}
	if s.indexOf(expense.TripID, expense.ID) >= 0 {
		return uuid.Nil, ErrConflict
	}
	s.trips[expense.TripID] = append(s.trips[expense.TripID], expense.Clone())
	return expense.ID, nil
}

func (s *MemoryStore) Replace(ctx context.Context, id uuid.UUID, expense Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(expense.TripID, id)
	if i < 0 {
		return ErrNotFound
	}
	expense.ID = id
	s.trips[expense.TripID][i] = expense.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, tripID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(tripID, id)
	if i < 0 {
		return ErrNotFound
	}
	s.trips[tripID] = slices.Delete(s.trips[tripID], i, i+1)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, tripID, id uuid.UUID) (*Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(tripID, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	e := s.trips[tripID][i].Clone()
	return &e, nil
}

func (s *MemoryStore) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.trips[tripID]
	out := make([]Expense, len(records))
	for i, e := range records {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *MemoryStore) indexOf(tripID, id uuid.UUID) int {
	return slices.IndexFunc(s.trips[tripID], func(e Expense) bool { return e.ID == id })
}
