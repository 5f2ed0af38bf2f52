package member

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Member is a trip participant as seen by the ledger. Names are only used
// for display; the ledger itself keys everything by ID.
type Member struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Directory resolves who belongs to a trip.
type Directory interface {
	Members(ctx context.Context, tripID uuid.UUID) ([]Member, error)
	MemberIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error)
}

// Names indexes members by id.
func Names(members []Member) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names
}

// Static is a Directory held in memory.
type Static struct {
	mu    sync.RWMutex
	trips map[uuid.UUID][]Member
}

func NewStatic() *Static {
	return &Static{trips: make(map[uuid.UUID][]Member)}
}

// Add puts members on a trip, replacing the name of any already there.
func (s *Static) Add(tripID uuid.UUID, members ...Member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range members {
		i := slices.IndexFunc(s.trips[tripID], func(e Member) bool { return e.ID == m.ID })
		if i >= 0 {
			s.trips[tripID][i] = m
			continue
		}
		s.trips[tripID] = append(s.trips[tripID], m)
	}
}

func (s *Static) Members(ctx context.Context, tripID uuid.UUID) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.trips[tripID]), nil
}

func (s *Static) MemberIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	members, err := s.Members(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return ids(members), nil
}

func ids(members []Member) []uuid.UUID {
	out := make([]uuid.UUID, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}
