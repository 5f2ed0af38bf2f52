// Package eventlogger keeps an append-only audit trail of ledger changes.
package eventlogger

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	TripID    uuid.UUID         `json:"trip_id,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithTrip(tripID uuid.UUID) EventOption {
	return func(e *Event) {
		e.TripID = tripID
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(key, value string) EventOption {
	return func(e *Event) {
		e.Metadata[key] = value
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type metadataKey struct{}

// ContextWithMetadata returns a copy of ctx carrying key=value. Events
// recorded under the returned context get it as metadata.
func ContextWithMetadata(ctx context.Context, key, value string) context.Context {
	md := maps.Clone(metadataFrom(ctx))
	if md == nil {
		md = make(map[string]string)
	}
	md[key] = value
	return context.WithValue(ctx, metadataKey{}, md)
}

func metadataFrom(ctx context.Context) map[string]string {
	md, _ := ctx.Value(metadataKey{}).(map[string]string)
	return md
}

// tripScoped is implemented by payloads that belong to a trip.
type tripScoped interface {
	Trip() uuid.UUID
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByTrip(ctx context.Context, tripID uuid.UUID) ([]Event, error)
}
