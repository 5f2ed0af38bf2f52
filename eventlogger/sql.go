package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	event_type TEXT NOT NULL,
	trip_id UUID,
	event_data JSONB,
	event_metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_trip_id ON events(trip_id, created_at);`

type sqlEventLogger struct {
	db *sql.DB
}

func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

// Migrate creates the events table if it doesn't exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating events table: %w", err)
	}
	return nil
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding event metadata: %w", err)
	}

	var tripID uuid.NullUUID
	if e.TripID != uuid.Nil {
		tripID = uuid.NullUUID{UUID: e.TripID, Valid: true}
	}

	statement := `INSERT INTO events (id, event_type, trip_id, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = el.db.ExecContext(ctx, statement, e.ID, e.Type, tripID, jsonData, jsonMetadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// GetByTrip returns a trip's events oldest first. Data is decoded into a
// generic JSON value.
func (el *sqlEventLogger) GetByTrip(ctx context.Context, tripID uuid.UUID) ([]Event, error) {
	query := `SELECT id, event_type, trip_id, event_data, event_metadata, created_at FROM events WHERE trip_id = $1 ORDER BY created_at ASC`
	result, err := el.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var event Event
		var trip uuid.NullUUID
		var jsonData, jsonMetadata []byte
		if err := result.Scan(&event.ID, &event.Type, &trip, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, err
		}
		event.TripID = trip.UUID

		if len(jsonData) > 0 {
			var data any
			if err := json.Unmarshal(jsonData, &data); err != nil {
				return events, fmt.Errorf("decoding event %s data: %w", event.ID, err)
			}
			event.Data = data
		}
		if len(jsonMetadata) > 0 {
			if err := json.Unmarshal(jsonMetadata, &event.Metadata); err != nil {
				return events, fmt.Errorf("decoding event %s metadata: %w", event.ID, err)
			}
		}

		events = append(events, event)
	}

	if err := result.Err(); err != nil {
		return events, err
	}

	return events, nil
}
