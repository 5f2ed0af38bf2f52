package member

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Repository reads trip membership from the users and trip_members tables
// owned by the membership service.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Members(ctx context.Context, tripID uuid.UUID) ([]Member, error) {
	query := `SELECT u.id, COALESCE(u.name, '')
              FROM trip_members tm
              INNER JOIN users u ON u.id = tm.user_id
              WHERE tm.trip_id = $1
              ORDER BY tm.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying trip members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scanning trip member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *Repository) MemberIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	members, err := r.Members(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return ids(members), nil
}
