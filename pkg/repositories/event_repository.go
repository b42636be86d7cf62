package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/database"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

// EventRepository defines the interface for event data access.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, limit, offset int) ([]models.Event, int, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// eventRepository implements EventRepository using PostgreSQL.
type eventRepository struct{}

// NewEventRepository creates a new event repository.
func NewEventRepository() EventRepository {
	return &eventRepository{}
}

const eventColumns = `id, user_id, name, location, date, notes, created_at, updated_at`

// Create inserts a new event owned by the scoped user.
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.UserID = scope.UserID

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	query := `
		INSERT INTO events (id, user_id, name, location, date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := scope.Conn.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.Name,
		event.Location,
		event.Date,
		event.Notes,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// Get retrieves an event by ID, scoped to the owning user.
func (r *eventRepository) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND user_id = $2`

	var e models.Event
	err := scope.Conn.QueryRow(ctx, query, id, scope.UserID).Scan(
		&e.ID,
		&e.UserID,
		&e.Name,
		&e.Location,
		&e.Date,
		&e.Notes,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &e, nil
}

// List returns the user's events newest-first with the total count.
func (r *eventRepository) List(ctx context.Context, limit, offset int) ([]models.Event, int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, 0, fmt.Errorf("no user scope in context")
	}

	var total int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM events WHERE user_id = $1`, scope.UserID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := scope.Conn.Query(ctx, query, scope.UserID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Name,
			&e.Location,
			&e.Date,
			&e.Notes,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read events: %w", err)
	}

	return events, total, nil
}

// Update overwrites the event's fields and refreshes updated_at.
func (r *eventRepository) Update(ctx context.Context, event *models.Event) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	event.UpdatedAt = time.Now()

	query := `
		UPDATE events
		SET name = $3, location = $4, date = $5, notes = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2`

	result, err := scope.Conn.Exec(ctx, query,
		event.ID,
		scope.UserID,
		event.Name,
		event.Location,
		event.Date,
		event.Notes,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes an event. Contacts referencing it keep existing; their
// event link is cleared first.
func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	_, err := scope.Conn.Exec(ctx,
		`UPDATE contacts SET event_id = NULL WHERE event_id = $1 AND user_id = $2`,
		id, scope.UserID)
	if err != nil {
		return fmt.Errorf("failed to clear contact references: %w", err)
	}

	result, err := scope.Conn.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND user_id = $2`, id, scope.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Ensure eventRepository implements EventRepository at compile time.
var _ EventRepository = (*eventRepository)(nil)
