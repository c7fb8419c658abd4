package store

import (
	"database/sql"
	"time"
)

// GestureEvent records a gesture change observed during a session.
type GestureEvent struct {
	ID        int64
	SessionID string
	Gesture   string
	CreatedAt time.Time
}

// GestureEventRepository stores gesture events.
type GestureEventRepository struct {
	db *sql.DB
}

// GestureEvents returns the gesture event repository for this store.
func (s *Store) GestureEvents() *GestureEventRepository {
	return &GestureEventRepository{db: s.db}
}

// Create inserts a gesture event and fills in its ID. A zero CreatedAt is set to now.
func (r *GestureEventRepository) Create(e *GestureEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	result, err := r.db.Exec(
		`INSERT INTO gesture_events (session_id, gesture, created_at) VALUES (?, ?, ?)`,
		e.SessionID, e.Gesture, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id

	return nil
}

// ListBySession returns the gesture events of a session in the order they happened.
func (r *GestureEventRepository) ListBySession(sessionID string) ([]*GestureEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, gesture, created_at
		 FROM gesture_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*GestureEvent
	for rows.Next() {
		e := &GestureEvent{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Gesture, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
