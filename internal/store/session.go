package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Session represents one camera session stored in the database.
// EndedAt is zero while the session is still running.
type Session struct {
	ID         string
	StartedAt  time.Time
	EndedAt    time.Time
	Analyses   int
	AverageAge float64
}

// Finished reports whether the session has been closed with a summary.
func (s *Session) Finished() bool {
	return !s.EndedAt.IsZero()
}

// SessionSummary holds the statistics written when a session ends.
type SessionSummary struct {
	EndedAt    time.Time
	Analyses   int
	AverageAge float64
	Emotions   map[string]int
	Moods      []int
}

// EmotionCount is one bucket of a session's emotion histogram.
type EmotionCount struct {
	Emotion string
	Count   int
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new running session and returns it.
func (r *SessionRepository) Create(startedAt time.Time) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		StartedAt: startedAt.UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		sess.ID, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// Finish records the summary of a session. The emotion histogram and mood
// series replace anything stored before.
func (r *SessionRepository) Finish(id string, summary SessionSummary) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE sessions SET ended_at = ?, analyses = ?, average_age = ? WHERE id = ?`,
		summary.EndedAt.UTC(), summary.Analyses, summary.AverageAge, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM session_emotions WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM session_moods WHERE session_id = ?`, id); err != nil {
		return err
	}

	emotions := make([]string, 0, len(summary.Emotions))
	for e := range summary.Emotions {
		emotions = append(emotions, e)
	}
	sort.Strings(emotions)

	for _, e := range emotions {
		if _, err := tx.Exec(
			`INSERT INTO session_emotions (session_id, emotion, count) VALUES (?, ?, ?)`,
			id, e, summary.Emotions[e],
		); err != nil {
			return fmt.Errorf("failed to insert emotion %q: %w", e, err)
		}
	}

	if len(summary.Moods) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO session_moods (session_id, sequence, score) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, score := range summary.Moods {
			if _, err := stmt.Exec(id, i, score); err != nil {
				return fmt.Errorf("failed to insert mood %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, ended_at, analyses, average_age
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, analyses, average_age
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session together with its histogram, moods and gesture events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Emotions returns the emotion histogram of a session ordered by count, then name.
func (r *SessionRepository) Emotions(id string) ([]EmotionCount, error) {
	rows, err := r.db.Query(
		`SELECT emotion, count FROM session_emotions
		 WHERE session_id = ? ORDER BY count DESC, emotion ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []EmotionCount
	for rows.Next() {
		var c EmotionCount
		if err := rows.Scan(&c.Emotion, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// Moods returns the mood score series of a session in analysis order.
func (r *SessionRepository) Moods(id string) ([]int, error) {
	rows, err := r.db.Query(
		`SELECT score FROM session_moods WHERE session_id = ? ORDER BY sequence`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moods []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, err
		}
		moods = append(moods, score)
	}

	return moods, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var endedAt sql.NullTime

	err := row.Scan(&sess.ID, &sess.StartedAt, &endedAt, &sess.Analyses, &sess.AverageAge)
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		sess.EndedAt = endedAt.Time
	}
	return sess, nil
}
