package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per camera session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			analyses INTEGER NOT NULL DEFAULT 0,
			average_age REAL NOT NULL DEFAULT 0
		)`,

		// Session emotions table - dominant emotion histogram of a finished session
		`CREATE TABLE IF NOT EXISTS session_emotions (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			emotion TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (session_id, emotion)
		)`,

		// Session moods table - mood score series in analysis order
		`CREATE TABLE IF NOT EXISTS session_moods (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (session_id, sequence)
		)`,

		// Gesture events table - gesture changes seen during a session
		`CREATE TABLE IF NOT EXISTS gesture_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			gesture TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_gesture_events_session_id ON gesture_events(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
