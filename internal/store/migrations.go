package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Routines table - one row per recorded reference performance
		`CREATE TABLE IF NOT EXISTS routines (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			frame_count INTEGER NOT NULL DEFAULT 0,
			duration_ms REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Routine frames table - encoded body samples in capture order
		`CREATE TABLE IF NOT EXISTS routine_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			routine_id TEXT NOT NULL REFERENCES routines(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			elapsed_ms REAL NOT NULL,
			data BLOB NOT NULL,
			UNIQUE(routine_id, seq)
		)`,

		// Sessions table - one row per finished playback
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			routine_id TEXT NOT NULL REFERENCES routines(id) ON DELETE CASCADE,
			use_weights INTEGER NOT NULL DEFAULT 0,
			score INTEGER NOT NULL,
			max_score INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			matched INTEGER NOT NULL,
			mean_distance REAL NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_routine_frames_routine_id ON routine_frames(routine_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_routine_id ON sessions(routine_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
