package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is the persisted result of one playback of a routine.
type Session struct {
	ID           string    `json:"id"`
	RoutineID    string    `json:"routine_id"`
	UseWeights   bool      `json:"use_weights"`
	Score        int       `json:"score"`
	MaxScore     int       `json:"max_score"`
	Frames       int       `json:"frames"`
	Matched      int       `json:"matched"`
	MeanDistance float64   `json:"mean_distance"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
}

// SessionRepository provides access to playback results.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, routine_id, use_weights, score, max_score, frames, matched, mean_distance, started_at, ended_at`

// Create inserts a finished session.
func (r *SessionRepository) Create(s *Session) error {
	_, err := r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RoutineID, s.UseWeights, s.Score, s.MaxScore, s.Frames, s.Matched, s.MeanDistance, s.StartedAt, s.EndedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s := &Session{}
	err := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id).Scan(sessionFields(s)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListByRoutine returns the sessions of a routine, newest first.
func (r *SessionRepository) ListByRoutine(routineID string) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE routine_id = ?
		 ORDER BY ended_at DESC`,
		routineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(sessionFields(s)...); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func sessionFields(s *Session) []any {
	return []any{
		&s.ID, &s.RoutineID, &s.UseWeights, &s.Score, &s.MaxScore,
		&s.Frames, &s.Matched, &s.MeanDistance, &s.StartedAt, &s.EndedAt,
	}
}
