package store

import (
	"database/sql"
	"errors"
	"time"
)

// Routine is a recorded reference performance.
type Routine struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FrameCount int       `json:"frame_count"`
	DurationMs float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RoutineRepository provides CRUD operations for routines.
type RoutineRepository struct {
	db *sql.DB
}

// Routines returns the routine repository for this store.
func (s *Store) Routines() *RoutineRepository {
	return &RoutineRepository{db: s.db}
}

const routineColumns = `id, name, frame_count, duration_ms, created_at, updated_at`

// Create inserts a new routine. Frame count and duration are maintained by
// FrameRepository.Save.
func (r *RoutineRepository) Create(rt *Routine) error {
	now := time.Now()
	rt.CreatedAt = now
	rt.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO routines (id, name, frame_count, duration_ms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.Name, rt.FrameCount, rt.DurationMs, rt.CreatedAt, rt.UpdatedAt,
	)
	return err
}

// GetByID retrieves a routine by its ID.
func (r *RoutineRepository) GetByID(id string) (*Routine, error) {
	return scanRoutine(r.db.QueryRow(`SELECT `+routineColumns+` FROM routines WHERE id = ?`, id))
}

// GetByName retrieves a routine by its name.
func (r *RoutineRepository) GetByName(name string) (*Routine, error) {
	return scanRoutine(r.db.QueryRow(`SELECT `+routineColumns+` FROM routines WHERE name = ?`, name))
}

// Latest returns the most recently recorded routine.
func (r *RoutineRepository) Latest() (*Routine, error) {
	return scanRoutine(r.db.QueryRow(`SELECT ` + routineColumns + ` FROM routines ORDER BY created_at DESC, rowid DESC LIMIT 1`))
}

// List retrieves all routines, newest first.
func (r *RoutineRepository) List() ([]*Routine, error) {
	rows, err := r.db.Query(`SELECT ` + routineColumns + ` FROM routines ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []*Routine
	for rows.Next() {
		rt := &Routine{}
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.FrameCount, &rt.DurationMs, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		routines = append(routines, rt)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return routines, nil
}

// Delete removes a routine together with its frames and sessions.
func (r *RoutineRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM routines WHERE id = ?`, id)
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

func scanRoutine(row *sql.Row) (*Routine, error) {
	rt := &Routine{}
	err := row.Scan(&rt.ID, &rt.Name, &rt.FrameCount, &rt.DurationMs, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rt, nil
}
