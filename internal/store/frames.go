package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/ayusman/posematch/internal/skeleton"
)

// Frame blobs start with a codec tag.
const (
	codecJSON byte = 'j'
	codecZstd byte = 'z'
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// FrameRepository stores the body samples of a routine.
type FrameRepository struct {
	db       *sql.DB
	compress bool
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db, compress: s.compress}
}

// Save replaces the frames of a routine in a single transaction and updates
// the routine's frame count and duration.
func (r *FrameRepository) Save(routineID string, bodies []skeleton.Body, elapsedMs []float64) error {
	if len(bodies) != len(elapsedMs) {
		return fmt.Errorf("save frames: %d bodies, %d timestamps", len(bodies), len(elapsedMs))
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM routine_frames WHERE routine_id = ?`, routineID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO routine_frames (routine_id, seq, elapsed_ms, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range bodies {
		data, err := encodeBody(&bodies[i], r.compress)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(routineID, i, elapsedMs[i], data); err != nil {
			return err
		}
	}

	var duration float64
	if n := len(elapsedMs); n > 0 {
		duration = elapsedMs[n-1]
	}
	result, err := tx.Exec(`UPDATE routines SET frame_count = ?, duration_ms = ?, updated_at = ? WHERE id = ?`,
		len(bodies), duration, time.Now(), routineID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Load returns the frames of a routine in capture order.
func (r *FrameRepository) Load(routineID string) ([]skeleton.Body, []float64, error) {
	rows, err := r.db.Query(
		`SELECT elapsed_ms, data FROM routine_frames
		 WHERE routine_id = ?
		 ORDER BY seq`,
		routineID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var bodies []skeleton.Body
	var elapsed []float64
	for rows.Next() {
		var ms float64
		var data []byte
		if err := rows.Scan(&ms, &data); err != nil {
			return nil, nil, err
		}
		body, err := decodeBody(data)
		if err != nil {
			return nil, nil, fmt.Errorf("decode frame %d: %w", len(bodies), err)
		}
		bodies = append(bodies, body)
		elapsed = append(elapsed, ms)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return bodies, elapsed, nil
}

func encodeBody(b *skeleton.Body, compress bool) ([]byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	if !compress {
		return append([]byte{codecJSON}, raw...), nil
	}
	return zstdEncoder.EncodeAll(raw, []byte{codecZstd}), nil
}

func decodeBody(data []byte) (skeleton.Body, error) {
	var b skeleton.Body
	if len(data) == 0 {
		return b, fmt.Errorf("empty frame")
	}

	raw := data[1:]
	switch data[0] {
	case codecJSON:
	case codecZstd:
		var err error
		raw, err = zstdDecoder.DecodeAll(raw, nil)
		if err != nil {
			return b, err
		}
	default:
		return b, fmt.Errorf("unknown frame codec %q", data[0])
	}

	err := json.Unmarshal(raw, &b)
	return b, err
}
