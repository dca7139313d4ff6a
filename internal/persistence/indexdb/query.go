package indexdb

import (
	"context"
	"database/sql"
	"errors"

	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

// LastSave returns the most recent save row for a chunk and how many times it
// has been saved.
func (s *SQLiteIndex) LastSave(ctx context.Context, c chunk.Coord) (SaveRow, int, bool, error) {
	var (
		r     SaveRow
		tick  int64
		saves int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tick, bytes, digest, saves FROM chunk_saves WHERE cx=? AND cy=? AND cz=?`,
		c.X, c.Y, c.Z,
	).Scan(&tick, &r.Bytes, &r.Digest, &saves)
	if errors.Is(err, sql.ErrNoRows) {
		return SaveRow{}, 0, false, nil
	}
	if err != nil {
		return SaveRow{}, 0, false, err
	}
	r.Coord = c
	r.Tick = uint64(tick)
	return r, saves, true, nil
}

// Faults returns recorded faults for a chunk, oldest first.
func (s *SQLiteIndex) Faults(ctx context.Context, c chunk.Coord) ([]FaultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, kind, detail FROM chunk_faults WHERE cx=? AND cy=? AND cz=? ORDER BY id`,
		c.X, c.Y, c.Z,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FaultRow
	for rows.Next() {
		var (
			f    FaultRow
			tick int64
		)
		if err := rows.Scan(&tick, &f.Kind, &f.Detail); err != nil {
			return nil, err
		}
		f.Coord = c
		f.Tick = uint64(tick)
		out = append(out, f)
	}
	return out, rows.Err()
}
