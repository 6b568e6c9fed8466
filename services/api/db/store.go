package db

import (
	"context"
	"strconv"
	"time"

	"github.com/guregu/null"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Reading is one archived minute of a sensor.
type Reading struct {
	SensorID   string     `json:"sensor_id"`
	Timestamp  time.Time  `json:"timestamp"`
	Value      float64    `json:"value"`
	Min        null.Float `json:"min"`
	Max        null.Float `json:"max"`
	IngestedAt time.Time  `json:"ingested_at"`
}

// ReadingQuery holds filters for retrieving archived readings.
type ReadingQuery struct {
	SensorID string
	Limit    int
	Since    *time.Time
	Until    *time.Time
}

const readingsBase = `
    SELECT sensor_id, minute_ts, avg_value, min_value, max_value, ingested_at
    FROM wardmon.readings
    WHERE sensor_id = $1
`

// FetchReadings returns archived readings for a sensor, newest first.
func (s *Store) FetchReadings(ctx context.Context, q ReadingQuery) ([]Reading, error) {
	args := []any{q.SensorID}
	clause := ""
	argPos := 2
	if q.Since != nil {
		clause += " AND minute_ts >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		clause += " AND minute_ts <= $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
		argPos++
	}
	limit := ""
	if q.Limit > 0 {
		limit = " LIMIT $" + strconv.Itoa(argPos)
		args = append(args, q.Limit)
	}

	sql := readingsBase + clause + " ORDER BY minute_ts DESC" + limit

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]Reading, 0)
	for rows.Next() {
		var r Reading
		if err := rows.Scan(
			&r.SensorID,
			&r.Timestamp,
			&r.Value,
			&r.Min,
			&r.Max,
			&r.IngestedAt,
		); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
