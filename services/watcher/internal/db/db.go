package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/ward-monitor/services/watcher/internal/models"
)

// UpsertSensors inserts/updates sensor metadata records.
func UpsertSensors(ctx context.Context, pool *pgxpool.Pool, sensors []models.SensorRow) error {
	if len(sensors) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO wardmon.sensors (id, name, sector, kind, unit, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    sector = EXCLUDED.sector,
    kind = EXCLUDED.kind,
    unit = EXCLUDED.unit,
    updated_at = NOW()`

	for _, s := range sensors {
		batch.Queue(query, s.ID, s.Name, s.Sector, s.Kind, s.Unit)
	}

	res := pool.SendBatch(ctx, batch)
	defer res.Close()

	for range sensors {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// FetchLastReadings loads the newest archived minute per sensor.
func FetchLastReadings(ctx context.Context, pool *pgxpool.Pool, sensorIDs []string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(sensorIDs))
	if len(sensorIDs) == 0 {
		return result, nil
	}

	rows, err := pool.Query(ctx, `
SELECT sensor_id, MAX(minute_ts)
FROM wardmon.readings
WHERE sensor_id = ANY($1)
GROUP BY sensor_id`, sensorIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sensorID string
		var ts time.Time
		if err := rows.Scan(&sensorID, &ts); err != nil {
			return nil, err
		}
		result[sensorID] = ts.UTC()
	}

	return result, rows.Err()
}

// InsertReadings writes new minute readings.
func InsertReadings(ctx context.Context, pool *pgxpool.Pool, readings []models.ReadingCandidate) error {
	if len(readings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO wardmon.readings (sensor_id, minute_ts, avg_value, min_value, max_value, ingested_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (sensor_id, minute_ts) DO UPDATE
SET avg_value = EXCLUDED.avg_value,
    min_value = EXCLUDED.min_value,
    max_value = EXCLUDED.max_value,
    ingested_at = NOW()`

	for _, r := range readings {
		batch.Queue(query, r.SensorID, r.Minute, r.Avg, r.Min, r.Max)
	}

	res := pool.SendBatch(ctx, batch)
	defer res.Close()

	for range readings {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}
