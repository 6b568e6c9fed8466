package utils

import (
	"fmt"
	"time"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/series"
	"github.com/02loveslollipop/ward-monitor/services/watcher/internal/models"
)

// BuildSensorRows converts catalog sensors into database-ready sensor rows.
func BuildSensorRows(sensors []catalog.Sensor) []models.SensorRow {
	rows := make([]models.SensorRow, 0, len(sensors))
	for _, s := range sensors {
		rows = append(rows, models.SensorRow{
			ID:     s.ID,
			Name:   s.Name,
			Sector: s.Sector,
			Kind:   string(s.Kind),
			Unit:   s.Unit,
		})
	}
	return rows
}

// SensorIDs extracts sensor identifiers from sensor rows.
func SensorIDs(rows []models.SensorRow) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}

// BuildReadingCandidates turns parsed readings into one candidate per
// minute. Readings arrive sorted by timestamp, so a later duplicate of the
// same minute replaces the earlier one.
func BuildReadingCandidates(sensorID string, readings []series.Reading) []models.ReadingCandidate {
	out := make([]models.ReadingCandidate, 0, len(readings))
	index := make(map[int64]int, len(readings))
	for _, r := range readings {
		cand := models.ReadingCandidate{
			SensorID: sensorID,
			Minute:   r.Minute,
			Avg:      r.Avg,
			Min:      r.Min,
			Max:      r.Max,
		}
		key := r.Minute.Unix()
		if i, ok := index[key]; ok {
			out[i] = cand
			continue
		}
		index[key] = len(out)
		out = append(out, cand)
	}
	return out
}

// FilterNewReadings keeps candidates newer than the last archived minute of
// their sensor. Minutes after cutoff are still open and are left for the
// next run.
func FilterNewReadings(candidates []models.ReadingCandidate, last map[string]time.Time, cutoff time.Time) []models.ReadingCandidate {
	out := make([]models.ReadingCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Minute.After(cutoff) {
			continue
		}
		if prev, ok := last[cand.SensorID]; ok && !cand.Minute.After(prev) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// FormatCandidate prints a candidate for logging.
func FormatCandidate(c models.ReadingCandidate) string {
	return fmt.Sprintf("sensor=%s minute=%s avg=%.3f min=%s max=%s",
		c.SensorID, c.Minute.Format(time.RFC3339), c.Avg, nullString(c.Min.Valid, c.Min.Float64), nullString(c.Max.Valid, c.Max.Float64))
}

func nullString(valid bool, v float64) string {
	if !valid {
		return "null"
	}
	return fmt.Sprintf("%.3f", v)
}
