package series

import (
	"time"

	"github.com/guregu/null"
)

// DefaultTrendThreshold is the slope, in units per minute, below which a
// series counts as stable.
const DefaultTrendThreshold = 0.01

// Trend is the direction of a series over its window.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

// Stats summarizes the populated slots of a series.
type Stats struct {
	Current   null.Float `json:"current"`
	Average   null.Float `json:"average"`
	Min       null.Float `json:"min"`
	Max       null.Float `json:"max"`
	Trend     Trend      `json:"trend"`
	Slope     null.Float `json:"slope_per_minute"`
	Populated int        `json:"populated"`
	Missing   int        `json:"missing"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

// Summarize computes current, average, min, max and trend over the slots
// that carry a value. Null slots only count towards Missing.
func Summarize(slots []Slot, threshold float64) Stats {
	if threshold <= 0 {
		threshold = DefaultTrendThreshold
	}
	stats := Stats{Trend: TrendUnknown}
	if len(slots) == 0 {
		return stats
	}

	origin := slots[0].Timestamp
	var sum, min, max float64
	var sx, sy, sxx, sxy float64
	for _, s := range slots {
		if s.Missing() {
			stats.Missing++
			continue
		}
		v := s.Value.Float64
		if stats.Populated == 0 || v < min {
			min = v
		}
		if stats.Populated == 0 || v > max {
			max = v
		}
		stats.Populated++
		sum += v

		x := s.Timestamp.Sub(origin).Minutes()
		sx += x
		sy += v
		sxx += x * x
		sxy += x * v

		ts := s.Timestamp
		stats.Current = null.FloatFrom(v)
		stats.LastSeen = &ts
	}
	if stats.Populated == 0 {
		return stats
	}

	n := float64(stats.Populated)
	stats.Average = null.FloatFrom(sum / n)
	stats.Min = null.FloatFrom(min)
	stats.Max = null.FloatFrom(max)

	denom := n*sxx - sx*sx
	if stats.Populated < 2 || denom == 0 {
		return stats
	}
	slope := (n*sxy - sx*sy) / denom
	stats.Slope = null.FloatFrom(slope)
	switch {
	case slope > threshold:
		stats.Trend = TrendUp
	case slope < -threshold:
		stats.Trend = TrendDown
	default:
		stats.Trend = TrendStable
	}
	return stats
}
