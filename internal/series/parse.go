package series

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null"
	"github.com/relvacode/iso8601"
)

// epoch values at or above this are taken as milliseconds
const millisThreshold = 1e11

var fallbackLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z07",
	"2006-01-02 15:04:05",
}

// Parse converts raw samples into readings, dropping any sample whose
// timestamp or average cannot be parsed. A bad min or max only nulls that
// field. The result is sorted by original timestamp, oldest first; samples
// with equal timestamps keep their input order.
func Parse(samples []RawSample) []Reading {
	readings := make([]Reading, 0, len(samples))
	for _, s := range samples {
		ts, ok := ParseTimestamp(s.MinuteTimestamp)
		if !ok {
			continue
		}
		avg, ok := parseFloat(s.AvgValue)
		if !ok {
			continue
		}
		readings = append(readings, Reading{
			Timestamp: ts,
			Minute:    ts.Truncate(time.Minute),
			Avg:       avg,
			Min:       parseNullFloat(s.MinValue),
			Max:       parseNullFloat(s.MaxValue),
		})
	}
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return readings
}

// ParseTimestamp reads an ISO-8601 instant or a Unix epoch in seconds or
// milliseconds. The result is in UTC.
func ParseTimestamp(f Field) (time.Time, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return time.Time{}, false
		}
		if math.Abs(n) >= millisThreshold {
			return time.UnixMilli(int64(n)).UTC(), true
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}
	if t, err := iso8601.ParseString(s); err == nil {
		return t.UTC(), true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseFloat(f Field) (float64, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseNullFloat(f Field) null.Float {
	v, ok := parseFloat(f)
	return null.NewFloat(v, ok)
}
