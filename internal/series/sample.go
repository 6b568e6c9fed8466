package series

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/guregu/null"
)

// Field keeps a wire value as text so that numbers, numeric strings and
// null all decode. Parsing happens later and may fail per field.
type Field string

// UnmarshalJSON accepts any JSON scalar. Strings are unquoted and trimmed,
// null becomes the empty field, everything else is kept verbatim.
func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field(strings.TrimSpace(s))
		return nil
	}
	*f = Field(b)
	return nil
}

// RawSample is one aggregated reading as returned by the upstream sensor API.
type RawSample struct {
	MinuteTimestamp Field `json:"minute_timestamp"`
	AvgValue        Field `json:"avg_value"`
	MinValue        Field `json:"min_value"`
	MaxValue        Field `json:"max_value"`
}

// Reading is a RawSample that survived parsing.
type Reading struct {
	Timestamp time.Time // as reported upstream
	Minute    time.Time // Timestamp truncated to the minute, UTC
	Avg       float64
	Min       null.Float
	Max       null.Float
}

// Slot is one minute of a normalized series. Invalid values mean that no
// sample exists for the minute.
type Slot struct {
	Timestamp time.Time  `json:"timestamp"`
	Value     null.Float `json:"value"`
	Min       null.Float `json:"min"`
	Max       null.Float `json:"max"`
}

// Missing reports whether the slot carries no reading.
func (s Slot) Missing() bool {
	return !s.Value.Valid
}

func (r Reading) slot() Slot {
	return Slot{
		Timestamp: r.Minute,
		Value:     null.FloatFrom(r.Avg),
		Min:       r.Min,
		Max:       r.Max,
	}
}
