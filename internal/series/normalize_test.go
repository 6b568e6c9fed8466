package series

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2025, 3, 4, 10, 15, 42, 0, time.UTC)

func stamp(t time.Time) Field {
	return Field(t.Format(time.RFC3339Nano))
}

func sample(t time.Time, avg string) RawSample {
	return RawSample{MinuteTimestamp: stamp(t), AvgValue: Field(avg), MinValue: Field(avg), MaxValue: Field(avg)}
}

func requireGrid(t *testing.T, slots []Slot, ref time.Time) {
	t.Helper()
	require.Len(t, slots, DefaultWindow)
	require.Equal(t, ref.Truncate(time.Minute).Add(-time.Minute), slots[len(slots)-1].Timestamp)
	for i := 0; i < len(slots)-1; i++ {
		require.Equal(t, time.Minute, slots[i+1].Timestamp.Sub(slots[i].Timestamp), "slot %d", i)
	}
}

func populated(slots []Slot) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	for _, s := range slots {
		if !s.Missing() {
			out[s.Timestamp] = s.Value.Float64
		}
	}
	return out
}

func TestNormalizeFixedLength(t *testing.T) {
	many := make([]RawSample, 0, 150)
	for i := 0; i < 150; i++ {
		many = append(many, sample(refTime.Add(-time.Duration(i)*time.Minute), strconv.Itoa(i)))
	}
	exact := many[1:61]
	sparse := []RawSample{many[3], many[40]}
	malformed := []RawSample{
		{MinuteTimestamp: "yesterday", AvgValue: "1"},
		{MinuteTimestamp: stamp(refTime.Add(-2 * time.Minute)), AvgValue: "abc"},
	}

	cases := map[string][]RawSample{
		"nil":       nil,
		"empty":     {},
		"sparse":    sparse,
		"exact":     exact,
		"many":      many,
		"malformed": malformed,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			requireGrid(t, Normalize(in, refTime), refTime)
		})
	}
}

func TestNormalizeEmptyIsNullFilled(t *testing.T) {
	slots := Normalize(nil, refTime)
	requireGrid(t, slots, refTime)
	for _, s := range slots {
		require.False(t, s.Value.Valid)
		require.False(t, s.Min.Valid)
		require.False(t, s.Max.Valid)
	}
}

func TestNormalizeExactMatch(t *testing.T) {
	slots := Normalize([]RawSample{sample(refTime.Add(-time.Minute), "21.5")}, refTime)
	requireGrid(t, slots, refTime)

	got := populated(slots)
	require.Len(t, got, 1)
	require.Equal(t, 21.5, got[time.Date(2025, 3, 4, 10, 14, 0, 0, time.UTC)])
	require.Equal(t, 21.5, slots[59].Value.Float64)
}

func TestNormalizeDropsOutOfWindow(t *testing.T) {
	slots := Normalize([]RawSample{
		sample(refTime.Add(-90*time.Minute), "5"),
		sample(refTime.Add(3*time.Minute), "6"),
		sample(refTime, "7"),
	}, refTime)
	requireGrid(t, slots, refTime)
	require.Empty(t, populated(slots))
}

func TestNormalizeMalformedAverageIsNull(t *testing.T) {
	at := refTime.Add(-5 * time.Minute)
	slots := Normalize([]RawSample{{
		MinuteTimestamp: stamp(at),
		AvgValue:        "not-a-number",
		MinValue:        "1",
		MaxValue:        "2",
	}}, refTime)

	for _, s := range slots {
		require.False(t, s.Value.Valid)
		require.False(t, s.Min.Valid)
	}
}

func TestNormalizeMalformedMinMaxAreNull(t *testing.T) {
	at := refTime.Add(-3 * time.Minute)
	slots := Normalize([]RawSample{{
		MinuteTimestamp: stamp(at),
		AvgValue:        "45.2",
		MinValue:        "NaN",
		MaxValue:        "47",
	}}, refTime)

	s := slots[57]
	require.Equal(t, at.Truncate(time.Minute), s.Timestamp)
	require.Equal(t, 45.2, s.Value.Float64)
	require.False(t, s.Min.Valid)
	require.Equal(t, 47.0, s.Max.Float64)
}

func TestNormalizeIdempotent(t *testing.T) {
	in := []RawSample{
		sample(refTime.Add(-time.Minute), "22.1"),
		sample(refTime.Add(-17*time.Minute), "23"),
	}
	require.Equal(t, Normalize(in, refTime), Normalize(in, refTime))
}

func TestNormalizeScenario(t *testing.T) {
	in := []RawSample{
		sample(refTime.Add(-time.Minute), "22.1"),
		sample(refTime.Add(-2*time.Minute), "22.3"),
		sample(refTime.Add(-70*time.Minute), "99.9"),
	}
	slots := Normalize(in, refTime)
	requireGrid(t, slots, refTime)

	require.Equal(t, refTime.Add(-60*time.Minute).Truncate(time.Minute), slots[0].Timestamp)
	require.Equal(t, map[time.Time]float64{
		refTime.Add(-time.Minute).Truncate(time.Minute):     22.1,
		refTime.Add(-2 * time.Minute).Truncate(time.Minute): 22.3,
	}, populated(slots))
}

func TestNormalizeDuplicateMinuteLatestWins(t *testing.T) {
	minute := refTime.Add(-4 * time.Minute).Truncate(time.Minute)
	in := []RawSample{
		sample(minute.Add(50*time.Second), "3"),
		sample(minute.Add(10*time.Second), "1"),
		sample(minute.Add(30*time.Second), "bad"),
	}
	slots := Normalize(in, refTime)
	require.Equal(t, 3.0, populated(slots)[minute])
}

func TestNormalizeOptions(t *testing.T) {
	slots := Normalize([]RawSample{sample(refTime, "8")}, refTime, WithWindow(5), WithSkew(0))
	require.Len(t, slots, 5)
	require.Equal(t, refTime.Truncate(time.Minute), slots[4].Timestamp)
	require.Equal(t, 8.0, slots[4].Value.Float64)

	slots = Normalize(nil, refTime, WithWindow(0), WithSkew(-time.Hour))
	require.Len(t, slots, DefaultWindow)
	require.Equal(t, refTime.Truncate(time.Minute), slots[59].Timestamp)
}

func TestNormalizeEpochTimestamps(t *testing.T) {
	at := refTime.Add(-10 * time.Minute)
	in := []RawSample{
		{MinuteTimestamp: Field(strconv.FormatInt(at.Unix(), 10)), AvgValue: "1"},
		{MinuteTimestamp: Field(strconv.FormatInt(at.Add(time.Minute).UnixMilli(), 10)), AvgValue: "2"},
	}
	got := populated(Normalize(in, refTime))
	require.Equal(t, 1.0, got[at.Truncate(time.Minute)])
	require.Equal(t, 2.0, got[at.Add(time.Minute).Truncate(time.Minute)])
}

func TestRawSampleDecoding(t *testing.T) {
	body := `[
		{"minute_timestamp": "2025-03-04T10:10:00Z", "avg_value": 20.5, "min_value": "19.9", "max_value": null},
		{"minute_timestamp": 1741083060, "avg_value": " 21 ", "min_value": true, "max_value": {"x": 1}}
	]`
	var in []RawSample
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	require.Equal(t, Field("20.5"), in[0].AvgValue)
	require.Equal(t, Field("19.9"), in[0].MinValue)
	require.Equal(t, Field(""), in[0].MaxValue)
	require.Equal(t, Field("21"), in[1].AvgValue)

	readings := Parse(in)
	require.Len(t, readings, 2)
	require.False(t, readings[0].Max.Valid)
	require.False(t, readings[1].Min.Valid)
	require.False(t, readings[1].Max.Valid)
}
