package poller

import (
	"time"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/series"
)

// State is the last known view of one sensor. A State is replaced as a
// whole on every applied result; Slots is never modified in place.
type State struct {
	SensorID    string         `json:"sensor_id"`
	Policy      catalog.Policy `json:"policy"`
	Slots       []series.Slot  `json:"slots"`
	Stats       series.Stats   `json:"stats"`
	Loaded      bool           `json:"loaded"`
	Error       string         `json:"error,omitempty"`
	ErrorAt     *time.Time     `json:"error_at,omitempty"`
	LastSuccess *time.Time     `json:"last_success,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Seq         uint64         `json:"seq"`
}

// Result is the outcome of one fetch.
type Result struct {
	Seq     uint64
	Samples []series.RawSample
	Err     error
	At      time.Time
}

// Rules controls how results are folded into a State.
type Rules struct {
	Policy         catalog.Policy
	Window         int
	Skew           time.Duration
	TrendThreshold float64
}

func (r Rules) options() []series.Option {
	return []series.Option{series.WithWindow(r.Window), series.WithSkew(r.Skew)}
}

// Apply folds a fetch result into prev and reports whether it was used.
// Results older than the last applied one are discarded. A successful
// fetch rebuilds (refresh policy) or extends (sliding policy) the series.
// A failed fetch keeps the last good series and records the error; before
// the first success the series is null-filled.
func Apply(prev State, r Result, rules Rules) (State, bool) {
	if prev.Seq != 0 && r.Seq <= prev.Seq {
		return prev, false
	}

	next := prev
	next.Policy = rules.Policy
	next.Seq = r.Seq
	next.UpdatedAt = r.At

	if r.Err != nil {
		at := r.At
		next.Error = r.Err.Error()
		next.ErrorAt = &at
		if !prev.Loaded {
			next.Slots = series.Normalize(nil, r.At, rules.options()...)
			next.Stats = series.Summarize(next.Slots, rules.TrendThreshold)
		}
		return next, true
	}

	switch rules.Policy {
	case catalog.PolicySliding:
		// a null-filled window from a failed first load is not held data
		held := prev.Slots
		if !prev.Loaded {
			held = nil
		}
		next.Slots = series.Slide(held, r.Samples, r.At, rules.options()...)
	default:
		next.Slots = series.Normalize(r.Samples, r.At, rules.options()...)
	}
	at := r.At
	next.Stats = series.Summarize(next.Slots, rules.TrendThreshold)
	next.Loaded = true
	next.Error = ""
	next.ErrorAt = nil
	next.LastSuccess = &at
	return next, true
}
