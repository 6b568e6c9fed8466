// Package series turns sparse per-minute sensor aggregates into the fixed
// minute grid the dashboard charts and summarizes.
package series

import "time"

const (
	// DefaultWindow is the number of one-minute slots in a series.
	DefaultWindow = 60
	// DefaultSkew keeps the still-accumulating current minute out of the
	// series: the newest slot is one minute before "now".
	DefaultSkew = time.Minute
)

type options struct {
	window int
	skew   time.Duration
}

// Option configures Normalize and Slide.
type Option func(*options)

// WithWindow sets the number of slots. Values below one fall back to
// DefaultWindow.
func WithWindow(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.window = n
		}
	}
}

// WithSkew sets how far the newest slot sits behind the reference minute.
// Negative values are treated as zero.
func WithSkew(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.skew = d
	}
}

func newOptions(opts []Option) options {
	o := options{window: DefaultWindow, skew: DefaultSkew}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Anchor returns the newest minute represented in a series built at ref.
func Anchor(ref time.Time, skew time.Duration) time.Time {
	return ref.UTC().Truncate(time.Minute).Add(-skew)
}

// Normalize builds the series ending at the anchor for ref. It always
// returns exactly window slots in ascending order, one per minute. Samples
// that fall outside the window are dropped; minutes without a sample are
// left null. When several samples share a minute, the one with the latest
// original timestamp wins.
func Normalize(samples []RawSample, ref time.Time, opts ...Option) []Slot {
	o := newOptions(opts)
	slots := emptySlots(Anchor(ref, o.skew), o.window)

	readings := Parse(samples)
	if len(readings) == 0 {
		return slots
	}

	byMinute := make(map[int64]Reading, len(readings))
	for _, r := range readings {
		byMinute[r.Minute.Unix()] = r
	}
	for i := range slots {
		if r, ok := byMinute[slots[i].Timestamp.Unix()]; ok {
			slots[i] = r.slot()
		}
	}
	return slots
}

// emptySlots returns window null slots, oldest first, the last at anchor.
func emptySlots(anchor time.Time, window int) []Slot {
	slots := make([]Slot, window)
	for i := range slots {
		slots[i] = Slot{Timestamp: anchor.Add(-time.Duration(window-1-i) * time.Minute)}
	}
	return slots
}
