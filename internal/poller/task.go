// Package poller keeps every catalog sensor's series fresh by polling the
// upstream API on a minute-aligned schedule.
package poller

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/metrics"
	"github.com/02loveslollipop/ward-monitor/internal/sensorapi"
	"github.com/02loveslollipop/ward-monitor/internal/series"
)

const (
	defaultInterval    = time.Minute
	defaultAlignOffset = 30 * time.Second
	defaultTimeout     = 20 * time.Second
)

// ErrUnknownSensor is returned for ids missing from the catalog.
var ErrUnknownSensor = errors.New("poller: unknown sensor")

// Fetcher retrieves raw samples for a sensor path.
type Fetcher interface {
	FetchSamples(ctx context.Context, path string, q sensorapi.Query) ([]series.RawSample, error)
}

// Clock supplies the reference instant for normalization.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Settings are shared by all tasks of a hub.
type Settings struct {
	Interval       time.Duration
	AlignOffset    time.Duration
	Timeout        time.Duration
	Limit          int
	Window         int
	Skew           time.Duration
	TrendThreshold float64
}

func (s Settings) withDefaults() Settings {
	if s.Interval <= 0 {
		s.Interval = defaultInterval
	}
	if s.AlignOffset < 0 {
		s.AlignOffset = defaultAlignOffset
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.Limit <= 0 {
		s.Limit = sensorapi.DefaultLimit
	}
	if s.Window <= 0 {
		s.Window = series.DefaultWindow
	}
	if s.Skew < 0 {
		s.Skew = series.DefaultSkew
	}
	return s
}

// Task polls one sensor. Scheduled polls never overlap; a manual Refresh
// may race a scheduled poll, in which case whichever was started last wins.
type Task struct {
	sensor   catalog.Sensor
	fetcher  Fetcher
	settings Settings
	rules    Rules
	clock    Clock
	logger   *log.Logger

	mu       sync.Mutex
	state    State
	issued   uint64
	inFlight int
}

// NewTask constructs a Task for sensor.
func NewTask(sensor catalog.Sensor, fetcher Fetcher, settings Settings, clock Clock, logger *log.Logger) *Task {
	settings = settings.withDefaults()
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	skew := settings.Skew
	if sensor.Skew != nil {
		skew = *sensor.Skew
	}
	rules := Rules{
		Policy:         sensor.Policy,
		Window:         settings.Window,
		Skew:           skew,
		TrendThreshold: settings.TrendThreshold,
	}
	return &Task{
		sensor:   sensor,
		fetcher:  fetcher,
		settings: settings,
		rules:    rules,
		clock:    clock,
		logger:   logger,
		state:    State{SensorID: sensor.ID, Policy: sensor.Policy},
	}
}

// Sensor returns the catalog entry the task polls.
func (t *Task) Sensor() catalog.Sensor {
	return t.sensor
}

// Snapshot returns the current state.
func (t *Task) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Run polls immediately, then on every aligned tick until ctx is done.
// It returns only after in-flight polls have finished, so no state is
// written after Run returns.
func (t *Task) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	launch := func() {
		if !t.begin() {
			metrics.IncPollSkipped(t.sensor.ID)
			t.logger.Printf("poll skipped: sensor=%s previous poll still in flight", t.sensor.ID)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = t.poll(ctx)
		}()
	}

	launch()
	timer := time.NewTimer(nextDelay(time.Now(), t.settings.Interval, t.settings.AlignOffset))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			launch()
			timer.Reset(nextDelay(time.Now(), t.settings.Interval, t.settings.AlignOffset))
		}
	}
}

// Refresh polls right away, regardless of the schedule, and returns the
// resulting state together with the fetch error, if any.
func (t *Task) Refresh(ctx context.Context) (State, error) {
	t.mu.Lock()
	t.inFlight++
	t.mu.Unlock()
	return t.poll(ctx)
}

// begin reserves the in-flight slot for a scheduled poll.
func (t *Task) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight > 0 {
		return false
	}
	t.inFlight++
	return true
}

// poll runs one fetch-and-normalize cycle. The caller has already counted
// it as in flight.
func (t *Task) poll(ctx context.Context) (State, error) {
	t.mu.Lock()
	t.issued++
	seq := t.issued
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.inFlight--
		t.mu.Unlock()
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, t.settings.Timeout)
	start := time.Now()
	samples, err := t.fetcher.FetchSamples(fetchCtx, t.sensor.Path, sensorapi.Query{
		Order: sensorapi.OrderDesc,
		Limit: t.settings.Limit,
	})
	cancel()
	metrics.ObservePoll(t.sensor.ID, err, time.Since(start))

	if ctx.Err() != nil {
		return t.Snapshot(), ctx.Err()
	}
	if err != nil {
		t.logger.Printf("poll error: sensor=%s err=%v", t.sensor.ID, err)
	}

	t.mu.Lock()
	next, applied := Apply(t.state, Result{Seq: seq, Samples: samples, Err: err, At: t.clock.Now()}, t.rules)
	if applied {
		t.state = next
	}
	state := t.state
	t.mu.Unlock()

	if !applied {
		metrics.IncPollStale(t.sensor.ID)
		t.logger.Printf("poll result discarded: sensor=%s seq=%d newer=%d", t.sensor.ID, seq, state.Seq)
		return state, err
	}
	metrics.SetMissingSlots(t.sensor.ID, state.Stats.Missing)
	return state, err
}

// nextDelay returns the wait until the next instant that sits offset past
// an interval boundary.
func nextDelay(now time.Time, interval, offset time.Duration) time.Duration {
	if interval <= 0 {
		interval = defaultInterval
	}
	next := now.Truncate(interval).Add(offset % interval)
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next.Sub(now)
}
