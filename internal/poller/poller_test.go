package poller

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/sensorapi"
	"github.com/02loveslollipop/ward-monitor/internal/series"
)

var pollRef = time.Date(2025, 3, 4, 10, 15, 30, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fetchFunc func(ctx context.Context, path string, q sensorapi.Query) ([]series.RawSample, error)

func (f fetchFunc) FetchSamples(ctx context.Context, path string, q sensorapi.Query) ([]series.RawSample, error) {
	return f(ctx, path, q)
}

func rawAt(t time.Time, avg string) series.RawSample {
	return series.RawSample{MinuteTimestamp: series.Field(t.Format(time.RFC3339)), AvgValue: series.Field(avg)}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

var refreshRules = Rules{Policy: catalog.PolicyRefresh, Window: 60, Skew: time.Minute}

func TestApplyRefreshReplacesSeries(t *testing.T) {
	first, applied := Apply(State{}, Result{Seq: 1, Samples: []series.RawSample{rawAt(pollRef.Add(-time.Minute), "21")}, At: pollRef}, refreshRules)
	require.True(t, applied)
	require.True(t, first.Loaded)
	require.Len(t, first.Slots, 60)
	require.Equal(t, 21.0, first.Slots[59].Value.Float64)
	require.Equal(t, 1, first.Stats.Populated)
	require.NotNil(t, first.LastSuccess)

	second, applied := Apply(first, Result{Seq: 2, At: pollRef.Add(time.Minute)}, refreshRules)
	require.True(t, applied)
	require.Equal(t, 0, second.Stats.Populated)
	require.Equal(t, pollRef.Truncate(time.Minute), second.Slots[59].Timestamp)
}

func TestApplyRetainsLastGoodOnError(t *testing.T) {
	good, _ := Apply(State{}, Result{Seq: 1, Samples: []series.RawSample{rawAt(pollRef.Add(-time.Minute), "21")}, At: pollRef}, refreshRules)

	failed, applied := Apply(good, Result{Seq: 2, Err: errors.New("upstream down"), At: pollRef.Add(time.Minute)}, refreshRules)
	require.True(t, applied)
	require.Equal(t, good.Slots, failed.Slots)
	require.Equal(t, "upstream down", failed.Error)
	require.NotNil(t, failed.ErrorAt)
	require.Equal(t, good.LastSuccess, failed.LastSuccess)
	require.True(t, failed.Loaded)

	recovered, _ := Apply(failed, Result{Seq: 3, At: pollRef.Add(2 * time.Minute)}, refreshRules)
	require.Empty(t, recovered.Error)
	require.Nil(t, recovered.ErrorAt)
}

func TestApplyNullFillsOnFirstLoadError(t *testing.T) {
	state, applied := Apply(State{}, Result{Seq: 1, Err: errors.New("timeout"), At: pollRef}, refreshRules)
	require.True(t, applied)
	require.False(t, state.Loaded)
	require.Len(t, state.Slots, 60)
	require.Equal(t, 60, state.Stats.Missing)
	require.Nil(t, state.LastSuccess)
}

func TestApplyDiscardsStaleResult(t *testing.T) {
	newer, _ := Apply(State{}, Result{Seq: 5, Samples: []series.RawSample{rawAt(pollRef.Add(-time.Minute), "21")}, At: pollRef}, refreshRules)
	same, applied := Apply(newer, Result{Seq: 4, Err: errors.New("late"), At: pollRef}, refreshRules)
	require.False(t, applied)
	require.Equal(t, newer, same)
}

func TestApplySlidingKeepsSeenData(t *testing.T) {
	rules := Rules{Policy: catalog.PolicySliding, Window: 60, Skew: time.Minute}
	first, _ := Apply(State{}, Result{Seq: 1, Samples: []series.RawSample{rawAt(pollRef.Add(-time.Minute), "21")}, At: pollRef}, rules)

	// the upstream temporarily returns nothing: the seen point stays
	second, _ := Apply(first, Result{Seq: 2, At: pollRef.Add(time.Minute)}, rules)
	require.Equal(t, first.Slots, second.Slots)
	require.Equal(t, catalog.PolicySliding, second.Policy)

	third, _ := Apply(second, Result{Seq: 3, Samples: []series.RawSample{rawAt(pollRef, "22")}, At: pollRef.Add(time.Minute)}, rules)
	require.Len(t, third.Slots, 60)
	require.Equal(t, 22.0, third.Slots[59].Value.Float64)
	require.Equal(t, 21.0, third.Slots[58].Value.Float64)
}

func TestApplySlidingSeedsAfterFailedFirstLoad(t *testing.T) {
	rules := Rules{Policy: catalog.PolicySliding, Window: 60, Skew: time.Minute}
	failed, applied := Apply(State{}, Result{Seq: 1, Err: errors.New("upstream down"), At: pollRef}, rules)
	require.True(t, applied)
	require.False(t, failed.Loaded)
	require.Len(t, failed.Slots, 60)

	anchor := series.Anchor(pollRef, time.Minute)
	var samples []series.RawSample
	for i := 0; i < 29; i++ {
		samples = append(samples, rawAt(anchor.Add(-time.Duration(i)*time.Minute), "20"))
	}
	recovered, applied := Apply(failed, Result{Seq: 2, Samples: samples, At: pollRef}, rules)
	require.True(t, applied)
	require.True(t, recovered.Loaded)
	require.Empty(t, recovered.Error)

	fresh, _ := Apply(State{}, Result{Seq: 1, Samples: samples, At: pollRef}, rules)
	require.Equal(t, fresh.Slots, recovered.Slots)
	require.Equal(t, 29, recovered.Stats.Populated)
	require.Equal(t, 31, recovered.Stats.Missing)
}

func TestTaskDiscardsLateResult(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, _ string, _ sensorapi.Query) ([]series.RawSample, error) {
		if calls.Add(1) == 1 {
			<-release
			return []series.RawSample{rawAt(pollRef.Add(-time.Minute), "1")}, nil
		}
		return []series.RawSample{rawAt(pollRef.Add(-time.Minute), "2")}, nil
	})

	sensor := catalog.Sensor{ID: "s1", Path: "/s1", Policy: catalog.PolicyRefresh}
	clock := &fixedClock{now: pollRef}
	task := NewTask(sensor, fetcher, Settings{Skew: time.Minute}, clock, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = task.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	state, err := task.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2.0, state.Slots[59].Value.Float64)

	close(release)
	<-done
	final := task.Snapshot()
	require.Equal(t, uint64(2), final.Seq)
	require.Equal(t, 2.0, final.Slots[59].Value.Float64)
}

func TestTaskRunPollsAndStops(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, path string, q sensorapi.Query) ([]series.RawSample, error) {
		calls.Add(1)
		if path != "/icu" || q.Order != sensorapi.OrderDesc || q.Limit != sensorapi.DefaultLimit {
			return nil, errors.New("unexpected query")
		}
		return nil, nil
	})
	sensor := catalog.Sensor{ID: "icu", Path: "/icu", Policy: catalog.PolicyRefresh}
	task := NewTask(sensor, fetcher, Settings{Interval: 10 * time.Millisecond}, &fixedClock{now: pollRef}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not stop")
	}

	state := task.Snapshot()
	require.True(t, state.Loaded)
	require.Empty(t, state.Error)
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, calls.Load())
}

func TestTaskSkipsOverlappingTicks(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, _ string, _ sensorapi.Query) ([]series.RawSample, error) {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	})
	sensor := catalog.Sensor{ID: "slow", Path: "/slow"}
	task := NewTask(sensor, fetcher, Settings{Interval: 5 * time.Millisecond, Timeout: time.Second}, &fixedClock{now: pollRef}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(stopped)
	}()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())

	cancel()
	<-stopped
	close(release)
	// the cancelled poll must not have written state
	require.False(t, task.Snapshot().Loaded)
	require.Equal(t, uint64(0), task.Snapshot().Seq)
}

func TestNextDelay(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 15, 12, 0, time.UTC)
	require.Equal(t, 18*time.Second, nextDelay(now, time.Minute, 30*time.Second))

	now = time.Date(2025, 3, 4, 10, 15, 30, 0, time.UTC)
	require.Equal(t, time.Minute, nextDelay(now, time.Minute, 30*time.Second))

	now = time.Date(2025, 3, 4, 10, 15, 45, 0, time.UTC)
	require.Equal(t, 45*time.Second, nextDelay(now, time.Minute, 30*time.Second))
	require.Equal(t, 15*time.Second, nextDelay(now, time.Minute, 0))
}

func TestHubLookups(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
sectors:
  - id: icu
    sensors:
      - {id: icu-temp, kind: temperature, policy: sliding, skew: 0s}
      - {id: icu-hum, kind: humidity}
`))
	require.NoError(t, err)

	fetcher := fetchFunc(func(ctx context.Context, _ string, _ sensorapi.Query) ([]series.RawSample, error) {
		return []series.RawSample{rawAt(pollRef, "23")}, nil
	})
	hub := NewHub(cat, fetcher, Settings{Skew: time.Minute}, &fixedClock{now: pollRef}, quietLogger())

	_, err = hub.Snapshot("nope")
	require.ErrorIs(t, err, ErrUnknownSensor)
	_, err = hub.Refresh(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownSensor)

	state, err := hub.Refresh(context.Background(), "icu-temp")
	require.NoError(t, err)
	require.Equal(t, catalog.PolicySliding, state.Policy)
	// zero skew from the catalog puts the current minute in the window
	require.Equal(t, 23.0, state.Slots[59].Value.Float64)

	hum, err := hub.Refresh(context.Background(), "icu-hum")
	require.NoError(t, err)
	require.Equal(t, 0, hum.Stats.Populated)

	snaps := hub.Snapshots()
	require.Len(t, snaps, 2)
	require.Equal(t, "icu-temp", snaps[0].SensorID)
}
