package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "wardmon_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	pollTotal    *prometheus.CounterVec
	pollLatency  *prometheus.HistogramVec
	pollStale    *prometheus.CounterVec
	pollSkipped  *prometheus.CounterVec
	slotsMissing *prometheus.GaugeVec

	reportTotal   *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec
)

// Init registers the collectors with the default registry.
func Init() {
	registerOnce.Do(func() {
		pollTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_total",
				Help: "Total poll cycles by sensor and result",
			},
			[]string{"sensor", "result"},
		)
		pollLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_latency_seconds",
				Help:    "Upstream fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sensor", "result"},
		)
		pollStale = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_stale_discarded_total",
				Help: "Poll results discarded because a newer result was already applied",
			},
			[]string{"sensor"},
		)
		pollSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_skipped_total",
				Help: "Scheduled polls skipped while a previous poll was in flight",
			},
			[]string{"sensor"},
		)
		slotsMissing = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "series_missing_slots",
				Help: "Slots without data in the current series",
			},
			[]string{"sensor"},
		)
		reportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_total",
				Help: "Total report renders by format and result",
			},
			[]string{"format", "result"},
		)
		reportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_latency_seconds",
				Help:    "Report render latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			pollTotal,
			pollLatency,
			pollStale,
			pollSkipped,
			slotsMissing,
			reportTotal,
			reportLatency,
		)
	})
}

// ObservePoll records one poll cycle.
func ObservePoll(sensor string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if pollTotal != nil {
		pollTotal.WithLabelValues(sensor, result).Inc()
	}
	if pollLatency != nil {
		pollLatency.WithLabelValues(sensor, result).Observe(duration.Seconds())
	}
}

// IncPollStale counts a late result that was dropped.
func IncPollStale(sensor string) {
	if pollStale != nil {
		pollStale.WithLabelValues(sensor).Inc()
	}
}

// IncPollSkipped counts a scheduled tick skipped due to an in-flight poll.
func IncPollSkipped(sensor string) {
	if pollSkipped != nil {
		pollSkipped.WithLabelValues(sensor).Inc()
	}
}

// SetMissingSlots publishes the number of null slots of a sensor's series.
func SetMissingSlots(sensor string, missing int) {
	if slotsMissing != nil {
		slotsMissing.WithLabelValues(sensor).Set(float64(missing))
	}
}

// ObserveReport records report render latency and result.
func ObserveReport(format string, err error, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if reportTotal != nil {
		reportTotal.WithLabelValues(format, result).Inc()
	}
	if reportLatency != nil {
		reportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}
