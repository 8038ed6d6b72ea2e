// Package metrics exposes coupling measurements as Prometheus collectors.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/milk9111/tether/coupling"
)

const namespace = "tether"

var (
	registerOnce sync.Once

	couplingsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coupling",
			Name:      "started_total",
			Help:      "Couplings started.",
		},
	)
	couplingsReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coupling",
			Name:      "released_total",
			Help:      "Couplings released, by reason.",
		},
		[]string{"reason"},
	)
	activeCouplings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coupling",
			Name:      "active",
			Help:      "Couplings currently held.",
		},
	)
	notices = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coupling",
			Name:      "notices_total",
			Help:      "Notices sent to actors, by message key.",
		},
		[]string{"key"},
	)
	seatAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vehicle",
			Name:      "seat_attempts_total",
			Help:      "Forced seating attempts of coupled targets.",
		},
		[]string{"seated"},
	)
	teleports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "teleports_total",
			Help:      "Target position corrections, by method.",
		},
		[]string{"method"},
	)
	followPass = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one follow pass.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		},
	)
	sweepPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "purged_total",
			Help:      "Stale entries and links removed by the sweep.",
		},
	)
	sweepFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "faults_total",
			Help:      "Sweep passes aborted by a host fault.",
		},
	)
	systemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "system_duration_seconds",
			Help:      "Duration of one sandbox system update, by system.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14),
		},
		[]string{"system"},
	)
	journalDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "dropped_total",
			Help:      "Journal events dropped because the writer fell behind.",
		},
	)
	configReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "reloads_total",
			Help:      "Configuration reloads, by outcome.",
		},
		[]string{"success"},
	)
)

// Register adds every collector to the default registry. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			couplingsStarted,
			couplingsReleased,
			activeCouplings,
			notices,
			seatAttempts,
			teleports,
			followPass,
			sweepPurged,
			sweepFaults,
			systemDuration,
			journalDropped,
			configReloads,
		)
	})
}

// Recorder implements coupling.Recorder on the package collectors.
type Recorder struct{}

var _ coupling.Recorder = Recorder{}

func NewRecorder() Recorder {
	Register()
	return Recorder{}
}

func (Recorder) CouplingStarted() {
	couplingsStarted.Inc()
}

func (Recorder) CouplingReleased(reason coupling.ReleaseReason) {
	couplingsReleased.WithLabelValues(string(reason)).Inc()
}

func (Recorder) Notice(key coupling.MessageKey) {
	notices.WithLabelValues(string(key)).Inc()
}

func (Recorder) SeatAttempt(ok bool) {
	seatAttempts.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (Recorder) Teleport(forced bool) {
	method := "primary"
	if forced {
		method = "unsafe"
	}
	teleports.WithLabelValues(method).Inc()
}

func (Recorder) ActiveCouplings(n int) {
	activeCouplings.Set(float64(n))
}

func (Recorder) FollowPass(d time.Duration) {
	followPass.Observe(d.Seconds())
}

func (Recorder) SweepPurged(n int) {
	sweepPurged.Add(float64(n))
}

func (Recorder) SweepFault() {
	sweepFaults.Inc()
}

// ObserveSystem records one system update. It matches ecs.Observer.
func ObserveSystem(name string, d time.Duration) {
	Register()
	systemDuration.WithLabelValues(name).Observe(d.Seconds())
}

// JournalDropped counts one journal event lost to back pressure.
func JournalDropped() {
	Register()
	journalDropped.Inc()
}

// RecordConfigReload counts a configuration reload attempt.
func RecordConfigReload(success bool) {
	Register()
	configReloads.WithLabelValues(strconv.FormatBool(success)).Inc()
}
