package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkInCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "challenge_service",
		Subsystem: "progress",
		Name:      "checkins_recorded_total",
		Help:      "Number of accepted daily check-ins, labeled by whether the target was met.",
	}, []string{"met"})
	verdictCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "challenge_service",
		Subsystem: "progress",
		Name:      "verdicts_total",
		Help:      "Number of finalized challenges, labeled by outcome.",
	}, []string{"outcome"})
	challengePersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "challenge_service",
		Subsystem: "persistence",
		Name:      "last_challenge_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent challenge write to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(checkInCounter, verdictCounter, challengePersistGauge)
}

// RecordCheckIn counts an accepted check-in.
func RecordCheckIn(met bool) {
	label := "false"
	if met {
		label = "true"
	}
	checkInCounter.WithLabelValues(label).Inc()
}

// RecordVerdict counts a finalized challenge.
func RecordVerdict(outcome string) {
	verdictCounter.WithLabelValues(outcome).Inc()
}

// RecordChallengePersisted updates the persistence watermark gauge.
func RecordChallengePersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	challengePersistGauge.Set(float64(ts.Unix()))
}
