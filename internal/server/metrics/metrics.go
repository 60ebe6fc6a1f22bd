// Package metrics provides Prometheus metrics for the brainsync server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Session verification outcomes. The reason is never returned to clients.
const (
	SessionValid   = "valid"
	SessionExpired = "expired"
	SessionInvalid = "invalid"
	SessionMissing = "missing"
)

const namespace = "brainsync"

var (
	// RotationsObservedTotal counts credential rotation notifications
	// received from the OAuth client.
	RotationsObservedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "rotations_observed_total",
			Help:      "Total number of credential rotations observed",
		},
	)

	// RotationWritesTotal counts persistence attempts for rotated credentials.
	RotationWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "writes_total",
			Help:      "Total number of rotated credential writes",
		},
		[]string{"result"},
	)

	// AuditAppendFailuresTotal counts audit entries that could not be written.
	AuditAppendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "append_failures_total",
			Help:      "Total number of failed audit appends",
		},
	)

	// SessionVerificationsTotal counts session token checks by outcome.
	SessionVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "verifications_total",
			Help:      "Total number of session verifications",
		},
		[]string{"outcome"},
	)
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		RotationsObservedTotal,
		RotationWritesTotal,
		AuditAppendFailuresTotal,
		SessionVerificationsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func IncrementRotationObserved() {
	RotationsObservedTotal.Inc()
}

// IncrementRotationWrite records the outcome of persisting a rotation.
func IncrementRotationWrite(success bool) {
	result := ResultFailure
	if success {
		result = ResultSuccess
	}
	RotationWritesTotal.WithLabelValues(result).Inc()
}

func IncrementAuditFailure() {
	AuditAppendFailuresTotal.Inc()
}

func IncrementSessionVerification(outcome string) {
	SessionVerificationsTotal.WithLabelValues(outcome).Inc()
}
