// Package metrics holds the Prometheus instruments for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the record service.
type Metrics struct {
	DraftsSaved        prometheus.Counter
	SubmissionsCreated prometheus.Counter
	ValidationFailures prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	RecordsCleaned     prometheus.Counter
	NotificationErrors prometheus.Counter
	DecryptFailures    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DraftsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendo_drafts_saved_total",
			Help: "Total number of draft snapshots stored",
		}),
		SubmissionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendo_submissions_created_total",
			Help: "Total number of application records created",
		}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendo_validation_failures_total",
			Help: "Total number of submissions rejected by strict validation",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lendo_status_transitions_total",
			Help: "Review status transitions by target status",
		}, []string{"status"}),
		RecordsCleaned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendo_records_cleaned_total",
			Help: "Expired pending records removed by cleanup sweeps",
		}),
		NotificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendo_notification_errors_total",
			Help: "Failed outbound notifications (submission kept, partial success)",
		}),
		DecryptFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendo_decrypt_failures_total",
			Help: "Ciphertexts that failed authentication on read",
		}),
	}
}
