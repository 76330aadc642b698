package reminder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts dispatch outcomes.
type Metrics struct {
	Scans   prometheus.Counter
	Sent    prometheus.Counter
	Failed  prometheus.Counter
	Skipped prometheus.Counter
}

// NewMetrics registers the dispatcher counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Scans: f.NewCounter(prometheus.CounterOpts{
			Name: "contentplanner_reminder_scans_total",
			Help: "Total number of reminder dispatch scans",
		}),
		Sent: f.NewCounter(prometheus.CounterOpts{
			Name: "contentplanner_reminders_sent_total",
			Help: "Total number of reminders delivered",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "contentplanner_reminders_failed_total",
			Help: "Total number of reminder sends that failed and were left for retry",
		}),
		Skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "contentplanner_reminders_skipped_total",
			Help: "Reminders delivered but already marked sent elsewhere",
		}),
	}
}
