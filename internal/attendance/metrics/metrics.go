// Package metrics exposes Prometheus instrumentation for the attendance
// core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ScansProcessed   *prometheus.CounterVec
	ScansRejected    *prometheus.CounterVec
	FacilityClosures prometheus.Counter
	ForcedCheckouts  prometheus.Counter
	TwoDeepAlerts    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ScansProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "treehouse_scans_processed_total",
			Help: "Accepted badge scans by resulting transition",
		}, []string{"transition"}),
		ScansRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "treehouse_scans_rejected_total",
			Help: "Rejected scan transitions by reason",
		}, []string{"reason"}),
		FacilityClosures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "treehouse_facility_closures_total",
			Help: "Times the facility closed because the last keyholder left",
		}),
		ForcedCheckouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "treehouse_forced_checkouts_total",
			Help: "Visits force-closed by a facility closure cascade",
		}),
		TwoDeepAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "treehouse_two_deep_alerts_total",
			Help: "Two-deep compliance alerts sent to board members",
		}),
	}
}
