// Package observability holds the process-wide Prometheus collectors.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitplan",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	adoptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitplan",
		Subsystem: "workouts",
		Name:      "adoptions_total",
		Help:      "Catalog adoptions by outcome (created, existing, missing).",
	}, []string{"result"})

	checklistToggles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitplan",
		Subsystem: "workouts",
		Name:      "checklist_toggles_total",
		Help:      "Checklist items toggled.",
	})

	entitlementDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitplan",
		Subsystem: "entitlement",
		Name:      "decisions_total",
		Help:      "Authoring entitlement checks by decision (granted, denied, error).",
	}, []string{"decision"})
)

func init() {
	prometheus.MustRegister(requestDuration, adoptions, checklistToggles, entitlementDecisions)
}

// Adoption outcomes.
const (
	AdoptionCreated  = "created"
	AdoptionExisting = "existing"
	AdoptionMissing  = "missing"
)

// Entitlement decisions.
const (
	DecisionGranted = "granted"
	DecisionDenied  = "denied"
	DecisionError   = "error"
)

// ObserveRequest records one finished HTTP request. route is the matched
// router pattern, never the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route string, status int, d time.Duration) {
	requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordAdoption counts one adoption attempt.
func RecordAdoption(result string) {
	adoptions.WithLabelValues(result).Inc()
}

// RecordChecklistToggle counts one successful toggle.
func RecordChecklistToggle() {
	checklistToggles.Inc()
}

// RecordEntitlement counts one gate decision.
func RecordEntitlement(decision string) {
	entitlementDecisions.WithLabelValues(decision).Inc()
}
