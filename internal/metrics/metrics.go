// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FormsSavedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formaly_forms_saved_total",
			Help: "Cumulative number of form documents persisted, by mode.",
		}, []string{"mode"})

	FormSaveRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formaly_form_save_rejected_total",
			Help: "Cumulative number of saves aborted by document rules.",
		})

	SubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formaly_submissions_total",
			Help: "Cumulative number of accepted form responses.",
		})

	SubmissionRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formaly_submission_rejected_total",
			Help: "Cumulative number of rejected form responses, by reason.",
		}, []string{"reason"})

	RegistryFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formaly_registry_fallback_total",
			Help: "Number of times the preset registry fell back to the built-in table.",
		})

	PublicCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formaly_public_cache_hits_total",
			Help: "Public form definitions served from the in-memory cache.",
		})

	PublicCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formaly_public_cache_misses_total",
			Help: "Public form definitions loaded from the database.",
		})
)

func init() {
	prometheus.MustRegister(
		FormsSavedTotal,
		FormSaveRejectedTotal,
		SubmissionsTotal,
		SubmissionRejectedTotal,
		RegistryFallbackTotal,
		PublicCacheHitsTotal,
		PublicCacheMissesTotal,
	)
}
