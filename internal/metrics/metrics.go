// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "securegate",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "securegate",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// PasswordResetsTotal counts reset flow outcomes: requested, mail_failed, limited, consumed, rejected.
	PasswordResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "securegate",
		Name:      "password_resets_total",
		Help:      "Password reset flow events by outcome.",
	}, []string{"outcome"})

	// LoginAttemptsTotal counts logins by result.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "securegate",
		Name:      "login_attempts_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	// PostWritesTotal counts committed post writes by operation: create, update, delete.
	PostWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "securegate",
		Name:      "post_writes_total",
		Help:      "Committed post writes by operation.",
	}, []string{"op"})

	// ImageCleanupFailuresTotal counts old upload files that could not be removed.
	ImageCleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "securegate",
		Name:      "image_cleanup_failures_total",
		Help:      "Replaced or orphaned upload files that could not be deleted.",
	})
)
