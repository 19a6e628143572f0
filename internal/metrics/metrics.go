// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stumpscore_http_requests_total",
		Help: "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stumpscore_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stumpscore_orders_created_total",
		Help: "Payment orders minted, by plan and provider.",
	}, []string{"plan", "provider"})

	// PaymentVerifications counts verify outcomes: granted, replayed, rejected, error.
	PaymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stumpscore_payment_verifications_total",
		Help: "Payment verification outcomes.",
	}, []string{"outcome", "provider"})

	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stumpscore_auth_attempts_total",
		Help: "Sign-in and sign-up attempts by method and result.",
	}, []string{"method", "result"})
)
