package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_created_total",
		Help: "Total number of purchase records created",
	})

	PurchasesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_completed_total",
		Help: "Total number of purchases confirmed",
	})

	PurchasesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_failed_total",
		Help: "Total number of failed purchase attempts",
	}, []string{"reason"})

	PurchaseConfirmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "purchase_confirm_latency_seconds",
		Help:    "Latency of purchase confirmation",
		Buckets: prometheus.DefBuckets,
	})

	EnrollmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrollments_total",
		Help: "Total number of enrollment grants applied",
	})

	LecturesViewedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lectures_viewed_total",
		Help: "Total number of lecture-viewed events recorded",
	})

	CoursesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courses_completed_total",
		Help: "Total number of course completions derived from progress",
	})

	AccessChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_checks_total",
		Help: "Total number of lecture access checks",
	}, []string{"result"})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts",
	})

	PaymentSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_success_total",
		Help: "Total number of successful payments",
	})

	PaymentFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_failed_total",
		Help: "Total number of failed payments",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
