package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "booking_operations_total",
			Help:      "Booking lifecycle operations by kind and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	slotFullRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "slot_full_rejections_total",
			Help:      "Admissions rejected because the slot was at capacity.",
		},
		[]string{"activity"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slotbook",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingOps, slotFullRejections, httpRequests, httpDuration)
	})
}

// IncBookingOp increments the lifecycle-operation counter.
func IncBookingOp(operation, outcome string) {
	bookingOps.WithLabelValues(operation, outcome).Inc()
}

// IncSlotFull increments the capacity-rejection counter for an activity.
func IncSlotFull(activityID string) {
	slotFullRejections.WithLabelValues(activityID).Inc()
}

// ObserveHTTP records one HTTP request.
func ObserveHTTP(endpoint, status string, duration time.Duration) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
