package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "bookings_created_total",
			Help:      "Bookings accepted by the engine.",
		},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "booking_rejections_total",
			Help:      "Booking candidates rejected, by rule.",
		},
		[]string{"kind"},
	)

	sweepCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "sweep_completed_bookings_total",
			Help:      "Checked-in bookings completed by the expiry sweep.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingRejections, sweepCompletions)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts an accepted booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingRejected counts a rejection by validation kind.
func IncBookingRejected(kind string) {
	bookingRejections.WithLabelValues(kind).Inc()
}

// AddSweepCompleted counts bookings closed out by one sweep pass.
func AddSweepCompleted(n int) {
	sweepCompletions.Add(float64(n))
}
