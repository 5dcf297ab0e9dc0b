package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intake_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	Submissions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_submissions_total",
		Help: "Form submissions stored",
	})

	OTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_otp_requests_total",
		Help: "OTP requests by outcome",
	}, []string{"result"})

	OTPVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_otp_verifications_total",
		Help: "OTP verifications by outcome",
	}, []string{"result"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_notifications_total",
		Help: "Submission notifications by notifier and outcome",
	}, []string{"notifier", "result"})

	SweptEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_swept_entries_total",
		Help: "Expired entries removed by the sweeper",
	}, []string{"kind"})

	FallbackResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_fallback_responses_total",
		Help: "Read responses served from static data because the store failed",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		Submissions,
		OTPRequests,
		OTPVerifications,
		Notifications,
		SweptEntries,
		FallbackResponses,
	)
}

// Handler returns an http.Handler for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
