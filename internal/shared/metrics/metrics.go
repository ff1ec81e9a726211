package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_uploaded_total",
		Help: "Total document uploads accepted, by category.",
	}, []string{"category"})

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_state_transitions_total",
		Help: "Total document lifecycle state transitions.",
	}, []string{"from", "to"})

	verifierRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verifier_requests_total",
		Help: "Total calls to the external verification capability, by operation and outcome.",
	}, []string{"operation", "outcome"})

	verifierDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verifier_request_duration_seconds",
		Help:    "Latency of external verification capability calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// IncDocumentUploaded increments the upload counter for a category.
func IncDocumentUploaded(category string) {
	documentsUploaded.WithLabelValues(category).Inc()
}

// IncStateTransition records one lifecycle transition.
func IncStateTransition(from, to string) {
	stateTransitions.WithLabelValues(from, to).Inc()
}

// ObserveVerifierCall records outcome and latency of one gateway call.
func ObserveVerifierCall(operation, outcome string, seconds float64) {
	verifierRequests.WithLabelValues(operation, outcome).Inc()
	verifierDuration.WithLabelValues(operation).Observe(seconds)
}

// Handler exposes the prometheus metrics endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
