package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	staleResponsesDropped *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for collaborator API
// traffic and list reconciliation.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sis_api_requests_total",
			Help: "Total number of requests issued to the SIS API.",
		}, []string{"entity", "operation", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sis_api_latency_seconds",
			Help:    "Latency distribution for SIS API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"entity", "operation"})

		staleResponsesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sis_stale_responses_dropped_total",
			Help: "List responses discarded because a newer fetch superseded them.",
		}, []string{"entity"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, staleResponsesDropped)
	})
}

// APIRequests exposes the counter for collaborator API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for collaborator API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// StaleResponses exposes the counter for discarded stale list responses.
func StaleResponses() *prometheus.CounterVec {
	RegisterMetrics()
	return staleResponsesDropped
}
