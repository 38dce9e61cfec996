package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalid         = "invalid"
	OutcomeProviderError   = "provider_error"
	OutcomePersistenceFail = "persistence_error"
)

var (
	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postcraft_generation_requests_total",
			Help: "Generation pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postcraft_provider_duration_seconds",
			Help:    "Latency of calls to the generation provider",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"op"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postcraft_rate_limited_total",
			Help: "Inbound requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)
