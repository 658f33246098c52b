package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// decodeTotal counts decodes by outcome
	decodeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treegen_search_decode_total",
		Help: "Total decodes by outcome",
	}, []string{"outcome"})

	// decodeDuration tracks decode latency
	decodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "treegen_search_decode_duration_seconds",
		Help:    "Decode duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})

	// stepsTotal counts search steps
	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treegen_search_steps_total",
		Help: "Total search steps",
	})

	// candidatesTotal counts successor hypotheses built
	candidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treegen_search_candidates_total",
		Help: "Total successor hypotheses built",
	})

	// prunedTotal counts successors dropped before ranking, by reason
	prunedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treegen_search_pruned_total",
		Help: "Total successor hypotheses pruned by reason",
	}, []string{"reason"})
)
