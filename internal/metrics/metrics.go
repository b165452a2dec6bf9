// Package metrics exposes the deduper's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PairsProcessed     *prometheus.CounterVec
	PairMatches        *prometheus.CounterVec
	PairErrors         *prometheus.CounterVec
	EmbeddingCacheSize prometheus.Gauge
}

// New registers the deduper metrics on the given registerer. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PairsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deduper_pairs_processed_total",
			Help: "Article pairs scored, by stage.",
		}, []string{"stage"}),
		PairMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deduper_pair_matches_total",
			Help: "Article pairs whose score crossed the stage's match threshold.",
		}, []string{"stage"}),
		PairErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deduper_pair_errors_total",
			Help: "Article pairs that fell back to a 0.0 score after an error.",
		}, []string{"stage"}),
		EmbeddingCacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deduper_embedding_cache_size",
			Help: "Article vectors cached by the current embedding run.",
		}),
	}
}
